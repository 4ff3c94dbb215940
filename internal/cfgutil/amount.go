// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for amounts that are negative, finer than a
// satoshi or not numbers.
var ErrInvalidAmount = errors.New("invalid amount")

// AmountFlag embeds a btcutil.Amount and implements the flags.Marshaler and
// Unmarshaler interfaces so it can be used as a config struct field.
type AmountFlag struct {
	btcutil.Amount
}

// NewAmountFlag creates an AmountFlag with a default btcutil.Amount.
func NewAmountFlag(defaultValue btcutil.Amount) *AmountFlag {
	return &AmountFlag{defaultValue}
}

// MarshalFlag satisfies the flags.Marshaler interface.
func (a *AmountFlag) MarshalFlag() (string, error) {
	return a.Amount.String(), nil
}

// UnmarshalFlag satisfies the flags.Unmarshaler interface.
func (a *AmountFlag) UnmarshalFlag(value string) error {
	amount, err := ParseAmount(value)
	if err != nil {
		return err
	}
	a.Amount = amount
	return nil
}

// ParseAmount parses a bitcoin amount. Values are in BTC unless suffixed
// with "sat" or "sats". A trailing "BTC" is accepted.
func ParseAmount(value string) (btcutil.Amount, error) {
	s := strings.ToLower(strings.TrimSpace(value))

	shift := int32(8)
	switch {
	case strings.HasSuffix(s, "sats"):
		s, shift = strings.TrimSuffix(s, "sats"), 0
	case strings.HasSuffix(s, "sat"):
		s, shift = strings.TrimSuffix(s, "sat"), 0
	case strings.HasSuffix(s, "btc"):
		s = strings.TrimSuffix(s, "btc")
	}

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidAmount, value, err)
	}

	sats := d.Shift(shift)
	switch {
	case sats.IsNegative():
		return 0, fmt.Errorf("%w %q: negative", ErrInvalidAmount, value)

	case !sats.IsInteger():
		return 0, fmt.Errorf("%w %q: finer than one satoshi",
			ErrInvalidAmount, value)

	case sats.GreaterThan(decimal.NewFromInt(btcutil.MaxSatoshi)):
		return 0, fmt.Errorf("%w %q: exceeds the supply",
			ErrInvalidAmount, value)
	}

	return btcutil.Amount(sats.IntPart()), nil
}
