// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

import (
	"fmt"
	"strings"

	"github.com/lumowallet/lumowallet/wallet"
	"github.com/shopspring/decimal"
)

// FeeRateFlag is a fee rate given in sat/vB. It records whether it was set
// so an unset flag can fall back to the fee service.
type FeeRateFlag struct {
	wallet.FeeRate
	explicitlySet bool
}

// ExplicitlySet returns whether the flag was set on the command line or in
// the config file.
func (f *FeeRateFlag) ExplicitlySet() bool { return f.explicitlySet }

// MarshalFlag satisfies the flags.Marshaler interface.
func (f *FeeRateFlag) MarshalFlag() (string, error) {
	return decimal.NewFromFloat(f.SatPerVByte()).String(), nil
}

// UnmarshalFlag satisfies the flags.Unmarshaler interface.
func (f *FeeRateFlag) UnmarshalFlag(value string) error {
	s := strings.TrimSpace(strings.TrimSuffix(value, "sat/vB"))
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid fee rate %q: %v", value, err)
	}

	rate, err := wallet.FeeRateFromSatPerVByte(d.InexactFloat64())
	if err != nil {
		return err
	}

	f.FeeRate = rate
	f.explicitlySet = true
	return nil
}
