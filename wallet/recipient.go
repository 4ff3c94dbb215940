// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lumowallet/lumowallet/netparams"
)

var (
	// ErrEmptyAddress is returned when an address string is blank.
	ErrEmptyAddress = errors.New("empty address string")

	// ErrInvalidAddressFormat is returned when a string does not decode
	// as an address of any network.
	ErrInvalidAddressFormat = errors.New("invalid address format")

	// ErrUnsupportedAddressNetwork is returned when an address decodes
	// but belongs to none of the supported networks.
	ErrUnsupportedAddressNetwork = errors.New("address is valid but for " +
		"unsupported network")

	// ErrInvalidURIAmount is returned when the amount of a bitcoin URI
	// cannot be parsed.
	ErrInvalidURIAmount = errors.New("invalid amount in BIP21 URI")
)

// WrongNetworkError is returned when an address belongs to another network
// than the one expected.
type WrongNetworkError struct {
	Expected netparams.Network
	Actual   netparams.Network
}

// Error satisfies the error interface.
func (e *WrongNetworkError) Error() string {
	return fmt.Sprintf("address is valid but for wrong network - "+
		"expected %s, got %s", e.Expected, e.Actual)
}

// detectionOrder lists the networks tried when guessing the network of an
// address. Testnet4 and signet share testnet's encodings, so testnet wins.
var detectionOrder = []netparams.Network{
	netparams.Bitcoin, netparams.Testnet, netparams.Signet,
	netparams.Regtest,
}

// decodeFor decodes s and checks it belongs to net.
func decodeFor(s string, net netparams.Network) (btcutil.Address, bool) {
	params := net.ChainParams()
	addr, err := btcutil.DecodeAddress(s, params)
	if err != nil || !addr.IsForNet(params) {
		return nil, false
	}
	return addr, true
}

// ParseAddress decodes an address that must belong to net. An address of
// another supported network yields a *WrongNetworkError.
func ParseAddress(s string, net netparams.Network) (btcutil.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, NewError(ErrInvalidAddress, "parse address",
			ErrEmptyAddress)
	}

	if addr, ok := decodeFor(s, net); ok {
		return addr, nil
	}

	for _, other := range detectionOrder {
		if _, ok := decodeFor(s, other); ok {
			return nil, NewError(ErrInvalidAddress, "parse address",
				&WrongNetworkError{Expected: net, Actual: other})
		}
	}

	if _, err := btcutil.DecodeAddress(s, net.ChainParams()); err != nil {
		return nil, NewError(ErrInvalidAddress, "parse address",
			fmt.Errorf("%w: %v", ErrInvalidAddressFormat, err))
	}

	return nil, NewError(ErrInvalidAddress, "parse address",
		ErrUnsupportedAddressNetwork)
}

// PaymentRequest is an address with the network it was detected on and an
// optional requested amount.
type PaymentRequest struct {
	Address btcutil.Address
	Network netparams.Network
	Amount  fn.Option[btcutil.Amount]
	Label   fn.Option[string]
}

// ParsePaymentRequest accepts either a bare address or a BIP21
// "bitcoin:<address>?amount=<btc>" URI and detects the address network.
func ParsePaymentRequest(input string) (*PaymentRequest, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, NewError(ErrInvalidAddress, "parse payment request",
			ErrEmptyAddress)
	}

	if len(input) >= 8 && strings.EqualFold(input[:8], "bitcoin:") {
		input = input[8:]
	}

	addrPart, query, _ := strings.Cut(input, "?")
	req := &PaymentRequest{
		Amount: fn.None[btcutil.Amount](),
		Label:  fn.None[string](),
	}

	if query != "" {
		values, err := url.ParseQuery(query)
		if err != nil {
			return nil, NewError(ErrInvalidAddress,
				"parse payment request", err)
		}

		if amt := values.Get("amount"); amt != "" {
			btc, err := strconv.ParseFloat(amt, 64)
			if err != nil || btc < 0 {
				return nil, NewError(ErrInvalidAmount,
					"parse payment request",
					fmt.Errorf("%w: %s", ErrInvalidURIAmount, amt))
			}
			amount, err := btcutil.NewAmount(btc)
			if err != nil {
				return nil, NewError(ErrInvalidAmount,
					"parse payment request",
					fmt.Errorf("%w: %s", ErrInvalidURIAmount, amt))
			}
			req.Amount = fn.Some(amount)
		}

		if label := values.Get("label"); label != "" {
			req.Label = fn.Some(label)
		}
	}

	for _, net := range detectionOrder {
		if addr, ok := decodeFor(addrPart, net); ok {
			req.Address = addr
			req.Network = net
			return req, nil
		}
	}

	if _, err := btcutil.DecodeAddress(addrPart,
		netparams.Bitcoin.ChainParams()); err != nil {

		return nil, NewError(ErrInvalidAddress, "parse payment request",
			fmt.Errorf("%w: %v", ErrInvalidAddressFormat, err))
	}

	return nil, NewError(ErrInvalidAddress, "parse payment request",
		ErrUnsupportedAddressNetwork)
}

// IsValidFor reports whether the request can be paid from a wallet on net.
// Test networks sharing address encodings are interchangeable.
func (r *PaymentRequest) IsValidFor(net netparams.Network) bool {
	_, ok := decodeFor(r.Address.String(), net)
	return ok
}
