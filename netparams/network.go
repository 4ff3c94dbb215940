// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netparams

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidNetwork is returned when a network name is not recognized.
var ErrInvalidNetwork = errors.New("invalid network")

// Network identifies one of the bitcoin networks a wallet can live on.
type Network uint8

const (
	// Bitcoin is the main network.
	Bitcoin Network = iota

	// Testnet is testnet version 3.
	Testnet

	// Testnet4 is the BIP94 test network.
	Testnet4

	// Signet is the default public signet.
	Signet

	// Regtest is the local regression test network.
	Regtest
)

// networkStrings holds the display names, which double as the persisted
// form of a Network.
var networkStrings = map[Network]string{
	Bitcoin:  "mainnet",
	Testnet:  "testnet",
	Testnet4: "testnet4",
	Signet:   "signet",
	Regtest:  "regtest",
}

// Networks lists every supported network in declaration order.
var Networks = []Network{Bitcoin, Testnet, Testnet4, Signet, Regtest}

// String returns the display name of the network.
func (n Network) String() string {
	if s, ok := networkStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Network (%d)", uint8(n))
}

// ParseNetwork maps a case-insensitive network name to a Network. The names
// "bitcoin" and "main" are accepted as aliases for mainnet and "testnet3" as
// an alias for testnet.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mainnet", "main", "bitcoin":
		return Bitcoin, nil
	case "testnet", "testnet3":
		return Testnet, nil
	case "testnet4":
		return Testnet4, nil
	case "signet":
		return Signet, nil
	case "regtest":
		return Regtest, nil
	}

	return 0, fmt.Errorf("%w: %q (valid options: mainnet, testnet, "+
		"testnet4, signet, regtest)", ErrInvalidNetwork, s)
}

// IsTestnet reports whether coins on the network have no value.
func (n Network) IsTestnet() bool {
	return n != Bitcoin
}

// MarshalText implements encoding.TextMarshaler.
func (n Network) MarshalText() ([]byte, error) {
	s, ok := networkStrings[n]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNetwork, uint8(n))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Network) UnmarshalText(text []byte) error {
	parsed, err := ParseNetwork(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
