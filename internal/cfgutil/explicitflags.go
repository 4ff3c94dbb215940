// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

import "github.com/lumowallet/lumowallet/netparams"

// NetworkFlag is a network value implementing the flags.Marshaler and
// flags.Unmarshaler interfaces so it may be used as a config struct field.
// It records whether the value was explicitly set by the flags package, so
// a command can tell "all networks" apart from the default network.
type NetworkFlag struct {
	netparams.Network
	explicitlySet bool
}

// NewNetworkFlag creates a network flag with the provided default value.
func NewNetworkFlag(defaultValue netparams.Network) *NetworkFlag {
	return &NetworkFlag{Network: defaultValue}
}

// ExplicitlySet returns whether the flag was explicitly set through the
// flags.Unmarshaler interface.
func (n *NetworkFlag) ExplicitlySet() bool { return n.explicitlySet }

// MarshalFlag implements the flags.Marshaler interface.
func (n *NetworkFlag) MarshalFlag() (string, error) {
	return n.Network.String(), nil
}

// UnmarshalFlag implements the flags.Unmarshaler interface.
func (n *NetworkFlag) UnmarshalFlag(value string) error {
	net, err := netparams.ParseNetwork(value)
	if err != nil {
		return err
	}
	n.Network = net
	n.explicitlySet = true
	return nil
}
