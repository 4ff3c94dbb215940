// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil"
)

const (
	// GapLimit is the number of consecutive unused addresses a scanning
	// wallet looks at before assuming there is no further history.
	GapLimit = 30

	// MaxUnusedAddresses bounds the revealed but unused receiving
	// addresses, keeping a margin below GapLimit.
	MaxUnusedAddresses = GapLimit - 5
)

// AddressInfo is a receiving address with its usage flag.
type AddressInfo struct {
	Index   uint32
	Address btcutil.Address
	IsUsed  bool
}

// NewAddress returns a receiving address. While fewer than
// MaxUnusedAddresses revealed addresses are unused, the next address is
// revealed; once the pool is full the lowest unused address is handed out
// again so every funded address stays within the gap limit.
func (s *Session) NewAddress() (btcutil.Address, error) {
	var addr btcutil.Address
	err := s.withEngine(func(e Engine) error {
		unused, err := e.ListUnusedAddresses(KeychainExternal)
		if err != nil {
			return err
		}
		if len(unused) > MaxUnusedAddresses {
			unused = unused[:MaxUnusedAddresses]
		}

		if len(unused) < MaxUnusedAddresses {
			rec, err := e.RevealNextAddress(KeychainExternal)
			if err != nil {
				return err
			}
			log.Debugf("Revealed address %d of wallet %s (%d unused)",
				rec.Index, s.meta.Name, len(unused))
			addr = rec.Address
			return nil
		}

		if len(unused) > 0 {
			log.Debugf("Unused address pool of wallet %s is full, "+
				"reusing index %d", s.meta.Name, unused[0].Index)
			addr = unused[0].Address
			return nil
		}

		// Unreachable unless MaxUnusedAddresses is zero.
		rec, err := e.RevealNextAddress(KeychainExternal)
		if err != nil {
			return err
		}
		addr = rec.Address
		return nil
	})
	if err != nil {
		return nil, addressError("new address", err)
	}

	return addr, nil
}

// CurrentAddress returns the first receiving address without revealing
// anything.
func (s *Session) CurrentAddress() (btcutil.Address, error) {
	return s.AddressAt(0)
}

// FirstAddress is an alias of CurrentAddress.
func (s *Session) FirstAddress() (btcutil.Address, error) {
	return s.AddressAt(0)
}

// AddressAt returns the receiving address at index without revealing it.
func (s *Session) AddressAt(index uint32) (btcutil.Address, error) {
	var addr btcutil.Address
	err := s.withEngine(func(e Engine) error {
		rec, err := e.PeekAddress(KeychainExternal, index)
		if err != nil {
			return err
		}
		addr = rec.Address
		return nil
	})
	if err != nil {
		return nil, addressError("peek address", err)
	}

	return addr, nil
}

// IsAddressUsed reports whether addr has history. An address is used when it
// is absent from the unused view; a wallet without any balance has no used
// addresses.
func (s *Session) IsAddressUsed(addr btcutil.Address) (bool, error) {
	var used bool
	err := s.withEngine(func(e Engine) error {
		var err error
		used, err = isAddressUsed(e, addr.String())
		return err
	})
	if err != nil {
		return false, engineError("address usage", err)
	}

	return used, nil
}

func isAddressUsed(e Engine, addr string) (bool, error) {
	balance, err := e.Balance()
	if err != nil {
		return false, err
	}
	if balance.Total() == 0 {
		return false, nil
	}

	unused, err := e.ListUnusedAddresses(KeychainExternal)
	if err != nil {
		return false, err
	}
	for _, rec := range unused {
		if rec.Address.String() == addr {
			return false, nil
		}
	}

	return true, nil
}

// Addresses returns every receiving address from index 0 up to the highest
// unused one. A wallet without unused addresses lists index 0 only.
func (s *Session) Addresses() ([]AddressInfo, error) {
	var infos []AddressInfo
	err := s.withEngine(func(e Engine) error {
		unused, err := e.ListUnusedAddresses(KeychainExternal)
		if err != nil {
			return err
		}

		var last uint32
		for _, rec := range unused {
			last = max(last, rec.Index)
		}

		infos = make([]AddressInfo, 0, last+1)
		for i := uint32(0); i <= last; i++ {
			rec, err := e.PeekAddress(KeychainExternal, i)
			if err != nil {
				return err
			}

			used, err := isAddressUsed(e, rec.Address.String())
			if err != nil {
				return err
			}

			infos = append(infos, AddressInfo{
				Index:   i,
				Address: rec.Address,
				IsUsed:  used,
			})
		}
		return nil
	})
	if err != nil {
		return nil, engineError("list addresses", err)
	}

	return infos, nil
}

// addressError maps keychain exhaustion to ErrAddressGeneration.
func addressError(desc string, err error) error {
	if errors.Is(err, ErrKeychainExhausted) {
		return NewError(ErrAddressGeneration, desc, err)
	}
	return engineError(desc, err)
}
