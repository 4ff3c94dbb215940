// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lumowallet/lumowallet/netparams"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*Session, *fakeEngine) {
	t.Helper()

	engine := newFakeEngine(netparams.Regtest)
	meta := NewMetadata("test", netparams.Regtest)

	return NewSession(meta, engine), engine
}

// TestNewAddressRevealsUntilPoolFull checks that a fresh wallet reveals
// MaxUnusedAddresses distinct addresses with increasing indexes and then
// starts handing out the lowest unused one.
func TestNewAddressRevealsUntilPoolFull(t *testing.T) {
	t.Parallel()

	s, engine := newTestSession(t)

	seen := make(map[string]struct{})
	for i := 0; i < MaxUnusedAddresses; i++ {
		addr, err := s.NewAddress()
		require.NoError(t, err)

		_, dup := seen[addr.String()]
		require.False(t, dup, "address %d repeated", i)
		seen[addr.String()] = struct{}{}

		require.EqualValues(t, i, engine.revealed[KeychainExternal])
		require.Equal(t, engine.fakeAddress(KeychainExternal,
			uint32(i)).String(), addr.String())
	}
	require.Len(t, seen, 25)

	next, err := s.NewAddress()
	require.NoError(t, err)
	require.Contains(t, seen, next.String())
	require.Equal(t, engine.fakeAddress(KeychainExternal, 0).String(),
		next.String())

	// No further index was revealed.
	require.EqualValues(t, MaxUnusedAddresses-1,
		engine.revealed[KeychainExternal])

	// Cycling is stable while nothing gets used.
	again, err := s.NewAddress()
	require.NoError(t, err)
	require.Equal(t, next.String(), again.String())
}

// TestNewAddressAfterUse checks that using an address frees a slot in the
// unused pool.
func TestNewAddressAfterUse(t *testing.T) {
	t.Parallel()

	s, engine := newTestSession(t)
	for i := 0; i < MaxUnusedAddresses; i++ {
		_, err := s.NewAddress()
		require.NoError(t, err)
	}

	// The lowest unused index is handed out while the pool is full.
	engine.markUsed(KeychainExternal, 0)
	engine.markUsed(KeychainExternal, 1)

	addr, err := s.NewAddress()
	require.NoError(t, err)
	require.Equal(t, engine.fakeAddress(KeychainExternal, 25).String(),
		addr.String())

	addr, err = s.NewAddress()
	require.NoError(t, err)
	require.Equal(t, engine.fakeAddress(KeychainExternal, 26).String(),
		addr.String())

	addr, err = s.NewAddress()
	require.NoError(t, err)
	require.Equal(t, engine.fakeAddress(KeychainExternal, 2).String(),
		addr.String())
}

// TestNewAddressConcurrent checks that concurrent callers never push the
// unused pool beyond its bound.
func TestNewAddressConcurrent(t *testing.T) {
	t.Parallel()

	s, engine := newTestSession(t)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.NewAddress()
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.EqualValues(t, MaxUnusedAddresses-1,
		engine.revealed[KeychainExternal])
}

func TestCurrentAddressIdempotent(t *testing.T) {
	t.Parallel()

	s, engine := newTestSession(t)

	first, err := s.CurrentAddress()
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		addr, err := s.CurrentAddress()
		require.NoError(t, err)
		require.Equal(t, first.String(), addr.String())
	}
	require.EqualValues(t, -1, engine.revealed[KeychainExternal])

	firstAddr, err := s.FirstAddress()
	require.NoError(t, err)
	require.Equal(t, first.String(), firstAddr.String())

	at7, err := s.AddressAt(7)
	require.NoError(t, err)
	require.Equal(t, engine.fakeAddress(KeychainExternal, 7).String(),
		at7.String())
	require.EqualValues(t, -1, engine.revealed[KeychainExternal])
}

func TestIsAddressUsed(t *testing.T) {
	t.Parallel()

	s, engine := newTestSession(t)
	for i := 0; i < 3; i++ {
		_, err := s.NewAddress()
		require.NoError(t, err)
	}
	engine.markUsed(KeychainExternal, 1)

	addr1 := engine.fakeAddress(KeychainExternal, 1)
	addr2 := engine.fakeAddress(KeychainExternal, 2)

	// Without balance every address is reported unused.
	used, err := s.IsAddressUsed(addr1)
	require.NoError(t, err)
	require.False(t, used)

	engine.balance = Balance{Confirmed: 10_000}

	used, err = s.IsAddressUsed(addr1)
	require.NoError(t, err)
	require.True(t, used)

	used, err = s.IsAddressUsed(addr2)
	require.NoError(t, err)
	require.False(t, used)
}

func TestAddresses(t *testing.T) {
	t.Parallel()

	t.Run("fresh wallet", func(t *testing.T) {
		t.Parallel()

		s, engine := newTestSession(t)
		infos, err := s.Addresses()
		require.NoError(t, err)
		require.Equal(t, []AddressInfo{{
			Index:   0,
			Address: engine.fakeAddress(KeychainExternal, 0),
		}}, infos)
	})

	t.Run("mixed usage", func(t *testing.T) {
		t.Parallel()

		s, engine := newTestSession(t)
		for i := 0; i < 4; i++ {
			_, err := s.NewAddress()
			require.NoError(t, err)
		}
		engine.markUsed(KeychainExternal, 0)
		engine.markUsed(KeychainExternal, 2)
		engine.balance = Balance{Confirmed: 1}

		infos, err := s.Addresses()
		require.NoError(t, err)
		require.Len(t, infos, 4)

		var used []bool
		for i, info := range infos {
			require.EqualValues(t, i, info.Index)
			used = append(used, info.IsUsed)
		}
		require.Equal(t, []bool{true, false, true, false}, used)
	})
}

// exhaustedEngine fails every reveal.
type exhaustedEngine struct {
	*fakeEngine
}

func (e exhaustedEngine) RevealNextAddress(Keychain) (AddressRecord, error) {
	return AddressRecord{}, ErrKeychainExhausted
}

func TestNewAddressExhausted(t *testing.T) {
	t.Parallel()

	engine := exhaustedEngine{newFakeEngine(netparams.Regtest)}
	s := NewSession(NewMetadata("full", netparams.Regtest), engine)

	_, err := s.NewAddress()
	require.True(t, IsError(err, ErrAddressGeneration), err)
	require.ErrorIs(t, err, ErrKeychainExhausted)
}

func TestSessionClosed(t *testing.T) {
	t.Parallel()

	s, engine := newTestSession(t)
	require.NoError(t, s.Close())
	require.True(t, engine.closed)
	require.NoError(t, s.Close())

	_, err := s.NewAddress()
	require.ErrorIs(t, err, ErrSessionClosed)

	var addr btcutil.Address
	_, err = s.IsAddressUsed(addr)
	require.ErrorIs(t, err, ErrSessionClosed)
}
