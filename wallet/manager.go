// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lumowallet/lumowallet/netparams"
)

// Manager is the in-memory registry of loaded wallet sessions. When an
// active wallet is set it always refers to a loaded session.
type Manager struct {
	loader EngineLoader

	mu       sync.RWMutex
	sessions map[ID]*Session
	active   fn.Option[ID]
}

// NewManager returns an empty registry that loads engines through loader.
func NewManager(loader EngineLoader) *Manager {
	return &Manager{
		loader:   loader,
		sessions: make(map[ID]*Session),
		active:   fn.None[ID](),
	}
}

// AddWallet registers a session, replacing any session with the same id. The
// wallet becomes active if no wallet is active yet.
func (m *Manager) AddWallet(s *Session) ID {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.insertLocked(s)
	if m.active.IsNone() {
		m.active = fn.Some(s.ID())
	}

	return s.ID()
}

// insertLocked stores s and closes the session it replaces.
func (m *Manager) insertLocked(s *Session) {
	id := s.ID()
	if old, ok := m.sessions[id]; ok && old != s {
		if err := old.Close(); err != nil {
			log.Warnf("Unable to close replaced session of wallet "+
				"%s: %v", id, err)
		}
	}
	m.sessions[id] = s
}

// load opens the engine of id.
func (m *Manager) load(id ID, net netparams.Network) (Engine, error) {
	engine, err := m.loader.LoadEngine(id, net)
	switch {
	case errors.Is(err, ErrEngineNotFound):
		return nil, NewError(ErrWalletNotFound,
			fmt.Sprintf("wallet %s not found", id), err)

	case err != nil:
		return nil, engineError(fmt.Sprintf("load wallet %s", id), err)
	}

	return engine, nil
}

// LoadExistingWallet loads the persisted engine of id and registers it under
// placeholder metadata. The active wallet is left unchanged.
func (m *Manager) LoadExistingWallet(id ID, net netparams.Network) error {
	engine, err := m.load(id, net)
	if err != nil {
		return err
	}

	meta := Metadata{
		ID:        id,
		Name:      fmt.Sprintf("Loaded Wallet %s", id),
		Network:   net,
		CreatedAt: now(),
		Type:      TypeHot,
	}

	m.mu.Lock()
	m.insertLocked(NewSession(meta, engine))
	m.mu.Unlock()

	log.Infof("Loaded wallet %s on %s", id, net)

	return nil
}

// LoadWallet loads the persisted engine described by meta and registers it.
// An already loaded session is returned as is. The active wallet is left
// unchanged.
func (m *Manager) LoadWallet(meta Metadata) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[meta.ID]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	engine, err := m.load(meta.ID, meta.Network)
	if err != nil {
		return nil, err
	}
	s = NewSession(meta, engine)

	m.mu.Lock()
	m.insertLocked(s)
	m.mu.Unlock()

	log.Infof("Loaded wallet %q (%s) on %s", meta.Name, meta.ID,
		meta.Network)

	return s, nil
}

// SetActiveWallet makes a loaded wallet the active one.
func (m *Manager) SetActiveWallet(id ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return NewError(ErrWalletNotFound,
			fmt.Sprintf("wallet %s is not loaded", id), nil)
	}
	m.active = fn.Some(id)

	return nil
}

// ActiveWallet returns the session of the active wallet.
func (m *Manager) ActiveWallet() (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, err := m.active.UnwrapOrErr(
		NewError(ErrNoActiveWallet, "no active wallet", nil),
	)
	if err != nil {
		return nil, err
	}

	s, ok := m.sessions[id]
	if !ok {
		return nil, NewError(ErrWalletNotFound,
			fmt.Sprintf("active wallet %s is not loaded", id), nil)
	}

	return s, nil
}

// ActiveWalletID returns the id of the active wallet, if any.
func (m *Manager) ActiveWalletID() fn.Option[ID] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.active
}

// Wallet returns the session of a loaded wallet.
func (m *Manager) Wallet(id ID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, NewError(ErrWalletNotFound,
			fmt.Sprintf("wallet %s is not loaded", id), nil)
	}
	return s, nil
}

// GetTransactions returns the transaction history of a loaded wallet.
func (m *Manager) GetTransactions(id ID) ([]Transaction, error) {
	s, err := m.Wallet(id)
	if err != nil {
		return nil, err
	}
	return s.Transactions()
}

// ListWalletIDs returns the ids of the loaded wallets in string order.
func (m *Manager) ListWalletIDs() []ID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]ID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	return ids
}

// UnloadWallet closes and forgets a loaded wallet. If it was active, no
// wallet is active afterwards.
func (m *Manager) UnloadWallet(id ID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		m.active.WhenSome(func(active ID) {
			if active == id {
				m.active = fn.None[ID]()
			}
		})
	}
	m.mu.Unlock()

	if !ok {
		return NewError(ErrWalletNotFound,
			fmt.Sprintf("wallet %s is not loaded", id), nil)
	}

	return s.Close()
}

// Close closes every loaded session.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[ID]*Session)
	m.active = fn.None[ID]()
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	log.Debugf("Closed %d wallet %s", len(sessions),
		pickNoun(len(sessions), "session", "sessions"))

	return errors.Join(errs...)
}
