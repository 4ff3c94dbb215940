// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lumowallet/lumowallet/netparams"
)

// Type describes where the signing keys of a wallet live.
type Type uint8

const (
	// TypeHot is a software wallet holding its own private keys.
	TypeHot Type = iota

	// TypeCold is a hardware wallet. Signing requires the device.
	TypeCold

	// TypeXpubOnly is a watch-only wallet built from an extended public
	// key.
	TypeXpubOnly
)

var typeStrings = map[Type]string{
	TypeHot:      "hot",
	TypeCold:     "cold",
	TypeXpubOnly: "xpub_only",
}

// String returns the persisted name of the wallet type.
func (t Type) String() string {
	if s, ok := typeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Type (%d)", uint8(t))
}

// CanSign reports whether wallets of this type are able to produce
// signatures, possibly with the help of an external device.
func (t Type) CanSign() bool {
	switch t {
	case TypeHot, TypeCold:
		return true
	default:
		return false
	}
}

// Description returns a one line human description of the type.
func (t Type) Description() string {
	switch t {
	case TypeHot:
		return "Hot wallet, software wallet (can sign transactions)"
	case TypeCold:
		return "Hardware wallet (requires device to sign)"
	case TypeXpubOnly:
		return "Watch-only wallet (cannot sign transactions)"
	default:
		return t.String()
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	s, ok := typeStrings[t]
	if !ok {
		return nil, fmt.Errorf("unknown wallet type %d", uint8(t))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	for typ, s := range typeStrings {
		if strings.EqualFold(s, string(text)) {
			*t = typ
			return nil
		}
	}
	return fmt.Errorf("unknown wallet type %q", text)
}

// Metadata is the persisted description of a wallet. Records are never
// mutated in place; a change replaces the whole record.
type Metadata struct {
	ID                ID                `json:"id"`
	Name              string            `json:"name"`
	Network           netparams.Network `json:"network"`
	CreatedAt         time.Time         `json:"created_at"`
	Type              Type              `json:"wallet_type"`
	MasterFingerprint string            `json:"master_fingerprint,omitempty"`
}

// now is the clock used by the metadata constructors.
var now = func() time.Time {
	return time.Now().UTC()
}

// NewMetadata returns metadata for a new hot wallet with a fresh id.
func NewMetadata(name string, net netparams.Network) Metadata {
	return Metadata{
		ID:        NewID(),
		Name:      name,
		Network:   net,
		CreatedAt: now(),
		Type:      TypeHot,
	}
}

// NewHardwareMetadata returns metadata for a hardware wallet.
func NewHardwareMetadata(id ID, name string, net netparams.Network,
	fingerprint string) Metadata {

	return Metadata{
		ID:                id,
		Name:              name,
		Network:           net,
		CreatedAt:         now(),
		Type:              TypeCold,
		MasterFingerprint: fingerprint,
	}
}

// NewMnemonicMetadata returns metadata for a hot wallet restored from or
// created with a mnemonic.
func NewMnemonicMetadata(id ID, name string, net netparams.Network,
	fingerprint fn.Option[string]) Metadata {

	return Metadata{
		ID:                id,
		Name:              name,
		Network:           net,
		CreatedAt:         now(),
		Type:              TypeHot,
		MasterFingerprint: fingerprint.UnwrapOr(""),
	}
}

// NewXpubMetadata returns metadata for a wallet imported from an extended
// public key. A known master fingerprint marks it as a hardware wallet,
// otherwise it is watch-only.
func NewXpubMetadata(id ID, name string, net netparams.Network,
	fingerprint fn.Option[string]) Metadata {

	typ := TypeXpubOnly
	if fingerprint.IsSome() {
		typ = TypeCold
	}

	return Metadata{
		ID:                id,
		Name:              name,
		Network:           net,
		CreatedAt:         now(),
		Type:              typ,
		MasterFingerprint: fingerprint.UnwrapOr(""),
	}
}

// Fingerprint returns the master key fingerprint if one is recorded.
func (m *Metadata) Fingerprint() fn.Option[string] {
	if m.MasterFingerprint == "" {
		return fn.None[string]()
	}
	return fn.Some(m.MasterFingerprint)
}

// Validate checks the record invariants.
func (m *Metadata) Validate() error {
	switch {
	case m.ID.IsZero():
		return NewError(ErrInvalidMetadata, "wallet id is not set", nil)

	case strings.TrimSpace(m.Name) == "":
		return NewError(ErrInvalidMetadata, "wallet name is empty", nil)

	case m.Type == TypeCold && m.MasterFingerprint == "":
		return NewError(ErrInvalidMetadata, fmt.Sprintf("wallet %q: "+
			"cold wallets require a master fingerprint", m.Name), nil)
	}

	if _, ok := typeStrings[m.Type]; !ok {
		return NewError(ErrInvalidMetadata,
			fmt.Sprintf("wallet %q: unknown type %d", m.Name, m.Type), nil)
	}

	if _, err := m.Network.MarshalText(); err != nil {
		return NewError(ErrInvalidNetwork,
			fmt.Sprintf("wallet %q", m.Name), err)
	}

	if m.MasterFingerprint != "" {
		fp, err := hex.DecodeString(m.MasterFingerprint)
		if err != nil || len(fp) != 4 {
			return NewError(ErrInvalidMetadata, fmt.Sprintf("wallet "+
				"%q: fingerprint %q is not 4 hex encoded bytes",
				m.Name, m.MasterFingerprint), err)
		}
	}

	return nil
}
