// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"

	"github.com/google/uuid"
)

// ID uniquely identifies a wallet. It is a random 128-bit value whose
// canonical form is the lowercase hyphenated UUID string.
type ID uuid.UUID

// NewID returns a new random wallet id.
func NewID() ID {
	return ID(uuid.New())
}

// ParseID parses the string form of a wallet id.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, NewError(ErrInvalidWalletID,
			fmt.Sprintf("invalid wallet ID: %s", s), err)
	}
	return ID(u), nil
}

// String returns the canonical lowercase form of the id.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the id is the all-zero value.
func (id ID) IsZero() bool {
	return id == ID{}
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
