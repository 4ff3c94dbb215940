// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// mnemonicEntropyBits gives 12 word mnemonics.
const mnemonicEntropyBits = 128

// NewMnemonic returns a fresh 12 word English BIP39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// NormalizeMnemonic lower-cases a mnemonic and collapses white space.
func NormalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
}

// ValidateMnemonic checks the word list and checksum of a mnemonic.
func ValidateMnemonic(mnemonic string) error {
	if !bip39.IsMnemonicValid(NormalizeMnemonic(mnemonic)) {
		return ErrInvalidMnemonic
	}
	return nil
}

// mnemonicSeed returns the BIP39 seed of a mnemonic.
func mnemonicSeed(mnemonic, passphrase string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(
		NormalizeMnemonic(mnemonic), passphrase,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return seed, nil
}
