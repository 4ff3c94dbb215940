// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package prompt

import (
	"bufio"
	"strings"
	"testing"

	"github.com/lumowallet/lumowallet/engine"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon abandon about"

func init() {
	isTerminal = func() bool { return false }
}

func reader(lines ...string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(strings.Join(lines, "\n")))
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{input: "y\n", ok: true},
		{input: "YES\n", ok: true},
		{input: "\n", ok: false},
		{input: "maybe\nno\n", ok: false},
		{input: "what\ny\n", ok: true},
	}

	for _, test := range tests {
		err := Confirm(reader(test.input), "Delete?")
		if test.ok {
			require.NoError(t, err, test.input)
		} else {
			require.ErrorIs(t, err, ErrNotConfirmed, test.input)
		}
	}
}

func TestMnemonic(t *testing.T) {
	phrase, err := Mnemonic(reader("  ABANDON " + testMnemonic[8:]))
	require.NoError(t, err)
	require.Equal(t, testMnemonic, phrase)

	_, err = Mnemonic(reader("abandon abandon\n"))
	require.ErrorIs(t, err, engine.ErrInvalidMnemonic)

	_, err = Mnemonic(reader(""))
	require.Error(t, err)
}

func TestPassphrase(t *testing.T) {
	pass, err := Passphrase(reader("\n"))
	require.NoError(t, err)
	require.Empty(t, pass)

	pass, err = Passphrase(reader("secret", "other", "secret", "secret"))
	require.NoError(t, err)
	require.Equal(t, "secret", pass)
}

func TestShowMnemonic(t *testing.T) {
	err := ShowMnemonic(reader("done", `"ok"`, ""), testMnemonic)
	require.NoError(t, err)

	err = ShowMnemonic(reader("done"), testMnemonic)
	require.Error(t, err)
}
