// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lumowallet/lumowallet/engine"
	"golang.org/x/term"
)

// ErrNotConfirmed is returned when the user declines a confirmation.
var ErrNotConfirmed = errors.New("not confirmed by user")

// isTerminal is replaced in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readSecret reads a line without echo when stdin is a terminal, and a plain
// line from reader otherwise.
func readSecret(reader *bufio.Reader) (string, error) {
	if isTerminal() {
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Print("\n")
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}

	line, err := reader.ReadString('\n')
	// A final line without newline is still an answer.
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptList prompts the user with the given prefix, list of valid responses,
// and default list entry to use.  The function will repeat the prompt to the
// user until they enter a valid response.
func promptList(reader *bufio.Reader, prefix string, validResponses []string,
	defaultEntry string) (string, error) {

	// Setup the prompt according to the parameters.
	validStrings := strings.Join(validResponses, "/")
	var prompt string
	if defaultEntry != "" {
		prompt = fmt.Sprintf("%s (%s) [%s]: ", prefix, validStrings,
			defaultEntry)
	} else {
		prompt = fmt.Sprintf("%s (%s): ", prefix, validStrings)
	}

	// Prompt the user until one of the valid responses is given.
	for {
		fmt.Print(prompt)
		reply, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		reply = strings.TrimSpace(strings.ToLower(reply))
		if reply == "" {
			reply = defaultEntry
		}

		for _, validResponse := range validResponses {
			if reply == validResponse {
				return reply, nil
			}
		}
	}
}

// promptListBool prompts the user for a boolean (yes/no) with the given prefix.
// The function will repeat the prompt to the user until they enter a valid
// response.
func promptListBool(reader *bufio.Reader, prefix string,
	defaultEntry string) (bool, error) {

	// Setup the valid responses.
	valid := []string{"n", "no", "y", "yes"}
	response, err := promptList(reader, prefix, valid, defaultEntry)
	if err != nil {
		return false, err
	}
	return response == "yes" || response == "y", nil
}

// Confirm asks a yes/no question defaulting to no. ErrNotConfirmed is
// returned unless the user answers yes.
func Confirm(reader *bufio.Reader, question string) error {
	ok, err := promptListBool(reader, question, "no")
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotConfirmed
	}
	return nil
}

// Mnemonic prompts for an existing BIP39 mnemonic until a valid one is
// entered. Input is hidden on terminals. When stdin is not a terminal an
// invalid mnemonic is an error instead of a retry.
func Mnemonic(reader *bufio.Reader) (string, error) {
	for {
		fmt.Print("Enter the wallet mnemonic: ")
		phrase, err := readSecret(reader)
		if err != nil {
			return "", err
		}

		phrase = engine.NormalizeMnemonic(phrase)
		err = engine.ValidateMnemonic(phrase)
		if err == nil {
			return phrase, nil
		}
		if !isTerminal() {
			return "", err
		}

		fmt.Println("The mnemonic is not a valid BIP39 English " +
			"mnemonic, please try again.")
	}
}

// Passphrase prompts for an optional BIP39 passphrase and its confirmation.
// An empty passphrase is allowed.
func Passphrase(reader *bufio.Reader) (string, error) {
	for {
		fmt.Print("Enter the mnemonic passphrase (empty for none): ")
		pass, err := readSecret(reader)
		if err != nil {
			return "", err
		}
		if pass == "" {
			return "", nil
		}

		fmt.Print("Confirm passphrase: ")
		confirm, err := readSecret(reader)
		if err != nil {
			return "", err
		}
		if pass == confirm {
			return pass, nil
		}

		fmt.Println("The entered passphrases do not match")
	}
}

// ShowMnemonic displays a freshly generated mnemonic and waits until the
// user acknowledges having stored it.
func ShowMnemonic(reader *bufio.Reader, mnemonic string) error {
	words := strings.Fields(mnemonic)

	fmt.Println("Your wallet mnemonic is:")
	for i, word := range words {
		fmt.Printf("%2d. %-10s", i+1, word)
		if (i+1)%4 == 0 {
			fmt.Printf("\n")
		}
	}
	if len(words)%4 != 0 {
		fmt.Printf("\n")
	}

	fmt.Println("\nIMPORTANT: Keep the mnemonic in a safe place as you\n" +
		"will NOT be able to restore your wallet without it.")
	fmt.Println("Please keep in mind that anyone who has access\n" +
		"to the mnemonic can also restore your wallet thereby\n" +
		"giving them access to all your funds, so it is\n" +
		"imperative that you keep it in a secure location.")

	for {
		fmt.Print(`Once you have stored the mnemonic in a safe ` +
			`and secure location, enter "OK" to continue: `)
		confirm, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		confirm = strings.TrimSpace(confirm)
		confirm = strings.Trim(confirm, `"`)
		if strings.EqualFold(confirm, "OK") {
			return nil
		}
	}
}
