// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lumowallet/lumowallet/wallet"
)

const (
	// purposeBIP84 is the BIP43 purpose of native segwit accounts.
	purposeBIP84 = 84

	// accountKeyDepth is the depth of m/purpose'/coin_type'/account'.
	accountKeyDepth = 3
)

// hdVersion is the four byte prefix of a serialized extended key.
type hdVersion uint32

// Extended public key versions accepted for account keys. BIP44 versions are
// the ones btcd serializes with, BIP84 versions are what most hardware
// wallets export.
const (
	hdVersionMainNetBIP0044 hdVersion = 0x0488b21e // xpub
	hdVersionMainNetBIP0084 hdVersion = 0x04b24746 // zpub
	hdVersionTestNetBIP0044 hdVersion = 0x043587cf // tpub
	hdVersionTestNetBIP0084 hdVersion = 0x045f1cf6 // vpub
)

// accountKeys derives the addresses of one BIP84 account.
type accountKeys struct {
	params *chaincfg.Params

	// xprv is the account private key of wallets that can sign.
	xprv fn.Option[*hdkeychain.ExtendedKey]
	xpub *hdkeychain.ExtendedKey

	// branches holds the neutered external and internal branch keys.
	branches [2]*hdkeychain.ExtendedKey

	// privBranches mirrors branches for signing wallets.
	privBranches [2]*hdkeychain.ExtendedKey
}

// masterFingerprint returns the BIP32 fingerprint of a master key as hex.
func masterFingerprint(master *hdkeychain.ExtendedKey) (string, error) {
	pub, err := master.ECPubKey()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(
		btcutil.Hash160(pub.SerializeCompressed())[:4],
	), nil
}

// deriveAccount derives the BIP84 account 0 private key from a seed. The
// master key fingerprint is returned alongside it.
func deriveAccount(seed []byte,
	params *chaincfg.Params) (*hdkeychain.ExtendedKey, string, error) {

	master, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, "", err
	}

	fingerprint, err := masterFingerprint(master)
	if err != nil {
		return nil, "", err
	}

	path := []uint32{
		hdkeychain.HardenedKeyStart + purposeBIP84,
		hdkeychain.HardenedKeyStart + params.HDCoinType,
		hdkeychain.HardenedKeyStart + 0,
	}
	key := master
	for _, i := range path {
		key, err = key.Derive(i)
		if err != nil {
			return nil, "", err
		}
	}

	return key, fingerprint, nil
}

// parseAccountXpub parses an account level extended public key for the
// network of params. zpub and vpub keys are re-encoded with the network's
// standard version.
func parseAccountXpub(s string,
	params *chaincfg.Params) (*hdkeychain.ExtendedKey, error) {

	key, err := hdkeychain.NewKeyFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidXpub, err)
	}

	if key.IsPrivate() {
		return nil, fmt.Errorf("%w: private keys cannot be imported",
			ErrInvalidXpub)
	}

	mainnet := params.Net == wire.MainNet
	version := hdVersion(binary.BigEndian.Uint32(key.Version()))
	switch version {
	case hdVersionMainNetBIP0044, hdVersionMainNetBIP0084:
		if !mainnet {
			return nil, fmt.Errorf("%w: mainnet key for %s",
				ErrNetworkMismatch, params.Name)
		}

	case hdVersionTestNetBIP0044, hdVersionTestNetBIP0084:
		if mainnet {
			return nil, fmt.Errorf("%w: test network key for %s",
				ErrNetworkMismatch, params.Name)
		}

	default:
		return nil, fmt.Errorf("%w: unsupported version %x",
			ErrInvalidXpub, key.Version())
	}

	if key.Depth() != accountKeyDepth {
		return nil, fmt.Errorf("%w: depth %d is not an account key of "+
			"the form m/84'/coin_type'/account'", ErrInvalidXpub,
			key.Depth())
	}

	return key.CloneWithVersion(params.HDPublicKeyID[:])
}

// newAccountKeys prepares branch keys. xprv may be None for watch-only
// accounts.
func newAccountKeys(params *chaincfg.Params,
	xprv fn.Option[*hdkeychain.ExtendedKey],
	xpub *hdkeychain.ExtendedKey) (*accountKeys, error) {

	keys := &accountKeys{params: params, xprv: xprv, xpub: xpub}

	for _, k := range wallet.Keychains {
		branch, err := xpub.Derive(uint32(k))
		if err != nil {
			return nil, err
		}
		keys.branches[k] = branch
	}

	var err error
	xprv.WhenSome(func(priv *hdkeychain.ExtendedKey) {
		for _, k := range wallet.Keychains {
			var branch *hdkeychain.ExtendedKey
			branch, err = priv.Derive(uint32(k))
			if err != nil {
				return
			}
			keys.privBranches[k] = branch
		}
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// canSign reports whether private keys are available.
func (a *accountKeys) canSign() bool {
	return a.xprv.IsSome()
}

// address derives the P2WPKH address and output script at index of k.
func (a *accountKeys) address(k wallet.Keychain,
	index uint32) (btcutil.Address, []byte, error) {

	if index >= hdkeychain.HardenedKeyStart {
		return nil, nil, wallet.ErrKeychainExhausted
	}

	child, err := a.branches[k].Derive(index)
	if err != nil {
		return nil, nil, err
	}
	pub, err := child.ECPubKey()
	if err != nil {
		return nil, nil, err
	}

	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(pub.SerializeCompressed()), a.params,
	)
	if err != nil {
		return nil, nil, err
	}

	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, nil, err
	}

	return addr, script, nil
}

// privKey derives the private key at index of k.
func (a *accountKeys) privKey(k wallet.Keychain,
	index uint32) (*btcec.PrivateKey, error) {

	if !a.canSign() {
		return nil, wallet.ErrNoPrivateKeys
	}

	child, err := a.privBranches[k].Derive(index)
	if err != nil {
		return nil, err
	}
	return child.ECPrivKey()
}
