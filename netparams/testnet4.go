// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netparams

import (
	"encoding/hex"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// TestNet4Net is the network magic of testnet4.
const TestNet4Net wire.BitcoinNet = 0x1c163f28

// TestNet4ChainParams defines the chain parameters of testnet4. Address and
// extended key encodings are shared with testnet3, so only the chain identity
// and consensus schedule differ.
var TestNet4ChainParams = newTestNet4ChainParams()

func newTestNet4ChainParams() chaincfg.Params {
	p := chaincfg.TestNet3Params

	p.Name = "testnet4"
	p.Net = TestNet4Net
	p.DefaultPort = "48333"
	p.DNSSeeds = []chaincfg.DNSSeed{
		{Host: "seed.testnet4.bitcoin.sprovoost.nl", HasFiltering: true},
		{Host: "seed.testnet4.wiz.biz", HasFiltering: true},
	}

	p.GenesisBlock = &testNet4GenesisBlock
	p.GenesisHash = &testNet4GenesisHash
	p.BIP0034Height = 1
	p.BIP0065Height = 1
	p.BIP0066Height = 1
	p.Checkpoints = nil

	// Every soft fork is active from the genesis block.
	p.Deployments[chaincfg.DeploymentTaproot] = chaincfg.ConsensusDeployment{
		BitNumber:         2,
		DeploymentStarter: activeFromGenesis{},
		DeploymentEnder:   activeFromGenesis{},
	}

	return p
}

// testNet4GenesisMerkleRoot is the merkle root of the testnet4 genesis block.
var testNet4GenesisMerkleRoot = mustHash(
	"7aa0a7ae1e223414cb807e40cd57e667b718e42aaf9306db9102fe28912b7b4e",
)

// testNet4GenesisHash is the hash of the testnet4 genesis block.
var testNet4GenesisHash = mustHash(
	"00000000da84f2bafbbc53dee25a72ae507ff4914b867c565be350b0da8bf043",
)

var testNet4GenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		MerkleRoot: testNet4GenesisMerkleRoot,
		Timestamp:  time.Unix(1714777860, 0),
		Bits:       0x1d00ffff,
		Nonce:      393743547,
	},
	Transactions: []*wire.MsgTx{&testNet4GenesisCoinbase},
}

// testNet4GenesisCoinbase commits to the "03/May/2024 ..." headline and pays
// 50 BTC to an unspendable all-zero public key.
var testNet4GenesisCoinbase = wire.MsgTx{
	Version: 1,
	TxIn: []*wire.TxIn{{
		PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
		SignatureScript: mustHex("04ffff001d01044c4c30332f4d61792f3230" +
			"32342030303030303030303030303030303030303030303165" +
			"626435386332343439373062336161396437383362623030" +
			"313031316662653865613865393865303065"),
		Sequence: wire.MaxTxInSequenceNum,
	}},
	TxOut: []*wire.TxOut{{
		Value: 50 * 1e8,
		PkScript: mustHex("2100000000000000000000000000000000000000" +
			"0000000000000000000000000000ac"),
	}},
}

// activeFromGenesis is a deployment starter and ender that reports the
// deployment as started and never ended.
type activeFromGenesis struct{}

func (activeFromGenesis) HasStarted(*wire.BlockHeader) (bool, error) {
	return true, nil
}

func (activeFromGenesis) HasEnded(*wire.BlockHeader) (bool, error) {
	return false, nil
}

func mustHash(s string) chainhash.Hash {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(err)
	}
	return *h
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
