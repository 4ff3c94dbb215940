// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netparams

import "github.com/btcsuite/btcd/chaincfg"

// Params is used to group parameters for various networks such as the main
// network and test networks.
type Params struct {
	*chaincfg.Params

	// Network is the wallet level identifier of the chain.
	Network Network

	// EsploraURLs are the default block explorer endpoints, most
	// preferred first.
	EsploraURLs []string

	// FeeEstimateURL is the mempool.space recommended fees endpoint. It is
	// empty for networks without a public fee service.
	FeeEstimateURL string
}

// MainNetParams contains parameters specific to the main network.
var MainNetParams = Params{
	Params:  &chaincfg.MainNetParams,
	Network: Bitcoin,
	EsploraURLs: []string{
		"https://blockstream.info/api",
		"https://mempool.space/api",
	},
	FeeEstimateURL: "https://mempool.space/api/v1/fees/recommended",
}

// TestNet3Params contains parameters specific to the test network (version
// 3).
var TestNet3Params = Params{
	Params:  &chaincfg.TestNet3Params,
	Network: Testnet,
	EsploraURLs: []string{
		"https://mempool.space/testnet/api",
		"https://blockstream.info/testnet/api",
	},
	FeeEstimateURL: "https://mempool.space/testnet/api/v1/fees/recommended",
}

// TestNet4Params contains parameters specific to the test network (version
// 4).
var TestNet4Params = Params{
	Params:         &TestNet4ChainParams,
	Network:        Testnet4,
	EsploraURLs:    []string{"https://mempool.space/testnet4/api"},
	FeeEstimateURL: "https://mempool.space/testnet4/api/v1/fees/recommended",
}

// SigNetParams contains parameters specific to the default signet.
var SigNetParams = Params{
	Params:         &chaincfg.SigNetParams,
	Network:        Signet,
	EsploraURLs:    []string{"https://mempool.space/signet/api"},
	FeeEstimateURL: "https://mempool.space/signet/api/v1/fees/recommended",
}

// RegressionNetParams contains parameters specific to a local regtest node
// fronted by an esplora instance.
var RegressionNetParams = Params{
	Params:      &chaincfg.RegressionNetParams,
	Network:     Regtest,
	EsploraURLs: []string{"http://localhost:3002"},
}

// Params returns the parameter group of the network. Unknown values fall back
// to the main network.
func (n Network) Params() *Params {
	switch n {
	case Testnet:
		return &TestNet3Params
	case Testnet4:
		return &TestNet4Params
	case Signet:
		return &SigNetParams
	case Regtest:
		return &RegressionNetParams
	default:
		return &MainNetParams
	}
}

// ChainParams is shorthand for n.Params().Params.
func (n Network) ChainParams() *chaincfg.Params {
	return n.Params().Params
}
