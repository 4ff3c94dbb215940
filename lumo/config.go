// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lumo

import (
	"net/http"
	"time"

	"github.com/lumowallet/lumowallet/chain"
	"github.com/lumowallet/lumowallet/lumodb"
	"github.com/lumowallet/lumowallet/netparams"
	"github.com/lumowallet/lumowallet/wallet"
)

const (
	// WalletsDirName is the directory below the data directory holding
	// the engine file of every wallet.
	WalletsDirName = "wallets"

	// DefaultWatchInterval is the time between two syncs of Watch.
	DefaultWatchInterval = time.Minute
)

// Config contains the options of an App.
type Config struct {
	// DataDir holds the application database and the wallets directory.
	DataDir string

	// DBTimeout bounds how long opening the database waits for the file
	// lock.
	DBTimeout time.Duration

	// EsploraURLs override the esplora endpoints of every network.
	EsploraURLs []string

	// FeeEstimateURL overrides the fee service of every network.
	FeeEstimateURL string

	// HTTPClient is used by the chain and fee clients.
	HTTPClient *http.Client

	// MaxRetries is the per endpoint retry count of chain requests.
	MaxRetries int

	// RequestsPerSecond limits chain requests. Zero uses the client
	// default, a negative value disables the limit.
	RequestsPerSecond float64
}

// Option is a functional option of New.
type Option func(*Config)

// WithEsploraURLs overrides the esplora endpoints.
func WithEsploraURLs(urls ...string) Option {
	return func(c *Config) {
		c.EsploraURLs = urls
	}
}

// WithFeeEstimateURL overrides the fee service endpoint.
func WithFeeEstimateURL(url string) Option {
	return func(c *Config) {
		c.FeeEstimateURL = url
	}
}

// WithHTTPClient sets the HTTP client of the chain and fee clients.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithDBTimeout sets the database lock timeout.
func WithDBTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.DBTimeout = timeout
	}
}

// WithMaxRetries sets the chain request retry count.
func WithMaxRetries(retries int) Option {
	return func(c *Config) {
		c.MaxRetries = retries
	}
}

// WithRequestsPerSecond sets the chain request rate limit.
func WithRequestsPerSecond(rps float64) Option {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

func defaultConfig(dataDir string) *Config {
	return &Config{
		DataDir:           dataDir,
		DBTimeout:         lumodb.DefaultDBTimeout,
		MaxRetries:        chain.DefaultMaxRetries,
		RequestsPerSecond: chain.DefaultRequestsPerSecond,
	}
}

// chainSource returns the esplora client of net.
func (c *Config) chainSource(net netparams.Network) (wallet.ChainSource,
	error) {

	urls := c.EsploraURLs
	if len(urls) == 0 {
		urls = net.Params().EsploraURLs
	}

	rps := c.RequestsPerSecond
	if rps < 0 {
		rps = 0
	}

	return chain.NewEsploraClient(chain.Config{
		URLs:              urls,
		MaxRetries:        c.MaxRetries,
		RequestsPerSecond: rps,
		HTTPClient:        c.HTTPClient,
	})
}

// feeClient returns the fee estimate client of net.
func (c *Config) feeClient(net netparams.Network) (*chain.FeeClient, error) {
	params := *net.Params()
	if c.FeeEstimateURL != "" {
		params.FeeEstimateURL = c.FeeEstimateURL
	}
	return chain.NewFeeClient(&params, c.HTTPClient)
}
