// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lumowallet/lumowallet/wallet"
	"golang.org/x/time/rate"
)

const (
	// DefaultParallelRequests is the number of script lookups in flight
	// during a scan.
	DefaultParallelRequests = 5

	// DefaultRequestTimeout bounds a single HTTP request.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of retries of a failed request per
	// endpoint.
	DefaultMaxRetries = 3

	// DefaultRequestsPerSecond limits the request rate to public servers.
	DefaultRequestsPerSecond = 20

	// confirmedPageSize is the number of confirmed transactions esplora
	// returns per page of script history.
	confirmedPageSize = 25

	// maxResponseSize bounds response bodies.
	maxResponseSize = 32 << 20
)

// Config configures an EsploraClient.
type Config struct {
	// URLs are the esplora API roots, most preferred first. A request
	// that keeps failing on one endpoint moves on to the next.
	URLs []string

	// ParallelRequests bounds concurrent script lookups.
	ParallelRequests int

	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration

	// MaxRetries is the number of retries per endpoint for temporary
	// failures.
	MaxRetries int

	// RequestsPerSecond limits the request rate. Zero disables the
	// limit.
	RequestsPerSecond float64

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// EsploraClient is a wallet.ChainSource backed by the esplora REST API.
type EsploraClient struct {
	urls     []string
	parallel int
	retries  int
	http     *http.Client
	limiter  *rate.Limiter
	backoff  backoff
}

// Compile-time check to ensure EsploraClient satisfies wallet.ChainSource.
var _ wallet.ChainSource = (*EsploraClient)(nil)

// NewEsploraClient returns a client for the configured endpoints.
func NewEsploraClient(cfg Config) (*EsploraClient, error) {
	if len(cfg.URLs) == 0 {
		return nil, ErrNoEndpoints
	}

	urls := make([]string, 0, len(cfg.URLs))
	for _, u := range cfg.URLs {
		urls = append(urls, strings.TrimRight(u, "/"))
	}

	c := &EsploraClient{
		urls:     urls,
		parallel: cfg.ParallelRequests,
		retries:  cfg.MaxRetries,
		http:     cfg.HTTPClient,
		backoff: backoff{
			base:   250 * time.Millisecond,
			max:    5 * time.Second,
			scaler: 0.3,
		},
	}
	if c.parallel <= 0 {
		c.parallel = DefaultParallelRequests
	}
	if c.retries < 0 {
		c.retries = 0
	}
	if c.http == nil {
		timeout := cfg.RequestTimeout
		if timeout <= 0 {
			timeout = DefaultRequestTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	c.limiter = rate.NewLimiter(limit, c.parallel)

	return c, nil
}

// do performs a request against each endpoint in turn, retrying temporary
// failures. The body of the first successful response is returned.
func (c *EsploraClient) do(ctx context.Context, method, path string,
	body []byte) ([]byte, error) {

	var lastErr error
	for _, base := range c.urls {
		for attempt := 0; attempt <= c.retries; attempt++ {
			if attempt > 0 {
				if err := c.backoff.wait(ctx, attempt-1); err != nil {
					return nil, err
				}
			}

			resp, err := c.doOnce(ctx, method, base+path, body)
			if err == nil {
				return resp, nil
			}
			lastErr = err

			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			var httpErr *HTTPError
			if errors.As(err, &httpErr) && !httpErr.temporary() {
				// The server understood and refused the
				// request; another endpoint will not differ.
				return nil, err
			}

			log.Debugf("Request %s %s failed (attempt %d): %v",
				method, base+path, attempt+1, err)
		}
	}

	return nil, lastErr
}

func (c *EsploraClient) doOnce(ctx context.Context, method, url string,
	body []byte) ([]byte, error) {

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "text/plain")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{
			URL:    url,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(b)),
		}
	}

	return b, nil
}

func (c *EsploraClient) getJSON(ctx context.Context, path string,
	v interface{}) error {

	b, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// TipHeight returns the height of the best block.
func (c *EsploraClient) TipHeight(ctx context.Context) (uint32, error) {
	b, err := c.do(ctx, http.MethodGet, "/blocks/tip/height", nil)
	if err != nil {
		return 0, err
	}

	height, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("decode tip height: %w", err)
	}
	return uint32(height), nil
}

// scriptHash returns the esplora lookup key of an output script.
func scriptHash(pkScript []byte) string {
	hash := sha256.Sum256(pkScript)
	return hex.EncodeToString(hash[:])
}

// scriptTxs returns the full history of an output script: mempool
// transactions followed by every confirmed page.
func (c *EsploraClient) scriptTxs(ctx context.Context,
	pkScript []byte) ([]esploraTx, error) {

	base := "/scripthash/" + scriptHash(pkScript) + "/txs"
	path := base

	var all []esploraTx
	for {
		var page []esploraTx
		if err := c.getJSON(ctx, path, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)

		var (
			confirmed int
			last      string
		)
		for _, tx := range page {
			if tx.Status.Confirmed {
				confirmed++
				last = tx.Txid
			}
		}
		if confirmed < confirmedPageSize {
			return all, nil
		}

		path = base + "/chain/" + last
	}
}

// Broadcast submits a signed transaction. Node rejections are classified
// as BroadcastErr values.
func (c *EsploraClient) Broadcast(ctx context.Context,
	tx *wire.MsgTx) (chainhash.Hash, error) {

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return chainhash.Hash{}, err
	}

	b, err := c.do(
		ctx, http.MethodPost, "/tx",
		[]byte(hex.EncodeToString(buf.Bytes())),
	)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == 400 {
			return chainhash.Hash{}, mapBroadcastErr(err)
		}
		return chainhash.Hash{}, err
	}

	txid, err := chainhash.NewHashFromStr(strings.TrimSpace(string(b)))
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("decode broadcast txid: %w",
			err)
	}

	if want := tx.TxHash(); *txid != want {
		return chainhash.Hash{}, fmt.Errorf("server returned txid %v "+
			"for %v", txid, want)
	}

	log.Infof("Broadcast transaction %v", txid)

	return *txid, nil
}
