// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lumowallet/lumowallet/wallet"
	"github.com/stretchr/testify/require"
)

// testScript returns a distinct P2WPKH style script per keychain and index.
func testScript(k wallet.Keychain, index uint32) []byte {
	script := make([]byte, 22)
	script[0], script[1] = 0x00, 0x14
	script[2] = byte(k)
	script[3] = byte(index >> 24)
	script[4] = byte(index >> 16)
	script[5] = byte(index >> 8)
	script[6] = byte(index)
	return script
}

func testRequest() wallet.ScanRequest {
	return wallet.ScanRequest{
		Keychains: wallet.Keychains,
		ScriptAt: func(k wallet.Keychain, index uint32) ([]byte, error) {
			return testScript(k, index), nil
		},
	}
}

// payTx returns a segwit transaction paying pkScript.
func payTx(seed byte, pkScript []byte, value int64) *wire.MsgTx {
	tx := wire.NewMsgTx(2)
	prev := wire.OutPoint{Hash: chainhash.Hash{seed}, Index: 1}
	tx.AddTxIn(wire.NewTxIn(
		&prev, nil, wire.TxWitness{{0x30, seed}, {0x02, 0x03}},
	))
	tx.TxIn[0].Sequence = 0xfffffffd
	tx.AddTxOut(wire.NewTxOut(value, pkScript))
	tx.LockTime = uint32(seed)
	return tx
}

// toEsplora renders a transaction the way the esplora API does.
func toEsplora(tx *wire.MsgTx, status esploraStatus) esploraTx {
	etx := esploraTx{
		Txid:     tx.TxHash().String(),
		Version:  tx.Version,
		LockTime: tx.LockTime,
		Status:   status,
	}
	for _, in := range tx.TxIn {
		vin := esploraVin{
			Txid:      in.PreviousOutPoint.Hash.String(),
			Vout:      in.PreviousOutPoint.Index,
			ScriptSig: hex.EncodeToString(in.SignatureScript),
			Sequence:  in.Sequence,
		}
		for _, w := range in.Witness {
			vin.Witness = append(vin.Witness, hex.EncodeToString(w))
		}
		etx.Vin = append(etx.Vin, vin)
	}
	for _, out := range tx.TxOut {
		etx.Vout = append(etx.Vout, esploraVout{
			ScriptPubKey: hex.EncodeToString(out.PkScript),
			Value:        out.Value,
		})
	}
	return etx
}

func confirmedStatus(height uint32) esploraStatus {
	return esploraStatus{
		Confirmed:   true,
		BlockHeight: height,
		BlockTime:   1700000000 + int64(height),
	}
}

// fakeEsplora serves script histories and accepts broadcasts.
type fakeEsplora struct {
	mu        sync.Mutex
	tip       uint32
	history   map[string][]esploraTx
	requests  map[string]int
	broadcast []string
	reject    string
}

func newFakeEsplora(tip uint32) *fakeEsplora {
	return &fakeEsplora{
		tip:      tip,
		history:  make(map[string][]esploraTx),
		requests: make(map[string]int),
	}
}

func (f *fakeEsplora) add(pkScript []byte, txs ...esploraTx) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := scriptHash(pkScript)
	f.history[key] = append(f.history[key], txs...)
}

func (f *fakeEsplora) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests[r.URL.Path]++

	switch {
	case r.URL.Path == "/blocks/tip/height":
		fmt.Fprintf(w, "%d", f.tip)

	case r.Method == http.MethodPost && r.URL.Path == "/tx":
		body, _ := io.ReadAll(r.Body)
		if f.reject != "" {
			http.Error(w, f.reject, http.StatusBadRequest)
			return
		}

		raw, err := hex.DecodeString(string(body))
		if err != nil {
			http.Error(w, "bad hex", http.StatusBadRequest)
			return
		}
		tx := wire.NewMsgTx(2)
		if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
			http.Error(w, "bad tx", http.StatusBadRequest)
			return
		}
		f.broadcast = append(f.broadcast, tx.TxHash().String())
		fmt.Fprint(w, tx.TxHash().String())

	case strings.HasPrefix(r.URL.Path, "/scripthash/"):
		parts := strings.Split(
			strings.TrimPrefix(r.URL.Path, "/scripthash/"), "/",
		)
		all := f.history[parts[0]]

		var page []esploraTx
		switch {
		case len(parts) == 2:
			// Mempool first, then the newest confirmed page.
			for _, tx := range all {
				if !tx.Status.Confirmed {
					page = append(page, tx)
				}
			}
			page = append(page, confirmedPage(all, "")...)

		case len(parts) == 4 && parts[2] == "chain":
			page = confirmedPage(all, parts[3])

		default:
			http.NotFound(w, r)
			return
		}

		if page == nil {
			page = []esploraTx{}
		}
		_ = json.NewEncoder(w).Encode(page)

	default:
		http.NotFound(w, r)
	}
}

// confirmedPage returns up to a page of confirmed transactions after the
// one with txid after.
func confirmedPage(all []esploraTx, after string) []esploraTx {
	var confirmed []esploraTx
	for _, tx := range all {
		if tx.Status.Confirmed {
			confirmed = append(confirmed, tx)
		}
	}

	start := 0
	if after != "" {
		for i, tx := range confirmed {
			if tx.Txid == after {
				start = i + 1
			}
		}
	}

	end := start + confirmedPageSize
	if end > len(confirmed) {
		end = len(confirmed)
	}
	return confirmed[start:end]
}

func newTestClient(t *testing.T, urls ...string) *EsploraClient {
	t.Helper()

	c, err := NewEsploraClient(Config{
		URLs:       urls,
		MaxRetries: 2,
	})
	require.NoError(t, err)
	c.backoff = backoff{base: time.Millisecond, max: 5 * time.Millisecond}

	return c
}

// TestEsploraTxRebuild ensures transactions decoded from the API hash to
// the reported txid.
func TestEsploraTxRebuild(t *testing.T) {
	t.Parallel()

	tx := payTx(1, testScript(wallet.KeychainExternal, 0), 12_345)
	etx := toEsplora(tx, confirmedStatus(10))

	b, err := json.Marshal(etx)
	require.NoError(t, err)
	var decoded esploraTx
	require.NoError(t, json.Unmarshal(b, &decoded))

	rebuilt, err := decoded.msgTx()
	require.NoError(t, err)
	require.Equal(t, tx.TxHash(), rebuilt.TxHash())
	require.Equal(t, tx.WitnessHash(), rebuilt.WitnessHash())

	pos := decoded.Status.position()
	require.True(t, pos.Confirmed)
	require.EqualValues(t, 10, pos.Height)

	decoded.Vout[0].Value++
	_, err = decoded.msgTx()
	require.ErrorContains(t, err, "hashes to")

	decoded.Vout[0].ScriptPubKey = "zz"
	_, err = decoded.msgTx()
	require.Error(t, err)
}

// TestEsploraCoinbase ensures coinbase inputs decode to the null outpoint.
func TestEsploraCoinbase(t *testing.T) {
	t.Parallel()

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(
		wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex),
		[]byte{0x01, 0x02}, nil,
	))
	tx.AddTxOut(wire.NewTxOut(50, []byte{0x51}))

	etx := toEsplora(tx, confirmedStatus(1))
	etx.Vin[0].Coinbase = true
	etx.Vin[0].Txid = strings.Repeat("0", 64)

	rebuilt, err := etx.msgTx()
	require.NoError(t, err)
	require.Equal(t, tx.TxHash(), rebuilt.TxHash())
}

// TestFullScanStopGap ensures scanning stops after stopGap consecutive
// unused scripts per keychain.
func TestFullScanStopGap(t *testing.T) {
	t.Parallel()

	fake := newFakeEsplora(800)
	ext0 := payTx(1, testScript(wallet.KeychainExternal, 0), 1000)
	ext3 := payTx(2, testScript(wallet.KeychainExternal, 3), 2000)
	int1 := payTx(3, testScript(wallet.KeychainInternal, 1), 3000)
	fake.add(testScript(wallet.KeychainExternal, 0),
		toEsplora(ext0, confirmedStatus(700)))
	fake.add(testScript(wallet.KeychainExternal, 3),
		toEsplora(ext3, esploraStatus{}))
	fake.add(testScript(wallet.KeychainInternal, 1),
		toEsplora(int1, confirmedStatus(750)))

	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	tests := []struct {
		name       string
		stopGap    uint32
		lastActive map[wallet.Keychain]uint32
		txs        []chainhash.Hash
	}{
		{
			name:    "gap bridged",
			stopGap: 3,
			lastActive: map[wallet.Keychain]uint32{
				wallet.KeychainExternal: 3,
				wallet.KeychainInternal: 1,
			},
			txs: []chainhash.Hash{
				ext0.TxHash(), ext3.TxHash(), int1.TxHash(),
			},
		},
		{
			name:    "gap too small",
			stopGap: 2,
			lastActive: map[wallet.Keychain]uint32{
				wallet.KeychainExternal: 0,
				wallet.KeychainInternal: 1,
			},
			txs: []chainhash.Hash{ext0.TxHash(), int1.TxHash()},
		},
	}

	for _, test := range tests {
		update, err := c.FullScan(
			context.Background(), testRequest(), test.stopGap,
		)
		require.NoError(t, err, test.name)
		require.EqualValues(t, 800, update.TipHeight, test.name)
		require.Equal(t, test.lastActive, update.LastActive, test.name)

		var txids []chainhash.Hash
		for _, tx := range update.Txs {
			txids = append(txids, tx.Tx.TxHash())
		}
		require.Equal(t, test.txs, txids, test.name)
	}
}

// TestFullScanPositionsAndDedup ensures positions are carried over and a
// transaction paying two scripts is reported once.
func TestFullScanPositionsAndDedup(t *testing.T) {
	t.Parallel()

	fake := newFakeEsplora(100)

	shared := payTx(9, testScript(wallet.KeychainExternal, 0), 500)
	shared.AddTxOut(wire.NewTxOut(
		700, testScript(wallet.KeychainInternal, 0),
	))
	etx := toEsplora(shared, confirmedStatus(99))
	fake.add(testScript(wallet.KeychainExternal, 0), etx)
	fake.add(testScript(wallet.KeychainInternal, 0), etx)

	srv := httptest.NewServer(fake)
	defer srv.Close()

	update, err := newTestClient(t, srv.URL).FullScan(
		context.Background(), testRequest(), 5,
	)
	require.NoError(t, err)
	require.Len(t, update.Txs, 1)
	require.Equal(t, wallet.ConfirmedAt(99, time.Unix(1700000099, 0)),
		update.Txs[0].Position)
}

// TestFullScanPaging ensures histories longer than a page are followed.
func TestFullScanPaging(t *testing.T) {
	t.Parallel()

	fake := newFakeEsplora(1000)
	script := testScript(wallet.KeychainExternal, 0)
	for i := 0; i < 30; i++ {
		tx := payTx(byte(i), script, int64(1000+i))
		fake.add(script, toEsplora(tx, confirmedStatus(uint32(900+i))))
	}
	fake.add(script, toEsplora(payTx(200, script, 1), esploraStatus{}))

	srv := httptest.NewServer(fake)
	defer srv.Close()

	update, err := newTestClient(t, srv.URL).FullScan(
		context.Background(), testRequest(), 1,
	)
	require.NoError(t, err)
	require.Len(t, update.Txs, 31)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	base := "/scripthash/" + scriptHash(script) + "/txs"
	require.Equal(t, 1, fake.requests[base])
	require.Equal(t, 1, len(fake.requests)-countOther(fake.requests, base))
}

// countOther counts request paths that do not page script.
func countOther(requests map[string]int, base string) int {
	n := 0
	for path := range requests {
		if !strings.HasPrefix(path, base+"/chain/") {
			n++
		}
	}
	return n
}

// TestBroadcast covers accepted and rejected broadcasts.
func TestBroadcast(t *testing.T) {
	t.Parallel()

	fake := newFakeEsplora(1)
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	tx := payTx(4, testScript(wallet.KeychainExternal, 0), 5000)

	txid, err := c.Broadcast(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, tx.TxHash(), txid)
	require.Equal(t, []string{txid.String()}, fake.broadcast)

	fake.mu.Lock()
	fake.reject = `sendrawtransaction RPC error: {"code":-26,` +
		`"message":"min relay fee not met, 100 < 141"}`
	fake.mu.Unlock()

	_, err = c.Broadcast(context.Background(), tx)
	require.ErrorIs(t, err, ErrInsufficientFee)

	// Rejections are final and not retried.
	fake.mu.Lock()
	require.Equal(t, 2, fake.requests["/tx"])
	fake.mu.Unlock()
}

// TestRetryAndFailover ensures temporary failures are retried and a dead
// endpoint is skipped.
func TestRetryAndFailover(t *testing.T) {
	t.Parallel()

	var flaky atomic.Int32
	flakySrv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if flaky.Add(1) <= 2 {
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, "42")
		},
	))
	defer flakySrv.Close()

	height, err := newTestClient(t, flakySrv.URL).TipHeight(
		context.Background(),
	)
	require.NoError(t, err)
	require.EqualValues(t, 42, height)
	require.EqualValues(t, 3, flaky.Load())

	var dead atomic.Int32
	deadSrv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			dead.Add(1)
			http.Error(w, "down", http.StatusBadGateway)
		},
	))
	defer deadSrv.Close()

	good := httptest.NewServer(newFakeEsplora(7))
	defer good.Close()

	height, err = newTestClient(t, deadSrv.URL, good.URL).TipHeight(
		context.Background(),
	)
	require.NoError(t, err)
	require.EqualValues(t, 7, height)
	require.EqualValues(t, 3, dead.Load())

	// Client errors are returned without trying other endpoints.
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()

	_, err = newTestClient(t, notFound.URL, good.URL).TipHeight(
		context.Background(),
	)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusNotFound, httpErr.Status)
}

// TestNewEsploraClientNoURLs ensures a client needs an endpoint.
func TestNewEsploraClientNoURLs(t *testing.T) {
	t.Parallel()

	_, err := NewEsploraClient(Config{})
	require.ErrorIs(t, err, ErrNoEndpoints)
}
