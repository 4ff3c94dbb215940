// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lumowallet/lumowallet/wallet"
	"golang.org/x/sync/errgroup"
)

// FullScan walks every keychain of req from index 0 until stopGap
// consecutive scripts have no history. Transactions found on several
// scripts are reported once.
func (c *EsploraClient) FullScan(ctx context.Context, req wallet.ScanRequest,
	stopGap uint32) (*wallet.ChainUpdate, error) {

	if stopGap == 0 {
		stopGap = 1
	}

	tip, err := c.TipHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch tip: %w", err)
	}

	update := &wallet.ChainUpdate{
		TipHeight:  tip,
		LastActive: make(map[wallet.Keychain]uint32),
	}
	seen := make(map[chainhash.Hash]int)

	for _, k := range req.Keychains {
		found, lastActive, err := c.scanKeychain(ctx, req, k, stopGap)
		if err != nil {
			return nil, fmt.Errorf("scan %v keychain: %w", k, err)
		}
		lastActive.WhenSome(func(index uint32) {
			update.LastActive[k] = index
		})

		for _, etx := range found {
			tx, err := etx.msgTx()
			if err != nil {
				return nil, err
			}

			scanned := wallet.ScannedTx{
				Tx:       tx,
				Position: etx.Status.position(),
			}

			txid := tx.TxHash()
			if i, ok := seen[txid]; ok {
				// Keep the most recent view of the status.
				update.Txs[i] = scanned
				continue
			}
			seen[txid] = len(update.Txs)
			update.Txs = append(update.Txs, scanned)
		}
	}

	log.Infof("Full scan found %d transactions, tip %d, last active %v",
		len(update.Txs), tip, update.LastActive)

	return update, nil
}

// scanKeychain looks up scripts of k in batches of parallel requests. It
// returns the transactions found ordered by script index and the highest
// index with history.
func (c *EsploraClient) scanKeychain(ctx context.Context,
	req wallet.ScanRequest, k wallet.Keychain,
	stopGap uint32) ([]esploraTx, fn.Option[uint32], error) {

	var (
		found      []esploraTx
		lastActive = fn.None[uint32]()
		gap        uint32
		next       uint32
	)

	for gap < stopGap && next < hdkeychain.HardenedKeyStart {
		batch := uint32(c.parallel)
		if remaining := hdkeychain.HardenedKeyStart - next; remaining < batch {
			batch = remaining
		}

		results := make([][]esploraTx, batch)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.parallel)

		for i := uint32(0); i < batch; i++ {
			index := next + i
			g.Go(func() error {
				script, err := req.ScriptAt(k, index)
				if err != nil {
					return err
				}

				txs, err := c.scriptTxs(gctx, script)
				if err != nil {
					return err
				}
				results[index-next] = txs

				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, lastActive, err
		}

		// Walk the batch in order so the gap counts consecutive
		// unused scripts.
		for i, txs := range results {
			if gap >= stopGap {
				break
			}

			if len(txs) == 0 {
				gap++
				continue
			}

			gap = 0
			lastActive = fn.Some(next + uint32(i))

			sort.SliceStable(txs, func(a, b int) bool {
				return txs[a].Status.Confirmed &&
					!txs[b].Status.Confirmed
			})
			found = append(found, txs...)
		}

		next += batch
	}

	return found, lastActive, nil
}
