// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lumo

import (
	"context"

	"github.com/lightningnetwork/lnd/ticker"
	"github.com/lumowallet/lumowallet/wallet"
)

// WatchUpdate is reported after every sync of Watch.
type WatchUpdate struct {
	TipHeight uint32
	Balance   wallet.Balance

	// Err is the sync failure, if any. Watch keeps going after a failed
	// sync.
	Err error
}

// Watch syncs s right away and then on every tick of t until ctx is done,
// calling onUpdate after each sync. The ticker is stopped on return.
func (a *App) Watch(ctx context.Context, s *wallet.Session, t ticker.Ticker,
	onUpdate func(WatchUpdate)) error {

	t.Resume()
	defer t.Stop()

	syncOnce := func() {
		update := WatchUpdate{}
		if err := a.Sync(ctx, s); err != nil {
			log.Warnf("Unable to sync wallet %s: %v", s.Name(), err)
			update.Err = err
		}

		update.TipHeight = s.TipHeight()
		balance, err := s.Balance()
		if err != nil && update.Err == nil {
			update.Err = err
		}
		update.Balance = balance

		onUpdate(update)
	}

	syncOnce()
	for {
		select {
		case <-t.Ticks():
			syncOnce()

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
