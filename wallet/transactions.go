// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Direction is the direction of value flow from the wallet's point of view.
type Direction uint8

const (
	// DirectionIncoming marks a transaction that did not reduce the
	// wallet's value.
	DirectionIncoming Direction = iota

	// DirectionOutgoing marks a transaction that spent more wallet value
	// than it returned.
	DirectionOutgoing

	// DirectionSelfTransfer is reserved for transactions whose inputs and
	// outputs all belong to the wallet. The projection never produces it.
	DirectionSelfTransfer
)

// String returns a human readable name of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionIncoming:
		return "incoming"
	case DirectionOutgoing:
		return "outgoing"
	case DirectionSelfTransfer:
		return "self-transfer"
	default:
		return fmt.Sprintf("Unknown Direction (%d)", uint8(d))
	}
}

// ConfirmationStatus is either unconfirmed or confirmed at a block height.
type ConfirmationStatus struct {
	confirmed bool
	height    uint32
}

// StatusUnconfirmed is the status of a mempool transaction.
var StatusUnconfirmed = ConfirmationStatus{}

// StatusConfirmed returns the status of a transaction mined at height.
func StatusConfirmed(height uint32) ConfirmationStatus {
	return ConfirmationStatus{confirmed: true, height: height}
}

// Height returns the confirmation height, if any.
func (s ConfirmationStatus) Height() fn.Option[uint32] {
	if !s.confirmed {
		return fn.None[uint32]()
	}
	return fn.Some(s.height)
}

// String returns "unconfirmed" or "confirmed at <height>".
func (s ConfirmationStatus) String() string {
	if !s.confirmed {
		return "unconfirmed"
	}
	return fmt.Sprintf("confirmed at %d", s.height)
}

// Transaction is the wallet level view of a chain transaction. It is
// recomputed from the engine on every query.
type Transaction struct {
	ID        chainhash.Hash
	Amount    btcutil.Amount
	Direction Direction
	Status    ConfirmationStatus
	Timestamp fn.Option[time.Time]
	Fee       fn.Option[btcutil.Amount]
}

// IsConfirmed reports whether the transaction is in a block.
func (t *Transaction) IsConfirmed() bool {
	return t.Status.confirmed
}

// Confirmations returns the confirmation count at currentHeight. The
// confirming block counts as the first confirmation.
func (t *Transaction) Confirmations(currentHeight uint32) uint32 {
	if !t.Status.confirmed {
		return 0
	}

	if currentHeight < t.Status.height {
		return 1
	}
	return currentHeight - t.Status.height + 1
}

// ProjectTransaction maps a canonical engine transaction to a Transaction.
func ProjectTransaction(tx CanonicalTx) Transaction {
	direction := DirectionIncoming
	if tx.Sent > tx.Received {
		direction = DirectionOutgoing
	}

	amount := tx.Sent
	if direction == DirectionIncoming {
		amount = tx.Received
	}

	status := StatusUnconfirmed
	timestamp := fn.None[time.Time]()
	if tx.Position.Confirmed {
		status = StatusConfirmed(tx.Position.Height)
		if !tx.Position.BlockTime.IsZero() {
			timestamp = fn.Some(tx.Position.BlockTime)
		}
	}

	return Transaction{
		ID:        tx.Txid,
		Amount:    amount,
		Direction: direction,
		Status:    status,
		Timestamp: timestamp,
		Fee:       tx.Fee,
	}
}

// ProjectTransactions maps every transaction, keeping the engine's order.
func ProjectTransactions(txs []CanonicalTx) []Transaction {
	projected := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		projected = append(projected, ProjectTransaction(tx))
	}
	return projected
}
