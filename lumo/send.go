// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lumo

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lumowallet/lumowallet/chain"
	"github.com/lumowallet/lumowallet/netparams"
	"github.com/lumowallet/lumowallet/wallet"
)

// SendRequest describes a payment from a wallet.
type SendRequest struct {
	// Recipient is an address or a BIP21 URI.
	Recipient string

	// Amount is taken from the URI when None.
	Amount fn.Option[btcutil.Amount]

	// FeeRate defaults to the half hour estimate of the fee service.
	FeeRate fn.Option[wallet.FeeRate]
}

// SendResult describes a broadcast payment.
type SendResult struct {
	Txid      chainhash.Hash
	Recipient btcutil.Address
	Amount    btcutil.Amount
	Fee       btcutil.Amount
	FeeRate   wallet.FeeRate
}

// Sync brings the wallet up to date with the chain.
func (a *App) Sync(ctx context.Context, s *wallet.Session) error {
	src, err := a.cfg.chainSource(s.Network())
	if err != nil {
		return wallet.NewError(wallet.ErrChain, "create chain client", err)
	}
	return s.Sync(ctx, src)
}

// FeeEstimates returns the recommended fee rates of net.
func (a *App) FeeEstimates(ctx context.Context,
	net netparams.Network) (chain.FeeEstimates, error) {

	client, err := a.cfg.feeClient(net)
	if err != nil {
		return chain.FeeEstimates{}, wallet.NewError(wallet.ErrChain,
			"create fee client", err)
	}

	estimates, err := client.Estimates(ctx)
	if err != nil {
		return chain.FeeEstimates{}, wallet.NewError(wallet.ErrChain,
			"fetch fee estimates", err)
	}

	return estimates, nil
}

// Send builds, signs and broadcasts a payment from s.
func (a *App) Send(ctx context.Context, s *wallet.Session,
	req *SendRequest) (*SendResult, error) {

	recipient, amount, err := parseRecipient(req, s.Network())
	if err != nil {
		return nil, err
	}

	feeRate, err := a.feeRate(ctx, s.Network(), req.FeeRate)
	if err != nil {
		return nil, err
	}

	unsigned, err := s.BuildTransaction(recipient, amount, feeRate)
	if err != nil {
		return nil, err
	}

	signed, err := s.SignTransaction(unsigned)
	if err != nil {
		return nil, err
	}

	src, err := a.cfg.chainSource(s.Network())
	if err != nil {
		return nil, wallet.NewError(wallet.ErrChain,
			"create chain client", err)
	}

	txid, err := s.Broadcast(ctx, src, signed)
	if err != nil {
		return nil, err
	}

	return &SendResult{
		Txid:      txid,
		Recipient: recipient,
		Amount:    amount,
		Fee:       unsigned.Fee,
		FeeRate:   feeRate,
	}, nil
}

// parseRecipient resolves the address and amount of a payment request.
func parseRecipient(req *SendRequest,
	net netparams.Network) (btcutil.Address, btcutil.Amount, error) {

	payment, err := wallet.ParsePaymentRequest(req.Recipient)
	if err != nil {
		return nil, 0, err
	}

	// Decoding again for the wallet network reports a wrong network
	// with both sides named.
	addr, err := wallet.ParseAddress(payment.Address.String(), net)
	if err != nil {
		return nil, 0, err
	}

	if req.Amount.IsNone() && payment.Amount.IsNone() {
		return nil, 0, wallet.NewError(wallet.ErrInvalidAmount,
			"no amount given", nil)
	}
	amount := req.Amount.UnwrapOr(payment.Amount.UnwrapOr(0))

	return addr, amount, nil
}

// feeRate returns rate or the half hour estimate of net.
func (a *App) feeRate(ctx context.Context, net netparams.Network,
	rate fn.Option[wallet.FeeRate]) (wallet.FeeRate, error) {

	if rate.IsSome() {
		return rate.UnwrapOr(0), nil
	}

	estimates, err := a.FeeEstimates(ctx, net)
	if err != nil {
		return 0, fmt.Errorf("no fee rate given: %w", err)
	}

	feeRate, err := chain.FeeRate(estimates.Medium())
	if err != nil {
		return 0, wallet.NewError(wallet.ErrChain, "convert fee "+
			"estimate", err)
	}

	log.Debugf("Using fee rate %v from the %s fee service", feeRate, net)

	return feeRate, nil
}
