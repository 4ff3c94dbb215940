// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/dustin/go-humanize"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/lumowallet/lumowallet/engine"
	"github.com/lumowallet/lumowallet/internal/cfgutil"
	"github.com/lumowallet/lumowallet/internal/prompt"
	"github.com/lumowallet/lumowallet/lumo"
	"github.com/lumowallet/lumowallet/netparams"
	"github.com/lumowallet/lumowallet/wallet"
)

// command describes a subcommand registered with the parser.
type command struct {
	name  string
	short string
	long  string
	data  interface{}
}

// commands returns every subcommand. Each keeps a pointer to the shared
// config, which is complete by the time a command executes.
func commands(cfg *config) []command {
	return []command{{
		name:  "createwallet",
		short: "Create a new wallet and select it",
		long: "Create a hot wallet from a fresh 12 word mnemonic, or " +
			"from an existing one with --import. The wallet is " +
			"created on the network given by --network.",
		data: &createWalletCmd{cfg: cfg},
	}, {
		name:  "importxpub",
		short: "Import a watch-only wallet from a BIP84 account xpub",
		long: "Import a wallet from a BIP84 account extended public " +
			"key (xpub/zpub, tpub/vpub). With --fingerprint the " +
			"wallet is recorded as a hardware wallet.",
		data: &importXpubCmd{cfg: cfg},
	}, {
		name:  "listwallets",
		short: "List the known wallets",
		long: "List every wallet, or only those of --network when the " +
			"flag is given. The selected wallet is marked with *.",
		data: &listWalletsCmd{cfg: cfg},
	}, {
		name:  "selectwallet",
		short: "Select the wallet used by other commands",
		long:  "Select a wallet by name or id. The selection is persisted.",
		data:  &selectWalletCmd{cfg: cfg},
	}, {
		name:  "deletewallet",
		short: "Delete a wallet and its engine file",
		long: "Delete a wallet by name or id. The mnemonic is the only " +
			"way to restore a deleted hot wallet.",
		data: &deleteWalletCmd{cfg: cfg},
	}, {
		name:  "getaddress",
		short: "Show a receiving address without revealing new ones",
		long:  "Show the receiving address at --index, the first one by default.",
		data:  &getAddressCmd{cfg: cfg},
	}, {
		name:  "newaddress",
		short: "Get a fresh receiving address",
		long: "Reveal the next receiving address, or hand out the " +
			"lowest unused one once enough addresses are unused.",
		data: &newAddressCmd{cfg: cfg},
	}, {
		name:  "listaddresses",
		short: "List the revealed receiving addresses",
		data:  &listAddressesCmd{cfg: cfg},
	}, {
		name:  "getbalance",
		short: "Sync and show the wallet balance",
		data:  &getBalanceCmd{cfg: cfg},
	}, {
		name:  "showhistory",
		short: "Sync and show the wallet transactions",
		data:  &showHistoryCmd{cfg: cfg},
	}, {
		name:  "sendtransaction",
		short: "Send bitcoin to an address or BIP21 URI",
		data:  &sendTransactionCmd{cfg: cfg},
	}, {
		name:  "feerates",
		short: "Show the recommended fee rates of --network",
		data:  &feeRatesCmd{cfg: cfg},
	}, {
		name:  "generatemnemonic",
		short: "Print a fresh 12 word mnemonic without creating a wallet",
		data:  &generateMnemonicCmd{cfg: cfg},
	}, {
		name:  "watch",
		short: "Sync periodically and report balance changes",
		data:  &watchCmd{cfg: cfg},
	}}
}

// withApp finishes the config, opens the application and runs f with a
// context that is canceled on interrupt.
func withApp(cfg *config, f func(context.Context, *lumo.App) error) error {
	if err := finishConfig(cfg); err != nil {
		return err
	}

	app, err := lumo.New(cfg.AppDataDir, cfg.appOptions()...)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warnf("Unable to close application: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addInterruptHandler(cancel)

	return f(ctx, app)
}

// walletFlag selects the wallet a command works on.
type walletFlag struct {
	Wallet string `short:"w" long:"wallet" description:"Name or id of the wallet to use instead of the selected one"`
}

// session returns the wallet named by the flag or the selected wallet.
func (w *walletFlag) session(app *lumo.App) (*wallet.Session, error) {
	if w.Wallet != "" {
		return app.Wallet(w.Wallet)
	}
	return app.SelectedWallet()
}

// syncFlag lets read commands skip the chain sync.
type syncFlag struct {
	NoSync bool `long:"nosync" description:"Show the state of the last sync without contacting the chain backend"`
}

func (s *syncFlag) maybeSync(ctx context.Context, app *lumo.App,
	session *wallet.Session) error {

	if s.NoSync {
		return nil
	}
	return app.Sync(ctx, session)
}

type createWalletCmd struct {
	cfg *config

	Import     bool `long:"import" description:"Restore from an existing mnemonic entered at the prompt"`
	Passphrase bool `long:"passphrase" description:"Prompt for a BIP39 passphrase"`
	Args       struct {
		Name string `positional-arg-name:"name"`
	} `positional-args:"yes" required:"yes"`
}

func (c *createWalletCmd) Execute(_ []string) error {
	return withApp(c.cfg, func(_ context.Context, app *lumo.App) error {
		reader := bufio.NewReader(os.Stdin)

		mnemonic := fn.None[string]()
		if c.Import {
			phrase, err := prompt.Mnemonic(reader)
			if err != nil {
				return err
			}
			mnemonic = fn.Some(phrase)
		}

		var passphrase string
		if c.Passphrase {
			var err error
			passphrase, err = prompt.Passphrase(reader)
			if err != nil {
				return err
			}
		}

		created, err := app.CreateWallet(
			c.Args.Name, c.cfg.Network.Network, mnemonic, passphrase,
		)
		if err != nil {
			return err
		}

		if !c.Import {
			err := prompt.ShowMnemonic(reader, created.Mnemonic)
			if err != nil {
				return err
			}
		}

		return printCreated(app, created.Metadata)
	})
}

// printCreated shows a new wallet and its first address.
func printCreated(app *lumo.App, meta wallet.Metadata) error {
	s, err := app.SelectedWallet()
	if err != nil {
		return err
	}
	addr, err := s.FirstAddress()
	if err != nil {
		return err
	}

	printf("Created wallet %q on %s\n", meta.Name, meta.Network)
	printf("Type:          %s\n", meta.Type.Description())
	printf("ID:            %s\n", meta.ID)
	meta.Fingerprint().WhenSome(func(fp string) {
		printf("Fingerprint:   %s\n", fp)
	})
	printf("First address: %s\n", addr)

	return nil
}

type importXpubCmd struct {
	cfg *config

	Fingerprint string `long:"fingerprint" description:"Master key fingerprint of the hardware device, 8 hex characters"`
	Args        struct {
		Name string `positional-arg-name:"name"`
		Xpub string `positional-arg-name:"xpub"`
	} `positional-args:"yes" required:"yes"`
}

func (c *importXpubCmd) Execute(_ []string) error {
	return withApp(c.cfg, func(_ context.Context, app *lumo.App) error {
		fingerprint := fn.None[string]()
		if c.Fingerprint != "" {
			fingerprint = fn.Some(c.Fingerprint)
		}

		meta, err := app.ImportXpub(
			c.Args.Name, c.cfg.Network.Network, c.Args.Xpub,
			fingerprint,
		)
		if err != nil {
			return err
		}

		return printCreated(app, meta)
	})
}

type listWalletsCmd struct {
	cfg *config
}

func (c *listWalletsCmd) Execute(_ []string) error {
	return withApp(c.cfg, func(_ context.Context, app *lumo.App) error {
		net := fn.None[netparams.Network]()
		if c.cfg.Network.ExplicitlySet() {
			net = fn.Some(c.cfg.Network.Network)
		}

		wallets, err := app.ListWallets(net)
		if err != nil {
			return err
		}
		selected, err := app.SelectedWalletID()
		if err != nil {
			return err
		}

		if len(wallets) == 0 {
			printf("No wallets. Create one with createwallet.\n")
			return nil
		}

		printWallets(wallets, selected, time.Now())
		return nil
	})
}

// printWallets renders the wallet table.
func printWallets(wallets []wallet.Metadata, selected fn.Option[wallet.ID],
	now time.Time) {

	w := tabwriter.NewWriter(output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tNAME\tNETWORK\tTYPE\tID\tCREATED")
	for _, meta := range wallets {
		marker := ""
		if selected == fn.Some(meta.ID) {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", marker, meta.Name,
			meta.Network, meta.Type, meta.ID,
			humanize.RelTime(meta.CreatedAt, now, "ago", "from now"))
	}
	w.Flush()
}

type selectWalletCmd struct {
	cfg *config

	Args struct {
		Wallet string `positional-arg-name:"name|id"`
	} `positional-args:"yes" required:"yes"`
}

func (c *selectWalletCmd) Execute(_ []string) error {
	return withApp(c.cfg, func(_ context.Context, app *lumo.App) error {
		s, err := app.SelectWallet(c.Args.Wallet)
		if err != nil {
			return err
		}

		printf("Selected wallet %q (%s) on %s\n", s.Name(), s.ID(),
			s.Network())
		return nil
	})
}

type deleteWalletCmd struct {
	cfg *config

	Force bool `long:"force" description:"Do not ask for confirmation"`
	Args  struct {
		Wallet string `positional-arg-name:"name|id"`
	} `positional-args:"yes" required:"yes"`
}

func (c *deleteWalletCmd) Execute(_ []string) error {
	return withApp(c.cfg, func(_ context.Context, app *lumo.App) error {
		if !c.Force {
			question := fmt.Sprintf("Delete wallet %q? Funds can "+
				"only be recovered with its mnemonic",
				c.Args.Wallet)
			err := prompt.Confirm(bufio.NewReader(os.Stdin), question)
			if err != nil {
				return err
			}
		}

		meta, err := app.DeleteWallet(c.Args.Wallet)
		if err != nil {
			return err
		}

		printf("Deleted wallet %q (%s)\n", meta.Name, meta.ID)
		return nil
	})
}

type getAddressCmd struct {
	cfg *config
	walletFlag

	Index uint32 `short:"i" long:"index" description:"Index of the receiving address"`
}

func (c *getAddressCmd) Execute(_ []string) error {
	return withApp(c.cfg, func(_ context.Context, app *lumo.App) error {
		s, err := c.session(app)
		if err != nil {
			return err
		}

		addr, err := s.AddressAt(c.Index)
		if err != nil {
			return err
		}

		printf("%s\n", addr)
		return nil
	})
}

type newAddressCmd struct {
	cfg *config
	walletFlag
}

func (c *newAddressCmd) Execute(_ []string) error {
	return withApp(c.cfg, func(_ context.Context, app *lumo.App) error {
		s, err := c.session(app)
		if err != nil {
			return err
		}

		addr, err := s.NewAddress()
		if err != nil {
			return err
		}

		printf("%s\n", addr)
		return nil
	})
}

type listAddressesCmd struct {
	cfg *config
	walletFlag
}

func (c *listAddressesCmd) Execute(_ []string) error {
	return withApp(c.cfg, func(_ context.Context, app *lumo.App) error {
		s, err := c.session(app)
		if err != nil {
			return err
		}

		infos, err := s.Addresses()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(output, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tADDRESS\tSTATUS")
		for _, info := range infos {
			status := "unused"
			if info.IsUsed {
				status = "used"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", info.Index, info.Address,
				status)
		}
		return w.Flush()
	})
}

type getBalanceCmd struct {
	cfg *config
	walletFlag
	syncFlag
}

func (c *getBalanceCmd) Execute(_ []string) error {
	return withApp(c.cfg, func(ctx context.Context, app *lumo.App) error {
		s, err := c.session(app)
		if err != nil {
			return err
		}
		if err := c.maybeSync(ctx, app, s); err != nil {
			return err
		}

		balance, err := s.Balance()
		if err != nil {
			return err
		}

		printBalance(s, balance)
		return nil
	})
}

// printBalance renders a balance breakdown.
func printBalance(s *wallet.Session, b wallet.Balance) {
	printf("Wallet %q on %s at height %d\n", s.Name(), s.Network(),
		s.TipHeight())
	printf("Confirmed:         %v\n", b.Confirmed)
	printf("Trusted pending:   %v\n", b.TrustedPending)
	printf("Untrusted pending: %v\n", b.UntrustedPending)
	printf("Immature:          %v\n", b.Immature)
	printf("Spendable:         %v\n", b.TrustedSpendable())
	printf("Total:             %v\n", b.Total())
}

type showHistoryCmd struct {
	cfg *config
	walletFlag
	syncFlag
}

func (c *showHistoryCmd) Execute(_ []string) error {
	return withApp(c.cfg, func(ctx context.Context, app *lumo.App) error {
		s, err := c.session(app)
		if err != nil {
			return err
		}
		if err := c.maybeSync(ctx, app, s); err != nil {
			return err
		}

		txs, err := s.Transactions()
		if err != nil {
			return err
		}
		if len(txs) == 0 {
			printf("No transactions\n")
			return nil
		}

		printHistory(txs, s.TipHeight())
		return nil
	})
}

// printHistory renders the transaction table.
func printHistory(txs []wallet.Transaction, tip uint32) {
	w := tabwriter.NewWriter(output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TXID\tDIRECTION\tAMOUNT\tFEE\tSTATUS\tCONFIRMATIONS")
	for i := range txs {
		tx := &txs[i]
		fee := "-"
		tx.Fee.WhenSome(func(f btcutil.Amount) {
			fee = f.String()
		})
		fmt.Fprintf(w, "%v\t%v\t%v\t%s\t%v\t%d\n", tx.ID,
			tx.Direction, tx.Amount, fee, tx.Status,
			tx.Confirmations(tip))
	}
	w.Flush()
}

type sendTransactionCmd struct {
	cfg *config
	walletFlag
	syncFlag

	Amount  cfgutil.AmountFlag  `short:"a" long:"amount" description:"Amount in BTC, or in satoshis with a sat suffix; taken from the URI if omitted"`
	FeeRate cfgutil.FeeRateFlag `short:"f" long:"feerate" description:"Fee rate in sat/vB; the half hour estimate of the fee service if omitted"`
	Yes     bool                `short:"y" long:"yes" description:"Do not ask for confirmation"`
	Args    struct {
		Recipient string `positional-arg-name:"address|uri"`
	} `positional-args:"yes" required:"yes"`
}

func (c *sendTransactionCmd) Execute(_ []string) error {
	return withApp(c.cfg, func(ctx context.Context, app *lumo.App) error {
		s, err := c.session(app)
		if err != nil {
			return err
		}
		if err := c.maybeSync(ctx, app, s); err != nil {
			return err
		}

		req := &lumo.SendRequest{
			Recipient: c.Args.Recipient,
			Amount:    fn.None[btcutil.Amount](),
			FeeRate:   fn.None[wallet.FeeRate](),
		}
		if c.Amount.Amount != 0 {
			req.Amount = fn.Some(c.Amount.Amount)
		}
		if c.FeeRate.ExplicitlySet() {
			req.FeeRate = fn.Some(c.FeeRate.FeeRate)
		}

		if !c.Yes {
			question := fmt.Sprintf("Send from wallet %q to %s?",
				s.Name(), c.Args.Recipient)
			err := prompt.Confirm(bufio.NewReader(os.Stdin), question)
			if err != nil {
				return err
			}
		}

		result, err := app.Send(ctx, s, req)
		if err != nil {
			return err
		}

		printf("Sent %v to %s\n", result.Amount, result.Recipient)
		printf("Fee:  %v (%v)\n", result.Fee, result.FeeRate)
		printf("Txid: %v\n", result.Txid)
		return nil
	})
}

type feeRatesCmd struct {
	cfg *config
}

func (c *feeRatesCmd) Execute(_ []string) error {
	return withApp(c.cfg, func(ctx context.Context, app *lumo.App) error {
		net := c.cfg.Network.Network
		estimates, err := app.FeeEstimates(ctx, net)
		if err != nil {
			return err
		}

		printf("Recommended fee rates on %s (sat/vB)\n", net)
		printf("Next block: %v\n", estimates.Fastest)
		printf("Half hour:  %v\n", estimates.HalfHour)
		printf("Hour:       %v\n", estimates.Hour)
		printf("Economy:    %v\n", estimates.Economy)
		printf("Minimum:    %v\n", estimates.Minimum)
		return nil
	})
}

type generateMnemonicCmd struct {
	cfg *config
}

func (c *generateMnemonicCmd) Execute(_ []string) error {
	mnemonic, err := engine.NewMnemonic()
	if err != nil {
		return err
	}
	printf("%s\n", mnemonic)
	return nil
}

type watchCmd struct {
	cfg *config
	walletFlag

	Interval time.Duration `long:"interval" default:"1m" description:"Time between two syncs"`
}

func (c *watchCmd) Execute(_ []string) error {
	return withApp(c.cfg, func(ctx context.Context, app *lumo.App) error {
		s, err := c.session(app)
		if err != nil {
			return err
		}

		interval := c.Interval
		if interval <= 0 {
			interval = lumo.DefaultWatchInterval
		}

		printf("Watching wallet %q every %v, press Ctrl+C to stop\n",
			s.Name(), interval)

		var last fn.Option[wallet.Balance]
		err = app.Watch(ctx, s, ticker.New(interval),
			func(u lumo.WatchUpdate) {
				if u.Err != nil {
					printf("%s sync failed: %v\n",
						time.Now().Format(time.TimeOnly),
						u.Err)
					return
				}
				if last == fn.Some(u.Balance) {
					return
				}
				last = fn.Some(u.Balance)
				printf("%s height %d: confirmed %v, "+
					"pending %v\n",
					time.Now().Format(time.TimeOnly),
					u.TipHeight, u.Balance.Confirmed,
					u.Balance.TrustedPending+
						u.Balance.UntrustedPending)
			})
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
}
