// Package orchestrator is the composition root of the swap/liquidity
// pipeline. It owns the shared state (cache, token registry, settlement
// monitor) and drives each user action through quote, precondition
// resolution, plan building and settlement. Collaborators get read-only
// snapshots; mutation happens only through the action API.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prism-swap/orchestrator/cache"
	"github.com/prism-swap/orchestrator/chain"
	"github.com/prism-swap/orchestrator/models"
	"github.com/prism-swap/orchestrator/precond"
	"github.com/prism-swap/orchestrator/quote"
	"github.com/prism-swap/orchestrator/settle"
	"github.com/prism-swap/orchestrator/tokens"
	"github.com/prism-swap/orchestrator/txplan"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "orchestrator").Logger()
}

// Ledger is the full read surface the orchestrator needs from the
// chain. *chain.Reader satisfies it.
type Ledger interface {
	NativeBalance(ctx context.Context, accountID string) (string, error)
	FTBalance(ctx context.Context, tokenID, accountID string) (string, error)
	StorageRegistered(ctx context.Context, contractID, accountID string) (bool, error)
	PoolState(ctx context.Context, ammID string, poolID uint64) (*models.PoolState, error)
	ShareBalance(ctx context.Context, ammID string, poolID uint64, accountID string) (string, error)
	Deposits(ctx context.Context, ammID, accountID string) (map[string]string, error)
	WhitelistedTokens(ctx context.Context, ammID, accountID string) ([]string, error)
	GetReturn(ctx context.Context, ammID string, poolID uint64, tokenIn, amountIn, tokenOut string) (string, error)
	TokenMetadata(ctx context.Context, tokenID string) (models.TokenMetadata, error)
	TxStatus(ctx context.Context, txHash, senderID string) (chain.TxStatus, error)
}

// Options configures an Orchestrator.
type Options struct {
	AmmID  string
	WrapID string
	// Signer is the wallet capability. Nil for a read/plan-only
	// orchestrator (the service mode, where signing happens in the
	// user's wallet and settlements are tracked by transaction id).
	Signer settle.Signer
	// Settle bounds the confirmation wait; zero values take defaults.
	Settle settle.Config
	// RefetchDelay before re-reading invalidated cache keys.
	RefetchDelay time.Duration
	// KnownTokens seeds the metadata fallback table.
	KnownTokens []models.TokenMetadata
	// Refresh tunes the quote staleness scheduler; zero values take its
	// defaults.
	Refresh quote.RefresherConfig
	// QuoteListener receives the scheduler's background re-quotes.
	QuoteListener func(QuoteParams, *quote.Result, error)
}

// Orchestrator wires the pipeline for one AMM contract.
type Orchestrator struct {
	reader    Ledger
	registry  *tokens.Registry
	engine    *quote.Engine
	resolver  *precond.Resolver
	builder   *txplan.Builder
	store     *cache.Store
	monitor   *settle.Monitor
	refresher *quote.Refresher

	ammID     string
	wrapID    string
	settleCfg settle.Config

	quoteListener func(QuoteParams, *quote.Result, error)

	qmu       sync.Mutex
	lastQuote QuoteParams
	hasQuote  bool
}

// New wires an Orchestrator from a ledger reader and options.
func New(reader Ledger, opts Options) (*Orchestrator, error) {
	if opts.AmmID == "" || opts.WrapID == "" {
		return nil, fmt.Errorf("amm and wrap contract ids are required")
	}

	registry, err := tokens.NewRegistry(reader, opts.KnownTokens)
	if err != nil {
		return nil, fmt.Errorf("token registry: %w", err)
	}

	store := cache.NewStore(reader, opts.AmmID, opts.RefetchDelay)

	var monitor *settle.Monitor
	if opts.Signer != nil {
		monitor = settle.NewMonitor(opts.Signer, reader, store, opts.Settle)
	}

	o := &Orchestrator{
		reader:        reader,
		registry:      registry,
		engine:        quote.NewEngine(reader, opts.AmmID),
		resolver:      precond.NewResolver(reader, opts.AmmID, opts.WrapID),
		builder:       txplan.NewBuilder(opts.AmmID, opts.WrapID),
		store:         store,
		monitor:       monitor,
		ammID:         opts.AmmID,
		wrapID:        opts.WrapID,
		settleCfg:     opts.Settle,
		quoteListener: opts.QuoteListener,
	}
	o.refresher = quote.NewRefresher(o.requote, opts.Refresh)
	return o, nil
}

// Registry exposes token metadata resolution.
func (o *Orchestrator) Registry() *tokens.Registry { return o.registry }

// Cache exposes the snapshot store, e.g. for a status endpoint.
func (o *Orchestrator) Cache() *cache.Store { return o.store }

// Refresher exposes the quote staleness scheduler. UI collaborators
// report keystrokes through it and own its Start/Stop lifecycle; the
// HTTP service leaves it idle because its clients re-quote themselves.
func (o *Orchestrator) Refresher() *quote.Refresher { return o.refresher }

// NewTracker builds a settlement monitor for an externally signed
// transaction. Service mode: the wallet lives in the user's browser, so
// the server only ever learns the transaction id.
func (o *Orchestrator) NewTracker(account string) *settle.Monitor {
	return settle.NewMonitor(externalSigner{account: account}, o.reader, o.store, o.settleCfg)
}

// externalSigner stands in when signing happened outside this process.
// Only AccountID is ever used, by the status poller.
type externalSigner struct {
	account string
}

func (e externalSigner) AccountID() string { return e.account }

func (e externalSigner) SignAndSubmit(context.Context, *txplan.Plan) (string, error) {
	return "", settle.ErrSigningUnavailable
}

// ammToken maps the native sentinel to the wrapped-native contract,
// which is how the AMM accounts for the native currency.
func (o *Orchestrator) ammToken(tokenID string) string {
	if tokenID == models.NativeToken {
		return o.wrapID
	}
	return tokenID
}

// Pool returns pool state, from cache when present.
func (o *Orchestrator) Pool(ctx context.Context, poolID uint64) (models.PoolState, error) {
	if pool, ok := o.store.Pool(poolID); ok {
		return pool, nil
	}
	pool, err := o.reader.PoolState(ctx, o.ammID, poolID)
	if err != nil {
		return models.PoolState{}, err
	}
	o.store.SetPool(*pool)
	return *pool, nil
}

// Balance returns the account's balance of a token in contract units,
// from cache when present. The native sentinel reads the account's
// native balance.
func (o *Orchestrator) Balance(ctx context.Context, account, tokenID string) (string, error) {
	if amount, ok := o.store.Balance(account, tokenID); ok {
		return amount, nil
	}
	var amount string
	var err error
	if tokenID == models.NativeToken {
		amount, err = o.reader.NativeBalance(ctx, account)
	} else {
		amount, err = o.reader.FTBalance(ctx, tokenID, account)
	}
	if err != nil {
		return "", err
	}
	o.store.SetBalance(account, tokenID, amount)
	return amount, nil
}

// Balances reads several tokens for one account.
func (o *Orchestrator) Balances(ctx context.Context, account string, tokenIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(tokenIDs))
	for _, id := range tokenIDs {
		amount, err := o.Balance(ctx, account, id)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", id, err)
		}
		out[id] = amount
	}
	return out, nil
}
