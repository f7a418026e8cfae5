// Package precond determines which on-chain preconditions of an action
// are already satisfied: storage registrations, AMM whitelist entries,
// staged AMM-internal deposits and wrapped-native balance. The resolver
// issues all reads for one action concurrently and joins on all of
// them; a failed read degrades to "not satisfied", because an extra
// idempotent registration or deposit call is safe while a missing one
// fails the whole plan.
package precond

import (
	"context"
	"math/big"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "precond").Logger()
}

// Reader is the narrow read surface the resolver needs.
type Reader interface {
	StorageRegistered(ctx context.Context, contractID, accountID string) (bool, error)
	Deposits(ctx context.Context, ammID, accountID string) (map[string]string, error)
	WhitelistedTokens(ctx context.Context, ammID, accountID string) ([]string, error)
	FTBalance(ctx context.Context, tokenID, accountID string) (string, error)
}

// TokenState records which preconditions already hold for one token.
// Checks an action does not require are reported as satisfied so the
// plan builder emits nothing for them.
type TokenState struct {
	// AccountRegistered: the user holds a storage deposit on the token
	// contract.
	AccountRegistered bool
	// AmmRegistered: the AMM contract holds a storage deposit on the
	// token contract.
	AmmRegistered bool
	// Whitelisted: the token is on the user's AMM whitelist.
	Whitelisted bool
	// DepositShortfall is how much of the needed amount is still
	// missing from the user's AMM-internal balance, "0" when covered.
	DepositShortfall string
	// WrapShortfall is how much native currency still has to be
	// wrapped to cover the deposit shortfall. Only ever non-zero for
	// the wrapped-native token.
	WrapShortfall string
}

// Set maps token contract ids to their resolved state. Derived fresh
// for every action attempt; registration and deposit state can change
// between attempts.
type Set map[string]TokenState

// Resolver checks preconditions against one AMM deployment.
type Resolver struct {
	reader Reader
	ammID  string
	wrapID string
}

// NewResolver builds a Resolver for the given AMM and wrapped-native
// contracts.
func NewResolver(reader Reader, ammID, wrapID string) *Resolver {
	return &Resolver{reader: reader, ammID: ammID, wrapID: wrapID}
}

// ResolveSwap checks the swap preconditions for the involved tokens:
// user registration and AMM registration on each token contract.
func (r *Resolver) ResolveSwap(ctx context.Context, account string, tokens []string) Set {
	set := newSet(tokens)
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)

	for _, token := range tokens {
		g.Go(func() error {
			accountOK := r.registered(ctx, token, account)
			mu.Lock()
			state := set[token]
			state.AccountRegistered = accountOK
			set[token] = state
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			ammOK := r.registered(ctx, token, r.ammID)
			mu.Lock()
			state := set[token]
			state.AmmRegistered = ammOK
			set[token] = state
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return set
}

// ResolveAddLiquidity checks the full precondition surface for a paired
// deposit. needed maps token contract ids to the amount that must be
// present in the user's AMM-internal balance.
func (r *Resolver) ResolveAddLiquidity(ctx context.Context, account string, needed map[string]string) Set {
	tokens := make([]string, 0, len(needed))
	for token := range needed {
		tokens = append(tokens, token)
	}
	set := newSet(tokens)

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)

	for _, token := range tokens {
		g.Go(func() error {
			accountOK := r.registered(ctx, token, account)
			mu.Lock()
			state := set[token]
			state.AccountRegistered = accountOK
			set[token] = state
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			ammOK := r.registered(ctx, token, r.ammID)
			mu.Lock()
			state := set[token]
			state.AmmRegistered = ammOK
			set[token] = state
			mu.Unlock()
			return nil
		})
	}

	var deposits map[string]string
	g.Go(func() error {
		d, err := r.reader.Deposits(ctx, r.ammID, account)
		if err != nil {
			// Conservative: treat everything as not yet deposited.
			log.Warn().Err(err).Str("account", account).Msg("deposit read failed, assuming none staged")
			d = map[string]string{}
		}
		mu.Lock()
		deposits = d
		mu.Unlock()
		return nil
	})

	var whitelisted map[string]bool
	g.Go(func() error {
		listed, err := r.reader.WhitelistedTokens(ctx, r.ammID, account)
		if err != nil {
			log.Warn().Err(err).Str("account", account).Msg("whitelist read failed, assuming unlisted")
			listed = nil
		}
		w := make(map[string]bool, len(listed))
		for _, token := range listed {
			w[token] = true
		}
		mu.Lock()
		whitelisted = w
		mu.Unlock()
		return nil
	})

	var wrapBalance string
	if _, ok := needed[r.wrapID]; ok {
		g.Go(func() error {
			balance, err := r.reader.FTBalance(ctx, r.wrapID, account)
			if err != nil {
				log.Warn().Err(err).Str("account", account).Msg("wrapped balance read failed, assuming zero")
				balance = "0"
			}
			mu.Lock()
			wrapBalance = balance
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	for token, neededAmount := range needed {
		state := set[token]
		state.Whitelisted = whitelisted[token]
		state.DepositShortfall = Shortfall(neededAmount, deposits[token])
		if token == r.wrapID {
			// Wrap only what the wallet's wrapped balance cannot cover.
			state.WrapShortfall = Shortfall(state.DepositShortfall, wrapBalance)
		}
		set[token] = state
	}
	return set
}

// ResolveRemoveLiquidity checks the withdrawal targets: the user only
// needs a storage registration on each token it will receive.
func (r *Resolver) ResolveRemoveLiquidity(ctx context.Context, account string, tokens []string) Set {
	set := newSet(tokens)
	for token, state := range set {
		// Removal never deposits into the AMM, so its registration on
		// the token contracts is not required.
		state.AmmRegistered = true
		set[token] = state
	}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)

	for _, token := range tokens {
		g.Go(func() error {
			accountOK := r.registered(ctx, token, account)
			mu.Lock()
			state := set[token]
			state.AccountRegistered = accountOK
			set[token] = state
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return set
}

// registered wraps the storage lookup with the conservative fallback.
func (r *Resolver) registered(ctx context.Context, contractID, accountID string) bool {
	ok, err := r.reader.StorageRegistered(ctx, contractID, accountID)
	if err != nil {
		log.Warn().Err(err).
			Str("contract", contractID).
			Str("account", accountID).
			Msg("registration read failed, assuming unregistered")
		return false
	}
	return ok
}

// Shortfall computes needed − have floored at zero. Unparseable inputs
// count as zero on the have side and keep the full needed amount, which
// is the conservative direction.
func Shortfall(needed, have string) string {
	n, ok := new(big.Int).SetString(needed, 10)
	if !ok || n.Sign() <= 0 {
		return "0"
	}
	h, ok := new(big.Int).SetString(have, 10)
	if !ok || h.Sign() < 0 {
		h = big.NewInt(0)
	}
	diff := new(big.Int).Sub(n, h)
	if diff.Sign() < 0 {
		return "0"
	}
	return diff.String()
}

func newSet(tokens []string) Set {
	set := make(Set, len(tokens))
	for _, token := range tokens {
		set[token] = TokenState{
			Whitelisted:      true,
			DepositShortfall: "0",
			WrapShortfall:    "0",
		}
	}
	return set
}
