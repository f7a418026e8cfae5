// Package cache holds the last-fetched balances and pool state. Values
// are replaced whole, never patched in place, so snapshots handed to UI
// collaborators stay internally consistent. After a settlement the
// affected keys are invalidated and re-fetched after a short delay to
// let the ledger propagate.
package cache

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/prism-swap/orchestrator/models"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "cache").Logger()
}

// Refetcher reads fresh values from the ledger.
type Refetcher interface {
	NativeBalance(ctx context.Context, accountID string) (string, error)
	FTBalance(ctx context.Context, tokenID, accountID string) (string, error)
	PoolState(ctx context.Context, ammID string, poolID uint64) (*models.PoolState, error)
}

// BalanceKey addresses one cached balance.
type BalanceKey struct {
	Account string
	Token   string
}

// Snapshot is a read-only copy of the cache contents.
type Snapshot struct {
	Balances map[BalanceKey]string
	Pools    map[uint64]models.PoolState
}

// Store is the cache. All mutation is full-value replacement under one
// lock.
type Store struct {
	refetcher Refetcher
	ammID     string
	// refetchDelay is how long to wait after invalidation before
	// re-reading, so the ledger has propagated the write.
	refetchDelay   time.Duration
	refetchTimeout time.Duration

	mu       sync.RWMutex
	balances map[BalanceKey]string
	pools    map[uint64]models.PoolState
}

// NewStore builds an empty Store. A zero refetchDelay defaults to two
// seconds.
func NewStore(refetcher Refetcher, ammID string, refetchDelay time.Duration) *Store {
	if refetchDelay <= 0 {
		refetchDelay = 2 * time.Second
	}
	return &Store{
		refetcher:      refetcher,
		ammID:          ammID,
		refetchDelay:   refetchDelay,
		refetchTimeout: 15 * time.Second,
		balances:       make(map[BalanceKey]string),
		pools:          make(map[uint64]models.PoolState),
	}
}

// Balance returns the cached balance for (account, token).
func (s *Store) Balance(account, token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.balances[BalanceKey{Account: account, Token: token}]
	return v, ok
}

// Pool returns the cached state for a pool id.
func (s *Store) Pool(id uint64) (models.PoolState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[id]
	return p, ok
}

// SetBalance replaces one cached balance.
func (s *Store) SetBalance(account, token, amount string) {
	s.mu.Lock()
	s.balances[BalanceKey{Account: account, Token: token}] = amount
	s.mu.Unlock()
}

// SetPool replaces one cached pool state.
func (s *Store) SetPool(pool models.PoolState) {
	s.mu.Lock()
	s.pools[pool.ID] = pool
	s.mu.Unlock()
}

// Snapshot copies the cache for read-only consumers.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Balances: make(map[BalanceKey]string, len(s.balances)),
		Pools:    make(map[uint64]models.PoolState, len(s.pools)),
	}
	for k, v := range s.balances {
		snap.Balances[k] = v
	}
	for k, v := range s.pools {
		snap.Pools[k] = v
	}
	return snap
}

// Invalidate drops the given keys.
func (s *Store) Invalidate(account string, tokens []string, poolIDs []uint64) {
	s.mu.Lock()
	for _, token := range tokens {
		delete(s.balances, BalanceKey{Account: account, Token: token})
	}
	for _, id := range poolIDs {
		delete(s.pools, id)
	}
	s.mu.Unlock()
}

// InvalidateAndRefetch drops the keys now and re-fetches them after the
// propagation delay. The refetch is fire-and-forget: a failed read just
// leaves the key absent until the next demand-driven fetch.
func (s *Store) InvalidateAndRefetch(account string, tokens []string, poolIDs []uint64) {
	s.Invalidate(account, tokens, poolIDs)
	time.AfterFunc(s.refetchDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.refetchTimeout)
		defer cancel()
		s.Refetch(ctx, account, tokens, poolIDs)
	})
}

// Refetch reads the given keys concurrently and merges the results
// into one cache update.
func (s *Store) Refetch(ctx context.Context, account string, tokens []string, poolIDs []uint64) {
	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	balances := make(map[string]string)
	pools := make(map[uint64]models.PoolState)

	for _, token := range tokens {
		g.Go(func() error {
			var amount string
			var err error
			if token == models.NativeToken {
				amount, err = s.refetcher.NativeBalance(ctx, account)
			} else {
				amount, err = s.refetcher.FTBalance(ctx, token, account)
			}
			if err != nil {
				log.Warn().Err(err).Str("token", token).Msg("balance refetch failed")
				return nil
			}
			mu.Lock()
			balances[token] = amount
			mu.Unlock()
			return nil
		})
	}
	for _, id := range poolIDs {
		g.Go(func() error {
			pool, err := s.refetcher.PoolState(ctx, s.ammID, id)
			if err != nil {
				log.Warn().Err(err).Uint64("pool", id).Msg("pool refetch failed")
				return nil
			}
			mu.Lock()
			pools[id] = *pool
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	for token, amount := range balances {
		s.balances[BalanceKey{Account: account, Token: token}] = amount
	}
	for id, pool := range pools {
		s.pools[id] = pool
	}
	s.mu.Unlock()
}
