package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zeebo/assert"

	"github.com/prism-swap/orchestrator/cache"
	"github.com/prism-swap/orchestrator/models"
)

type fakeRefetcher struct {
	mu       sync.Mutex
	native   string
	balances map[string]string
	pools    map[uint64]models.PoolState
	errs     map[string]error

	balanceCalls atomic.Int32
	poolCalls    atomic.Int32
}

func (f *fakeRefetcher) NativeBalance(_ context.Context, _ string) (string, error) {
	f.balanceCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[models.NativeToken]; err != nil {
		return "", err
	}
	return f.native, nil
}

func (f *fakeRefetcher) FTBalance(_ context.Context, tokenID, _ string) (string, error) {
	f.balanceCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[tokenID]; err != nil {
		return "", err
	}
	return f.balances[tokenID], nil
}

func (f *fakeRefetcher) PoolState(_ context.Context, _ string, poolID uint64) (*models.PoolState, error) {
	f.poolCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pools[poolID]
	if !ok {
		return nil, errors.New("pool not found")
	}
	return &p, nil
}

func usdcPool(shares string) models.PoolState {
	return models.PoolState{
		ID:          7,
		TokenA:      models.TokenMetadata{ID: "wrap.test", Symbol: "wNEAR", Decimals: 24},
		TokenB:      models.TokenMetadata{ID: "usdc.test", Symbol: "USDC", Decimals: 6},
		Reserves:    map[string]string{"wrap.test": "1000", "usdc.test": "2000"},
		TotalShares: shares,
	}
}

func TestSetAndGet(t *testing.T) {
	store := cache.NewStore(&fakeRefetcher{}, "amm.test", time.Minute)

	_, ok := store.Balance("alice.test", "usdc.test")
	assert.False(t, ok)

	store.SetBalance("alice.test", "usdc.test", "500")
	got, ok := store.Balance("alice.test", "usdc.test")
	assert.True(t, ok)
	assert.Equal(t, "500", got)

	store.SetPool(usdcPool("100"))
	pool, ok := store.Pool(7)
	assert.True(t, ok)
	assert.Equal(t, "100", pool.TotalShares)
}

// Snapshots are copies: mutating one must not leak into the store.
func TestSnapshotIsolation(t *testing.T) {
	store := cache.NewStore(&fakeRefetcher{}, "amm.test", time.Minute)
	store.SetBalance("alice.test", "usdc.test", "500")
	store.SetPool(usdcPool("100"))

	snap := store.Snapshot()
	snap.Balances[cache.BalanceKey{Account: "alice.test", Token: "usdc.test"}] = "0"
	delete(snap.Pools, 7)

	got, ok := store.Balance("alice.test", "usdc.test")
	assert.True(t, ok)
	assert.Equal(t, "500", got)
	_, ok = store.Pool(7)
	assert.True(t, ok)
}

func TestInvalidateDropsOnlyNamedKeys(t *testing.T) {
	store := cache.NewStore(&fakeRefetcher{}, "amm.test", time.Minute)
	store.SetBalance("alice.test", "usdc.test", "500")
	store.SetBalance("alice.test", "wrap.test", "900")
	store.SetBalance("bob.test", "usdc.test", "42")
	store.SetPool(usdcPool("100"))

	store.Invalidate("alice.test", []string{"usdc.test"}, nil)

	_, ok := store.Balance("alice.test", "usdc.test")
	assert.False(t, ok)
	_, ok = store.Balance("alice.test", "wrap.test")
	assert.True(t, ok)
	_, ok = store.Balance("bob.test", "usdc.test")
	assert.True(t, ok)
	_, ok = store.Pool(7)
	assert.True(t, ok)
}

func TestRefetchMergesFreshValues(t *testing.T) {
	ref := &fakeRefetcher{
		native:   "777",
		balances: map[string]string{"usdc.test": "600"},
		pools:    map[uint64]models.PoolState{7: usdcPool("150")},
	}
	store := cache.NewStore(ref, "amm.test", time.Minute)
	store.SetBalance("alice.test", "usdc.test", "500")

	store.Refetch(context.Background(), "alice.test",
		[]string{"usdc.test", models.NativeToken}, []uint64{7})

	got, ok := store.Balance("alice.test", "usdc.test")
	assert.True(t, ok)
	assert.Equal(t, "600", got)
	got, ok = store.Balance("alice.test", models.NativeToken)
	assert.True(t, ok)
	assert.Equal(t, "777", got)
	pool, ok := store.Pool(7)
	assert.True(t, ok)
	assert.Equal(t, "150", pool.TotalShares)
	assert.Equal(t, int32(2), ref.balanceCalls.Load())
	assert.Equal(t, int32(1), ref.poolCalls.Load())
}

// A failed read leaves the key absent instead of caching a stale or
// partial value.
func TestRefetchSkipsFailedReads(t *testing.T) {
	ref := &fakeRefetcher{
		balances: map[string]string{"usdc.test": "600"},
		errs:     map[string]error{"wrap.test": errors.New("rpc down")},
	}
	store := cache.NewStore(ref, "amm.test", time.Minute)

	store.Refetch(context.Background(), "alice.test",
		[]string{"usdc.test", "wrap.test"}, []uint64{9})

	got, ok := store.Balance("alice.test", "usdc.test")
	assert.True(t, ok)
	assert.Equal(t, "600", got)
	_, ok = store.Balance("alice.test", "wrap.test")
	assert.False(t, ok)
	_, ok = store.Pool(9)
	assert.False(t, ok)
}

func TestInvalidateAndRefetchAfterDelay(t *testing.T) {
	ref := &fakeRefetcher{balances: map[string]string{"usdc.test": "600"}}
	store := cache.NewStore(ref, "amm.test", time.Millisecond)
	store.SetBalance("alice.test", "usdc.test", "500")

	store.InvalidateAndRefetch("alice.test", []string{"usdc.test"}, nil)

	// dropped immediately
	_, ok := store.Balance("alice.test", "usdc.test")
	assert.False(t, ok)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got, ok := store.Balance("alice.test", "usdc.test"); ok {
			assert.Equal(t, "600", got)
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("refetch never landed")
}
