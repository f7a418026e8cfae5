package precond_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/zeebo/assert"

	"github.com/prism-swap/orchestrator/precond"
)

type fakeReader struct {
	registered  map[string]bool // "contract/account"
	deposits    map[string]string
	whitelisted []string
	balances    map[string]string // tokenID -> balance

	depositsErr    error
	whitelistErr   error
	registeredErr  error
	balanceErr     error
	registeredSeen atomic.Int32
}

func (f *fakeReader) StorageRegistered(_ context.Context, contractID, accountID string) (bool, error) {
	f.registeredSeen.Add(1)
	if f.registeredErr != nil {
		return false, f.registeredErr
	}
	return f.registered[contractID+"/"+accountID], nil
}

func (f *fakeReader) Deposits(context.Context, string, string) (map[string]string, error) {
	if f.depositsErr != nil {
		return nil, f.depositsErr
	}
	return f.deposits, nil
}

func (f *fakeReader) WhitelistedTokens(context.Context, string, string) ([]string, error) {
	if f.whitelistErr != nil {
		return nil, f.whitelistErr
	}
	return f.whitelisted, nil
}

func (f *fakeReader) FTBalance(_ context.Context, tokenID, _ string) (string, error) {
	if f.balanceErr != nil {
		return "0", f.balanceErr
	}
	return f.balances[tokenID], nil
}

const (
	amm  = "amm.test"
	wrap = "wrap.test"
	usdc = "usdc.test"
)

func TestResolveSwap(t *testing.T) {
	reader := &fakeReader{registered: map[string]bool{
		wrap + "/alice.test": true,
		wrap + "/" + amm:     true,
		usdc + "/" + amm:     true,
		// alice not registered on usdc
	}}
	resolver := precond.NewResolver(reader, amm, wrap)

	set := resolver.ResolveSwap(context.Background(), "alice.test", []string{wrap, usdc})
	assert.True(t, set[wrap].AccountRegistered)
	assert.True(t, set[wrap].AmmRegistered)
	assert.False(t, set[usdc].AccountRegistered)
	assert.True(t, set[usdc].AmmRegistered)
	// swap does not require deposits or whitelist entries
	assert.Equal(t, "0", set[usdc].DepositShortfall)
	assert.True(t, set[usdc].Whitelisted)
}

func TestResolveAddLiquidityShortfall(t *testing.T) {
	// 60 of a needed 100 already staged: the deposit step must carry 40
	reader := &fakeReader{
		registered: map[string]bool{
			usdc + "/alice.test": true,
			usdc + "/" + amm:     true,
		},
		deposits:    map[string]string{usdc: "60"},
		whitelisted: []string{usdc},
	}
	resolver := precond.NewResolver(reader, amm, wrap)

	set := resolver.ResolveAddLiquidity(context.Background(), "alice.test", map[string]string{usdc: "100"})
	assert.Equal(t, "40", set[usdc].DepositShortfall)
	assert.True(t, set[usdc].Whitelisted)
}

func TestResolveAddLiquidityFullyStaged(t *testing.T) {
	reader := &fakeReader{
		deposits: map[string]string{usdc: "150"},
	}
	resolver := precond.NewResolver(reader, amm, wrap)

	set := resolver.ResolveAddLiquidity(context.Background(), "alice.test", map[string]string{usdc: "100"})
	assert.Equal(t, "0", set[usdc].DepositShortfall)
}

func TestResolveAddLiquidityWrapShortfall(t *testing.T) {
	// needs 100 wrapped-native staged, 60 already deposited, wallet
	// holds 15 wrapped: deposit shortfall 40, wrap shortfall 25
	reader := &fakeReader{
		deposits: map[string]string{wrap: "60"},
		balances: map[string]string{wrap: "15"},
	}
	resolver := precond.NewResolver(reader, amm, wrap)

	set := resolver.ResolveAddLiquidity(context.Background(), "alice.test", map[string]string{wrap: "100"})
	assert.Equal(t, "40", set[wrap].DepositShortfall)
	assert.Equal(t, "25", set[wrap].WrapShortfall)
}

// Read failures degrade to "not satisfied" instead of aborting the
// other checks.
func TestResolveDegradesConservatively(t *testing.T) {
	reader := &fakeReader{
		registeredErr: errors.New("rpc down"),
		depositsErr:   errors.New("rpc down"),
		whitelistErr:  errors.New("rpc down"),
		balanceErr:    errors.New("rpc down"),
	}
	resolver := precond.NewResolver(reader, amm, wrap)

	set := resolver.ResolveAddLiquidity(context.Background(), "alice.test", map[string]string{wrap: "100"})
	state := set[wrap]
	assert.False(t, state.AccountRegistered)
	assert.False(t, state.AmmRegistered)
	assert.False(t, state.Whitelisted)
	assert.Equal(t, "100", state.DepositShortfall)
	assert.Equal(t, "100", state.WrapShortfall)
}

// Resolving twice with unchanged chain state yields an identical set.
func TestResolveIsIdempotent(t *testing.T) {
	reader := &fakeReader{
		registered: map[string]bool{
			usdc + "/alice.test": true,
			usdc + "/" + amm:     true,
		},
		deposits:    map[string]string{usdc: "60"},
		whitelisted: []string{usdc},
	}
	resolver := precond.NewResolver(reader, amm, wrap)
	ctx := context.Background()
	needed := map[string]string{usdc: "100"}

	first := resolver.ResolveAddLiquidity(ctx, "alice.test", needed)
	second := resolver.ResolveAddLiquidity(ctx, "alice.test", needed)
	assert.DeepEqual(t, first, second)
}

func TestResolveRemoveLiquidity(t *testing.T) {
	reader := &fakeReader{registered: map[string]bool{
		wrap + "/alice.test": true,
	}}
	resolver := precond.NewResolver(reader, amm, wrap)

	set := resolver.ResolveRemoveLiquidity(context.Background(), "alice.test", []string{wrap, usdc})
	assert.True(t, set[wrap].AccountRegistered)
	assert.False(t, set[usdc].AccountRegistered)
	// only the user-side registration is checked per withdrawal target
	assert.Equal(t, int32(2), reader.registeredSeen.Load())
}

func TestShortfall(t *testing.T) {
	assert.Equal(t, "40", precond.Shortfall("100", "60"))
	assert.Equal(t, "0", precond.Shortfall("100", "100"))
	assert.Equal(t, "0", precond.Shortfall("100", "150"))
	assert.Equal(t, "100", precond.Shortfall("100", ""))
	assert.Equal(t, "0", precond.Shortfall("", "60"))
	assert.Equal(t, "0", precond.Shortfall("0", "0"))
}
