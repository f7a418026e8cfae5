package tokens_test

import (
	"context"
	"errors"
	"testing"

	"github.com/zeebo/assert"

	"github.com/prism-swap/orchestrator/models"
	"github.com/prism-swap/orchestrator/tokens"
)

type fakeSource struct {
	metas map[string]models.TokenMetadata
	err   error
	calls int
}

func (f *fakeSource) TokenMetadata(_ context.Context, tokenID string) (models.TokenMetadata, error) {
	f.calls++
	if f.err != nil {
		return models.TokenMetadata{}, f.err
	}
	meta, ok := f.metas[tokenID]
	if !ok {
		return models.TokenMetadata{}, errors.New("no such contract")
	}
	return meta, nil
}

func TestResolveCachesLedgerReads(t *testing.T) {
	source := &fakeSource{metas: map[string]models.TokenMetadata{
		"usdc.test": {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
	}}
	reg, err := tokens.NewRegistry(source, nil)
	assert.NoError(t, err)

	meta, err := reg.Resolve(context.Background(), "usdc.test")
	assert.NoError(t, err)
	assert.Equal(t, "usdc.test", meta.ID)
	assert.Equal(t, 6, meta.Decimals)

	_, err = reg.Resolve(context.Background(), "usdc.test")
	assert.NoError(t, err)
	assert.Equal(t, 1, source.calls)
}

func TestResolveNativeNeverHitsLedger(t *testing.T) {
	source := &fakeSource{}
	reg, err := tokens.NewRegistry(source, nil)
	assert.NoError(t, err)

	meta, err := reg.Resolve(context.Background(), models.NativeToken)
	assert.NoError(t, err)
	assert.Equal(t, "NEAR", meta.Symbol)
	assert.Equal(t, 24, meta.Decimals)
	assert.Equal(t, 0, source.calls)
}

func TestResolveFallsBackToKnownTokens(t *testing.T) {
	source := &fakeSource{err: errors.New("rpc down")}
	known := []models.TokenMetadata{
		{ID: "usdc.test", Symbol: "USDC", Decimals: 6},
	}
	reg, err := tokens.NewRegistry(source, known)
	assert.NoError(t, err)

	meta, err := reg.Resolve(context.Background(), "usdc.test")
	assert.NoError(t, err)
	assert.Equal(t, "USDC", meta.Symbol)

	_, err = reg.Resolve(context.Background(), "unknown.test")
	assert.Error(t, err)
}

func TestDecimals(t *testing.T) {
	source := &fakeSource{metas: map[string]models.TokenMetadata{
		"usdc.test": {Symbol: "USDC", Decimals: 6},
	}}
	reg, err := tokens.NewRegistry(source, nil)
	assert.NoError(t, err)

	d, err := reg.Decimals(context.Background(), "usdc.test")
	assert.NoError(t, err)
	assert.Equal(t, 6, d)
}

func TestKnownListsNativeFirst(t *testing.T) {
	reg, err := tokens.NewRegistry(&fakeSource{}, []models.TokenMetadata{
		{ID: "usdc.test", Symbol: "USDC", Decimals: 6},
	})
	assert.NoError(t, err)

	known := reg.Known()
	assert.Equal(t, 2, len(known))
	assert.Equal(t, models.NativeToken, known[0].ID)
}
