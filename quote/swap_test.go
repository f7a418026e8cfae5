package quote_test

import (
	"context"
	"errors"
	"testing"

	"github.com/zeebo/assert"

	"github.com/prism-swap/orchestrator/models"
	"github.com/prism-swap/orchestrator/quote"
)

type fakeEstimator struct {
	out string
	err error
	// captured request
	amountIn string
}

func (f *fakeEstimator) GetReturn(_ context.Context, _ string, _ uint64, _ string, amountIn string, _ string) (string, error) {
	f.amountIn = amountIn
	return f.out, f.err
}

func testPool() *models.PoolState {
	return &models.PoolState{
		ID:     3,
		TokenA: models.TokenMetadata{ID: "wrap.test", Decimals: 24},
		TokenB: models.TokenMetadata{ID: "usdc.test", Decimals: 6},
		Reserves: map[string]string{
			"wrap.test": "1000000000000000000000000000",
			"usdc.test": "5000000000",
		},
		TotalShares: "1000000",
	}
}

func TestSwapQuote(t *testing.T) {
	est := &fakeEstimator{out: "4950000"}
	engine := quote.NewEngine(est, "amm.test")
	pool := testPool()

	tokenIn := models.TokenMetadata{ID: "wrap.test", Decimals: 24}
	tokenOut := models.TokenMetadata{ID: "usdc.test", Decimals: 6}

	result, err := engine.SwapQuote(context.Background(), pool, tokenIn, tokenOut, "1", 1)
	assert.NoError(t, err)
	// the engine converts the typed decimal to contract units first
	assert.Equal(t, "1000000000000000000000000", est.amountIn)
	assert.Equal(t, "4950000", result.OutputAmount)
	// 1% slippage floor
	assert.Equal(t, "4900500", result.MinReceived)
}

func TestSwapQuoteZeroSlippage(t *testing.T) {
	est := &fakeEstimator{out: "12345"}
	engine := quote.NewEngine(est, "amm.test")

	tokenIn := models.TokenMetadata{ID: "wrap.test", Decimals: 24}
	tokenOut := models.TokenMetadata{ID: "usdc.test", Decimals: 6}

	result, err := engine.SwapQuote(context.Background(), testPool(), tokenIn, tokenOut, "0.5", 0)
	assert.NoError(t, err)
	assert.Equal(t, result.OutputAmount, result.MinReceived)
}

func TestSwapQuoteNoRoute(t *testing.T) {
	est := &fakeEstimator{out: "0"}
	engine := quote.NewEngine(est, "amm.test")

	tokenIn := models.TokenMetadata{ID: "wrap.test", Decimals: 24}
	tokenOut := models.TokenMetadata{ID: "usdc.test", Decimals: 6}

	_, err := engine.SwapQuote(context.Background(), testPool(), tokenIn, tokenOut, "1", 1)
	assert.True(t, errors.Is(err, quote.ErrNoRoute))
}

func TestSwapQuoteTransportErrorIsNotNoRoute(t *testing.T) {
	boom := errors.New("connection refused")
	est := &fakeEstimator{err: boom}
	engine := quote.NewEngine(est, "amm.test")

	tokenIn := models.TokenMetadata{ID: "wrap.test", Decimals: 24}
	tokenOut := models.TokenMetadata{ID: "usdc.test", Decimals: 6}

	_, err := engine.SwapQuote(context.Background(), testPool(), tokenIn, tokenOut, "1", 1)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, errors.Is(err, quote.ErrNoRoute))
}

func TestSwapQuoteZeroInput(t *testing.T) {
	est := &fakeEstimator{out: "999"}
	engine := quote.NewEngine(est, "amm.test")

	tokenIn := models.TokenMetadata{ID: "wrap.test", Decimals: 24}
	tokenOut := models.TokenMetadata{ID: "usdc.test", Decimals: 6}

	result, err := engine.SwapQuote(context.Background(), testPool(), tokenIn, tokenOut, "", 1)
	assert.NoError(t, err)
	assert.Equal(t, "0", result.OutputAmount)
	// nothing was sent to the oracle
	assert.Equal(t, "", est.amountIn)
}

func TestApplySlippage(t *testing.T) {
	got, err := quote.ApplySlippage("200", 1)
	assert.NoError(t, err)
	assert.Equal(t, "198", got)

	got, err = quote.ApplySlippage("100", 0.5)
	assert.NoError(t, err)
	assert.Equal(t, "99", got)

	got, err = quote.ApplySlippage("100", 0)
	assert.NoError(t, err)
	assert.Equal(t, "100", got)

	_, err = quote.ApplySlippage("100", -1)
	assert.Error(t, err)

	_, err = quote.ApplySlippage("100", 100)
	assert.Error(t, err)
}
