// Package quote computes swap quotes and liquidity amounts. The swap
// pricing itself is delegated to the AMM's own view call and treated as
// an oracle; this package owns unit conversion, slippage floors, price
// impact and the add/remove liquidity arithmetic.
package quote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prism-swap/orchestrator/models"
	"github.com/prism-swap/orchestrator/units"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "quote").Logger()
}

// ErrNoRoute means the AMM returned an empty or zero estimate: the pair
// cannot be traded at this size. Distinct from a transport failure,
// which surfaces as a *chain.ReadError.
var ErrNoRoute = errors.New("no route for swap")

// Result is one swap quote. Stale as soon as reserves, input amount or
// slippage change; callers re-derive instead of patching it.
type Result struct {
	// OutputAmount is the AMM's estimate in contract units of the
	// output token.
	OutputAmount string
	// MinReceived is OutputAmount with the slippage tolerance applied,
	// floored to an integer.
	MinReceived string
	// PriceImpact is the adverse deviation of the executed price from
	// the spot price, in percent.
	PriceImpact float64
}

// Estimator is the read-only AMM pricing oracle.
type Estimator interface {
	GetReturn(ctx context.Context, ammID string, poolID uint64, tokenIn, amountIn, tokenOut string) (string, error)
}

// Engine derives quotes and amount pairs for one AMM contract.
type Engine struct {
	estimator Estimator
	ammID     string
}

// NewEngine returns an Engine quoting against the given AMM contract.
func NewEngine(estimator Estimator, ammID string) *Engine {
	return &Engine{estimator: estimator, ammID: ammID}
}

// SwapQuote converts the user's decimal input to contract units, asks
// the AMM for its estimate and derives the slippage floor and price
// impact from the pool snapshot. amountIn is the human decimal string
// as typed; slippagePct is a percentage (1 = 1%).
func (e *Engine) SwapQuote(
	ctx context.Context,
	pool *models.PoolState,
	tokenIn, tokenOut models.TokenMetadata,
	amountIn string,
	slippagePct float64,
) (*Result, error) {
	raw, err := units.ToContractUnits(amountIn, tokenIn.Decimals)
	if err != nil {
		return nil, fmt.Errorf("swap amount: %w", err)
	}
	if raw == "0" {
		return &Result{OutputAmount: "0", MinReceived: "0"}, nil
	}

	out, err := e.estimator.GetReturn(ctx, e.ammID, pool.ID, tokenIn.ID, raw, tokenOut.ID)
	if err != nil {
		return nil, err
	}
	if out == "" || out == "0" {
		return nil, ErrNoRoute
	}

	minReceived, err := ApplySlippage(out, slippagePct)
	if err != nil {
		return nil, err
	}

	impact, err := priceImpact(pool, tokenIn.ID, tokenOut.ID, raw, out)
	if err != nil {
		// Impact is display-only; a degenerate pool snapshot must not
		// invalidate the quote itself.
		log.Warn().Err(err).Uint64("pool", pool.ID).Msg("price impact unavailable")
		impact = 0
	}

	return &Result{
		OutputAmount: out,
		MinReceived:  minReceived,
		PriceImpact:  impact,
	}, nil
}

// ApplySlippage floors amount × (1 − slippagePct/100) to an integer.
// With zero slippage the amount comes back unchanged.
func ApplySlippage(amount string, slippagePct float64) (string, error) {
	if slippagePct < 0 || slippagePct >= 100 {
		return "0", fmt.Errorf("slippage %v%% out of range", slippagePct)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "0", fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(slippagePct).Div(decimal.NewFromInt(100)))
	return d.Mul(factor).Truncate(0).String(), nil
}

// priceImpact compares the executed price against the spot price from
// the reserves: (1 − executed/spot) × 100.
func priceImpact(pool *models.PoolState, tokenIn, tokenOut, amountIn, amountOut string) (float64, error) {
	reserveIn, err := decimal.NewFromString(pool.Reserve(tokenIn))
	if err != nil {
		return 0, err
	}
	reserveOut, err := decimal.NewFromString(pool.Reserve(tokenOut))
	if err != nil {
		return 0, err
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return 0, fmt.Errorf("pool %d has an empty reserve", pool.ID)
	}

	in, err := decimal.NewFromString(amountIn)
	if err != nil {
		return 0, err
	}
	out, err := decimal.NewFromString(amountOut)
	if err != nil {
		return 0, err
	}
	if in.IsZero() {
		return 0, nil
	}

	spot := reserveOut.Div(reserveIn)
	executed := out.Div(in)
	impact := decimal.NewFromInt(1).Sub(executed.Div(spot)).Mul(decimal.NewFromInt(100))
	if impact.IsNegative() {
		impact = decimal.Zero
	}
	return impact.InexactFloat64(), nil
}
