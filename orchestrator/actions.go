package orchestrator

import (
	"context"
	"fmt"

	"github.com/prism-swap/orchestrator/models"
	"github.com/prism-swap/orchestrator/quote"
	"github.com/prism-swap/orchestrator/settle"
	"github.com/prism-swap/orchestrator/txplan"
	"github.com/prism-swap/orchestrator/units"
)

// ErrNoSigner is returned by the action API when the orchestrator was
// wired without a wallet capability.
var ErrNoSigner = fmt.Errorf("no signer attached")

// QuoteParams is one swap quote request. AmountIn is the human decimal
// string as typed.
type QuoteParams struct {
	PoolID      uint64
	TokenIn     string
	TokenOut    string
	AmountIn    string
	SlippagePct float64
}

// SwapParams is a full swap order.
type SwapParams struct {
	Account string
	QuoteParams
}

// AddLiquidityParams deposits a pair into a pool. Amounts are human
// decimal strings keyed by token id (the native sentinel is accepted
// for the wrapped side).
type AddLiquidityParams struct {
	Account     string
	PoolID      uint64
	Amounts     map[string]string
	SlippagePct float64
}

// RemoveLiquidityParams burns LP shares. Shares is in contract units;
// LP shares have no display decimals.
type RemoveLiquidityParams struct {
	Account     string
	PoolID      uint64
	Shares      string
	SlippagePct float64
}

// Quote derives a swap quote from the current pool snapshot and the
// AMM's own estimate. The parameters are recorded so the staleness
// scheduler can re-derive the quote later.
func (o *Orchestrator) Quote(ctx context.Context, p QuoteParams) (*quote.Result, error) {
	o.refresher.SetInFlight(true)
	defer o.refresher.SetInFlight(false)
	o.rememberQuote(p)

	pool, err := o.Pool(ctx, p.PoolID)
	if err != nil {
		return nil, fmt.Errorf("pool %d: %w", p.PoolID, err)
	}
	tokenIn, err := o.registry.Resolve(ctx, o.ammToken(p.TokenIn))
	if err != nil {
		return nil, fmt.Errorf("token %s: %w", p.TokenIn, err)
	}
	tokenOut, err := o.registry.Resolve(ctx, o.ammToken(p.TokenOut))
	if err != nil {
		return nil, fmt.Errorf("token %s: %w", p.TokenOut, err)
	}
	return o.engine.SwapQuote(ctx, &pool, tokenIn, tokenOut, p.AmountIn, p.SlippagePct)
}

// PlanSwap quotes and assembles the swap plan without submitting it.
// Preconditions are resolved fresh on every call; a retried action must
// never reuse a previous plan.
func (o *Orchestrator) PlanSwap(ctx context.Context, p SwapParams) (*txplan.Plan, *quote.Result, error) {
	pool, err := o.Pool(ctx, p.PoolID)
	if err != nil {
		return nil, nil, fmt.Errorf("pool %d: %w", p.PoolID, err)
	}
	inID, outID := o.ammToken(p.TokenIn), o.ammToken(p.TokenOut)
	tokenIn, err := o.registry.Resolve(ctx, inID)
	if err != nil {
		return nil, nil, fmt.Errorf("token %s: %w", p.TokenIn, err)
	}
	tokenOut, err := o.registry.Resolve(ctx, outID)
	if err != nil {
		return nil, nil, fmt.Errorf("token %s: %w", p.TokenOut, err)
	}

	o.rememberQuote(p.QuoteParams)
	o.refresher.SetInFlight(true)
	q, err := o.engine.SwapQuote(ctx, &pool, tokenIn, tokenOut, p.AmountIn, p.SlippagePct)
	o.refresher.SetInFlight(false)
	if err != nil {
		return nil, nil, err
	}
	amountIn, err := units.ToContractUnits(p.AmountIn, tokenIn.Decimals)
	if err != nil {
		return nil, nil, err
	}
	// The swap spends the wrapped form, so the balance check runs
	// against the AMM-side token even when the user selected native.
	balance, err := o.Balance(ctx, p.Account, inID)
	if err != nil {
		return nil, nil, fmt.Errorf("balance of %s: %w", inID, err)
	}

	pre := o.resolver.ResolveSwap(ctx, p.Account, []string{inID, outID})
	plan, err := o.builder.BuildSwap(models.SwapRequest{
		Account:     p.Account,
		PoolID:      p.PoolID,
		TokenIn:     inID,
		TokenOut:    outID,
		AmountIn:    amountIn,
		MinReceived: q.MinReceived,
		Balance:     balance,
	}, pre, &pool)
	if err != nil {
		return nil, nil, err
	}
	return plan, q, nil
}

// Swap runs the full pipeline for a swap: quote, preconditions, plan,
// settlement.
func (o *Orchestrator) Swap(ctx context.Context, p SwapParams) (settle.Outcome, error) {
	if o.monitor == nil {
		return settle.Outcome{}, ErrNoSigner
	}
	plan, _, err := o.PlanSwap(ctx, p)
	if err != nil {
		return settle.Outcome{}, err
	}
	involved := settle.Involved{
		Account: p.Account,
		Tokens:  o.involvedTokens(p.TokenIn, p.TokenOut),
		PoolIDs: []uint64{p.PoolID},
	}
	log.Info().Str("account", p.Account).Uint64("pool", p.PoolID).Msg("submitting swap")
	o.refresher.SetSettling(true)
	defer o.refresher.SetSettling(false)
	return o.monitor.Settle(ctx, plan, involved), nil
}

// PlanAddLiquidity converts the pair amounts, estimates the LP shares
// and assembles the staging plan. Returns the plan and the share
// estimate before slippage.
func (o *Orchestrator) PlanAddLiquidity(ctx context.Context, p AddLiquidityParams) (*txplan.Plan, string, error) {
	pool, err := o.Pool(ctx, p.PoolID)
	if err != nil {
		return nil, "", fmt.Errorf("pool %d: %w", p.PoolID, err)
	}

	poolTokens := pool.TokenIDs()
	rawAmounts := make(map[string]string, len(poolTokens))
	balances := make(map[string]string, len(poolTokens))
	for _, tokenID := range poolTokens {
		display, ok := p.Amounts[tokenID]
		if !ok && tokenID == o.wrapID {
			display = p.Amounts[models.NativeToken]
		}
		meta, err := o.registry.Resolve(ctx, tokenID)
		if err != nil {
			return nil, "", fmt.Errorf("token %s: %w", tokenID, err)
		}
		raw, err := units.ToContractUnits(display, meta.Decimals)
		if err != nil {
			return nil, "", fmt.Errorf("amount for %s: %w", tokenID, err)
		}
		rawAmounts[tokenID] = raw

		balance, err := o.Balance(ctx, p.Account, tokenID)
		if err != nil {
			return nil, "", fmt.Errorf("balance of %s: %w", tokenID, err)
		}
		balances[tokenID] = balance
	}

	// The wrap step spends native currency, so the wrapped side is also
	// checked against the account's native balance.
	var nativeBalance string
	if _, ok := rawAmounts[o.wrapID]; ok {
		nativeBalance, err = o.Balance(ctx, p.Account, models.NativeToken)
		if err != nil {
			return nil, "", fmt.Errorf("native balance: %w", err)
		}
	}

	shares, err := quote.ExpectedShares(
		rawAmounts[poolTokens[0]], rawAmounts[poolTokens[1]],
		pool.Reserve(poolTokens[0]), pool.Reserve(poolTokens[1]),
		pool.TotalShares,
	)
	if err != nil {
		return nil, "", fmt.Errorf("share estimate: %w", err)
	}
	minShares, err := quote.ApplySlippage(shares, p.SlippagePct)
	if err != nil {
		return nil, "", err
	}

	pre := o.resolver.ResolveAddLiquidity(ctx, p.Account, rawAmounts)
	plan, err := o.builder.BuildAddLiquidity(models.AddLiquidityRequest{
		Account:       p.Account,
		PoolID:        p.PoolID,
		Amounts:       rawAmounts,
		MinShares:     minShares,
		Balances:      balances,
		NativeBalance: nativeBalance,
	}, pre, &pool)
	if err != nil {
		return nil, "", err
	}
	return plan, shares, nil
}

// AddLiquidity runs the full pipeline for a paired deposit.
func (o *Orchestrator) AddLiquidity(ctx context.Context, p AddLiquidityParams) (settle.Outcome, error) {
	if o.monitor == nil {
		return settle.Outcome{}, ErrNoSigner
	}
	plan, _, err := o.PlanAddLiquidity(ctx, p)
	if err != nil {
		return settle.Outcome{}, err
	}
	involved := settle.Involved{
		Account: p.Account,
		Tokens:  o.involvedPoolTokens(p.PoolID),
		PoolIDs: []uint64{p.PoolID},
	}
	log.Info().Str("account", p.Account).Uint64("pool", p.PoolID).Msg("submitting add-liquidity")
	o.refresher.SetSettling(true)
	defer o.refresher.SetSettling(false)
	return o.monitor.Settle(ctx, plan, involved), nil
}

// PlanRemoveLiquidity derives the proportional withdrawal amounts and
// assembles the removal plan. Returns the plan and the pre-slippage
// amounts per token.
func (o *Orchestrator) PlanRemoveLiquidity(ctx context.Context, p RemoveLiquidityParams) (*txplan.Plan, map[string]string, error) {
	pool, err := o.Pool(ctx, p.PoolID)
	if err != nil {
		return nil, nil, fmt.Errorf("pool %d: %w", p.PoolID, err)
	}

	amounts, err := quote.RemoveAmounts(p.Shares, &pool)
	if err != nil {
		return nil, nil, err
	}
	minAmounts, err := quote.MinAmounts(amounts, p.SlippagePct)
	if err != nil {
		return nil, nil, err
	}
	shareBalance, err := o.reader.ShareBalance(ctx, o.ammID, p.PoolID, p.Account)
	if err != nil {
		return nil, nil, fmt.Errorf("share balance: %w", err)
	}

	pre := o.resolver.ResolveRemoveLiquidity(ctx, p.Account, pool.TokenIDs())
	plan, err := o.builder.BuildRemoveLiquidity(models.RemoveLiquidityRequest{
		Account:      p.Account,
		PoolID:       p.PoolID,
		Shares:       p.Shares,
		MinAmounts:   minAmounts,
		ShareBalance: shareBalance,
	}, pre, &pool)
	if err != nil {
		return nil, nil, err
	}
	return plan, amounts, nil
}

// RemoveLiquidity runs the full pipeline for a share removal.
func (o *Orchestrator) RemoveLiquidity(ctx context.Context, p RemoveLiquidityParams) (settle.Outcome, error) {
	if o.monitor == nil {
		return settle.Outcome{}, ErrNoSigner
	}
	plan, _, err := o.PlanRemoveLiquidity(ctx, p)
	if err != nil {
		return settle.Outcome{}, err
	}
	involved := settle.Involved{
		Account: p.Account,
		Tokens:  o.involvedPoolTokens(p.PoolID),
		PoolIDs: []uint64{p.PoolID},
	}
	log.Info().Str("account", p.Account).Uint64("pool", p.PoolID).Msg("submitting remove-liquidity")
	o.refresher.SetSettling(true)
	defer o.refresher.SetSettling(false)
	return o.monitor.Settle(ctx, plan, involved), nil
}

// Track classifies an externally signed transaction and invalidates the
// involved cache keys on success.
func (o *Orchestrator) Track(ctx context.Context, account, txID string, poolID uint64) settle.Outcome {
	o.refresher.SetSettling(true)
	defer o.refresher.SetSettling(false)
	involved := settle.Involved{
		Account: account,
		Tokens:  o.involvedPoolTokens(poolID),
		PoolIDs: []uint64{poolID},
	}
	return o.NewTracker(account).Track(ctx, txID, involved)
}

// involvedTokens dedupes the user-facing token ids plus the native
// sentinel whenever the wrapped contract is touched, so both cached
// views drop together.
func (o *Orchestrator) involvedTokens(tokenIDs ...string) []string {
	seen := make(map[string]bool, len(tokenIDs)+1)
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range tokenIDs {
		add(id)
		if id == models.NativeToken || id == o.wrapID {
			add(models.NativeToken)
			add(o.wrapID)
		}
	}
	return out
}

// rememberQuote records the parameters the scheduler re-derives from.
func (o *Orchestrator) rememberQuote(p QuoteParams) {
	o.qmu.Lock()
	o.lastQuote = p
	o.hasQuote = true
	o.qmu.Unlock()
}

// requote is the scheduler callback: it re-derives the most recent
// quote against fresh state so a stale price never lingers on screen.
// A no-op until the first quote has been requested.
func (o *Orchestrator) requote(ctx context.Context) {
	o.qmu.Lock()
	p, ok := o.lastQuote, o.hasQuote
	o.qmu.Unlock()
	if !ok {
		return
	}
	q, err := o.Quote(ctx, p)
	if err != nil {
		log.Warn().Err(err).Uint64("pool", p.PoolID).Msg("background re-quote failed")
	}
	if o.quoteListener != nil {
		o.quoteListener(p, q, err)
	}
}

// involvedPoolTokens lists the cache keys a pool action touches.
func (o *Orchestrator) involvedPoolTokens(poolID uint64) []string {
	pool, ok := o.store.Pool(poolID)
	if !ok {
		// Without a cached pool there is nothing stale to enumerate
		// beyond the wrapped pair fallback.
		return o.involvedTokens(o.wrapID)
	}
	return o.involvedTokens(pool.TokenIDs()...)
}
