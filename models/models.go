// Package models holds the core entities shared between the orchestrator
// components: token metadata, pool state and the action requests that UI
// collaborators submit. Amounts are always integer strings in contract
// (smallest) units; the decimal form only exists at the UI boundary.
package models

// NativeToken is the sentinel id used for the chain's native currency.
// It is not a contract account; plans that touch it go through the
// wrapped-native contract instead.
const NativeToken = "near"

// TokenMetadata describes one fungible token. Immutable once fetched.
type TokenMetadata struct {
	// ID is the token contract account id, or NativeToken for the
	// native currency.
	ID       string
	Symbol   string
	Name     string
	Decimals int
	IconURI  string
}

// IsNative reports whether the token is the native currency sentinel.
func (t TokenMetadata) IsNative() bool {
	return t.ID == NativeToken
}

// PoolState is a snapshot of one AMM pool. Reserves are keyed by the
// token contract ids as the AMM knows them, which for the native
// currency means the wrapped-native contract id rather than the
// NativeToken sentinel. Never mutated in place; a state-changing action
// replaces the whole value on refetch.
type PoolState struct {
	ID          uint64
	TokenA      TokenMetadata
	TokenB      TokenMetadata
	Reserves    map[string]string
	TotalShares string
}

// TokenIDs returns the pool's token contract ids in contract order.
// Array-valued AMM call arguments (amounts, min_amounts) must follow
// this order.
func (p PoolState) TokenIDs() []string {
	return []string{p.TokenA.ID, p.TokenB.ID}
}

// Reserve returns the reserve for the given contract id, or "0" when the
// pool does not hold that token.
func (p PoolState) Reserve(tokenID string) string {
	if r, ok := p.Reserves[tokenID]; ok {
		return r
	}
	return "0"
}

// ActionKind identifies a user-initiated action.
type ActionKind string

const (
	ActionSwap            ActionKind = "swap"
	ActionAddLiquidity    ActionKind = "add_liquidity"
	ActionRemoveLiquidity ActionKind = "remove_liquidity"
)

// SwapRequest is a validated-at-the-edge swap order. AmountIn is in
// contract units of TokenIn.
type SwapRequest struct {
	Account     string
	PoolID      uint64
	TokenIn     string
	TokenOut    string
	AmountIn    string
	MinReceived string
	// Balance is the caller's spendable balance of TokenIn in contract
	// units, used for the within-balance validation.
	Balance string
}

// AddLiquidityRequest deposits a ratio-matched pair into a pool.
// Amounts are keyed by token contract id.
type AddLiquidityRequest struct {
	Account   string
	PoolID    uint64
	Amounts   map[string]string
	MinShares string
	Balances  map[string]string
	// NativeBalance is the caller's spendable native balance in contract
	// units. It funds the wrap step on the wrapped-native side.
	NativeBalance string
}

// RemoveLiquidityRequest burns LP shares and withdraws both sides.
type RemoveLiquidityRequest struct {
	Account    string
	PoolID     uint64
	Shares     string
	MinAmounts map[string]string
	// ShareBalance is the caller's LP share balance for the pool.
	ShareBalance string
}
