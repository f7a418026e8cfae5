package txplan

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/prism-swap/orchestrator/models"
	"github.com/prism-swap/orchestrator/precond"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "txplan").Logger()
}

// Builder assembles plans against one AMM deployment.
type Builder struct {
	ammID  string
	wrapID string
}

// NewBuilder returns a Builder for the given AMM and wrapped-native
// contracts.
func NewBuilder(ammID, wrapID string) *Builder {
	return &Builder{ammID: ammID, wrapID: wrapID}
}

// BuildSwap emits the plan for a swap: missing registrations for both
// tokens, then the swap itself with its minimum-received protection.
func (b *Builder) BuildSwap(req models.SwapRequest, pre precond.Set, pool *models.PoolState) (*Plan, error) {
	if req.Account == "" {
		return nil, &ValidationError{Field: "account", Reason: "empty"}
	}
	if !validAmount(req.AmountIn) {
		return nil, &ValidationError{Field: "amount_in", Reason: "must be a positive amount"}
	}
	if !withinBalance(req.AmountIn, req.Balance) {
		return nil, &ValidationError{Field: "amount_in", Reason: "exceeds balance"}
	}
	if !validMinAmount(req.MinReceived) {
		return nil, &ValidationError{Field: "min_received", Reason: "must be a non-negative amount"}
	}

	plan := &Plan{}
	b.appendRegistrations(plan, req.Account, []string{req.TokenIn, req.TokenOut}, pre)

	plan.Transactions = append(plan.Transactions, Transaction{
		ReceiverID: b.ammID,
		Calls: []Call{{
			Method: "swap",
			Args: map[string]any{
				"actions": []map[string]any{{
					"pool_id":        pool.ID,
					"token_in":       req.TokenIn,
					"amount_in":      req.AmountIn,
					"token_out":      req.TokenOut,
					"min_amount_out": req.MinReceived,
				}},
			},
			GasBudget:      GasAction,
			AttachedAmount: OneYocto,
		}},
	})

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	log.Debug().Int("steps", len(plan.Transactions)).Msg("swap plan built")
	return plan, nil
}

// BuildAddLiquidity emits, in order: missing registrations, a wrap of
// the exact native shortfall, AMM deposits of the exact per-token
// shortfalls, a whitelist registration, and the terminal add_liquidity
// with its minimum-shares protection.
func (b *Builder) BuildAddLiquidity(req models.AddLiquidityRequest, pre precond.Set, pool *models.PoolState) (*Plan, error) {
	if req.Account == "" {
		return nil, &ValidationError{Field: "account", Reason: "empty"}
	}
	tokens := pool.TokenIDs()
	amounts := make([]string, len(tokens))
	for i, token := range tokens {
		amount := req.Amounts[token]
		if !validAmount(amount) {
			return nil, &ValidationError{Field: "amounts", Reason: "must be positive for " + token}
		}
		if token == b.wrapID {
			// The wrapped side is funded by the existing wrapped balance
			// plus a wrap of the remaining shortfall, so the check runs
			// against the native balance that wrap step would spend.
			wrapNeed := pre[token].WrapShortfall
			if wrapNeed != "" && wrapNeed != "0" && !withinBalance(wrapNeed, req.NativeBalance) {
				return nil, &ValidationError{Field: "amounts", Reason: "exceeds balance for " + token}
			}
		} else if !withinBalance(amount, req.Balances[token]) {
			return nil, &ValidationError{Field: "amounts", Reason: "exceeds balance for " + token}
		}
		amounts[i] = amount
	}
	if !validMinAmount(req.MinShares) {
		return nil, &ValidationError{Field: "min_shares", Reason: "must be a non-negative amount"}
	}

	plan := &Plan{}
	b.appendRegistrations(plan, req.Account, tokens, pre)

	// Wrap exactly the shortfall, never a rounded-up guess.
	if wrapState, ok := pre[b.wrapID]; ok && wrapState.WrapShortfall != "0" {
		plan.Transactions = append(plan.Transactions, Transaction{
			ReceiverID: b.wrapID,
			Calls: []Call{{
				Method:         "near_deposit",
				Args:           map[string]any{},
				GasBudget:      GasWrap,
				AttachedAmount: wrapState.WrapShortfall,
			}},
		})
	}

	// Deposit only what is still missing; fully staged tokens are
	// skipped so a retried action never re-deposits funds.
	for _, token := range tokens {
		shortfall := pre[token].DepositShortfall
		if shortfall == "0" || shortfall == "" {
			continue
		}
		plan.Transactions = append(plan.Transactions, Transaction{
			ReceiverID: token,
			Calls: []Call{{
				Method: "ft_transfer_call",
				Args: map[string]any{
					"receiver_id": b.ammID,
					"amount":      shortfall,
					"msg":         "",
				},
				GasBudget:      GasDeposit,
				AttachedAmount: OneYocto,
			}},
		})
	}

	var unlisted []string
	for _, token := range tokens {
		if !pre[token].Whitelisted {
			unlisted = append(unlisted, token)
		}
	}
	if len(unlisted) > 0 {
		plan.Transactions = append(plan.Transactions, Transaction{
			ReceiverID: b.ammID,
			Calls: []Call{{
				Method:         "register_tokens",
				Args:           map[string]any{"token_ids": unlisted},
				GasBudget:      GasRegistration,
				AttachedAmount: OneYocto,
			}},
		})
	}

	plan.Transactions = append(plan.Transactions, Transaction{
		ReceiverID: b.ammID,
		Calls: []Call{{
			Method: "add_liquidity",
			Args: map[string]any{
				"pool_id":    pool.ID,
				"amounts":    amounts,
				"min_shares": req.MinShares,
			},
			GasBudget:      GasAction,
			AttachedAmount: LiquidityStorageDeposit,
		}},
	})

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	log.Debug().Int("steps", len(plan.Transactions)).Msg("add-liquidity plan built")
	return plan, nil
}

// BuildRemoveLiquidity emits missing withdrawal-target registrations,
// the remove_liquidity call with its minimum-amounts protection, then
// the trailing per-token withdrawals back to the account.
func (b *Builder) BuildRemoveLiquidity(req models.RemoveLiquidityRequest, pre precond.Set, pool *models.PoolState) (*Plan, error) {
	if req.Account == "" {
		return nil, &ValidationError{Field: "account", Reason: "empty"}
	}
	if !validAmount(req.Shares) {
		return nil, &ValidationError{Field: "shares", Reason: "must be a positive amount"}
	}
	if !withinBalance(req.Shares, req.ShareBalance) {
		return nil, &ValidationError{Field: "shares", Reason: "exceeds share balance"}
	}
	tokens := pool.TokenIDs()
	minAmounts := make([]string, len(tokens))
	for i, token := range tokens {
		m, ok := req.MinAmounts[token]
		if !ok || !validMinAmount(m) {
			return nil, &ValidationError{Field: "min_amounts", Reason: "missing or invalid for " + token}
		}
		minAmounts[i] = m
	}

	plan := &Plan{}
	b.appendRegistrations(plan, req.Account, tokens, pre)

	plan.Transactions = append(plan.Transactions, Transaction{
		ReceiverID: b.ammID,
		Calls: []Call{{
			Method: "remove_liquidity",
			Args: map[string]any{
				"pool_id":     pool.ID,
				"shares":      req.Shares,
				"min_amounts": minAmounts,
			},
			GasBudget:      GasAction,
			AttachedAmount: OneYocto,
		}},
	})

	// Withdraw the guaranteed minimums; anything above them stays in
	// the AMM-internal balance and is picked up by the next action's
	// precondition diffing.
	for i, token := range tokens {
		if minAmounts[i] == "0" {
			continue
		}
		plan.Transactions = append(plan.Transactions, Transaction{
			ReceiverID: b.ammID,
			Calls: []Call{{
				Method: "withdraw",
				Args: map[string]any{
					"token_id": token,
					"amount":   minAmounts[i],
				},
				GasBudget:      GasWithdraw,
				AttachedAmount: OneYocto,
			}},
		})
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	log.Debug().Int("steps", len(plan.Transactions)).Msg("remove-liquidity plan built")
	return plan, nil
}

// appendRegistrations emits the missing storage_deposit calls for the
// given tokens, user first, then the AMM. Repeated registration is a
// no-op on the target contracts, so the conservative "emit when
// unsure" fallback is safe.
func (b *Builder) appendRegistrations(plan *Plan, account string, tokens []string, pre precond.Set) {
	for _, token := range tokens {
		state := pre[token]
		if !state.AccountRegistered {
			plan.Transactions = append(plan.Transactions, storageDeposit(token, account))
		}
		if !state.AmmRegistered {
			plan.Transactions = append(plan.Transactions, storageDeposit(token, b.ammID))
		}
	}
}

func storageDeposit(tokenID, forAccount string) Transaction {
	return Transaction{
		ReceiverID: tokenID,
		Calls: []Call{{
			Method: "storage_deposit",
			Args: map[string]any{
				"account_id":        forAccount,
				"registration_only": true,
			},
			GasBudget:      GasRegistration,
			AttachedAmount: StorageDepositMin,
		}},
	}
}
