// Package txplan turns a desired action plus resolved preconditions
// into the minimal ordered sequence of remote calls. Plans are built
// fresh for every attempt and consumed exactly once: a retry rebuilds
// the plan from fresh precondition reads instead of resubmitting the
// old one.
package txplan

import (
	"fmt"
	"math/big"
)

// Gas budgets per operation class, in gas units (1 TGas = 10^12).
// Each already carries a safety buffer over the observed cost.
const (
	// GasRegistration covers storage_deposit and whitelist changes.
	GasRegistration uint64 = 30_000_000_000_000
	// GasWrap covers wrapping native currency.
	GasWrap uint64 = 50_000_000_000_000
	// GasDeposit covers ft_transfer_call into the AMM.
	GasDeposit uint64 = 100_000_000_000_000
	// GasWithdraw covers withdrawing from the AMM-internal balance.
	GasWithdraw uint64 = 100_000_000_000_000
	// GasAction covers the terminal swap / liquidity calls.
	GasAction uint64 = 180_000_000_000_000
)

// Attached native amounts, in contract units (24 decimals).
const (
	// OneYocto is the 1-unit attachment fungible-token methods demand
	// as a proof of a full-access-key signature.
	OneYocto = "1"
	// StorageDepositMin is the exact fungible-token storage
	// registration fee (0.00125 native).
	StorageDepositMin = "1250000000000000000000"
	// LiquidityStorageDeposit covers LP share storage on add_liquidity
	// (0.00074 native).
	LiquidityStorageDeposit = "740000000000000000000"
)

// Call is one method invocation on a receiver contract.
type Call struct {
	Method         string
	Args           map[string]any
	GasBudget      uint64
	AttachedAmount string
}

// Transaction groups the calls signed against one receiver.
type Transaction struct {
	ReceiverID string
	Calls      []Call
}

// Plan is the ordered call sequence for one action. Order is load
// bearing: registrations precede deposits, deposits precede the
// terminal call, withdrawals trail liquidity removal.
type Plan struct {
	Transactions []Transaction
}

// ValidationError is a local, pre-submission input rejection. It never
// reaches the ledger.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PlanError marks a malformed plan caught before submission.
type PlanError struct {
	Reason string
}

func (e *PlanError) Error() string {
	return "malformed plan: " + e.Reason
}

// Validate checks the structural invariants of a built plan. A failure
// here is a builder bug surfaced as a PlanError instead of a broken
// submission.
func (p *Plan) Validate() error {
	if len(p.Transactions) == 0 {
		return &PlanError{Reason: "no transactions"}
	}
	for i, tx := range p.Transactions {
		if tx.ReceiverID == "" {
			return &PlanError{Reason: fmt.Sprintf("transaction %d has no receiver", i)}
		}
		if len(tx.Calls) == 0 {
			return &PlanError{Reason: fmt.Sprintf("transaction %d has no calls", i)}
		}
		for _, call := range tx.Calls {
			if call.Method == "" {
				return &PlanError{Reason: fmt.Sprintf("transaction %d has a call without a method", i)}
			}
			if call.GasBudget == 0 {
				return &PlanError{Reason: fmt.Sprintf("%s has no gas budget", call.Method)}
			}
			if _, ok := new(big.Int).SetString(call.AttachedAmount, 10); !ok {
				return &PlanError{Reason: fmt.Sprintf("%s has attached amount %q", call.Method, call.AttachedAmount)}
			}
		}
	}
	return nil
}

// validAmount reports whether s is a positive integer amount string.
func validAmount(s string) bool {
	v, ok := new(big.Int).SetString(s, 10)
	return ok && v.Sign() > 0
}

// validMinAmount reports whether s is a non-negative integer amount
// string; minimum protections may legitimately floor to zero.
func validMinAmount(s string) bool {
	v, ok := new(big.Int).SetString(s, 10)
	return ok && v.Sign() >= 0
}

// withinBalance reports whether amount ≤ balance, both integer strings.
func withinBalance(amount, balance string) bool {
	a, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return false
	}
	b, ok := new(big.Int).SetString(balance, 10)
	if !ok {
		return false
	}
	return a.Cmp(b) <= 0
}
