package quote

import (
	"fmt"
	"math/big"

	"github.com/prism-swap/orchestrator/models"
)

// Liquidity arithmetic runs on big.Int: the amounts are integers in
// contract units and the first-depositor share formula needs an exact
// integer square root, which decimal arithmetic does not provide.

// PairedAmount computes the ratio-preserving counterpart for a one-sided
// liquidity input: floor(inputAmount × otherReserve / inputReserve).
// The contract rejects deposits outside its ratio tolerance, so this
// must be fed the freshest reserves available.
func PairedAmount(inputAmount, inputReserve, otherReserve string) (string, error) {
	in, err := parseAmount(inputAmount)
	if err != nil {
		return "0", err
	}
	rIn, err := parseAmount(inputReserve)
	if err != nil {
		return "0", err
	}
	rOther, err := parseAmount(otherReserve)
	if err != nil {
		return "0", err
	}
	if rIn.Sign() == 0 {
		return "0", fmt.Errorf("input-side reserve is zero")
	}

	out := new(big.Int).Mul(in, rOther)
	out.Quo(out, rIn)
	return out.String(), nil
}

// ExpectedShares estimates the LP shares minted for a paired deposit.
// For the first depositor (zero total shares or an empty reserve) the
// pool mints sqrt(amountA × amountB); otherwise the minimum of the two
// ratio projections against the existing supply.
func ExpectedShares(amountA, amountB, reserveA, reserveB, totalShares string) (string, error) {
	a, err := parseAmount(amountA)
	if err != nil {
		return "0", err
	}
	b, err := parseAmount(amountB)
	if err != nil {
		return "0", err
	}
	rA, err := parseAmount(reserveA)
	if err != nil {
		return "0", err
	}
	rB, err := parseAmount(reserveB)
	if err != nil {
		return "0", err
	}
	total, err := parseAmount(totalShares)
	if err != nil {
		return "0", err
	}

	if total.Sign() == 0 || rA.Sign() == 0 || rB.Sign() == 0 {
		shares := new(big.Int).Mul(a, b)
		return shares.Sqrt(shares).String(), nil
	}

	byA := new(big.Int).Mul(a, total)
	byA.Quo(byA, rA)
	byB := new(big.Int).Mul(b, total)
	byB.Quo(byB, rB)
	if byA.Cmp(byB) <= 0 {
		return byA.String(), nil
	}
	return byB.String(), nil
}

// RemoveAmounts computes the proportional withdrawal for burning
// sharesToRemove: floor(shares × reserve / totalShares) per token.
func RemoveAmounts(sharesToRemove string, pool *models.PoolState) (map[string]string, error) {
	shares, err := parseAmount(sharesToRemove)
	if err != nil {
		return nil, err
	}
	total, err := parseAmount(pool.TotalShares)
	if err != nil {
		return nil, err
	}
	if total.Sign() == 0 {
		return nil, fmt.Errorf("pool %d has no shares", pool.ID)
	}
	if shares.Cmp(total) > 0 {
		return nil, fmt.Errorf("cannot remove %s of %s shares", sharesToRemove, pool.TotalShares)
	}

	amounts := make(map[string]string, len(pool.Reserves))
	for tokenID, reserve := range pool.Reserves {
		r, err := parseAmount(reserve)
		if err != nil {
			return nil, fmt.Errorf("reserve for %s: %w", tokenID, err)
		}
		out := new(big.Int).Mul(shares, r)
		out.Quo(out, total)
		amounts[tokenID] = out.String()
	}
	return amounts, nil
}

// MinAmounts applies the slippage tolerance to every entry of a
// withdrawal estimate.
func MinAmounts(amounts map[string]string, slippagePct float64) (map[string]string, error) {
	mins := make(map[string]string, len(amounts))
	for tokenID, amount := range amounts {
		m, err := ApplySlippage(amount, slippagePct)
		if err != nil {
			return nil, fmt.Errorf("min amount for %s: %w", tokenID, err)
		}
		mins[tokenID] = m
	}
	return mins, nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer amount %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	return v, nil
}
