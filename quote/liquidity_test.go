package quote_test

import (
	"math/big"
	"testing"

	"github.com/zeebo/assert"

	"github.com/prism-swap/orchestrator/models"
	"github.com/prism-swap/orchestrator/quote"
)

func TestPairedAmount(t *testing.T) {
	// reserves {A: 1000, B: 2000}, input 10 on side A
	other, err := quote.PairedAmount("10", "1000", "2000")
	assert.NoError(t, err)
	assert.Equal(t, "20", other)

	_, err = quote.PairedAmount("10", "0", "2000")
	assert.Error(t, err)

	_, err = quote.PairedAmount("x", "1000", "2000")
	assert.Error(t, err)
}

// The paired amount preserves the reserve ratio within one unit of
// integer-division error.
func TestPairedAmountPreservesRatio(t *testing.T) {
	cases := []struct {
		in, rIn, rOther string
	}{
		{"10", "1000", "2000"},
		{"7", "333", "999"},
		{"123456789", "987654321", "111111111"},
		{"1", "3", "10"},
	}
	for _, c := range cases {
		other, err := quote.PairedAmount(c.in, c.rIn, c.rOther)
		assert.NoError(t, err)

		in, _ := new(big.Int).SetString(c.in, 10)
		rIn, _ := new(big.Int).SetString(c.rIn, 10)
		rOther, _ := new(big.Int).SetString(c.rOther, 10)
		got, _ := new(big.Int).SetString(other, 10)

		// |in×rOther − got×rIn| < rIn  (floor error bound)
		lhs := new(big.Int).Mul(in, rOther)
		rhs := new(big.Int).Mul(got, rIn)
		diff := new(big.Int).Abs(new(big.Int).Sub(lhs, rhs))
		assert.True(t, diff.Cmp(rIn) < 0)
	}
}

func TestExpectedSharesFirstDepositor(t *testing.T) {
	// totalShares = 0, amounts 100 and 400: sqrt(100×400) = 200
	shares, err := quote.ExpectedShares("100", "400", "0", "0", "0")
	assert.NoError(t, err)
	assert.Equal(t, "200", shares)

	// 1% slippage on 200 shares floors to 198
	min, err := quote.ApplySlippage(shares, 1)
	assert.NoError(t, err)
	assert.Equal(t, "198", min)
}

func TestExpectedSharesExistingPool(t *testing.T) {
	// min(10×500/1000, 30×500/2000) = min(5, 7) = 5
	shares, err := quote.ExpectedShares("10", "30", "1000", "2000", "500")
	assert.NoError(t, err)
	assert.Equal(t, "5", shares)

	// an empty reserve falls back to the first-depositor formula
	shares, err = quote.ExpectedShares("100", "400", "0", "2000", "500")
	assert.NoError(t, err)
	assert.Equal(t, "200", shares)
}

func TestRemoveAmounts(t *testing.T) {
	pool := &models.PoolState{
		ID:          1,
		Reserves:    map[string]string{"wrap.test": "1000", "usdc.test": "2000"},
		TotalShares: "500",
	}

	amounts, err := quote.RemoveAmounts("100", pool)
	assert.NoError(t, err)
	assert.Equal(t, "200", amounts["wrap.test"])
	assert.Equal(t, "400", amounts["usdc.test"])
}

// Burning the full share supply pays out the full reserves.
func TestRemoveAmountsFullWithdrawal(t *testing.T) {
	pool := &models.PoolState{
		ID:          1,
		Reserves:    map[string]string{"wrap.test": "123457", "usdc.test": "999999"},
		TotalShares: "777",
	}

	amounts, err := quote.RemoveAmounts(pool.TotalShares, pool)
	assert.NoError(t, err)
	assert.Equal(t, "123457", amounts["wrap.test"])
	assert.Equal(t, "999999", amounts["usdc.test"])
}

func TestRemoveAmountsOverdraw(t *testing.T) {
	pool := &models.PoolState{
		ID:          1,
		Reserves:    map[string]string{"wrap.test": "1000", "usdc.test": "2000"},
		TotalShares: "500",
	}
	_, err := quote.RemoveAmounts("501", pool)
	assert.Error(t, err)

	pool.TotalShares = "0"
	_, err = quote.RemoveAmounts("0", pool)
	assert.Error(t, err)
}

func TestMinAmounts(t *testing.T) {
	mins, err := quote.MinAmounts(map[string]string{"wrap.test": "200", "usdc.test": "400"}, 1)
	assert.NoError(t, err)
	assert.Equal(t, "198", mins["wrap.test"])
	assert.Equal(t, "396", mins["usdc.test"])
}
