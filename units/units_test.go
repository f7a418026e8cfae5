package units_test

import (
	"testing"

	"github.com/prism-swap/orchestrator/units"
	"github.com/zeebo/assert"
)

func TestToContractUnitsNative(t *testing.T) {
	// 1.5 of a 24-decimal token
	got, err := units.ToContractUnits("1.5", 24)
	assert.NoError(t, err)
	assert.Equal(t, "1500000000000000000000000", got)
}

func TestToContractUnits(t *testing.T) {
	cases := []struct {
		in       string
		decimals int
		want     string
		wantErr  bool
	}{
		{"1", 6, "1000000", false},
		{"0.000001", 6, "1", false},
		{"1.2345678", 6, "1234567", false}, // truncated, never rounded up
		{"1e3", 6, "1000000000", false},
		{"2.5e-2", 6, "25000", false},
		{"", 6, "0", false},
		{"0", 6, "0", false},
		{"0.000", 24, "0", false},
		{"  3 ", 2, "300", false},
		{"-1", 6, "0", true},
		{"abc", 6, "0", true},
		{"1.2.3", 6, "0", true},
		{"1", -1, "0", true},
		{"1", units.MaxDecimals + 1, "0", true},
	}
	for _, c := range cases {
		got, err := units.ToContractUnits(c.in, c.decimals)
		if c.wantErr {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err)
		}
		assert.Equal(t, c.want, got)
	}
}

func TestToDisplayString(t *testing.T) {
	got, err := units.ToDisplayString("1500000000000000000000000", 24, 24)
	assert.NoError(t, err)
	assert.Equal(t, "1.5", got)

	got, err = units.ToDisplayString("1234567", 6, 2)
	assert.NoError(t, err)
	assert.Equal(t, "1.23", got)

	got, err = units.ToDisplayString("", 6, 6)
	assert.NoError(t, err)
	assert.Equal(t, "0", got)

	_, err = units.ToDisplayString("1.5", 6, 6)
	assert.Error(t, err)

	_, err = units.ToDisplayString("-5", 6, 6)
	assert.Error(t, err)

	_, err = units.ToDisplayString("1", units.MaxDecimals+1, 6)
	assert.Error(t, err)
}

// Round-trip law: display(contract(s)) recovers s up to truncation of
// precision beyond the token's decimals.
func TestRoundTrip(t *testing.T) {
	cases := []struct {
		in       string
		decimals int
		want     string
	}{
		{"1.5", 24, "1.5"},
		{"0.125", 6, "0.125"},
		{"123456.654321", 6, "123456.654321"},
		{"1.23456789", 4, "1.2345"},
		{"42", 0, "42"},
	}
	for _, c := range cases {
		raw, err := units.ToContractUnits(c.in, c.decimals)
		assert.NoError(t, err)
		back, err := units.ToDisplayString(raw, c.decimals, c.decimals)
		assert.NoError(t, err)
		assert.Equal(t, c.want, back)
	}
}
