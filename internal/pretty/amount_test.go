package pretty

import (
	"math/big"
	"testing"
)

func TestAmountString(t *testing.T) {
	testcases := []struct {
		input *big.Int
		want  string
	}{
		{big.NewInt(0), "0"},
		{big.NewInt(1e18), "1"},
		{new(big.Int).Mul(big.NewInt(17), big.NewInt(1e17)), "1.7"},
		{big.NewInt(5e17), "0.5"},
		{big.NewInt(-5e17), "-0.5"},
		{big.NewInt(1), "0"},
		{big.NewInt(1e12), "0.000001"},
	}
	for _, tc := range testcases {
		if got := Amount(*tc.input).String(); got != tc.want {
			t.Errorf("got %q, want %q for %s", got, tc.want, tc.input)
		}
	}
}

func TestParseAmount(t *testing.T) {
	testcases := []struct {
		input string
		want  *big.Int
	}{
		{"0", big.NewInt(0)},
		{"1", big.NewInt(1e18)},
		{"0.5", big.NewInt(5e17)},
		{"1.7", new(big.Int).Mul(big.NewInt(17), big.NewInt(1e17))},
		{" 0.000001 ", big.NewInt(1e12)},
	}
	for _, tc := range testcases {
		got, err := ParseAmount(tc.input)
		if err != nil {
			t.Errorf("unexpected error for %q: %s", tc.input, err)
			continue
		}
		if got.Cmp(tc.want) != 0 {
			t.Errorf("got %s, want %s for %q", got, tc.want, tc.input)
		}
	}

	if _, err := ParseAmount("nope"); err == nil {
		t.Errorf("expected error for invalid input")
	}
}
