package pretty

import (
	"fmt"
	"math/big"
	"strings"
)

// Decimals is the fixed-point precision of every asset amount.
const Decimals = 18

var unitScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// Amount implements a String() formatter that renders an 18-decimal
// fixed-point integer in whole token units with trailing zeros trimmed.
type Amount big.Int

func (a Amount) String() string {
	i := (big.Int)(a)
	s := new(big.Rat).SetFrac(&i, unitScale).FloatString(6)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		s = "0"
	}
	return s
}

// ParseAmount takes a decimal string like "0.7" and converts it to the
// 18-decimal fixed-point equivalent.
func ParseAmount(s string) (*big.Int, error) {
	n, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("failed to parse amount: %q", s)
	}
	n.Mul(n, new(big.Rat).SetInt(unitScale))
	return new(big.Int).Div(n.Num(), n.Denom()), nil
}
