package ledger

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Decimals is the number of fractional digits of FeeToken amounts.
const Decimals = 18

var unit = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(Decimals))

// Units converts a whole-token count into base units.
func Units(whole uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(whole), unit)
}

// ParseAmount parses a base-unit decimal string.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: amount required", ErrInvalidAmount)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return v, nil
}

// FormatAmount renders a base-unit amount as a decimal string. Nil renders as "0".
func FormatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
