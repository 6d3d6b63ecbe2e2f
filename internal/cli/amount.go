package cli

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a human-readable amount ("1.5", "0.000001") into the
// smallest-unit integer for a token with the given decimals.
func ParseAmount(value string, decimals int32) (*big.Int, error) {
	dec, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	if dec.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative")
	}

	scaled := dec.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", value, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatAmount renders a smallest-unit integer with the given decimals,
// trimming trailing zeros.
func FormatAmount(value *big.Int, decimals int32) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -decimals).String()
}
