package util

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMoney parses a currency amount strictly. Any token that is not a plain
// decimal number is an error; money must never silently coerce to zero.
func ParseMoney(token string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return decimal.Decimal{}, fmt.Errorf("empty money value")
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid money value %q: %w", token, err)
	}
	return value, nil
}

// ParseQuantity converts a raw quantity token to an integer count. Weight
// based items carry tokens like "1.2kg" that have no discrete quantity, so
// anything that is not a clean positive integer falls back to 1.
func ParseQuantity(token string) int {
	n, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
