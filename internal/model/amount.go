package model

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// ParseAmount parses a base-10 amount. An empty string is zero.
func ParseAmount(value string) (uint256.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return uint256.Int{}, nil
	}
	parsed, err := uint256.FromDecimal(value)
	if err != nil {
		return uint256.Int{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return *parsed, nil
}

// FormatAmount renders an amount in base 10.
func FormatAmount(value uint256.Int) string {
	return value.Dec()
}
