// Package core holds the domain model and the pure calculation layer of the
// budget ledger. Everything in this package is free of I/O.
//
// All money amounts are exact decimals (shopspring/decimal); binary floating
// point never enters a budget computation, so many small expenses cannot
// accumulate rounding error.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmountScale bounds the fractional digits accepted on input. Two is the
// natural scale for the supported currencies; computed values (pacing
// recommendations) may carry more precision internally.
const maxAmountScale = 2

// ParseAmount parses a positive monetary amount from user input. Both dot
// (12.34) and comma (12,34) decimal separators are accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is required", ErrInvalidInput)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed amount %q", ErrInvalidInput, s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount checks that d is a positive amount with at most two
// fractional digits.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than 0", ErrInvalidInput)
	}
	if d.Exponent() < -maxAmountScale {
		return fmt.Errorf("%w: amount has more than %d decimal places", ErrInvalidInput, maxAmountScale)
	}
	return nil
}

// ValidateBudgetAmount checks an allocation amount, which unlike an expense
// amount may be zero.
func ValidateBudgetAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%w: budget amount cannot be negative", ErrInvalidInput)
	}
	if d.Exponent() < -maxAmountScale {
		return fmt.Errorf("%w: amount has more than %d decimal places", ErrInvalidInput, maxAmountScale)
	}
	return nil
}
