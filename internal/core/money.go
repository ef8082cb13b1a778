package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a value cannot be read as an amount.
var ErrInvalidAmount = errors.New("invalid number")

// numericRegex validates a plain decimal after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

var currencyMarks = []string{"₹", "Rs.", "Rs", "rs.", "rs", "INR", "inr", "/-"}

// ParseAmount reads a rupee amount as typed into a sheet: "1,500",
// "Rs. 1500/-", "₹1,500.00" and accounting negatives "(200)".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = cleanCell(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	for _, mark := range currencyMarks {
		s = strings.ReplaceAll(s, mark, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if !numericRegex.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// readAmount is ParseAmount for cells that may be blank or malformed.
func readAmount(s string) decimal.Decimal {
	d, _ := ParseAmount(s)
	return d
}

// FormatAmount writes an amount with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func sumAmounts[T any](items []T, amount func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(amount(it))
	}
	return total
}
