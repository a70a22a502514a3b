// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Text amounts are parsed through
// shopspring/decimal so no float arithmetic touches stored values.
package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const maxCents = (1<<63 - 1) / 100

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
func ParseDecimalToCents(s string) (int64, error) {
	m, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if m.Cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return m.Cents, nil
}

// ParseAmount parses a non-negative amount as typed by users or found in
// imported files. Currency symbols and surrounding spaces are ignored.
// Commas followed by groups of three digits are thousands separators
// ("1,234" is 1234.00); a single comma followed by one or two digits is a
// decimal separator ("12,5" is 12.50). Any other use of commas is rejected.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "¥￥$€ ")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	s, ok := normalizeSeparators(s)
	if !ok {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return FromDecimal(d)
}

var (
	thousandsGrouped = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
	decimalComma     = regexp.MustCompile(`^\d+,\d{1,2}$`)
)

// normalizeSeparators rewrites s to use a dot decimal separator and no
// thousands separators.
func normalizeSeparators(s string) (string, bool) {
	if !strings.Contains(s, ",") {
		return s, true
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	switch {
	case thousandsGrouped.MatchString(whole):
		whole = strings.ReplaceAll(whole, ",", "")
	case !hasDot && decimalComma.MatchString(s):
		return strings.Replace(s, ",", ".", 1), true
	default:
		return "", false
	}
	if hasDot {
		return whole + "." + frac, true
	}
	return whole, true
}

// FromDecimal rounds d half-up to cents.
func FromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	cents := d.Round(2).Shift(2)
	if cents.GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with two decimals, e.g. "150.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both JSON numbers and strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return ErrInvalidAmount
	}
	parsed, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
