// Package core holds the P&L domain model: line items, statements,
// transactions, overrides, and the monetary amount type they all share.
//
// This file contains money parsing and formatting. Amounts are kept as
// signed cents so exported and displayed values are exact to two fraction
// digits; floats only appear at the formula-engine boundary.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Money is a signed monetary amount in cents.
type Money struct {
	Cents int64
}

// ParseSignedDecimal converts a decimal string to signed cents with half-up
// rounding on the third fraction digit. It accepts both dot (12.34) and
// comma (12,34) separators and an optional leading sign. Unlike a payment
// amount, an override may legitimately be zero or negative.
//
// Examples:
//
//	ParseSignedDecimal("1234.50") -> 123450, nil
//	ParseSignedDecimal("-12,34")  -> -1234, nil
//	ParseSignedDecimal("12.346")  -> 1235, nil (rounds up)
func ParseSignedDecimal(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if s == "" || s == "." {
		return 0, ErrInvalidAmount
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}

	// First two fraction digits, half-up on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}

	cents := iv*100 + fracCents
	if neg {
		cents = -cents
	}
	return cents, nil
}

// Decimal renders the amount with exactly two fraction digits ("-12.34").
// This is the normative cell format for CSV export and JSON payloads.
func (m Money) Decimal() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// Float returns the amount as a float64 for formula-engine inputs.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// MarshalJSON emits the amount as a plain JSON number with two fraction
// digits, matching what the table and export consumers expect.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	cents, err := ParseSignedDecimal(s)
	if err != nil {
		return err
	}
	m.Cents = cents
	return nil
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
