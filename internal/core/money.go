// Package core provides the domain model and money handling for the
// expense tracker.
//
// This file contains parsing of monetary amounts from user input and
// conversion between paise and rupee representations.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a decimal string to Money with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds on the third decimal place. The result is always positive paise.
// Returns ErrInvalidAmount for malformed, negative, or zero input.
//
// Examples:
//
//	ParseAmount("12.34") -> 1234 paise
//	ParseAmount("12,34") -> 1234 paise
//	ParseAmount("12.346") -> 1235 paise (rounds up)
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return Money{}, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
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
			return Money{}, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	// Prevent overflow when scaling to paise
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return Money{}, ErrInvalidAmount
	}
	// Take first two fractional digits, half-up rounding on the third
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	paise := iv*100 + frac
	if paise <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Paise: paise}, nil
}

// Rupees returns the rupee value as a float64 for display purposes.
// Use paise for calculations to avoid floating-point precision issues.
func (m Money) Rupees() float64 {
	return float64(m.Paise) / 100.0
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Paise: m.Paise + other.Paise}
}

// Sub returns the difference of two amounts. The result may be negative.
func (m Money) Sub(other Money) Money {
	return Money{Paise: m.Paise - other.Paise}
}

// String formats the amount as a rupee string, e.g. "₹12.34".
func (m Money) String() string {
	paise := m.Paise
	neg := paise < 0
	if neg {
		paise = -paise
	}
	s := fmt.Sprintf("₹%d.%02d", paise/100, paise%100)
	if neg {
		return "-" + s
	}
	return s
}
