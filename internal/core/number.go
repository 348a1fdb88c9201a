// Package core provides the record model of the San Jose economics dataset.
//
// This file contains helpers for parsing spreadsheet cells into numbers.
package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidNumber = errors.New("invalid number")

// ParseCell converts a spreadsheet cell to a float64.
//
// Empty cells (and the usual "no data" markers) become NaN without error.
// Thousands separators, a trailing percent sign and surrounding spaces are
// tolerated, so values exported as "1,234" or "5.2%" parse as 1234 and 5.2.
//
// Examples:
//
//	ParseCell("")      -> NaN, nil
//	ParseCell("1,234") -> 1234, nil
//	ParseCell("5.2%")  -> 5.2, nil
//	ParseCell("n/a")   -> NaN, nil
//	ParseCell("abc")   -> NaN, ErrInvalidNumber
func ParseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "n/a", "nan", "-":
		return math.NaN(), nil
	}
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN(), ErrInvalidNumber
	}
	return v, nil
}

// ParseYear parses a year cell. Spreadsheet exports sometimes render
// integers as "2008.0", which is accepted.
func ParseYear(s string) (int, error) {
	v, err := ParseCell(s)
	if err != nil || math.IsNaN(v) || v != math.Trunc(v) {
		return 0, ErrInvalidYear
	}
	y := int(v)
	if y < 1 || y > 9999 {
		return 0, ErrInvalidYear
	}
	return y, nil
}

// ParseMonth parses a month cell; an empty cell yields 0.
func ParseMonth(s string) (int, error) {
	v, err := ParseCell(s)
	if err != nil {
		return 0, ErrInvalidMonth
	}
	if math.IsNaN(v) {
		return 0, nil
	}
	if v != math.Trunc(v) {
		return 0, ErrInvalidMonth
	}
	m := int(v)
	if m < 1 || m > 12 {
		return 0, ErrInvalidMonth
	}
	return m, nil
}
