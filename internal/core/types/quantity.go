// Package types provides quantity handling shared by the store and the ledger engine.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawQuantity is a quantity exactly as it was entered or imported.
//
// Quantities arrive from forms and spreadsheet imports, so a value may fail
// to parse. Keeping the raw text lets the ledger count such lines instead of
// rejecting the whole movement on input.
type RawQuantity string

// Q builds a RawQuantity from a number.
func Q(v float64) RawQuantity {
	return RawQuantity(strconv.FormatFloat(v, 'f', -1, 64))
}

// QPtr is Q for optional fields (bulk/packed splits).
func QPtr(v float64) *RawQuantity {
	q := Q(v)
	return &q
}

// IsEmpty reports whether nothing was entered.
func (r RawQuantity) IsEmpty() bool {
	return strings.TrimSpace(string(r)) == ""
}

// Float64 parses the quantity. An empty value is zero.
// Arabic-Indic digits and the Arabic decimal separator are accepted.
// Commas are thousands separators only: "1,500" is 1500 and "1,5" is an
// error rather than 15.
func (r RawQuantity) Float64() (float64, error) {
	s := strings.TrimSpace(string(r))
	if s == "" {
		return 0, nil
	}
	s = strings.Map(foldDigit, s)
	if strings.ContainsRune(s, ',') {
		var ok bool
		if s, ok = ungroup(s); !ok {
			return 0, fmt.Errorf("parse quantity %q: misplaced digit group separator", string(r))
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", string(r), err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parse quantity %q: not a finite number", string(r))
	}
	return f, nil
}

func foldDigit(c rune) rune {
	switch {
	case c >= '٠' && c <= '٩':
		return '0' + (c - '٠')
	case c >= '۰' && c <= '۹':
		return '0' + (c - '۰')
	case c == '٫':
		return '.'
	case c == '٬':
		return ','
	case c == ' ':
		return -1
	}
	return c
}

// ungroup strips thousands separators from the integer part. Every group
// after the first must have exactly three digits.
func ungroup(s string) (string, bool) {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if strings.ContainsRune(frac, ',') {
		return "", false
	}
	digits := strings.TrimLeft(intPart, "+-")
	groups := strings.Split(digits, ",")
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", false
		}
	}
	out := intPart[:len(intPart)-len(digits)] + strings.Join(groups, "")
	if hasFrac {
		out += "." + frac
	}
	return out, true
}

// MarshalJSON encodes a parseable quantity as a JSON number and keeps
// anything else as a string so it survives a round trip.
func (r RawQuantity) MarshalJSON() ([]byte, error) {
	if r.IsEmpty() {
		return []byte("0"), nil
	}
	if f, err := r.Float64(); err == nil {
		return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	return json.Marshal(string(r))
}

// UnmarshalJSON accepts either a JSON number or a string.
func (r *RawQuantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawQuantity(s)
		return nil
	}
	*r = RawQuantity(data)
	return nil
}
