package types

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// ZeroThreshold is the magnitude below which a quantity is displayed as Dash.
const ZeroThreshold = 1e-3

// Dash is the display form of a zero quantity.
const Dash = "-"

// DefaultPrecision is the number of decimals shown when none is configured.
const DefaultPrecision = 2

// FormatQuantity rounds v for display only. The stored number stays exact.
func FormatQuantity(v float64, places int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if math.Abs(v) < ZeroThreshold {
		return Dash
	}
	if places < 0 {
		places = DefaultPrecision
	}
	return decimal.NewFromFloat(v).StringFixed(int32(places))
}

// NearlyEqual compares two accumulated quantities within tol.
func NearlyEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
