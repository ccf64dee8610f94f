package entity

import (
	"math"

	"stockledger/internal/core/types"
)

// Balance is a quantity split across the bulk and packed sub-ledgers.
// Single-ledger products keep everything in one of the two halves
// depending on their unit; Total is the aggregate stock either way.
type Balance struct {
	Bulk   float64 `json:"bulk"`
	Packed float64 `json:"packed"`
}

// Total returns bulk + packed.
func (b Balance) Total() float64 { return b.Bulk + b.Packed }

// Add returns b + o per sub-ledger.
func (b Balance) Add(o Balance) Balance {
	return Balance{Bulk: b.Bulk + o.Bulk, Packed: b.Packed + o.Packed}
}

// Sub returns b - o per sub-ledger.
func (b Balance) Sub(o Balance) Balance {
	return Balance{Bulk: b.Bulk - o.Bulk, Packed: b.Packed - o.Packed}
}

// Scale multiplies both sub-ledgers by k.
func (b Balance) Scale(k float64) Balance {
	return Balance{Bulk: b.Bulk * k, Packed: b.Packed * k}
}

// Abs returns the per-sub-ledger magnitudes.
func (b Balance) Abs() Balance {
	return Balance{Bulk: math.Abs(b.Bulk), Packed: math.Abs(b.Packed)}
}

// IsZero reports whether both sub-ledgers are exactly zero.
func (b Balance) IsZero() bool { return b.Bulk == 0 && b.Packed == 0 }

// Within reports whether every sub-ledger of b and o differ by at most tol.
func (b Balance) Within(o Balance, tol float64) bool {
	return types.NearlyEqual(b.Bulk, o.Bulk, tol) && types.NearlyEqual(b.Packed, o.Packed, tol)
}
