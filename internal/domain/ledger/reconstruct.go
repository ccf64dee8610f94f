package ledger

import (
	"stockledger/internal/core/entity"
	"stockledger/internal/core/types"
)

// Tolerance is the reconciliation tolerance between replayed and live stock.
const Tolerance = 1e-6

// Reconstruction is the balance of a product across one window.
type Reconstruction struct {
	Opening entity.Balance `json:"opening"`
	Net     entity.Balance `json:"net"`
	Closing entity.Balance `json:"closing"`
}

// Reconstruct anchors the window on the manual opening count:
// opening = initial + pre-window net, closing = opening + window net.
func Reconstruct(initial entity.Balance, acc Accumulation) Reconstruction {
	opening := initial.Add(acc.PreWindow)
	net := acc.Net()
	return Reconstruction{
		Opening: opening,
		Net:     net,
		Closing: opening.Add(net),
	}
}

// Reconcile compares a replayed closing with live stock. drift is live minus
// closing per sub-ledger; ok is false when either sub-ledger or the aggregate
// is off by more than Tolerance.
func Reconcile(closing, live entity.Balance) (drift entity.Balance, ok bool) {
	drift = live.Sub(closing)
	ok = drift.Within(entity.Balance{}, Tolerance) &&
		types.NearlyEqual(drift.Total(), 0, Tolerance)
	return drift, ok
}
