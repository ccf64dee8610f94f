package ledger

import (
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/types"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return epoch.AddDate(0, 0, n) }

func clockAt(t time.Time) func() time.Time { return func() time.Time { return t } }

func bulk(v float64) entity.Balance { return entity.Balance{Bulk: v} }

func item(p entity.Product, qty float64) entity.Item {
	return entity.Item{ProductID: p.ID, Quantity: types.Q(qty)}
}

func bulkItem(p entity.Product, qty float64) entity.Item {
	return entity.Item{ProductID: p.ID, QuantityBulk: types.QPtr(qty)}
}

func splitItem(p entity.Product, b, packed float64) entity.Item {
	return entity.Item{ProductID: p.ID, QuantityBulk: types.QPtr(b), QuantityPacked: types.QPtr(packed)}
}

func movement(scope string, typ entity.MovementType, date time.Time, reason string, items ...entity.Item) entity.Movement {
	return entity.NewMovement(scope, typ, date, reason, items...)
}

func sale(scope string, date time.Time, salesType string, items ...entity.Item) entity.Sale {
	for i := range items {
		items[i].SalesType = salesType
	}
	return entity.NewSale(scope, date, items...)
}
