package entity

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

// Sale is a point-of-sale record kept in its own list next to movements.
// A line with a negative quantity is a customer return.
type Sale struct {
	ID             id.ID     `db:"id" json:"id"`
	Date           time.Time `db:"date" json:"date"`
	WarehouseScope string    `db:"warehouse_scope" json:"warehouseScope"`
	Customer       string    `db:"customer" json:"customer,omitempty"`
	Notes          string    `db:"notes" json:"notes,omitempty"`
	Items          []Item    `db:"-" json:"items"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// NewSale creates a sale with a generated ID.
func NewSale(scope string, date time.Time, items ...Item) Sale {
	return Sale{
		ID:             id.New(),
		Date:           date,
		WarehouseScope: scope,
		Items:          items,
		CreatedAt:      time.Now().UTC(),
	}
}

// Validate implements Validatable.
func (s Sale) Validate(ctx context.Context) error {
	if s.WarehouseScope == "" {
		return apperror.NewValidation("warehouse scope is required").
			WithDetail("field", "warehouseScope")
	}
	if s.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	if len(s.Items) == 0 {
		return apperror.NewValidation("a sale needs at least one item").
			WithDetail("field", "items")
	}
	for i, it := range s.Items {
		if err := it.validate(i); err != nil {
			return err
		}
	}
	return nil
}
