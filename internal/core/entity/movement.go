package entity

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// MovementType is the kind of stock movement. It determines direction;
// the entered quantity is always a positive magnitude except for
// adjustments, which may be signed.
type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
	MovementTransfer   MovementType = "transfer"
	MovementReturn     MovementType = "return"
	MovementSale       MovementType = "sale"
)

// MovementTypes lists every known type in display order.
var MovementTypes = []MovementType{
	MovementIn, MovementOut, MovementAdjustment,
	MovementTransfer, MovementReturn, MovementSale,
}

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	for _, k := range MovementTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Item is one line of a movement or sale.
type Item struct {
	ProductID id.ID `db:"product_id" json:"productId"`

	// Quantity is the whole-line quantity.
	Quantity types.RawQuantity `db:"quantity" json:"quantity"`

	// QuantityBulk and QuantityPacked split the line across sub-ledgers.
	// When either is present the split wins over Quantity.
	QuantityBulk   *types.RawQuantity `db:"quantity_bulk" json:"quantityBulk,omitempty"`
	QuantityPacked *types.RawQuantity `db:"quantity_packed" json:"quantityPacked,omitempty"`

	// TargetProductID is the receiving product of a transfer when the target
	// ledger catalogs the item under its own id. Empty means ProductID.
	TargetProductID *id.ID `db:"target_product_id" json:"targetProductId,omitempty"`

	// SalesType is the sales channel of a sale line (farm, outlet, client).
	SalesType string `db:"sales_type" json:"salesType,omitempty"`
}

// ProductFor returns the product a line refers to on the given side of a
// transfer.
func (i Item) ProductFor(target bool) id.ID {
	if target && i.TargetProductID != nil && !id.IsNil(*i.TargetProductID) {
		return *i.TargetProductID
	}
	return i.ProductID
}

// HasSplit reports whether the line carries a bulk/packed split.
func (i Item) HasSplit() bool {
	return (i.QuantityBulk != nil && !i.QuantityBulk.IsEmpty()) ||
		(i.QuantityPacked != nil && !i.QuantityPacked.IsEmpty())
}

// validate checks one line of a movement or sale. A split line moves both
// sub-ledgers the same way: its direction is derived from the net quantity.
func (i Item) validate(index int) error {
	if id.IsNil(i.ProductID) {
		return apperror.NewValidation(fmt.Sprintf("item %d: product is required", index)).
			WithDetail("field", "items")
	}
	if i.HasSplit() && sign(i.QuantityBulk)*sign(i.QuantityPacked) < 0 {
		return apperror.NewValidation(fmt.Sprintf("item %d: bulk and packed quantities have opposite signs", index)).
			WithDetail("field", "items").
			WithDetail("quantityBulk", string(*i.QuantityBulk)).
			WithDetail("quantityPacked", string(*i.QuantityPacked))
	}
	return nil
}

// sign is 0 for a missing or unparseable quantity.
func sign(q *types.RawQuantity) int {
	if q == nil {
		return 0
	}
	f, err := q.Float64()
	switch {
	case err != nil || f == 0:
		return 0
	case f < 0:
		return -1
	}
	return 1
}

// Movement is an immutable stock movement. Edits replace a movement by
// deleting it and creating a new one; items never change after creation.
type Movement struct {
	ID   id.ID        `db:"id" json:"id"`
	Date time.Time    `db:"date" json:"date"`
	Type MovementType `db:"type" json:"type"`

	// WarehouseScope is the ledger the movement belongs to. For transfers it
	// is the source warehouse.
	WarehouseScope string `db:"warehouse_scope" json:"warehouseScope"`

	// TargetScope is the destination ledger of a transfer.
	TargetScope string `db:"target_scope" json:"targetScope,omitempty"`

	// Reason and Notes are free text used only for classification.
	Reason string `db:"reason" json:"reason,omitempty"`
	Notes  string `db:"notes" json:"notes,omitempty"`

	Items []Item `db:"-" json:"items"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewMovement creates a movement with a generated ID.
func NewMovement(scope string, typ MovementType, date time.Time, reason string, items ...Item) Movement {
	return Movement{
		ID:             id.New(),
		Date:           date,
		Type:           typ,
		WarehouseScope: scope,
		Reason:         reason,
		Items:          items,
		CreatedAt:      time.Now().UTC(),
	}
}

// Touches reports whether the movement belongs to the ledger of scope.
func (m Movement) Touches(scope string) bool {
	if m.WarehouseScope == scope {
		return true
	}
	return m.Type == MovementTransfer && m.TargetScope == scope
}

// Validate implements Validatable.
func (m Movement) Validate(ctx context.Context) error {
	if !m.Type.Valid() {
		return apperror.NewValidation("invalid movement type").
			WithDetail("field", "type").
			WithDetail("value", string(m.Type))
	}
	if m.WarehouseScope == "" {
		return apperror.NewValidation("warehouse scope is required").
			WithDetail("field", "warehouseScope")
	}
	if m.Type == MovementTransfer && m.TargetScope == "" {
		return apperror.NewValidation("transfer requires a target scope").
			WithDetail("field", "targetScope")
	}
	if m.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	for i, it := range m.Items {
		if err := it.validate(i); err != nil {
			return err
		}
	}
	return nil
}
