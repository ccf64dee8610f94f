package dto

import (
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/types"
)

func invalidField(field, value string) *apperror.AppError {
	return apperror.NewValidation("invalid " + field).
		WithDetail("field", field).
		WithDetail("value", value)
}

// ItemRequest is one line. Quantities may be JSON numbers or strings; a
// string that is not a number is stored as-is and counted as zero.
type ItemRequest struct {
	ProductID       string             `json:"productId" binding:"required"`
	TargetProductID string             `json:"targetProductId"`
	Quantity        types.RawQuantity  `json:"quantity"`
	QuantityBulk    *types.RawQuantity `json:"quantityBulk"`
	QuantityPacked  *types.RawQuantity `json:"quantityPacked"`
	SalesType       string             `json:"salesType"`
}

func (r ItemRequest) toEntity() (entity.Item, error) {
	pid, err := ParseID("productId", r.ProductID)
	if err != nil {
		return entity.Item{}, err
	}
	it := entity.Item{
		ProductID:      pid,
		Quantity:       r.Quantity,
		QuantityBulk:   r.QuantityBulk,
		QuantityPacked: r.QuantityPacked,
		SalesType:      r.SalesType,
	}
	if r.TargetProductID != "" {
		tid, err := ParseID("targetProductId", r.TargetProductID)
		if err != nil {
			return entity.Item{}, err
		}
		it.TargetProductID = &tid
	}
	return it, nil
}

func items(reqs []ItemRequest) ([]entity.Item, error) {
	out := make([]entity.Item, 0, len(reqs))
	for _, r := range reqs {
		it, err := r.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

// CreateMovementRequest posts a stock movement.
type CreateMovementRequest struct {
	Date           string        `json:"date" binding:"required"`
	Type           string        `json:"type" binding:"required"`
	WarehouseScope string        `json:"warehouseScope" binding:"required"`
	TargetScope    string        `json:"targetScope"`
	Reason         string        `json:"reason"`
	Notes          string        `json:"notes"`
	Items          []ItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ToEntity builds a new movement stamped with now.
func (r CreateMovementRequest) ToEntity(now time.Time) (entity.Movement, error) {
	date, err := ParseDate("date", r.Date, false)
	if err != nil {
		return entity.Movement{}, err
	}
	its, err := items(r.Items)
	if err != nil {
		return entity.Movement{}, err
	}
	m := entity.NewMovement(r.WarehouseScope, entity.MovementType(r.Type), date, r.Reason, its...)
	m.TargetScope = r.TargetScope
	m.Notes = r.Notes
	m.CreatedAt = now
	return m, nil
}

// CreateSaleRequest posts a sale.
type CreateSaleRequest struct {
	Date           string        `json:"date" binding:"required"`
	WarehouseScope string        `json:"warehouseScope" binding:"required"`
	Customer       string        `json:"customer"`
	Notes          string        `json:"notes"`
	Items          []ItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ToEntity builds a new sale stamped with now.
func (r CreateSaleRequest) ToEntity(now time.Time) (entity.Sale, error) {
	date, err := ParseDate("date", r.Date, false)
	if err != nil {
		return entity.Sale{}, err
	}
	its, err := items(r.Items)
	if err != nil {
		return entity.Sale{}, err
	}
	s := entity.NewSale(r.WarehouseScope, date, its...)
	s.Customer = r.Customer
	s.Notes = r.Notes
	s.CreatedAt = now
	return s, nil
}
