package entity

import (
	"context"
	"encoding/json"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

// Product is a catalog item with its live stock and its opening anchor.
//
// Stock is the only persisted point-in-time balance and is always "as of
// now". InitialStock is the manually edited opening count that replay starts
// from. The two are unexported so the opening can only change together with
// a recomputed stock (see WithOpening).
type Product struct {
	BaseEntity

	Code           string `db:"code" json:"code"`
	Name           string `db:"name" json:"name"`
	Unit           string `db:"unit" json:"unit"`
	WarehouseScope string `db:"warehouse_scope" json:"warehouseScope"`

	stock        Balance
	initialStock Balance
}

// ProductState is the persisted form of a Product.
type ProductState struct {
	ID             id.ID     `json:"id"`
	Version        int       `json:"version"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Unit           string    `json:"unit"`
	WarehouseScope string    `json:"warehouseScope"`
	Stock          Balance   `json:"stock"`
	InitialStock   Balance   `json:"initialStock"`
}

// NewProduct creates a product whose live stock equals its opening count.
func NewProduct(scope, code, name, unit string, opening Balance) Product {
	return Product{
		BaseEntity:     NewBaseEntity(),
		Code:           code,
		Name:           name,
		Unit:           unit,
		WarehouseScope: scope,
		stock:          opening,
		initialStock:   opening,
	}
}

// RestoreProduct rebuilds a product read from a store.
func RestoreProduct(s ProductState) Product {
	return Product{
		BaseEntity:     BaseEntity{ID: s.ID, Version: s.Version, UpdatedAt: s.UpdatedAt},
		Code:           s.Code,
		Name:           s.Name,
		Unit:           s.Unit,
		WarehouseScope: s.WarehouseScope,
		stock:          s.Stock,
		initialStock:   s.InitialStock,
	}
}

// State returns the persisted form.
func (p Product) State() ProductState {
	return ProductState{
		ID:             p.ID,
		Version:        p.Version,
		UpdatedAt:      p.UpdatedAt,
		Code:           p.Code,
		Name:           p.Name,
		Unit:           p.Unit,
		WarehouseScope: p.WarehouseScope,
		Stock:          p.stock,
		InitialStock:   p.initialStock,
	}
}

// Stock returns the live stock.
func (p Product) Stock() Balance { return p.stock }

// InitialStock returns the opening anchor.
func (p Product) InitialStock() Balance { return p.initialStock }

// WithOpening returns a copy with a new opening anchor and the stock derived
// from it. It is the only way to change the opening.
func (p Product) WithOpening(initial, stock Balance) Product {
	p.initialStock = initial
	p.stock = stock
	return p
}

// Posted returns a copy whose live stock moved by delta. Stores call it when
// a movement posts; the opening is untouched.
func (p Product) Posted(delta Balance) Product {
	p.stock = p.stock.Add(delta)
	return p
}

// Validate implements Validatable.
func (p Product) Validate(ctx context.Context) error {
	if id.IsNil(p.ID) {
		return apperror.NewValidation("product id is required").WithDetail("field", "id")
	}
	if p.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if p.WarehouseScope == "" {
		return apperror.NewValidation("warehouse scope is required").WithDetail("field", "warehouseScope")
	}
	return nil
}

// MarshalJSON encodes the product through its persisted form.
func (p Product) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.State())
}

// UnmarshalJSON decodes the persisted form.
func (p *Product) UnmarshalJSON(data []byte) error {
	var s ProductState
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = RestoreProduct(s)
	return nil
}
