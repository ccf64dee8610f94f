// Package entity provides the records the ledger engine reads: movements,
// sales and products.
package entity

import (
	"context"
	"time"

	"stockledger/internal/core/id"
)

// Validatable is implemented by records that support self-validation.
// Validation checks internal invariants (without store access).
type Validatable interface {
	Validate(ctx context.Context) error
}

// BaseEntity contains the fields shared by mutable catalog records.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// Version is incremented on every save. It is not enforced today; it
	// keeps room for an ETag check on writes.
	Version int `db:"version" json:"version"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBaseEntity creates a new BaseEntity with generated ID.
func NewBaseEntity() BaseEntity {
	return BaseEntity{
		ID:      id.New(),
		Version: 1,
	}
}

// Touch increments version and stamps the update time.
func (b *BaseEntity) Touch() {
	b.Version++
	b.UpdatedAt = time.Now().UTC()
}
