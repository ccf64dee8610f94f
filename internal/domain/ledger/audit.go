package ledger

import (
	"context"
	"time"

	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
)

// AuditAction names a write the service performed.
type AuditAction string

// EntityProduct is the entity type of product entries.
const EntityProduct = "product"

const (
	AuditProductCreated  AuditAction = "product_created"
	AuditOpeningEdited   AuditAction = "opening_edited"
	AuditMovementPosted  AuditAction = "movement_posted"
	AuditMovementDeleted AuditAction = "movement_deleted"
	AuditSalePosted      AuditAction = "sale_posted"
)

// AuditEntry records one change to a product's stock or opening. A movement
// touching three products yields three entries.
type AuditEntry struct {
	ID         id.ID          `json:"id"`
	EntityType string         `json:"entityType"`
	EntityID   id.ID          `json:"entityId"`
	Action     AuditAction    `json:"action"`
	RequestID  string         `json:"requestId,omitempty"`
	Changes    map[string]any `json:"changes"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// AuditLog persists audit entries. Record runs inside the write's
// transaction, so a failed record rolls the write back.
type AuditLog interface {
	Record(ctx context.Context, e AuditEntry) error
	// History returns the entries of one entity, newest first.
	History(ctx context.Context, entityID id.ID, limit int) ([]AuditEntry, error)
}

// NewAuditEntry stamps an entry with an id, the request id from ctx and now.
func NewAuditEntry(ctx context.Context, entityType string, entityID id.ID, action AuditAction, changes map[string]any) AuditEntry {
	return AuditEntry{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		RequestID:  appctx.GetRequestID(ctx),
		Changes:    changes,
		CreatedAt:  time.Now().UTC(),
	}
}
