package ledger

import (
	"context"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

// SnapshotReader returns full, unfiltered snapshots. The engine does its own
// scope and date filtering.
type SnapshotReader interface {
	ListMovements(ctx context.Context) ([]entity.Movement, error)
	ListSales(ctx context.Context) ([]entity.Sale, error)
	ListProducts(ctx context.Context) ([]entity.Product, error)
}

// Store is the persistence collaborator of the ledger service.
// Writes are last-write-wins; Product.Version is stored but not checked.
type Store interface {
	SnapshotReader

	// SaveProduct inserts or replaces a product.
	SaveProduct(ctx context.Context, p entity.Product) error

	// AppendMovement stores a new movement with its items.
	AppendMovement(ctx context.Context, m entity.Movement) error

	// DeleteMovement removes a movement and its items. A missing movement is
	// reported as not found.
	DeleteMovement(ctx context.Context, movementID id.ID) error

	// AppendSale stores a new sale with its items.
	AppendSale(ctx context.Context, s entity.Sale) error
}
