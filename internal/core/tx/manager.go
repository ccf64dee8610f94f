// Package tx lets the ledger service group store calls without knowing the
// store. The postgres store implements it with database transactions, the
// memory store with a writer lock.
package tx

import (
	"context"
)

// Manager runs fn inside a transaction. An error from fn rolls it back.
// Nested calls join the transaction already carried by ctx.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds read-only transactions, used to take consistent
// movement, sale and product snapshots.
type ReadOnlyManager interface {
	Manager
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
