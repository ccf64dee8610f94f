package postgres

import (
	"context"
	"fmt"
)

// Ledger tables. Quantities are text so that a value that fails to parse is
// kept and reported instead of being rejected on write.
const (
	ProductsTable      = "ledger_products"
	MovementsTable     = "ledger_movements"
	MovementItemsTable = "ledger_movement_items"
	SalesTable         = "ledger_sales"
	SaleItemsTable     = "ledger_sale_items"
	AuditTable         = "ledger_audit"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_products (
		id              UUID PRIMARY KEY,
		code            TEXT NOT NULL DEFAULT '',
		name            TEXT NOT NULL,
		unit            TEXT NOT NULL DEFAULT '',
		warehouse_scope TEXT NOT NULL,
		stock_bulk      DOUBLE PRECISION NOT NULL DEFAULT 0,
		stock_packed    DOUBLE PRECISION NOT NULL DEFAULT 0,
		initial_bulk    DOUBLE PRECISION NOT NULL DEFAULT 0,
		initial_packed  DOUBLE PRECISION NOT NULL DEFAULT 0,
		version         INTEGER NOT NULL DEFAULT 1,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_products_scope_idx ON ledger_products (warehouse_scope)`,
	`CREATE TABLE IF NOT EXISTS ledger_movements (
		id              UUID PRIMARY KEY,
		date            TIMESTAMPTZ NOT NULL,
		type            TEXT NOT NULL,
		warehouse_scope TEXT NOT NULL,
		target_scope    TEXT NOT NULL DEFAULT '',
		reason          TEXT NOT NULL DEFAULT '',
		notes           TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_movement_items (
		owner_id          UUID NOT NULL REFERENCES ledger_movements (id) ON DELETE CASCADE,
		line_no           INTEGER NOT NULL,
		product_id        UUID NOT NULL,
		target_product_id UUID,
		quantity          TEXT NOT NULL DEFAULT '',
		quantity_bulk     TEXT,
		quantity_packed   TEXT,
		sales_type        TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (owner_id, line_no)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_sales (
		id              UUID PRIMARY KEY,
		date            TIMESTAMPTZ NOT NULL,
		warehouse_scope TEXT NOT NULL,
		customer        TEXT NOT NULL DEFAULT '',
		notes           TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_sale_items (
		owner_id          UUID NOT NULL REFERENCES ledger_sales (id) ON DELETE CASCADE,
		line_no           INTEGER NOT NULL,
		product_id        UUID NOT NULL,
		target_product_id UUID,
		quantity          TEXT NOT NULL DEFAULT '',
		quantity_bulk     TEXT,
		quantity_packed   TEXT,
		sales_type        TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (owner_id, line_no)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_audit (
		id                 UUID PRIMARY KEY,
		entity_type        TEXT NOT NULL,
		entity_id          UUID NOT NULL,
		action             TEXT NOT NULL,
		request_id         TEXT NOT NULL DEFAULT '',
		changes            JSONB,
		changes_compressed BYTEA,
		compression_algo   TEXT NOT NULL DEFAULT 'none',
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_audit_entity_idx ON ledger_audit (entity_id, created_at DESC)`,
}

// EnsureSchema creates the ledger tables if they do not exist.
func EnsureSchema(ctx context.Context, q Querier) error {
	for _, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
