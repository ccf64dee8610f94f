// Package ledger_repo is the PostgreSQL implementation of ledger.Store.
package ledger_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/fixture"
	"stockledger/internal/infrastructure/storage/postgres"
)

var _ ledger.Store = (*Store)(nil)

type productRow struct {
	ID             id.ID     `db:"id"`
	Code           string    `db:"code"`
	Name           string    `db:"name"`
	Unit           string    `db:"unit"`
	WarehouseScope string    `db:"warehouse_scope"`
	StockBulk      float64   `db:"stock_bulk"`
	StockPacked    float64   `db:"stock_packed"`
	InitialBulk    float64   `db:"initial_bulk"`
	InitialPacked  float64   `db:"initial_packed"`
	Version        int       `db:"version"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func toProductRow(p entity.Product) productRow {
	s := p.State()
	return productRow{
		ID:             s.ID,
		Code:           s.Code,
		Name:           s.Name,
		Unit:           s.Unit,
		WarehouseScope: s.WarehouseScope,
		StockBulk:      s.Stock.Bulk,
		StockPacked:    s.Stock.Packed,
		InitialBulk:    s.InitialStock.Bulk,
		InitialPacked:  s.InitialStock.Packed,
		Version:        s.Version,
		UpdatedAt:      s.UpdatedAt,
	}
}

func (r productRow) product() entity.Product {
	return entity.RestoreProduct(entity.ProductState{
		ID:             r.ID,
		Version:        r.Version,
		UpdatedAt:      r.UpdatedAt,
		Code:           r.Code,
		Name:           r.Name,
		Unit:           r.Unit,
		WarehouseScope: r.WarehouseScope,
		Stock:          entity.Balance{Bulk: r.StockBulk, Packed: r.StockPacked},
		InitialStock:   entity.Balance{Bulk: r.InitialBulk, Packed: r.InitialPacked},
	})
}

type itemRow struct {
	OwnerID         id.ID   `db:"owner_id"`
	LineNo          int     `db:"line_no"`
	ProductID       id.ID   `db:"product_id"`
	TargetProductID *id.ID  `db:"target_product_id"`
	Quantity        string  `db:"quantity"`
	QuantityBulk    *string `db:"quantity_bulk"`
	QuantityPacked  *string `db:"quantity_packed"`
	SalesType       string  `db:"sales_type"`
}

func toItemRow(ownerID id.ID, lineNo int, it entity.Item) itemRow {
	return itemRow{
		OwnerID:         ownerID,
		LineNo:          lineNo,
		ProductID:       it.ProductID,
		TargetProductID: it.TargetProductID,
		Quantity:        string(it.Quantity),
		QuantityBulk:    rawPtr(it.QuantityBulk),
		QuantityPacked:  rawPtr(it.QuantityPacked),
		SalesType:       it.SalesType,
	}
}

func (r itemRow) item() entity.Item {
	return entity.Item{
		ProductID:       r.ProductID,
		TargetProductID: r.TargetProductID,
		Quantity:        types.RawQuantity(r.Quantity),
		QuantityBulk:    quantityPtr(r.QuantityBulk),
		QuantityPacked:  quantityPtr(r.QuantityPacked),
		SalesType:       r.SalesType,
	}
}

func (r itemRow) values() []any {
	return []any{r.OwnerID, r.LineNo, r.ProductID, r.TargetProductID, r.Quantity, r.QuantityBulk, r.QuantityPacked, r.SalesType}
}

func rawPtr(q *types.RawQuantity) *string {
	if q == nil {
		return nil
	}
	s := string(*q)
	return &s
}

func quantityPtr(s *string) *types.RawQuantity {
	if s == nil {
		return nil
	}
	q := types.RawQuantity(*s)
	return &q
}

var (
	productColumns  = postgres.ExtractDBColumns[productRow]()
	movementColumns = postgres.ExtractDBColumns[entity.Movement]()
	saleColumns     = postgres.ExtractDBColumns[entity.Sale]()
	itemColumns     = postgres.ExtractDBColumns[itemRow]()
)

// Store reads and writes ledger snapshots. Every call joins the transaction
// carried by ctx, if any.
type Store struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStore creates a store.
func NewStore(txm *postgres.TxManager) *Store {
	return &Store{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (s *Store) selectProducts() squirrel.SelectBuilder {
	return s.builder.Select(productColumns...).From(postgres.ProductsTable).OrderBy("warehouse_scope", "code", "id")
}

func (s *Store) selectMovements() squirrel.SelectBuilder {
	return s.builder.Select(movementColumns...).From(postgres.MovementsTable).OrderBy("date", "id")
}

func (s *Store) selectSales() squirrel.SelectBuilder {
	return s.builder.Select(saleColumns...).From(postgres.SalesTable).OrderBy("date", "id")
}

func (s *Store) selectItems(table string) squirrel.SelectBuilder {
	return s.builder.Select(itemColumns...).From(table).OrderBy("owner_id", "line_no")
}

func (s *Store) upsertProduct(p entity.Product) squirrel.InsertBuilder {
	return s.builder.Insert(postgres.ProductsTable).
		SetMap(postgres.StructToMap(toProductRow(p))).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code, name = EXCLUDED.name, unit = EXCLUDED.unit,
			warehouse_scope = EXCLUDED.warehouse_scope,
			stock_bulk = EXCLUDED.stock_bulk, stock_packed = EXCLUDED.stock_packed,
			initial_bulk = EXCLUDED.initial_bulk, initial_packed = EXCLUDED.initial_packed,
			version = EXCLUDED.version, updated_at = EXCLUDED.updated_at`)
}

func (s *Store) insertItems(table string, ownerID id.ID, items []entity.Item) squirrel.InsertBuilder {
	q := s.builder.Insert(table).Columns(itemColumns...)
	for i, it := range items {
		q = q.Values(toItemRow(ownerID, i, it).values()...)
	}
	return q
}

func (s *Store) exec(ctx context.Context, op string, q squirrel.Sqlizer) (pgconn.CommandTag, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("build %s: %w", op, err)
	}
	tag, err := s.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return tag, apperror.NewValidation("record already exists").WithDetail("constraint", pgErr.ConstraintName)
		}
		return tag, apperror.NewDatabase(op, err)
	}
	return tag, nil
}

func selectAll[T any](ctx context.Context, s *Store, op string, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", op, err)
	}
	var out []T
	if err := pgxscan.Select(ctx, s.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, apperror.NewDatabase(op, err)
	}
	return out, nil
}

func (s *Store) itemsByOwner(ctx context.Context, table string) (map[id.ID][]entity.Item, error) {
	rows, err := selectAll[itemRow](ctx, s, "list "+table, s.selectItems(table))
	if err != nil {
		return nil, err
	}
	out := make(map[id.ID][]entity.Item)
	for _, r := range rows {
		out[r.OwnerID] = append(out[r.OwnerID], r.item())
	}
	return out, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]entity.Product, error) {
	rows, err := selectAll[productRow](ctx, s, "list products", s.selectProducts())
	if err != nil {
		return nil, err
	}
	out := make([]entity.Product, len(rows))
	for i, r := range rows {
		out[i] = r.product()
	}
	return out, nil
}

func (s *Store) ListMovements(ctx context.Context) ([]entity.Movement, error) {
	movements, err := selectAll[entity.Movement](ctx, s, "list movements", s.selectMovements())
	if err != nil {
		return nil, err
	}
	items, err := s.itemsByOwner(ctx, postgres.MovementItemsTable)
	if err != nil {
		return nil, err
	}
	for i := range movements {
		movements[i].Items = items[movements[i].ID]
	}
	return movements, nil
}

func (s *Store) ListSales(ctx context.Context) ([]entity.Sale, error) {
	sales, err := selectAll[entity.Sale](ctx, s, "list sales", s.selectSales())
	if err != nil {
		return nil, err
	}
	items, err := s.itemsByOwner(ctx, postgres.SaleItemsTable)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i].Items = items[sales[i].ID]
	}
	return sales, nil
}

func (s *Store) SaveProduct(ctx context.Context, p entity.Product) error {
	_, err := s.exec(ctx, "save product", s.upsertProduct(p))
	return err
}

func (s *Store) AppendMovement(ctx context.Context, m entity.Movement) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		header := s.builder.Insert(postgres.MovementsTable).SetMap(postgres.StructToMap(m))
		if _, err := s.exec(ctx, "insert movement", header); err != nil {
			return err
		}
		if len(m.Items) == 0 {
			return nil
		}
		_, err := s.exec(ctx, "insert movement items", s.insertItems(postgres.MovementItemsTable, m.ID, m.Items))
		return err
	})
}

func (s *Store) DeleteMovement(ctx context.Context, movementID id.ID) error {
	tag, err := s.exec(ctx, "delete movement",
		s.builder.Delete(postgres.MovementsTable).Where(squirrel.Eq{"id": movementID}))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("movement", movementID)
	}
	return nil
}

func (s *Store) AppendSale(ctx context.Context, sale entity.Sale) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		header := s.builder.Insert(postgres.SalesTable).SetMap(postgres.StructToMap(sale))
		if _, err := s.exec(ctx, "insert sale", header); err != nil {
			return err
		}
		if len(sale.Items) == 0 {
			return nil
		}
		_, err := s.exec(ctx, "insert sale items", s.insertItems(postgres.SaleItemsTable, sale.ID, sale.Items))
		return err
	})
}

// Load bulk-copies a fixture in one transaction. Products are upserted;
// movements and sales must be new.
func (s *Store) Load(ctx context.Context, f fixture.Fixture) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, p := range f.Products {
			if err := s.SaveProduct(ctx, p); err != nil {
				return err
			}
		}

		copier := postgres.NewBatchInserter(s.txm)
		var headers, items [][]any
		for _, m := range f.Movements {
			headers = append(headers, []any{m.ID, m.Date, string(m.Type), m.WarehouseScope, m.TargetScope, m.Reason, m.Notes, m.CreatedAt})
			for i, it := range m.Items {
				items = append(items, toItemRow(m.ID, i, it).values())
			}
		}
		if _, err := copier.CopyFromSlice(ctx, postgres.MovementsTable, movementColumns, headers); err != nil {
			return apperror.NewDatabase("copy movements", err)
		}
		if _, err := copier.CopyFromSlice(ctx, postgres.MovementItemsTable, itemColumns, items); err != nil {
			return apperror.NewDatabase("copy movement items", err)
		}

		headers, items = nil, nil
		for _, sale := range f.Sales {
			headers = append(headers, []any{sale.ID, sale.Date, sale.WarehouseScope, sale.Customer, sale.Notes, sale.CreatedAt})
			for i, it := range sale.Items {
				items = append(items, toItemRow(sale.ID, i, it).values())
			}
		}
		if _, err := copier.CopyFromSlice(ctx, postgres.SalesTable, saleColumns, headers); err != nil {
			return apperror.NewDatabase("copy sales", err)
		}
		if _, err := copier.CopyFromSlice(ctx, postgres.SaleItemsTable, itemColumns, items); err != nil {
			return apperror.NewDatabase("copy sale items", err)
		}
		return nil
	})
}
