package ledger_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

func TestSelectQueries(t *testing.T) {
	s := NewStore(nil)

	tests := []struct {
		name    string
		q       squirrel.SelectBuilder
		wantSQL string
	}{
		{
			name: "products",
			q:    s.selectProducts(),
			wantSQL: "SELECT id, code, name, unit, warehouse_scope, stock_bulk, stock_packed, initial_bulk, initial_packed, version, updated_at " +
				"FROM ledger_products ORDER BY warehouse_scope, code, id",
		},
		{
			name:    "movements",
			q:       s.selectMovements(),
			wantSQL: "SELECT id, date, type, warehouse_scope, target_scope, reason, notes, created_at FROM ledger_movements ORDER BY date, id",
		},
		{
			name:    "sales",
			q:       s.selectSales(),
			wantSQL: "SELECT id, date, warehouse_scope, customer, notes, created_at FROM ledger_sales ORDER BY date, id",
		},
		{
			name: "sale items",
			q:    s.selectItems("ledger_sale_items"),
			wantSQL: "SELECT owner_id, line_no, product_id, target_product_id, quantity, quantity_bulk, quantity_packed, sales_type " +
				"FROM ledger_sale_items ORDER BY owner_id, line_no",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Empty(t, args)
		})
	}
}

func TestUpsertProduct(t *testing.T) {
	s := NewStore(nil)
	p := entity.NewProduct("finished_goods", "F-1", "علف", "طن", entity.Balance{Bulk: 100})

	sql, args, err := s.upsertProduct(p).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql,
		"INSERT INTO ledger_products (code,id,initial_bulk,initial_packed,name,stock_bulk,stock_packed,unit,updated_at,version,warehouse_scope) "+
			"VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) ON CONFLICT (id) DO UPDATE SET"), sql)
	assert.Contains(t, sql, "stock_bulk = EXCLUDED.stock_bulk")
	require.Len(t, args, 11)
	assert.Equal(t, "F-1", args[0])
	assert.Equal(t, p.ID, args[1])
	assert.Equal(t, 100.0, args[2])
	assert.Equal(t, 100.0, args[5])
}

func TestInsertItems(t *testing.T) {
	s := NewStore(nil)
	owner := id.New()
	target := id.New()
	items := []entity.Item{
		{ProductID: id.New(), Quantity: "5"},
		{ProductID: id.New(), TargetProductID: &target, QuantityBulk: types.QPtr(2), SalesType: "مزارع"},
	}

	sql, args, err := s.insertItems("ledger_movement_items", owner, items).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO ledger_movement_items (owner_id,line_no,product_id,target_product_id,quantity,quantity_bulk,quantity_packed,sales_type) "+
			"VALUES ($1,$2,$3,$4,$5,$6,$7,$8),($9,$10,$11,$12,$13,$14,$15,$16)", sql)
	require.Len(t, args, 16)
	assert.Equal(t, owner, args[0])
	assert.Equal(t, 0, args[1])
	assert.Equal(t, 1, args[9])
	assert.Equal(t, &target, args[11])
}

func TestDeleteMovementQuery(t *testing.T) {
	s := NewStore(nil)
	movementID := id.New()

	sql, args, err := s.builder.Delete("ledger_movements").Where(squirrel.Eq{"id": movementID}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM ledger_movements WHERE id = $1", sql)
	assert.Equal(t, []any{movementID}, args)
}

func TestRowConversions(t *testing.T) {
	p := entity.NewProduct("parts", "P", "ترس", "قطعة", entity.Balance{Packed: 3}).
		Posted(entity.Balance{Packed: 2})
	p.UpdatedAt = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, p.State(), toProductRow(p).product().State())

	target := id.New()
	items := []entity.Item{
		{ProductID: id.New(), Quantity: "abc"},
		{ProductID: id.New(), TargetProductID: &target, QuantityBulk: types.QPtr(1.5), QuantityPacked: types.QPtr(2)},
	}
	for i, it := range items {
		row := toItemRow(target, i, it)
		assert.Equal(t, it, row.item())
	}
	assert.Nil(t, toItemRow(target, 0, items[0]).QuantityBulk)
}
