package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockledger/internal/core/id"
)

type mockAuditColumns struct {
	Version   int       `db:"version"`
	UpdatedAt time.Time `db:"updated_at"`
}

type mockRow struct {
	mockAuditColumns
	ID      id.ID   `db:"id"`
	Code    string  `db:"code"`
	Bulk    float64 `db:"stock_bulk"`
	Scratch string  `db:"-"`
	note    string
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[mockRow]()
	assert.Equal(t, []string{"version", "updated_at", "id", "code", "stock_bulk"}, cols)

	assert.Equal(t, cols, ExtractDBColumns[*mockRow](), "pointer types resolve to the struct")
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	row := mockRow{
		mockAuditColumns: mockAuditColumns{Version: 5, UpdatedAt: now},
		ID:               id.New(),
		Code:             "F-1",
		Bulk:             12.5,
		Scratch:          "ignored",
		note:             "ignored",
	}

	m := StructToMap(&row)

	assert.Len(t, m, 5)
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, now, m["updated_at"])
	assert.Equal(t, row.ID, m["id"])
	assert.Equal(t, "F-1", m["code"])
	assert.Equal(t, 12.5, m["stock_bulk"])
	assert.NotContains(t, m, "-")
	assert.Nil(t, StructToMap(42))
}
