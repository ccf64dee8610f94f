package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

func TestBuildReport(t *testing.T) {
	now := day(30)
	tbl := MustRuleTable(FinishedGoods())
	b := NewBuilder(tbl, WithClock(clockAt(now)))

	a := entity.NewProduct(ContextFinishedGoods, "A", "بادي", "طن", bulk(10))
	c := entity.NewProduct(ContextFinishedGoods, "C", "نامي", "شيكارة", entity.Balance{Packed: 4})
	foreign := entity.NewProduct(ContextParts, "P", "ترس", "قطعة", entity.Balance{})
	ghost := id.New()

	movements := []entity.Movement{
		movement(ContextFinishedGoods, entity.MovementIn, day(1), "", item(a, 5), item(c, 2)),
		movement(ContextFinishedGoods, entity.MovementOut, day(2), "ملاحظة", entity.Item{ProductID: ghost, Quantity: "3"}),
		movement(ContextFinishedGoods, entity.MovementIn, day(3), "", entity.Item{ProductID: c.ID, Quantity: "x"}),
		movement(ContextParts, entity.MovementIn, day(1), "", item(foreign, 9)),
	}
	sales := []entity.Sale{sale(ContextFinishedGoods, day(4), "منفذ", item(a, 1))}

	a = postAll(tbl, a, movements, sales)
	// c is left unposted so it drifts

	rep := b.BuildReport([]entity.Product{a, c, foreign}, movements, sales, AllTime())

	assert.Equal(t, ContextFinishedGoods, rep.Context)
	assert.True(t, rep.Split)
	assert.Equal(t, tbl.Columns(), rep.Columns)
	require.Len(t, rep.Rows, 2)
	assert.Equal(t, "A", rep.Rows[0].Code)
	assert.Equal(t, "C", rep.Rows[1].Code)

	assert.Equal(t, entity.Balance{Bulk: 5, Packed: 2}, rep.Totals[BucketProduction])
	assert.InDelta(t, 1, rep.Totals[BucketSaleToOutlet].Bulk, Tolerance)
	assert.Equal(t, entity.Balance{Bulk: 10, Packed: 4}, rep.Opening)
	assert.InDelta(t, 14, rep.Closing.Bulk, Tolerance)
	assert.InDelta(t, 6, rep.Closing.Packed, Tolerance)

	require.Len(t, rep.Diagnostics.Orphans, 1)
	assert.Equal(t, ghost, rep.Diagnostics.Orphans[0].ProductID)
	require.Len(t, rep.Diagnostics.NonNumeric, 1)
	assert.Equal(t, c.ID, rep.Diagnostics.NonNumeric[0].ProductID)
	require.Len(t, rep.Diagnostics.Drifted, 1)
	assert.Equal(t, c.ID, rep.Diagnostics.Drifted[0].ProductID)
	assert.InDelta(t, -2, rep.Diagnostics.Drifted[0].Drift.Packed, Tolerance)
	assert.False(t, rep.Diagnostics.Clean())
}

func TestBuildReport_HistoricalWindowSkipsDriftCheck(t *testing.T) {
	tbl := MustRuleTable(RawMaterials())
	b := NewBuilder(tbl, WithClock(clockAt(day(30))))
	p := entity.NewProduct(ContextRawMaterials, "R", "ذرة", "طن", bulk(1))
	movements := []entity.Movement{movement(ContextRawMaterials, entity.MovementIn, day(1), "", item(p, 5))}

	rep := b.BuildReport([]entity.Product{p}, movements, nil, Window{Start: day(0), End: day(5)})

	assert.Empty(t, rep.Diagnostics.Drifted)
	assert.True(t, rep.Diagnostics.Clean())
	assert.False(t, rep.Rows[0].Checked)
}

func TestBuildReport_UnclassifiedIsCounted(t *testing.T) {
	tbl := MustRuleTable(ContextSpec{
		Name:  "narrow",
		Rules: []RuleSpec{{Name: "receipts", Bucket: BucketReceived, Types: []entity.MovementType{entity.MovementIn}}},
	})
	b := NewBuilder(tbl, WithClock(clockAt(day(30))))
	p := entity.NewProduct("narrow", "N", "صنف", "قطعة", entity.Balance{})
	movements := []entity.Movement{
		movement("narrow", entity.MovementIn, day(1), "", item(p, 5)),
		movement("narrow", entity.MovementOut, day(2), "", item(p, 2)),
	}
	p = postAll(tbl, p, movements, nil)

	rep := b.BuildReport([]entity.Product{p}, movements, nil, Window{})

	assert.Equal(t, 1, rep.Diagnostics.Unclassified)
	assert.InDelta(t, -2, rep.Totals[BucketOther].Packed, Tolerance)
	assert.InDelta(t, 3, rep.Closing.Packed, Tolerance)
	assert.Empty(t, rep.Diagnostics.Drifted)
}
