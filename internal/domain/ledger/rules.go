package ledger

import (
	"stockledger/internal/core/entity"
)

// Built-in context names.
const (
	ContextFinishedGoods = "finished_goods"
	ContextRawMaterials  = "raw_materials"
	ContextParts         = "parts"
	ContextCatering      = "catering"
	ContextCustody       = "custody"
)

var (
	typeIn         = []entity.MovementType{entity.MovementIn}
	typeOut        = []entity.MovementType{entity.MovementOut}
	typeAdjustment = []entity.MovementType{entity.MovementAdjustment}
	typeTransfer   = []entity.MovementType{entity.MovementTransfer}
	typeReturn     = []entity.MovementType{entity.MovementReturn}
	typeSale       = []entity.MovementType{entity.MovementSale}
)

var (
	dailyCountMarkers = []string{"جرد يومي", "عد يومي"}
	unfinishedMarkers = []string{"غير تام", "تحت التشغيل"}
	sackCountMarkers  = []string{"تسوية شكاير", "عد شكاير", "تسوية أجولة"}
	returnMarkers     = []string{"مرتجع", "مرتجعات", "رد بضاعة"}
	settleMarkers     = []string{"تسوية", "جرد", "زيادة", "إضافة"}
	deficitMarkers    = []string{"عجز", "خصم", "نقص"}
	farmSalesTypes    = []string{"مزارع", "مزرعة"}
	outletSalesTypes  = []string{"منفذ", "منافذ"}
)

// typeFallbacks resolve lines that carried no recognized marker, by movement
// type and direction alone.
func typeFallbacks(received Bucket) []RuleSpec {
	return []RuleSpec{
		{Name: "in", Bucket: received, Types: typeIn},
		{Name: "out", Bucket: BucketTransferOut, Types: typeOut},
		{Name: "transfer-in", Bucket: BucketTransferIn, Types: typeTransfer, Direction: "in"},
		{Name: "transfer-out", Bucket: BucketTransferOut, Types: typeTransfer, Direction: "out"},
		{Name: "adjustment-in", Bucket: BucketAdjustmentIn, Types: typeAdjustment, Direction: "in"},
		{Name: "adjustment-out", Bucket: BucketAdjustmentOut, Types: typeAdjustment, Direction: "out"},
	}
}

func returnRules() []RuleSpec {
	return []RuleSpec{
		{Name: "sale-return", Bucket: BucketReturnIn, Keywords: returnMarkers, Types: typeSale, Direction: "in"},
		{Name: "receipt-return", Bucket: BucketReturnIn, Keywords: returnMarkers, Types: typeIn},
		{Name: "return-in", Bucket: BucketReturnIn, Types: typeReturn, Direction: "in"},
		{Name: "return-out", Bucket: BucketReturnOut, Types: typeReturn, Direction: "out"},
	}
}

func shortageRules() []RuleSpec {
	return []RuleSpec{
		{Name: "shortage-disallowed", Bucket: BucketShortageDisallowed, Keywords: []string{"عجز غير مسموح"}},
		{Name: "shortage-allowed", Bucket: BucketShortageAllowed, Keywords: []string{"عجز مسموح"}},
	}
}

// settlementRules split adjustments by the deficit markers first and by
// direction second.
func settlementRules(deficit []string) []RuleSpec {
	return []RuleSpec{
		{Name: "settlement-deficit", Bucket: BucketAdjustmentOut, Keywords: deficit, Types: typeAdjustment},
		{Name: "settlement-in", Bucket: BucketAdjustmentIn, Keywords: settleMarkers, Direction: "in"},
		{Name: "settlement-out", Bucket: BucketAdjustmentOut, Keywords: settleMarkers, Direction: "out"},
	}
}

func salesRules() []RuleSpec {
	return []RuleSpec{
		{Name: "sale-farm", Bucket: BucketSaleToFarm, Types: typeSale, Direction: "out", SalesTypes: farmSalesTypes},
		{Name: "sale-outlet", Bucket: BucketSaleToOutlet, Types: typeSale, Direction: "out", SalesTypes: outletSalesTypes},
		{Name: "sale-client", Bucket: BucketSaleToClient, Types: typeSale, Direction: "out"},
		{Name: "sale-negative", Bucket: BucketReturnIn, Types: typeSale, Direction: "in"},
	}
}

func concat(groups ...[]RuleSpec) []RuleSpec {
	var out []RuleSpec
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// FinishedGoods is the finished-products warehouse: bulk and packed
// sub-ledgers, production receipts, three sales channels and shortages.
func FinishedGoods() ContextSpec {
	return ContextSpec{
		Name:      ContextFinishedGoods,
		Title:     "مخزن المنتج التام",
		Split:     true,
		BulkUnits: []string{"صب", "طن", "كجم", "كيلو", "kg", "ton"},
		Columns: []Bucket{
			BucketProduction, BucketAdjustmentIn, BucketTransferIn, BucketReturnIn,
			BucketSaleToFarm, BucketSaleToClient, BucketSaleToOutlet,
			BucketTransferOut, BucketAdjustmentOut, BucketReturnOut,
			BucketShortageAllowed, BucketShortageDisallowed,
			BucketUnfinished, BucketDailyCount, BucketSackAdjustment, BucketOther,
		},
		Rules: concat(
			[]RuleSpec{
				{Name: "daily-count", Bucket: BucketDailyCount, Keywords: dailyCountMarkers},
				{Name: "unfinished", Bucket: BucketUnfinished, Keywords: unfinishedMarkers},
				{Name: "sack-count", Bucket: BucketSackAdjustment, Keywords: sackCountMarkers},
			},
			returnRules(),
			shortageRules(),
			settlementRules(deficitMarkers),
			salesRules(),
			typeFallbacks(BucketProduction),
		),
	}
}

// RawMaterials is the raw-materials store. Receipts are purchases, issues
// to the mill are transfers out, returns go back to suppliers.
func RawMaterials() ContextSpec {
	return ContextSpec{
		Name:      ContextRawMaterials,
		Title:     "مخزن الخامات",
		BulkUnits: []string{"طن", "كجم", "كيلو", "kg", "ton"},
		Rules: concat(
			[]RuleSpec{
				{Name: "daily-count", Bucket: BucketDailyCount, Keywords: dailyCountMarkers},
				{Name: "supplier-return", Bucket: BucketReturnOut, Keywords: returnMarkers, Direction: "out"},
			},
			returnRules(),
			shortageRules(),
			settlementRules(deficitMarkers),
			typeFallbacks(BucketReceived),
		),
	}
}

// Parts is the spare-parts store. Only the "خصم" marker makes an adjustment
// subtractive; every other adjustment is additive regardless of its sign.
func Parts() ContextSpec {
	return ContextSpec{
		Name:  ContextParts,
		Title: "مخزن قطع الغيار",
		Rules: concat(
			returnRules(),
			[]RuleSpec{
				{Name: "discount", Bucket: BucketAdjustmentOut, Keywords: []string{"خصم"}, Types: typeAdjustment},
				{Name: "adjustment", Bucket: BucketAdjustmentIn, Types: typeAdjustment},
				{Name: "sale", Bucket: BucketSaleToClient, Types: typeSale, Direction: "out"},
				{Name: "sale-negative", Bucket: BucketReturnIn, Types: typeSale, Direction: "in"},
			},
			typeFallbacks(BucketReceived),
		),
	}
}

// Catering is the kitchen store: purchases in, consumption out, cash sales.
func Catering() ContextSpec {
	return ContextSpec{
		Name:  ContextCatering,
		Title: "مخزن الإعاشة",
		Rules: concat(
			returnRules(),
			shortageRules(),
			settlementRules(deficitMarkers),
			[]RuleSpec{
				{Name: "sale", Bucket: BucketSaleToClient, Types: typeSale, Direction: "out"},
				{Name: "sale-negative", Bucket: BucketReturnIn, Types: typeSale, Direction: "in"},
			},
			typeFallbacks(BucketReceived),
		),
	}
}

// Custody tracks items handed to staff: issues out, handbacks in.
func Custody() ContextSpec {
	return ContextSpec{
		Name:  ContextCustody,
		Title: "العهد",
		Rules: concat(
			[]RuleSpec{
				{Name: "handback", Bucket: BucketReturnIn, Keywords: []string{"رد عهدة", "إرجاع عهدة"}, Direction: "in"},
			},
			returnRules(),
			settlementRules(deficitMarkers),
			typeFallbacks(BucketReceived),
		),
	}
}

// DefaultContexts returns the built-in context specs.
func DefaultContexts() []ContextSpec {
	return []ContextSpec{FinishedGoods(), RawMaterials(), Parts(), Catering(), Custody()}
}

// DefaultRegistry compiles the built-in contexts.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultContexts()...)
	if err != nil {
		panic(err)
	}
	return r
}
