package ledger

import (
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

// Row is one product's line in a ledger report.
type Row struct {
	ProductID id.ID  `json:"productId"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`

	Opening entity.Balance            `json:"opening"`
	Totals  map[Bucket]entity.Balance `json:"totals"`
	Closing entity.Balance            `json:"closing"`

	// WindowSales is the gross quantity sold through the Sale list.
	WindowSales entity.Balance `json:"windowSales"`

	// LiveStock is the product's persisted stock.
	LiveStock entity.Balance `json:"liveStock"`
	// Checked is set for all-time windows, the only ones that can be
	// compared against LiveStock.
	Checked    bool           `json:"checked"`
	Reconciled bool           `json:"reconciled"`
	Drift      entity.Balance `json:"drift"`

	Lines        int       `json:"lines"`
	Unclassified int       `json:"unclassified"`
	NonNumeric   []LineRef `json:"nonNumeric,omitempty"`
}

// Builder produces ledger rows for one context. It holds no state between
// calls; every result is derived from its arguments.
type Builder struct {
	table *RuleTable
	now   func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the clock used to resolve "now".
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a builder for table.
func NewBuilder(table *RuleTable, opts ...Option) *Builder {
	b := &Builder{table: table, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Table returns the builder's rule table.
func (b *Builder) Table() *RuleTable { return b.table }

// Now returns the builder's current time.
func (b *Builder) Now() time.Time { return b.now() }

// Resolve fills a zero window end with now.
func (b *Builder) Resolve(w Window) Window {
	return w.resolve(b.now())
}

// BuildRow computes the ledger row of product over w.
func (b *Builder) BuildRow(product entity.Product, movements []entity.Movement, sales []entity.Sale, w Window) Row {
	now := b.now()
	lines := Lines(b.table.scope, movements, sales)
	return b.row(product, lines, w.resolve(now), now)
}

// row reconciles only when w reaches now; now is the reading w was resolved with.
func (b *Builder) row(product entity.Product, lines []Line, w Window, now time.Time) Row {
	acc := Accumulate(b.table, lines, product, w)
	rec := Reconstruct(product.InitialStock(), acc)

	totals := make(map[Bucket]entity.Balance, len(b.table.columns))
	for _, c := range b.table.columns {
		totals[c] = acc.Totals[c]
	}

	r := Row{
		ProductID:    product.ID,
		Code:         product.Code,
		Name:         product.Name,
		Unit:         product.Unit,
		Opening:      rec.Opening,
		Totals:       totals,
		Closing:      rec.Closing,
		WindowSales:  acc.WindowSales,
		LiveStock:    product.Stock(),
		Lines:        acc.Lines,
		Unclassified: len(acc.Unclassified),
		NonNumeric:   acc.NonNumeric,
	}
	if w.IsAllTime(now) {
		r.Checked = true
		r.Drift, r.Reconciled = Reconcile(rec.Closing, r.LiveStock)
	}
	return r
}

// ReplayStock is initial plus the net of every line of product from epoch
// to now. It is the only place live stock is derived rather than incremented.
func (b *Builder) ReplayStock(product entity.Product, initial entity.Balance, movements []entity.Movement, sales []entity.Sale) entity.Balance {
	lines := Lines(b.table.scope, movements, sales)
	acc := Accumulate(b.table, lines, product, b.Resolve(AllTime()))
	return Reconstruct(initial, acc).Closing
}

// ApplyOpeningEdit returns product with its opening set to newInitial and its
// stock recomputed from the full movement history. The input is not modified.
func (b *Builder) ApplyOpeningEdit(product entity.Product, newInitial entity.Balance, movements []entity.Movement, sales []entity.Sale) entity.Product {
	stock := b.ReplayStock(product, newInitial, movements, sales)
	updated := product.WithOpening(newInitial, stock)
	updated.Touch()
	return updated
}
