package dto

import (
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
)

// WindowQuery is the from/to pair of report endpoints.
type WindowQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// Window converts the query. Empty from is the beginning of history, empty
// to is now; a date-only to includes that whole day.
func (q WindowQuery) Window() (ledger.Window, error) {
	from, err := ParseDate("from", q.From, false)
	if err != nil {
		return ledger.Window{}, err
	}
	to, err := ParseDate("to", q.To, true)
	if err != nil {
		return ledger.Window{}, err
	}
	w := ledger.Window{Start: from, End: to}
	return w, w.Validate()
}

// Formatter renders quantities for display. Raw numbers are always sent
// next to their display form.
type Formatter struct {
	Precision int
}

// BalanceResponse is a quantity with its sub-ledgers.
type BalanceResponse struct {
	Bulk    float64     `json:"bulk"`
	Packed  float64     `json:"packed"`
	Total   float64     `json:"total"`
	Display BalanceText `json:"display"`
}

// BalanceText is the rounded display form; near-zero values show as "-".
type BalanceText struct {
	Bulk   string `json:"bulk"`
	Packed string `json:"packed"`
	Total  string `json:"total"`
}

func (f Formatter) Balance(b entity.Balance) BalanceResponse {
	return BalanceResponse{
		Bulk:   b.Bulk,
		Packed: b.Packed,
		Total:  b.Total(),
		Display: BalanceText{
			Bulk:   types.FormatQuantity(b.Bulk, f.Precision),
			Packed: types.FormatQuantity(b.Packed, f.Precision),
			Total:  types.FormatQuantity(b.Total(), f.Precision),
		},
	}
}

func (f Formatter) totals(columns []ledger.Bucket, totals map[ledger.Bucket]entity.Balance) map[string]BalanceResponse {
	out := make(map[string]BalanceResponse, len(columns))
	for _, b := range columns {
		out[string(b)] = f.Balance(totals[b])
	}
	return out
}

// ColumnResponse describes one bucket column.
type ColumnResponse struct {
	Bucket string `json:"bucket"`
	Title  string `json:"title"`
	// Sign is "+", "-" or "±" (signed net).
	Sign string `json:"sign"`
}

func columns(bs []ledger.Bucket) []ColumnResponse {
	out := make([]ColumnResponse, len(bs))
	for i, b := range bs {
		sign := "±"
		switch b.Polarity() {
		case ledger.Additive:
			sign = "+"
		case ledger.Subtractive:
			sign = "-"
		}
		out[i] = ColumnResponse{Bucket: string(b), Title: b.Title(), Sign: sign}
	}
	return out
}

// ContextResponse describes a loaded ledger context.
type ContextResponse struct {
	Name    string           `json:"name"`
	Title   string           `json:"title"`
	Scope   string           `json:"scope"`
	Split   bool             `json:"split"`
	Columns []ColumnResponse `json:"columns"`
	Rules   []string         `json:"rules"`
}

func FromRuleTable(t *ledger.RuleTable) ContextResponse {
	return ContextResponse{
		Name:    t.Name(),
		Title:   t.Title(),
		Scope:   t.Scope(),
		Split:   t.Split(),
		Columns: columns(t.Columns()),
		Rules:   t.RuleNames(),
	}
}

// WindowResponse echoes the resolved window. From is omitted for all-history.
type WindowResponse struct {
	From *time.Time `json:"from,omitempty"`
	To   time.Time  `json:"to"`
}

func fromWindow(w ledger.Window) WindowResponse {
	out := WindowResponse{To: w.End}
	if !w.Start.IsZero() {
		from := w.Start
		out.From = &from
	}
	return out
}

// RowResponse is one product's ledger row.
type RowResponse struct {
	ProductID string `json:"productId"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`

	Opening     BalanceResponse            `json:"opening"`
	Totals      map[string]BalanceResponse `json:"totals"`
	Closing     BalanceResponse            `json:"closing"`
	WindowSales BalanceResponse            `json:"windowSales"`

	LiveStock  BalanceResponse  `json:"liveStock"`
	Checked    bool             `json:"checked"`
	Reconciled bool             `json:"reconciled"`
	Drift      *BalanceResponse `json:"drift,omitempty"`

	Lines        int              `json:"lines"`
	Unclassified int              `json:"unclassified"`
	NonNumeric   []ledger.LineRef `json:"nonNumeric,omitempty"`
}

func (f Formatter) Row(columns []ledger.Bucket, r ledger.Row) RowResponse {
	out := RowResponse{
		ProductID:    r.ProductID.String(),
		Code:         r.Code,
		Name:         r.Name,
		Unit:         r.Unit,
		Opening:      f.Balance(r.Opening),
		Totals:       f.totals(columns, r.Totals),
		Closing:      f.Balance(r.Closing),
		WindowSales:  f.Balance(r.WindowSales),
		LiveStock:    f.Balance(r.LiveStock),
		Checked:      r.Checked,
		Reconciled:   r.Reconciled,
		Lines:        r.Lines,
		Unclassified: r.Unclassified,
		NonNumeric:   r.NonNumeric,
	}
	if r.Checked && !r.Reconciled {
		d := f.Balance(r.Drift)
		out.Drift = &d
	}
	return out
}

// DriftResponse is a product whose live stock disagrees with the replay.
type DriftResponse struct {
	ProductID string          `json:"productId"`
	Code      string          `json:"code"`
	LiveStock BalanceResponse `json:"liveStock"`
	Closing   BalanceResponse `json:"closing"`
	Drift     BalanceResponse `json:"drift"`
}

func (f Formatter) Drifts(ds []ledger.Drift) []DriftResponse {
	out := make([]DriftResponse, len(ds))
	for i, d := range ds {
		out[i] = DriftResponse{
			ProductID: d.ProductID.String(),
			Code:      d.Code,
			LiveStock: f.Balance(d.LiveStock),
			Closing:   f.Balance(d.Closing),
			Drift:     f.Balance(d.Drift),
		}
	}
	return out
}

// DiagnosticsResponse lists what the report could not place cleanly.
type DiagnosticsResponse struct {
	Clean        bool             `json:"clean"`
	Orphans      []ledger.LineRef `json:"orphans"`
	Unclassified int              `json:"unclassified"`
	NonNumeric   []ledger.LineRef `json:"nonNumeric"`
	Drifted      []DriftResponse  `json:"drifted"`
}

// ReportResponse is a full context ledger.
type ReportResponse struct {
	Context     string                     `json:"context"`
	Title       string                     `json:"title"`
	Split       bool                       `json:"split"`
	Columns     []ColumnResponse           `json:"columns"`
	Window      WindowResponse             `json:"window"`
	GeneratedAt time.Time                  `json:"generatedAt"`
	Rows        []RowResponse              `json:"rows"`
	Opening     BalanceResponse            `json:"opening"`
	Totals      map[string]BalanceResponse `json:"totals"`
	Closing     BalanceResponse            `json:"closing"`
	Diagnostics DiagnosticsResponse        `json:"diagnostics"`
}

func (f Formatter) Report(r *ledger.Report) ReportResponse {
	rows := make([]RowResponse, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = f.Row(r.Columns, row)
	}
	return ReportResponse{
		Context:     r.Context,
		Title:       r.Title,
		Split:       r.Split,
		Columns:     columns(r.Columns),
		Window:      fromWindow(r.Window),
		GeneratedAt: r.GeneratedAt,
		Rows:        rows,
		Opening:     f.Balance(r.Opening),
		Totals:      f.totals(r.Columns, r.Totals),
		Closing:     f.Balance(r.Closing),
		Diagnostics: DiagnosticsResponse{
			Clean:        r.Diagnostics.Clean(),
			Orphans:      nonNil(r.Diagnostics.Orphans),
			Unclassified: r.Diagnostics.Unclassified,
			NonNumeric:   nonNil(r.Diagnostics.NonNumeric),
			Drifted:      f.Drifts(r.Diagnostics.Drifted),
		},
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// OpeningRequest sets a product's opening count. Omitted halves are zero.
type OpeningRequest struct {
	Bulk   *float64 `json:"bulk"`
	Packed *float64 `json:"packed"`
}

// Balance returns the requested opening.
func (r OpeningRequest) Balance() entity.Balance {
	var b entity.Balance
	if r.Bulk != nil {
		b.Bulk = *r.Bulk
	}
	if r.Packed != nil {
		b.Packed = *r.Packed
	}
	return b
}

// ProductResponse is a catalog product with its stock.
type ProductResponse struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Unit           string          `json:"unit"`
	WarehouseScope string          `json:"warehouseScope"`
	Stock          BalanceResponse `json:"stock"`
	InitialStock   BalanceResponse `json:"initialStock"`
	Version        int             `json:"version"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (f Formatter) Product(p entity.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID.String(),
		Code:           p.Code,
		Name:           p.Name,
		Unit:           p.Unit,
		WarehouseScope: p.WarehouseScope,
		Stock:          f.Balance(p.Stock()),
		InitialStock:   f.Balance(p.InitialStock()),
		Version:        p.Version,
		UpdatedAt:      p.UpdatedAt,
	}
}

// CreateProductRequest adds a product to a context's catalog.
type CreateProductRequest struct {
	Code    string         `json:"code"`
	Name    string         `json:"name" binding:"required"`
	Unit    string         `json:"unit"`
	Opening OpeningRequest `json:"opening"`
}

// ClassifyRequest probes a rule table with one line. Direction is derived
// from type and quantity when omitted.
type ClassifyRequest struct {
	Type      string   `json:"type" binding:"required"`
	Direction string   `json:"direction"`
	Quantity  *float64 `json:"quantity"`
	Reason    string   `json:"reason"`
	Notes     string   `json:"notes"`
	SalesType string   `json:"salesType"`
	// Target marks the receiving side of a transfer.
	Target bool `json:"target"`
}

// Input converts the request.
func (r ClassifyRequest) Input() (ledger.Input, error) {
	typ := entity.MovementType(r.Type)
	if !typ.Valid() {
		return ledger.Input{}, invalidField("type", r.Type)
	}
	dir := ledger.ParseDirection(r.Direction)
	if dir == 0 {
		if r.Direction != "" {
			return ledger.Input{}, invalidField("direction", r.Direction)
		}
		var q float64
		if r.Quantity != nil {
			q = *r.Quantity
		}
		dir = ledger.DirectionOf(typ, q, r.Target)
	}
	return ledger.Input{
		Type:      typ,
		Direction: dir,
		Reason:    r.Reason,
		Notes:     r.Notes,
		SalesType: r.SalesType,
	}, nil
}

// ClassifyResponse names the bucket and the rule that fired.
type ClassifyResponse struct {
	Bucket    string `json:"bucket"`
	Title     string `json:"title"`
	Rule      string `json:"rule,omitempty"`
	Direction string `json:"direction"`
}

func FromMatch(m ledger.Match, dir ledger.Direction) ClassifyResponse {
	return ClassifyResponse{
		Bucket:    string(m.Bucket),
		Title:     m.Bucket.Title(),
		Rule:      m.Rule,
		Direction: dir.String(),
	}
}

// HistoryQuery pages a product's audit history.
type HistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}
