package ledger

import (
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Window is an inclusive reporting period. A zero Start means the beginning
// of history; a zero End is resolved to "now" by the Builder, once per call.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AllTime is the window [epoch, now]. Its end is left open so the Builder
// resolves it with the same clock reading it reconciles against.
func AllTime() Window {
	return Window{}
}

func (w Window) resolve(now time.Time) Window {
	if w.End.IsZero() {
		w.End = now
	}
	return w
}

// Validate rejects windows that end before they start.
func (w Window) Validate() error {
	if !w.Start.IsZero() && !w.End.IsZero() && w.End.Before(w.Start) {
		return apperror.NewValidation("window end is before its start").
			WithDetail("start", w.Start).
			WithDetail("end", w.End)
	}
	return nil
}

// Contains reports whether t is inside [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !w.Before(t) && !t.After(w.End)
}

// Before reports whether t is strictly before the window start.
func (w Window) Before(t time.Time) bool {
	return !w.Start.IsZero() && t.Before(w.Start)
}

// IsAllTime reports whether the window starts at epoch and reaches now.
// Only such windows can be reconciled against live stock.
func (w Window) IsAllTime(now time.Time) bool {
	return w.Start.IsZero() && (w.End.IsZero() || !w.End.Before(now))
}

// Source kinds of a LineRef.
const (
	SourceMovement = "movement"
	SourceSale     = "sale"
)

// LineRef points back at the record a line came from.
type LineRef struct {
	Source    string `json:"source"`
	ID        id.ID  `json:"id"`
	Index     int    `json:"index"`
	ProductID id.ID  `json:"productId"`
}

// Line is one item of a movement or sale as seen from a single ledger scope.
// A transfer yields one line in its source scope and one in its target scope.
type Line struct {
	Ref       LineRef
	Date      time.Time
	Type      entity.MovementType
	Scope     string
	Reason    string
	Notes     string
	SalesType string
	// Target is set for the receiving side of a transfer.
	Target bool
	Item   entity.Item
}

// Lines flattens movements and sales into the lines that belong to scope.
// Input order is preserved.
func Lines(scope string, movements []entity.Movement, sales []entity.Sale) []Line {
	var out []Line
	for _, m := range movements {
		if !m.Touches(scope) {
			continue
		}
		// A transfer within one scope is read from its source side only.
		target := m.WarehouseScope != scope
		for i, it := range m.Items {
			out = append(out, Line{
				Ref:       LineRef{Source: SourceMovement, ID: m.ID, Index: i, ProductID: it.ProductFor(target)},
				Date:      m.Date,
				Type:      m.Type,
				Scope:     scope,
				Reason:    m.Reason,
				Notes:     m.Notes,
				SalesType: it.SalesType,
				Target:    target,
				Item:      it,
			})
		}
	}
	for _, s := range sales {
		if s.WarehouseScope != scope {
			continue
		}
		for i, it := range s.Items {
			out = append(out, Line{
				Ref:       LineRef{Source: SourceSale, ID: s.ID, Index: i, ProductID: it.ProductID},
				Date:      s.Date,
				Type:      entity.MovementSale,
				Scope:     scope,
				Notes:     s.Notes,
				SalesType: it.SalesType,
				Item:      it,
			})
		}
	}
	return out
}

// quantities parses the line into sub-ledger quantities. An unparseable
// part counts as zero and is reported through the error.
func (l Line) quantities(bulkUnit bool) (entity.Balance, error) {
	var (
		q        entity.Balance
		firstErr error
	)
	parse := func(raw *types.RawQuantity) float64 {
		if raw == nil {
			return 0
		}
		v, err := raw.Float64()
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	}
	if l.Item.HasSplit() {
		q.Bulk = parse(l.Item.QuantityBulk)
		q.Packed = parse(l.Item.QuantityPacked)
		return q, firstErr
	}
	v := parse(&l.Item.Quantity)
	if bulkUnit {
		q.Bulk = v
	} else {
		q.Packed = v
	}
	return q, firstErr
}

// DirectionOf derives the natural flow of a line from its movement type and
// the sign of its net quantity. target marks the receiving side of a transfer.
func DirectionOf(typ entity.MovementType, net float64, target bool) Direction {
	switch typ {
	case entity.MovementIn:
		return Inbound
	case entity.MovementOut:
		return Outbound
	case entity.MovementTransfer:
		if target {
			return Inbound
		}
		return Outbound
	case entity.MovementReturn:
		if net < 0 {
			return Outbound
		}
		return Inbound
	case entity.MovementSale:
		if net < 0 {
			return Inbound
		}
		return Outbound
	default:
		if net < 0 {
			return Outbound
		}
		return Inbound
	}
}

// Contribution is the effect of one line on its product's ledger.
type Contribution struct {
	Match     Match
	Direction Direction
	// Magnitude is the unsigned quantity per sub-ledger.
	Magnitude entity.Balance
	// Signed is Magnitude with the bucket's sign applied.
	Signed entity.Balance
	// Err is set when part of the quantity failed to parse.
	Err error
}

// Input builds the classification input of a line. direction is passed in
// because it depends on the parsed quantity.
func (l Line) Input(direction Direction) Input {
	return Input{
		Type:      l.Type,
		Direction: direction,
		Reason:    l.Reason,
		Notes:     l.Notes,
		SalesType: l.SalesType,
		Scope:     l.Scope,
	}
}

// Contribute classifies a line and computes its signed contribution.
// bulkUnit routes unsplit quantities to the bulk sub-ledger.
func (t *RuleTable) Contribute(l Line, bulkUnit bool) Contribution {
	q, err := l.quantities(bulkUnit)
	dir := DirectionOf(l.Type, q.Total(), l.Target)
	m := t.Match(l.Input(dir))
	mag := q.Abs()
	return Contribution{
		Match:     m,
		Direction: dir,
		Magnitude: mag,
		Signed:    mag.Scale(m.Bucket.sign(dir)),
		Err:       err,
	}
}

// Accumulation is the folded effect of a product's lines on one window.
type Accumulation struct {
	// PreWindow is the signed net of every line dated before the window.
	PreWindow entity.Balance
	// Totals holds unsigned magnitudes for additive and subtractive buckets
	// and the signed net for signed buckets. Only in-window lines count.
	Totals map[Bucket]entity.Balance
	// WindowSales is the gross quantity sold through the Sale list in the window.
	WindowSales entity.Balance
	// Lines counts in-window lines.
	Lines        int
	Unclassified []LineRef
	NonNumeric   []LineRef
}

// Net is Σadditive − Σsubtractive + Σsigned over the window totals.
func (a Accumulation) Net() entity.Balance {
	var net entity.Balance
	for b, v := range a.Totals {
		if b.Polarity() == Subtractive {
			net = net.Sub(v)
			continue
		}
		net = net.Add(v)
	}
	return net
}

// Accumulate folds the lines of product into w. Lines of other products are
// ignored, as are lines dated after the window end.
func Accumulate(t *RuleTable, lines []Line, product entity.Product, w Window) Accumulation {
	acc := Accumulation{Totals: make(map[Bucket]entity.Balance, len(t.columns))}
	bulk := t.IsBulkUnit(product.Unit)
	for _, l := range lines {
		if l.Ref.ProductID != product.ID || l.Date.After(w.End) {
			continue
		}
		c := t.Contribute(l, bulk)
		if c.Err != nil {
			acc.NonNumeric = append(acc.NonNumeric, l.Ref)
		}
		if w.Before(l.Date) {
			acc.PreWindow = acc.PreWindow.Add(c.Signed)
			continue
		}
		acc.Lines++
		b := c.Match.Bucket
		if b.Polarity() == Signed {
			acc.Totals[b] = acc.Totals[b].Add(c.Signed)
		} else {
			acc.Totals[b] = acc.Totals[b].Add(c.Magnitude)
		}
		if b == BucketOther {
			acc.Unclassified = append(acc.Unclassified, l.Ref)
		}
		if l.Ref.Source == SourceSale && c.Direction == Outbound {
			acc.WindowSales = acc.WindowSales.Add(c.Magnitude)
		}
	}
	return acc
}
