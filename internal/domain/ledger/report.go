package ledger

import (
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

// Report is the ledger of every product of a context over one window.
type Report struct {
	Context     string    `json:"context"`
	Title       string    `json:"title"`
	Split       bool      `json:"split"`
	Columns     []Bucket  `json:"columns"`
	Window      Window    `json:"window"`
	GeneratedAt time.Time `json:"generatedAt"`

	Rows []Row `json:"rows"`

	Opening entity.Balance            `json:"opening"`
	Totals  map[Bucket]entity.Balance `json:"totals"`
	Closing entity.Balance            `json:"closing"`

	Diagnostics Diagnostics `json:"diagnostics"`
}

// Diagnostics lists what the report could not place cleanly. Nothing here
// stops a report from rendering.
type Diagnostics struct {
	// Orphans are lines whose product is not in the context's catalog.
	Orphans []LineRef `json:"orphans"`
	// Unclassified counts in-window lines that fell through to other.
	Unclassified int `json:"unclassified"`
	// NonNumeric are lines whose quantity failed to parse and counted as zero.
	NonNumeric []LineRef `json:"nonNumeric"`
	// Drifted are products whose live stock disagrees with the replay.
	Drifted []Drift `json:"drifted"`
}

// Drift is a product whose persisted stock no longer matches its movements.
type Drift struct {
	ProductID id.ID          `json:"productId"`
	Code      string         `json:"code"`
	LiveStock entity.Balance `json:"liveStock"`
	Closing   entity.Balance `json:"closing"`
	Drift     entity.Balance `json:"drift"`
}

// Clean reports whether there is nothing to look at.
func (d Diagnostics) Clean() bool {
	return len(d.Orphans) == 0 && d.Unclassified == 0 &&
		len(d.NonNumeric) == 0 && len(d.Drifted) == 0
}

// BuildReport computes rows for every product of the context's scope.
// Products of other scopes are ignored; lines referencing them are orphans.
func (b *Builder) BuildReport(products []entity.Product, movements []entity.Movement, sales []entity.Sale, w Window) Report {
	now := b.now()
	w = w.resolve(now)
	rep := Report{
		Context:     b.table.name,
		Title:       b.table.title,
		Split:       b.table.split,
		Columns:     b.table.Columns(),
		Window:      w,
		GeneratedAt: now,
		Rows:        []Row{},
		Totals:      make(map[Bucket]entity.Balance, len(b.table.columns)),
		Diagnostics: Diagnostics{Orphans: []LineRef{}, NonNumeric: []LineRef{}, Drifted: []Drift{}},
	}
	for _, c := range b.table.columns {
		rep.Totals[c] = entity.Balance{}
	}

	known := make(map[id.ID]bool)
	for _, p := range products {
		if p.WarehouseScope == b.table.scope {
			known[p.ID] = true
		}
	}
	byProduct := make(map[id.ID][]Line)
	for _, l := range Lines(b.table.scope, movements, sales) {
		if !known[l.Ref.ProductID] {
			if !l.Date.After(w.End) {
				rep.Diagnostics.Orphans = append(rep.Diagnostics.Orphans, l.Ref)
			}
			continue
		}
		byProduct[l.Ref.ProductID] = append(byProduct[l.Ref.ProductID], l)
	}

	for _, p := range products {
		if p.WarehouseScope != b.table.scope {
			continue
		}
		row := b.row(p, byProduct[p.ID], w, now)
		rep.Rows = append(rep.Rows, row)

		rep.Opening = rep.Opening.Add(row.Opening)
		rep.Closing = rep.Closing.Add(row.Closing)
		for c, v := range row.Totals {
			rep.Totals[c] = rep.Totals[c].Add(v)
		}
		rep.Diagnostics.Unclassified += row.Unclassified
		rep.Diagnostics.NonNumeric = append(rep.Diagnostics.NonNumeric, row.NonNumeric...)
		if row.Checked && !row.Reconciled {
			rep.Diagnostics.Drifted = append(rep.Diagnostics.Drifted, Drift{
				ProductID: row.ProductID,
				Code:      row.Code,
				LiveStock: row.LiveStock,
				Closing:   row.Closing,
				Drift:     row.Drift,
			})
		}
	}
	return rep
}
