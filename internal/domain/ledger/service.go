package ledger

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/pkg/logger"
)

var tracer = otel.Tracer("stockledger/ledger")

// Service loads snapshots from a Store and runs the engine over them.
// All arithmetic happens in the pure Builder; the service only reads,
// persists and reports.
type Service struct {
	store          Store
	registry       *Registry
	txm            tx.Manager
	audit          AuditLog
	now            func() time.Time
	defaultContext string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTxManager groups each operation's store calls in a transaction.
func WithTxManager(m tx.Manager) ServiceOption {
	return func(s *Service) { s.txm = m }
}

// WithAuditLog records every stock-changing write.
func WithAuditLog(a AuditLog) ServiceOption {
	return func(s *Service) { s.audit = a }
}

// WithServiceClock overrides the clock.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithDefaultContext names the context used when a caller passes none.
func WithDefaultContext(name string) ServiceOption {
	return func(s *Service) { s.defaultContext = name }
}

// NewService creates a ledger service.
func NewService(store Store, registry *Registry, opts ...ServiceOption) *Service {
	s := &Service{
		store:          store,
		registry:       registry,
		now:            time.Now,
		defaultContext: ContextFinishedGoods,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Contexts returns every loaded rule table.
func (s *Service) Contexts() []*RuleTable {
	return s.registry.Tables()
}

// Builder returns the builder of a context.
func (s *Service) Builder(contextName string) (*Builder, error) {
	if contextName == "" {
		contextName = s.defaultContext
	}
	t, ok := s.registry.Get(contextName)
	if !ok {
		return nil, apperror.NewValidation("unknown ledger context").
			WithDetail("context", contextName)
	}
	return NewBuilder(t, WithClock(s.now)), nil
}

type snapshot struct {
	products  []entity.Product
	movements []entity.Movement
	sales     []entity.Sale
}

func (sn snapshot) product(productID id.ID) (entity.Product, bool) {
	for _, p := range sn.products {
		if p.ID == productID {
			return p, true
		}
	}
	return entity.Product{}, false
}

func (s *Service) load(ctx context.Context) (snapshot, error) {
	var sn snapshot
	read := func(ctx context.Context) error {
		var err error
		if sn.products, err = s.store.ListProducts(ctx); err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		if sn.movements, err = s.store.ListMovements(ctx); err != nil {
			return fmt.Errorf("list movements: %w", err)
		}
		if sn.sales, err = s.store.ListSales(ctx); err != nil {
			return fmt.Errorf("list sales: %w", err)
		}
		return nil
	}
	if ro, ok := s.txm.(tx.ReadOnlyManager); ok {
		return sn, ro.ReadOnly(ctx, read)
	}
	return sn, read(ctx)
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txm == nil {
		return fn(ctx)
	}
	return s.txm.RunInTransaction(ctx, fn)
}

func startSpan(ctx context.Context, name, contextName string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ledger."+name,
		trace.WithAttributes(attribute.String("ledger.context", contextName)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Report builds the ledger of a context over w.
func (s *Service) Report(ctx context.Context, contextName string, w Window) (rep *Report, err error) {
	ctx, span := startSpan(ctx, "Report", contextName)
	defer func() { endSpan(span, err) }()

	if err := w.Validate(); err != nil {
		return nil, err
	}
	b, err := s.Builder(contextName)
	if err != nil {
		return nil, err
	}
	sn, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	r := b.BuildReport(sn.products, sn.movements, sn.sales, w)
	span.SetAttributes(attribute.Int("ledger.rows", len(r.Rows)))
	s.warn(ctx, r)
	return &r, nil
}

// Row builds one product's ledger row over w.
func (s *Service) Row(ctx context.Context, contextName string, productID id.ID, w Window) (row *Row, err error) {
	ctx, span := startSpan(ctx, "Row", contextName)
	defer func() { endSpan(span, err) }()

	if err := w.Validate(); err != nil {
		return nil, err
	}
	b, err := s.Builder(contextName)
	if err != nil {
		return nil, err
	}
	sn, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := sn.product(productID)
	if !ok || p.WarehouseScope != b.Table().Scope() {
		return nil, apperror.NewNotFound("product", productID)
	}

	r := b.BuildRow(p, sn.movements, sn.sales, w)
	if len(r.NonNumeric) > 0 {
		logger.Warn(ctx, "non-numeric quantities counted as zero",
			"product_id", p.ID, "lines", len(r.NonNumeric))
	}
	return &r, nil
}

// ApplyOpeningEdit sets a product's opening count and recomputes its stock
// from the full movement history in one step. A missing product is an error
// and nothing is saved.
func (s *Service) ApplyOpeningEdit(ctx context.Context, contextName string, productID id.ID, opening entity.Balance) (updated entity.Product, err error) {
	ctx, span := startSpan(ctx, "ApplyOpeningEdit", contextName)
	defer func() { endSpan(span, err) }()

	b, err := s.Builder(contextName)
	if err != nil {
		return entity.Product{}, err
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		sn, err := s.load(ctx)
		if err != nil {
			return err
		}
		p, ok := sn.product(productID)
		if !ok || p.WarehouseScope != b.Table().Scope() {
			return apperror.NewNotFound("product", productID)
		}
		updated = b.ApplyOpeningEdit(p, opening, sn.movements, sn.sales)
		if err := s.store.SaveProduct(ctx, updated); err != nil {
			return fmt.Errorf("save product: %w", err)
		}
		if err := s.record(ctx, p.ID, AuditOpeningEdited, map[string]any{
			"previousOpening": p.InitialStock(),
			"previousStock":   p.Stock(),
			"opening":         opening,
			"stock":           updated.Stock(),
		}); err != nil {
			return err
		}
		logger.Info(ctx, "opening balance applied",
			"product_id", p.ID,
			"previous_stock", p.Stock().Total(),
			"stock", updated.Stock().Total(),
			"opening", opening.Total(),
		)
		return nil
	})
	if err != nil {
		return entity.Product{}, err
	}
	return updated, nil
}

// CreateProduct adds a product to a context's catalog. Its live stock starts
// at the opening count, so it reconciles until movements are posted.
func (s *Service) CreateProduct(ctx context.Context, contextName, code, name, unit string, opening entity.Balance) (p entity.Product, err error) {
	ctx, span := startSpan(ctx, "CreateProduct", contextName)
	defer func() { endSpan(span, err) }()

	b, err := s.Builder(contextName)
	if err != nil {
		return entity.Product{}, err
	}
	p = entity.NewProduct(b.Table().Scope(), code, name, unit, opening)
	if err := p.Validate(ctx); err != nil {
		return entity.Product{}, err
	}
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.store.SaveProduct(ctx, p); err != nil {
			return fmt.Errorf("save product: %w", err)
		}
		return s.record(ctx, p.ID, AuditProductCreated, map[string]any{
			"scope":   p.WarehouseScope,
			"opening": opening,
		})
	})
	if err != nil {
		return entity.Product{}, err
	}
	logger.Info(ctx, "product created", "product_id", p.ID, "scope", p.WarehouseScope, "code", code)
	return p, nil
}

// CheckDrift returns every product of the context whose live stock no longer
// matches its replayed all-time closing. Drift is reported, never corrected.
func (s *Service) CheckDrift(ctx context.Context, contextName string) (drifted []Drift, err error) {
	ctx, span := startSpan(ctx, "CheckDrift", contextName)
	defer func() { endSpan(span, err) }()

	b, err := s.Builder(contextName)
	if err != nil {
		return nil, err
	}
	sn, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	r := b.BuildReport(sn.products, sn.movements, sn.sales, AllTime())
	for _, d := range r.Diagnostics.Drifted {
		logger.Warn(ctx, "ledger drift",
			"context", r.Context,
			"product_id", d.ProductID,
			"code", d.Code,
			"live", d.LiveStock.Total(),
			"replayed", d.Closing.Total(),
		)
	}
	span.SetAttributes(attribute.Int("ledger.drifted", len(r.Diagnostics.Drifted)))
	return r.Diagnostics.Drifted, nil
}

// Classify runs a context's rule table over one input. It reads nothing.
func (s *Service) Classify(contextName string, in Input) (Match, error) {
	b, err := s.Builder(contextName)
	if err != nil {
		return Match{}, err
	}
	if in.Scope == "" {
		in.Scope = b.Table().Scope()
	}
	return b.Table().Match(in), nil
}

// PostMovement stores a movement and moves the live stock of every product
// it touches by the movement's contribution in each ledger.
func (s *Service) PostMovement(ctx context.Context, m entity.Movement) (err error) {
	ctx, span := startSpan(ctx, "PostMovement", m.WarehouseScope)
	defer func() { endSpan(span, err) }()

	if err := m.Validate(ctx); err != nil {
		return err
	}
	if err := s.checkNotFuture(m.Date); err != nil {
		return err
	}
	return s.inTx(ctx, func(ctx context.Context) error {
		sn, err := s.load(ctx)
		if err != nil {
			return err
		}
		deltas, err := s.deltas(ctx, sn, []entity.Movement{m}, nil)
		if err != nil {
			return err
		}
		if err := s.store.AppendMovement(ctx, m); err != nil {
			return fmt.Errorf("append movement: %w", err)
		}
		return s.post(ctx, sn, deltas, 1, AuditMovementPosted, SourceMovement, m.ID)
	})
}

// PostSale stores a sale and moves the live stock of its products.
func (s *Service) PostSale(ctx context.Context, sale entity.Sale) (err error) {
	ctx, span := startSpan(ctx, "PostSale", sale.WarehouseScope)
	defer func() { endSpan(span, err) }()

	if err := sale.Validate(ctx); err != nil {
		return err
	}
	if err := s.checkNotFuture(sale.Date); err != nil {
		return err
	}
	return s.inTx(ctx, func(ctx context.Context) error {
		sn, err := s.load(ctx)
		if err != nil {
			return err
		}
		deltas, err := s.deltas(ctx, sn, nil, []entity.Sale{sale})
		if err != nil {
			return err
		}
		if err := s.store.AppendSale(ctx, sale); err != nil {
			return fmt.Errorf("append sale: %w", err)
		}
		return s.post(ctx, sn, deltas, 1, AuditSalePosted, SourceSale, sale.ID)
	})
}

// DeleteMovement removes a movement and reverses its effect on live stock.
// Editing a movement is a delete followed by a new post.
func (s *Service) DeleteMovement(ctx context.Context, movementID id.ID) (err error) {
	ctx, span := startSpan(ctx, "DeleteMovement", "")
	defer func() { endSpan(span, err) }()

	return s.inTx(ctx, func(ctx context.Context) error {
		sn, err := s.load(ctx)
		if err != nil {
			return err
		}
		var found *entity.Movement
		for i := range sn.movements {
			if sn.movements[i].ID == movementID {
				found = &sn.movements[i]
				break
			}
		}
		if found == nil {
			return apperror.NewNotFound("movement", movementID)
		}
		deltas, err := s.deltas(ctx, sn, []entity.Movement{*found}, nil)
		if err != nil {
			return err
		}
		if err := s.store.DeleteMovement(ctx, movementID); err != nil {
			return fmt.Errorf("delete movement: %w", err)
		}
		return s.post(ctx, sn, deltas, -1, AuditMovementDeleted, SourceMovement, movementID)
	})
}

func (s *Service) checkNotFuture(date time.Time) error {
	if date.After(s.now()) {
		return apperror.NewValidation("movement date is in the future").
			WithDetail("field", "date").
			WithDetail("value", date)
	}
	return nil
}

// deltas computes the stock change per product for new records, in every
// scope the records touch.
func (s *Service) deltas(ctx context.Context, sn snapshot, movements []entity.Movement, sales []entity.Sale) (map[id.ID]entity.Balance, error) {
	scopes := make(map[string]bool)
	for _, m := range movements {
		scopes[m.WarehouseScope] = true
		if m.Type == entity.MovementTransfer {
			scopes[m.TargetScope] = true
		}
	}
	for _, sale := range sales {
		scopes[sale.WarehouseScope] = true
	}

	out := make(map[id.ID]entity.Balance)
	for scope := range scopes {
		t, ok := s.registry.ForScope(scope)
		if !ok {
			return nil, apperror.NewValidation("no ledger context for warehouse scope").
				WithDetail("scope", scope)
		}
		for _, l := range Lines(scope, movements, sales) {
			p, ok := sn.product(l.Ref.ProductID)
			if !ok || p.WarehouseScope != scope {
				return nil, apperror.NewNotFound("product", l.Ref.ProductID).
					WithDetail("scope", scope)
			}
			c := t.Contribute(l, t.IsBulkUnit(p.Unit))
			if c.Err != nil {
				logger.Warn(ctx, "non-numeric quantity counted as zero",
					"source", l.Ref.Source, "source_id", l.Ref.ID, "product_id", p.ID, "error", c.Err)
			}
			out[p.ID] = out[p.ID].Add(c.Signed)
		}
	}
	return out, nil
}

func (s *Service) post(ctx context.Context, sn snapshot, deltas map[id.ID]entity.Balance, sign float64,
	action AuditAction, source string, sourceID id.ID,
) error {
	for productID, d := range deltas {
		p, _ := sn.product(productID)
		delta := d.Scale(sign)
		p = p.Posted(delta)
		p.Touch()
		if err := s.store.SaveProduct(ctx, p); err != nil {
			return fmt.Errorf("save product %s: %w", productID, err)
		}
		if err := s.record(ctx, productID, action, map[string]any{
			"source":   source,
			"sourceId": sourceID,
			"delta":    delta,
			"stock":    p.Stock(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, productID id.ID, action AuditAction, changes map[string]any) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.Record(ctx, NewAuditEntry(ctx, EntityProduct, productID, action, changes)); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

// DefaultHistoryLimit and MaxHistoryLimit bound History.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// History returns the recorded stock changes of a product, newest first.
// Without an audit log it is always empty.
func (s *Service) History(ctx context.Context, productID id.ID, limit int) (entries []AuditEntry, err error) {
	ctx, span := startSpan(ctx, "History", "")
	defer func() { endSpan(span, err) }()

	if s.audit == nil {
		return []AuditEntry{}, nil
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)
	entries, err = s.audit.History(ctx, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit history: %w", err)
	}
	return entries, nil
}

// warn logs what a report could not place cleanly.
func (s *Service) warn(ctx context.Context, r Report) {
	d := r.Diagnostics
	if len(d.Orphans) > 0 {
		logger.Warn(ctx, "movement lines reference unknown products",
			"context", r.Context, "lines", len(d.Orphans))
	}
	if len(d.NonNumeric) > 0 {
		logger.Warn(ctx, "non-numeric quantities counted as zero",
			"context", r.Context, "lines", len(d.NonNumeric))
	}
	if d.Unclassified > 0 {
		logger.Debug(ctx, "lines fell through to other",
			"context", r.Context, "lines", d.Unclassified)
	}
	for _, dr := range d.Drifted {
		logger.Warn(ctx, "ledger drift",
			"context", r.Context,
			"product_id", dr.ProductID,
			"live", dr.LiveStock.Total(),
			"replayed", dr.Closing.Total(),
		)
	}
}
