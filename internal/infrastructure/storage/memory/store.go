// Package memory is an in-process ledger store. It keeps plain slices, the
// shape the ledger engine reads, and serves single-process deployments and
// tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/fixture"
)

var (
	_ ledger.Store = (*Store)(nil)
	_ tx.Manager   = (*Store)(nil)
)

// Store holds products, movements and sales in memory. Reads return copies.
type Store struct {
	mu sync.RWMutex
	// writeMu serializes transactions: the service reads a product, moves
	// its stock and saves it back, and two such writes must not interleave.
	writeMu sync.Mutex

	products  []entity.Product
	movements []entity.Movement
	sales     []entity.Sale
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

type txKey struct{}

// RunInTransaction runs fn while holding the store's writer lock. Nested
// calls join the outer one. There is no rollback: writes made before fn
// fails stay in place.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, struct{}{}))
}

// NewFromFixture creates a store preloaded with f.
func NewFromFixture(f fixture.Fixture) *Store {
	s := New()
	s.products = slices.Clone(f.Products)
	s.movements = cloneMovements(f.Movements)
	s.sales = cloneSales(f.Sales)
	return s
}

func (s *Store) ListMovements(context.Context) ([]entity.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMovements(s.movements), nil
}

func (s *Store) ListSales(context.Context) ([]entity.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSales(s.sales), nil
}

func (s *Store) ListProducts(context.Context) ([]entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.products), nil
}

// SaveProduct replaces the product with the same id or appends it.
func (s *Store) SaveProduct(_ context.Context, p entity.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.IndexFunc(s.products, func(x entity.Product) bool { return x.ID == p.ID }); i >= 0 {
		s.products[i] = p
		return nil
	}
	s.products = append(s.products, p)
	return nil
}

func (s *Store) AppendMovement(_ context.Context, m entity.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.ContainsFunc(s.movements, func(x entity.Movement) bool { return x.ID == m.ID }) {
		return apperror.NewValidation("movement already exists").WithDetail("id", m.ID)
	}
	m.Items = slices.Clone(m.Items)
	s.movements = append(s.movements, m)
	return nil
}

func (s *Store) DeleteMovement(_ context.Context, movementID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.movements, func(x entity.Movement) bool { return x.ID == movementID })
	if i < 0 {
		return apperror.NewNotFound("movement", movementID)
	}
	s.movements = slices.Delete(s.movements, i, i+1)
	return nil
}

func (s *Store) AppendSale(_ context.Context, sale entity.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.ContainsFunc(s.sales, func(x entity.Sale) bool { return x.ID == sale.ID }) {
		return apperror.NewValidation("sale already exists").WithDetail("id", sale.ID)
	}
	sale.Items = slices.Clone(sale.Items)
	s.sales = append(s.sales, sale)
	return nil
}

// cloneMovements copies item slices so callers never alias store state.
func cloneMovements(in []entity.Movement) []entity.Movement {
	out := make([]entity.Movement, len(in))
	for i, m := range in {
		m.Items = slices.Clone(m.Items)
		out[i] = m
	}
	return out
}

func cloneSales(in []entity.Sale) []entity.Sale {
	out := make([]entity.Sale, len(in))
	for i, s := range in {
		s.Items = slices.Clone(s.Items)
		out[i] = s
	}
	return out
}
