package ledger

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

type fakeStore struct {
	products  []entity.Product
	movements []entity.Movement
	sales     []entity.Sale
	saves     int
}

func (f *fakeStore) ListMovements(context.Context) ([]entity.Movement, error) {
	return slices.Clone(f.movements), nil
}

func (f *fakeStore) ListSales(context.Context) ([]entity.Sale, error) {
	return slices.Clone(f.sales), nil
}

func (f *fakeStore) ListProducts(context.Context) ([]entity.Product, error) {
	return slices.Clone(f.products), nil
}

func (f *fakeStore) SaveProduct(_ context.Context, p entity.Product) error {
	f.saves++
	for i := range f.products {
		if f.products[i].ID == p.ID {
			f.products[i] = p
			return nil
		}
	}
	f.products = append(f.products, p)
	return nil
}

func (f *fakeStore) AppendMovement(_ context.Context, m entity.Movement) error {
	f.movements = append(f.movements, m)
	return nil
}

func (f *fakeStore) DeleteMovement(_ context.Context, movementID id.ID) error {
	for i := range f.movements {
		if f.movements[i].ID == movementID {
			f.movements = slices.Delete(f.movements, i, i+1)
			return nil
		}
	}
	return apperror.NewNotFound("movement", movementID)
}

func (f *fakeStore) AppendSale(_ context.Context, s entity.Sale) error {
	f.sales = append(f.sales, s)
	return nil
}

func (f *fakeStore) product(productID id.ID) entity.Product {
	for _, p := range f.products {
		if p.ID == productID {
			return p
		}
	}
	return entity.Product{}
}

type countingTx struct {
	runs, readOnly int
}

func (c *countingTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	c.runs++
	return fn(ctx)
}

func (c *countingTx) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	c.readOnly++
	return fn(ctx)
}

func newTestService(store *fakeStore, opts ...ServiceOption) *Service {
	opts = append([]ServiceOption{WithServiceClock(clockAt(day(30)))}, opts...)
	return NewService(store, DefaultRegistry(), opts...)
}

func TestService_UnknownContext(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.Report(context.Background(), "bakery", Window{})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.Classify("bakery", Input{})
	assert.Error(t, err)
}

func TestService_Report(t *testing.T) {
	p := entity.NewProduct(ContextFinishedGoods, "A", "بادي", "طن", bulk(10))
	store := &fakeStore{products: []entity.Product{p}}
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.PostMovement(ctx, movement(ContextFinishedGoods, entity.MovementIn, day(1), "", item(p, 5))))
	require.NoError(t, svc.PostSale(ctx, sale(ContextFinishedGoods, day(2), "مزارع", item(p, 3))))

	rep, err := svc.Report(ctx, "", Window{})
	require.NoError(t, err)
	require.Len(t, rep.Rows, 1)
	assert.InDelta(t, 12, rep.Rows[0].Closing.Bulk, Tolerance)
	assert.True(t, rep.Rows[0].Reconciled)
	assert.True(t, rep.Diagnostics.Clean())

	_, err = svc.Report(ctx, ContextFinishedGoods, Window{Start: day(5), End: day(1)})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestService_Row(t *testing.T) {
	p := entity.NewProduct(ContextRawMaterials, "R", "ذرة", "طن", bulk(3))
	svc := newTestService(&fakeStore{products: []entity.Product{p}})
	ctx := context.Background()

	row, err := svc.Row(ctx, ContextRawMaterials, p.ID, Window{})
	require.NoError(t, err)
	assert.Equal(t, bulk(3), row.Closing)

	_, err = svc.Row(ctx, ContextFinishedGoods, p.ID, Window{})
	assert.True(t, apperror.IsNotFound(err), "product of another scope")

	_, err = svc.Row(ctx, ContextRawMaterials, id.New(), Window{})
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_ApplyOpeningEdit(t *testing.T) {
	p := entity.NewProduct(ContextFinishedGoods, "A", "بادي", "طن", bulk(10))
	store := &fakeStore{products: []entity.Product{p}}
	txm := &countingTx{}
	svc := newTestService(store, WithTxManager(txm))
	ctx := context.Background()

	require.NoError(t, svc.PostMovement(ctx, movement(ContextFinishedGoods, entity.MovementIn, day(1), "", item(p, 5))))

	updated, err := svc.ApplyOpeningEdit(ctx, ContextFinishedGoods, p.ID, bulk(40))
	require.NoError(t, err)
	assert.Equal(t, bulk(40), updated.InitialStock())
	assert.InDelta(t, 45, updated.Stock().Bulk, Tolerance)
	assert.Equal(t, updated, store.product(p.ID))
	assert.Equal(t, 2, txm.runs)
	assert.Positive(t, txm.readOnly)

	drift, err := svc.CheckDrift(ctx, ContextFinishedGoods)
	require.NoError(t, err)
	assert.Empty(t, drift)
}

func TestService_ApplyOpeningEditMissingProduct(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	_, err := svc.ApplyOpeningEdit(context.Background(), ContextFinishedGoods, id.New(), bulk(1))

	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.Zero(t, store.saves)
	assert.Empty(t, store.products, "a missing product is never created")
}

func TestService_CheckDriftReportsWithoutCorrecting(t *testing.T) {
	p := entity.NewProduct(ContextParts, "P", "ترس", "قطعة", entity.Balance{Packed: 2})
	store := &fakeStore{products: []entity.Product{p}}
	// appended behind the service's back: stock never moved
	store.movements = append(store.movements, movement(ContextParts, entity.MovementIn, day(1), "", item(p, 5)))
	svc := newTestService(store)

	drift, err := svc.CheckDrift(context.Background(), ContextParts)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.InDelta(t, -5, drift[0].Drift.Packed, Tolerance)
	assert.Zero(t, store.saves)
}

func TestService_CheckDriftWithWallClock(t *testing.T) {
	p := entity.NewProduct(ContextParts, "P", "ترس", "قطعة", entity.Balance{Packed: 2})
	store := &fakeStore{products: []entity.Product{p}}
	svc := NewService(store, DefaultRegistry())
	ctx := context.Background()

	require.NoError(t, svc.PostMovement(ctx, movement(ContextParts, entity.MovementIn, day(1), "", item(p, 5))))
	drift, err := svc.CheckDrift(ctx, ContextParts)
	require.NoError(t, err)
	assert.Empty(t, drift)

	store.movements = append(store.movements, movement(ContextParts, entity.MovementIn, day(2), "", item(p, 4)))
	drift, err = svc.CheckDrift(ctx, ContextParts)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.InDelta(t, -4, drift[0].Drift.Packed, Tolerance)
}

func TestService_PostAndDeleteMovement(t *testing.T) {
	src := entity.NewProduct(ContextRawMaterials, "R", "ذرة", "طن", bulk(20))
	dst := entity.NewProduct(ContextFinishedGoods, "F", "ذرة مجروشة", "طن", entity.Balance{})
	store := &fakeStore{products: []entity.Product{src, dst}}
	svc := newTestService(store)
	ctx := context.Background()

	dstID := dst.ID
	tr := movement(ContextRawMaterials, entity.MovementTransfer, day(2), "",
		entity.Item{ProductID: src.ID, TargetProductID: &dstID, Quantity: "6"})
	tr.TargetScope = ContextFinishedGoods

	require.NoError(t, svc.PostMovement(ctx, tr))
	assert.InDelta(t, 14, store.product(src.ID).Stock().Bulk, Tolerance)
	assert.InDelta(t, 6, store.product(dst.ID).Stock().Bulk, Tolerance)

	for _, name := range []string{ContextRawMaterials, ContextFinishedGoods} {
		drift, err := svc.CheckDrift(ctx, name)
		require.NoError(t, err)
		assert.Empty(t, drift, name)
	}

	require.NoError(t, svc.DeleteMovement(ctx, tr.ID))
	assert.InDelta(t, 20, store.product(src.ID).Stock().Bulk, Tolerance)
	assert.InDelta(t, 0, store.product(dst.ID).Stock().Bulk, Tolerance)
	assert.Empty(t, store.movements)

	assert.True(t, apperror.IsNotFound(svc.DeleteMovement(ctx, tr.ID)))
}

func TestService_PostMovementRejects(t *testing.T) {
	p := entity.NewProduct(ContextParts, "P", "ترس", "قطعة", entity.Balance{})
	store := &fakeStore{products: []entity.Product{p}}
	svc := newTestService(store)
	ctx := context.Background()

	tests := []struct {
		name string
		m    entity.Movement
		code string
	}{
		{
			name: "future date",
			m:    movement(ContextParts, entity.MovementIn, day(31), "", item(p, 1)),
			code: apperror.CodeValidation,
		},
		{
			name: "unknown product",
			m:    movement(ContextParts, entity.MovementIn, day(1), "", entity.Item{ProductID: id.New(), Quantity: "1"}),
			code: apperror.CodeNotFound,
		},
		{
			name: "scope without ledger",
			m:    movement("garage", entity.MovementIn, day(1), "", item(p, 1)),
			code: apperror.CodeValidation,
		},
		{
			name: "transfer without target",
			m:    movement(ContextParts, entity.MovementTransfer, day(1), "", item(p, 1)),
			code: apperror.CodeValidation,
		},
		{
			name: "split with opposite signs",
			m:    movement(ContextParts, entity.MovementAdjustment, day(1), "", splitItem(p, 10, -3)),
			code: apperror.CodeValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.PostMovement(ctx, tt.m)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, tt.code), "got %v", err)
		})
	}
	assert.Empty(t, store.movements)
	assert.Zero(t, store.saves)
}

func TestService_Classify(t *testing.T) {
	svc := newTestService(&fakeStore{})

	m, err := svc.Classify(ContextFinishedGoods, Input{
		Type:      entity.MovementAdjustment,
		Direction: Outbound,
		Reason:    "تسوية بالعجز",
	})
	require.NoError(t, err)
	assert.Equal(t, Match{Bucket: BucketAdjustmentOut, Rule: "settlement-deficit"}, m)
}

func TestService_CreateProduct(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, ContextParts, "P-1", "رولمان بلي", "قطعة", entity.Balance{Packed: 7})
	require.NoError(t, err)
	assert.Equal(t, ContextParts, p.WarehouseScope)
	assert.Equal(t, entity.Balance{Packed: 7}, p.Stock())
	assert.Equal(t, 1, store.saves)

	row, err := svc.Row(ctx, ContextParts, p.ID, Window{})
	require.NoError(t, err)
	assert.True(t, row.Reconciled)

	_, err = svc.CreateProduct(ctx, ContextParts, "P-2", "", "قطعة", entity.Balance{})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	assert.Equal(t, 1, store.saves)
}
