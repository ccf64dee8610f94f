package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/dto"
	"stockledger/internal/infrastructure/storage/memory"
	"stockledger/pkg/logger"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	store  *memory.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.New()
	svc := ledger.NewService(store, ledger.DefaultRegistry(),
		ledger.WithAuditLog(memory.NewAuditLog()),
		ledger.WithServiceClock(func() time.Time { return testNow }))
	router := NewRouter(RouterConfig{
		Service:       svc,
		Logger:        logger.Nop(),
		Precision:     2,
		AppName:       "stockledger",
		StorageDriver: "memory",
	})
	gin.SetMode(gin.TestMode)
	return &testAPI{t: t, router: router, store: store}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *testAPI) createProduct(context, code, unit string, opening map[string]float64) id.ID {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/ledger/"+context+"/products", map[string]any{
		"code": code, "name": code, "unit": unit, "opening": opening,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return id.MustParse(decode[dto.IDResponse](a.t, w).ID)
}

func TestRouter_Health(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = api.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Contexts(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/ledger/contexts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[[]dto.ContextResponse](t, w)
	require.Len(t, got, 5)
	assert.Equal(t, ledger.ContextFinishedGoods, got[0].Name)
	assert.True(t, got[0].Split)
	assert.Equal(t, "other", got[0].Columns[len(got[0].Columns)-1].Bucket)
}

func TestRouter_ReportFlow(t *testing.T) {
	api := newTestAPI(t)
	pid := api.createProduct(ledger.ContextFinishedGoods, "F-1", "طن", map[string]float64{"bulk": 100})

	w := api.do(http.MethodPost, "/api/v1/movements", map[string]any{
		"date":           "2024-02-10",
		"type":           "in",
		"warehouseScope": ledger.ContextFinishedGoods,
		"reason":         "إنتاج",
		"items":          []map[string]any{{"productId": pid.String(), "quantityBulk": 50}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(http.MethodPost, "/api/v1/sales", map[string]any{
		"date":           "2024-02-11T09:00:00Z",
		"warehouseScope": ledger.ContextFinishedGoods,
		"items":          []map[string]any{{"productId": pid.String(), "quantityBulk": "20", "salesType": "مزارع"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(http.MethodGet, "/api/v1/ledger/finished_goods/report", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rep := decode[dto.ReportResponse](t, w)
	require.Len(t, rep.Rows, 1)
	row := rep.Rows[0]
	assert.InDelta(t, 130, row.Closing.Bulk, ledger.Tolerance)
	assert.Equal(t, "130.00", row.Closing.Display.Bulk)
	assert.Equal(t, "-", row.Closing.Display.Packed)
	assert.InDelta(t, 20, row.Totals["saleToFarm"].Bulk, ledger.Tolerance)
	assert.True(t, row.Reconciled)
	assert.Nil(t, row.Drift)
	assert.True(t, rep.Diagnostics.Clean)
	assert.Nil(t, rep.Window.From)

	// A window after the sale starts from the replayed opening.
	w = api.do(http.MethodGet, "/api/v1/ledger/finished_goods/products/"+pid.String()+"?from=2024-02-11&to=2024-02-11", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	single := decode[dto.RowResponse](t, w)
	assert.InDelta(t, 150, single.Opening.Bulk, ledger.Tolerance)
	assert.InDelta(t, 130, single.Closing.Bulk, ledger.Tolerance)
	assert.False(t, single.Checked)

	w = api.do(http.MethodGet, "/api/v1/products/"+pid.String()+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[struct {
		Entries []ledger.AuditEntry `json:"entries"`
	}](t, w)
	assert.Len(t, history.Entries, 3)
}

func TestRouter_ApplyOpening(t *testing.T) {
	api := newTestAPI(t)
	pid := api.createProduct(ledger.ContextParts, "P-1", "قطعة", map[string]float64{"packed": 5})

	w := api.do(http.MethodPut, "/api/v1/ledger/parts/products/"+pid.String()+"/opening", map[string]any{"packed": 12})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := decode[dto.ProductResponse](t, w)
	assert.InDelta(t, 12, p.Stock.Packed, ledger.Tolerance)
	assert.InDelta(t, 12, p.InitialStock.Packed, ledger.Tolerance)

	w = api.do(http.MethodPut, "/api/v1/ledger/parts/products/"+pid.String()+"/opening", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPut, "/api/v1/ledger/parts/products/"+id.New().String()+"/opening", map[string]any{"packed": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperror.CodeNotFound, decode[dto.ErrorResponse](t, w).Code)
}

func TestRouter_Drift(t *testing.T) {
	api := newTestAPI(t)
	pid := api.createProduct(ledger.ContextCatering, "C-1", "كجم", map[string]float64{"packed": 5})

	w := api.do(http.MethodGet, "/api/v1/ledger/catering/drift?strict=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	products, err := api.store.ListProducts(context.Background())
	require.NoError(t, err)
	require.NoError(t, api.store.SaveProduct(context.Background(), products[0].Posted(entity.Balance{Packed: 2})))

	w = api.do(http.MethodGet, "/api/v1/ledger/catering/drift", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct {
		Drifted []dto.DriftResponse `json:"drifted"`
	}](t, w)
	require.Len(t, got.Drifted, 1)
	assert.Equal(t, pid.String(), got.Drifted[0].ProductID)
	assert.InDelta(t, 2, got.Drifted[0].Drift.Packed, ledger.Tolerance)

	w = api.do(http.MethodGet, "/api/v1/ledger/catering/drift?strict=true", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeLedgerDrift, decode[dto.ErrorResponse](t, w).Code)
}

func TestRouter_Classify(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/ledger/finished_goods/classify", map[string]any{
		"type": "adjustment", "quantity": -3, "reason": "تسوية بالعجز",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[dto.ClassifyResponse](t, w)
	assert.Equal(t, "adjustmentOut", got.Bucket)
	assert.Equal(t, "settlement-deficit", got.Rule)
	assert.Equal(t, "out", got.Direction)

	w = api.do(http.MethodPost, "/api/v1/ledger/finished_goods/classify", map[string]any{"type": "gift"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Errors(t *testing.T) {
	api := newTestAPI(t)
	pid := api.createProduct(ledger.ContextParts, "P-1", "قطعة", nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown context", http.MethodGet, "/api/v1/ledger/bakery/report", nil, http.StatusBadRequest},
		{"bad from", http.MethodGet, "/api/v1/ledger/parts/report?from=yesterday", nil, http.StatusBadRequest},
		{"reversed window", http.MethodGet, "/api/v1/ledger/parts/report?from=2024-02-10&to=2024-02-01", nil, http.StatusBadRequest},
		{"bad product id", http.MethodGet, "/api/v1/ledger/parts/products/42", nil, http.StatusBadRequest},
		{"product of another context", http.MethodGet, "/api/v1/ledger/catering/products/" + pid.String(), nil, http.StatusNotFound},
		{"future movement", http.MethodPost, "/api/v1/movements", map[string]any{
			"date": "2024-03-05", "type": "in", "warehouseScope": "parts",
			"items": []map[string]any{{"productId": pid.String(), "quantity": 1}},
		}, http.StatusBadRequest},
		{"movement without items", http.MethodPost, "/api/v1/movements", map[string]any{
			"date": "2024-02-05", "type": "in", "warehouseScope": "parts",
		}, http.StatusBadRequest},
		{"unknown product", http.MethodPost, "/api/v1/movements", map[string]any{
			"date": "2024-02-05", "type": "in", "warehouseScope": "parts",
			"items": []map[string]any{{"productId": id.New().String(), "quantity": 1}},
		}, http.StatusNotFound},
		{"delete unknown movement", http.MethodDelete, "/api/v1/movements/" + id.New().String(), nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[dto.ErrorResponse](t, w).Code)
		})
	}
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	api := newTestAPI(t)
	api.router.GET("/boom", func(*gin.Context) { panic("boom") })

	w := api.do(http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, decode[dto.ErrorResponse](t, w).Code)
}

func TestNewHandler_Gzip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := ledger.NewService(memory.New(), ledger.DefaultRegistry())
	h := NewHandler(RouterConfig{Service: svc, Logger: logger.Nop()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ledger/contexts", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}
