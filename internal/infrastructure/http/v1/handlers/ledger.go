package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// LedgerHandler serves ledger reports and the opening-balance edit.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
	format  dto.Formatter
}

// NewLedgerHandler creates a ledger handler. precision is the number of
// decimals in display values.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service, precision int) *LedgerHandler {
	return &LedgerHandler{
		BaseHandler: base,
		service:     service,
		format:      dto.Formatter{Precision: precision},
	}
}

// Contexts handles GET /ledger/contexts
func (h *LedgerHandler) Contexts(c *gin.Context) {
	tables := h.service.Contexts()
	out := make([]dto.ContextResponse, len(tables))
	for i, t := range tables {
		out[i] = dto.FromRuleTable(t)
	}
	h.OK(c, out)
}

func (h *LedgerHandler) window(c *gin.Context) (ledger.Window, bool) {
	var q dto.WindowQuery
	if !h.BindQuery(c, &q) {
		return ledger.Window{}, false
	}
	w, err := q.Window()
	if err != nil {
		h.Error(c, err)
		return ledger.Window{}, false
	}
	return w, true
}

// Report handles GET /ledger/:context/report
func (h *LedgerHandler) Report(c *gin.Context) {
	w, ok := h.window(c)
	if !ok {
		return
	}
	rep, err := h.service.Report(c.Request.Context(), c.Param("context"), w)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.format.Report(rep))
}

// Row handles GET /ledger/:context/products/:id
func (h *LedgerHandler) Row(c *gin.Context) {
	productID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	w, ok := h.window(c)
	if !ok {
		return
	}
	name := c.Param("context")
	b, err := h.service.Builder(name)
	if err != nil {
		h.Error(c, err)
		return
	}
	row, err := h.service.Row(c.Request.Context(), name, productID, w)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.format.Row(b.Table().Columns(), *row))
}

// CreateProduct handles POST /ledger/:context/products
func (h *LedgerHandler) CreateProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p, err := h.service.CreateProduct(c.Request.Context(), c.Param("context"),
		req.Code, req.Name, req.Unit, req.Opening.Balance())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p.ID)
}

// ApplyOpening handles PUT /ledger/:context/products/:id/opening
func (h *LedgerHandler) ApplyOpening(c *gin.Context) {
	productID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.OpeningRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if req.Bulk == nil && req.Packed == nil {
		h.Error(c, apperror.NewValidation("bulk or packed is required").WithDetail("field", "bulk"))
		return
	}
	p, err := h.service.ApplyOpeningEdit(c.Request.Context(), c.Param("context"), productID, req.Balance())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.format.Product(p))
}

// Drift handles GET /ledger/:context/drift
//
// With ?strict=true a drifted ledger answers 409 instead of listing products.
func (h *LedgerHandler) Drift(c *gin.Context) {
	drifted, err := h.service.CheckDrift(c.Request.Context(), c.Param("context"))
	if err != nil {
		h.Error(c, err)
		return
	}
	if len(drifted) > 0 && c.Query("strict") == "true" {
		d := drifted[0]
		h.Error(c, apperror.NewLedgerDrift(d.ProductID.String(), d.LiveStock.Total(), d.Closing.Total()).
			WithDetail("drifted", len(drifted)))
		return
	}
	h.OK(c, gin.H{"drifted": h.format.Drifts(drifted)})
}

// Classify handles POST /ledger/:context/classify
func (h *LedgerHandler) Classify(c *gin.Context) {
	var req dto.ClassifyRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.Input()
	if err != nil {
		h.Error(c, err)
		return
	}
	m, err := h.service.Classify(c.Param("context"), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMatch(m, in.Direction))
}

// History handles GET /products/:id/history
func (h *LedgerHandler) History(c *gin.Context) {
	productID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var q dto.HistoryQuery
	if !h.BindQuery(c, &q) {
		return
	}
	entries, err := h.service.History(c.Request.Context(), productID, q.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"entries": entries})
}
