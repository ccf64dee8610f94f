package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// MovementHandler posts and deletes movements and sales. Every write moves
// the live stock of the products it touches.
type MovementHandler struct {
	*BaseHandler
	service *ledger.Service
}

func NewMovementHandler(base *BaseHandler, service *ledger.Service) *MovementHandler {
	return &MovementHandler{BaseHandler: base, service: service}
}

// CreateMovement handles POST /movements
func (h *MovementHandler) CreateMovement(c *gin.Context) {
	var req dto.CreateMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	m, err := req.ToEntity(time.Now().UTC())
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.PostMovement(c.Request.Context(), m); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, m.ID)
}

// DeleteMovement handles DELETE /movements/:id
func (h *MovementHandler) DeleteMovement(c *gin.Context) {
	movementID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteMovement(c.Request.Context(), movementID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// CreateSale handles POST /sales
func (h *MovementHandler) CreateSale(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	s, err := req.ToEntity(time.Now().UTC())
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.PostSale(c.Request.Context(), s); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, s.ID)
}
