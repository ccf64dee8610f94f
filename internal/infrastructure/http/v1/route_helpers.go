package v1

import (
	"github.com/gin-gonic/gin"
)

// LedgerRouteHandler is what a ledger context group serves.
type LedgerRouteHandler interface {
	Report(c *gin.Context)
	Row(c *gin.Context)
	CreateProduct(c *gin.Context)
	ApplyOpening(c *gin.Context)
	Drift(c *gin.Context)
	Classify(c *gin.Context)
}

// RegisterLedgerRoutes registers the per-context routes under group, which
// must carry a :context parameter.
//
// Usage:
//
//	handler := handlers.NewLedgerHandler(base, service, precision)
//	RegisterLedgerRoutes(api.Group("/ledger/:context"), handler)
func RegisterLedgerRoutes(group *gin.RouterGroup, handler LedgerRouteHandler) {
	group.GET("/report", handler.Report)
	group.GET("/drift", handler.Drift)
	group.POST("/classify", handler.Classify)
	group.POST("/products", handler.CreateProduct)
	group.GET("/products/:id", handler.Row)
	group.PUT("/products/:id/opening", handler.ApplyOpening)
}
