// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/internal/infrastructure/http/v1/middleware"
	"stockledger/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Service *ledger.Service

	// Logger for request logging; also placed in every request context.
	Logger *logger.Logger

	// Precision is the number of decimals in display values.
	Precision int

	// Health reports on the backing store. DB is nil for the memory store.
	AppName       string
	Version       string
	StorageDriver string
	DB            handlers.Pinger

	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Order matters: recovery must wrap everything, errors render innermost.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.AppName, cfg.Version, cfg.StorageDriver, cfg.DB)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()
	ledgerHandler := handlers.NewLedgerHandler(base, cfg.Service, cfg.Precision)
	movementHandler := handlers.NewMovementHandler(base, cfg.Service)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Ready)
		v1.GET("/ledger/contexts", ledgerHandler.Contexts)
		RegisterLedgerRoutes(v1.Group("/ledger/:context"), ledgerHandler)

		v1.POST("/movements", movementHandler.CreateMovement)
		v1.DELETE("/movements/:id", movementHandler.DeleteMovement)
		v1.POST("/sales", movementHandler.CreateSale)
		v1.GET("/products/:id/history", ledgerHandler.History)
	}

	return router
}

// NewHandler wraps the router with gzip. Full reports of a large catalog
// compress well.
func NewHandler(cfg RouterConfig) http.Handler {
	return gzhttp.GzipHandler(NewRouter(cfg))
}
