// Package main is the entry point for the stock ledger API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockledger/internal/core/tx"
	"stockledger/internal/domain/ledger"
	v1 "stockledger/internal/infrastructure/http/v1"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/internal/infrastructure/storage/fixture"
	"stockledger/internal/infrastructure/storage/memory"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/ledger_repo"
	"stockledger/pkg/config"
	"stockledger/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.App.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting stockledger server", "version", version, "storage", cfg.Storage.Driver)

	registry, err := cfg.Ledger.LoadRegistry()
	if err != nil {
		log.Fatalw("failed to load ledger rules", "error", err, "rules_file", cfg.Ledger.RulesFile)
	}
	for _, t := range registry.Tables() {
		log.Infow("ledger context loaded", "context", t.Name(), "scope", t.Scope(), "rules", len(t.RuleNames()))
	}

	backend, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer backend.close()

	opts := []ledger.ServiceOption{
		ledger.WithDefaultContext(cfg.Ledger.DefaultContext),
		ledger.WithAuditLog(backend.audit),
	}
	if backend.txm != nil {
		opts = append(opts, ledger.WithTxManager(backend.txm))
	}
	service := ledger.NewService(backend.store, registry, opts...)

	checkDrift(ctx, service, log)

	handler := v1.NewHandler(v1.RouterConfig{
		Service:       service,
		Logger:        log.WithComponent("http"),
		Precision:     cfg.Ledger.Precision,
		AppName:       cfg.App.Name,
		Version:       version,
		StorageDriver: cfg.Storage.Driver,
		DB:            backend.db,
		Development:   cfg.App.IsDevelopment(),
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

type backend struct {
	store ledger.Store
	audit ledger.AuditLog
	txm   tx.Manager
	db    handlers.Pinger
	close func()
}

func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (*backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		poolCfg := postgres.DefaultPoolConfig(cfg.DB.DatabaseURL)
		poolCfg.MaxConns = int32(cfg.DB.MaxConns)
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		txm := postgres.NewTxManager(pool)
		audit, err := postgres.NewAuditLog(txm)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pool.LogStats(ctx)
		return &backend{
			store: ledger_repo.NewStore(txm),
			audit: audit,
			txm:   txm,
			db:    pool,
			close: pool.Close,
		}, nil

	default:
		store := memory.New()
		if cfg.Storage.FixturePath != "" {
			f, err := fixture.Load(cfg.Storage.FixturePath)
			if err != nil {
				return nil, err
			}
			store = memory.NewFromFixture(f)
			log.Infow("memory store loaded",
				"fixture", cfg.Storage.FixturePath,
				"products", len(f.Products),
				"movements", len(f.Movements),
				"sales", len(f.Sales),
			)
		}
		return &backend{store: store, audit: memory.NewAuditLog(), txm: store, close: func() {}}, nil
	}
}

// checkDrift reports drifted products of every context once at startup.
// Drift is logged, never corrected.
func checkDrift(ctx context.Context, service *ledger.Service, log *logger.Logger) {
	for _, t := range service.Contexts() {
		drifted, err := service.CheckDrift(ctx, t.Name())
		if err != nil {
			log.Warnw("drift check failed", "context", t.Name(), "error", err)
			continue
		}
		if len(drifted) > 0 {
			log.Warnw("ledger drift detected", "context", t.Name(), "products", len(drifted))
		}
	}
}
