// Package main seeds the PostgreSQL ledger store from a JSON fixture.
//
//	DATABASE_URL=postgres://... seed fixtures/demo.json
//
// The schema is created if missing. Products are upserted; movements and
// sales must not exist yet.
package main

import (
	"context"
	"fmt"
	"os"

	appctx "stockledger/internal/core/context"
	"stockledger/internal/infrastructure/storage/fixture"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/ledger_repo"
	"stockledger/pkg/config"
	"stockledger/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load configuration", "error", err)
	}
	if cfg.DB.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	path := cfg.Storage.FixturePath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if path == "" {
		log.Fatal("usage: seed <fixture.json> (or set LEDGER_FIXTURE)")
	}

	ctx := appctx.WithTrace(logger.WithLogger(context.Background(), log), appctx.NewTraceContext())

	f, err := fixture.Load(path)
	if err != nil {
		logger.Fatal(ctx, "failed to read fixture", "error", err, "path", path)
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DB.DatabaseURL))
	if err != nil {
		logger.Fatal(ctx, "failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("connected to database")

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal(ctx, "failed to create schema", "error", err)
	}

	store := ledger_repo.NewStore(postgres.NewTxManager(pool))
	if err := store.Load(ctx, f); err != nil {
		logger.Fatal(ctx, "failed to load fixture", "error", err)
	}

	log.Infow("seeding completed successfully",
		"products", len(f.Products),
		"movements", len(f.Movements),
		"sales", len(f.Sales),
	)
}
