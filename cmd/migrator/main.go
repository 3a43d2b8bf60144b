// Package main applies database migrations and performs administrative resets.
//
// Usage:
//
//	migrator [-config config.yaml] [-reset | -clear]
//
// -clear deletes every row; -reset also restarts the id sequences.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/page-analyzer/internal/analyzer"
	"github.com/JakeFAU/page-analyzer/internal/config"
	"github.com/JakeFAU/page-analyzer/internal/logging"
	pgstore "github.com/JakeFAU/page-analyzer/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	reset := flag.Bool("reset", false, "Delete all rows and restart id sequences after migrating")
	wipe := flag.Bool("clear", false, "Delete all rows after migrating")
	flag.Parse()

	if err := run(*cfgPath, *reset, *wipe); err != nil {
		fmt.Fprintf(os.Stderr, "migrator: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string, reset, wipe bool) error {
	cfg, err := config.Read(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.UsesPostgres() {
		return fmt.Errorf("db.dsn (DATABASE_URL) is empty")
	}
	logger, err := logging.New(cfg.Logging.Development, "page-analyzer-migrator")
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := pgstore.Migrate(ctx, cfg.DB.DSN); err != nil {
		return err
	}
	logger.Info("migrations: up OK")

	if !reset && !wipe {
		return nil
	}

	db, err := pgstore.New(ctx, pgstore.Config{DSN: cfg.DB.DSN, MaxConns: 1, QueryTimeout: cfg.DB.QueryTimeout})
	if err != nil {
		return err
	}
	defer db.Close()

	// Checks first so the url_checks sequence restarts even though the urls
	// delete would cascade.
	targets := []struct {
		name string
		repo analyzer.Resetter
	}{
		{name: "url_checks", repo: db.Checks()},
		{name: "urls", repo: db.URLs()},
	}
	for _, target := range targets {
		if reset {
			err = target.repo.Reset(ctx)
		} else {
			err = target.repo.Clear(ctx)
		}
		if err != nil {
			return err
		}
		logger.Info("table wiped", zap.String("table", target.name), zap.Bool("sequence_restarted", reset))
	}
	return nil
}
