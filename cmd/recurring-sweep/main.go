package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// recurring-sweep runs one materialization pass and prints the report as
// JSON. Meant for cron jobs and for backfilling after downtime: run it with
// -as-of on each missed day to catch up.
func main() {
	asOfFlag := flag.String("as-of", "", "sweep date in YYYY-MM-DD (default: today)")
	dryRun := flag.Bool("dry-run", false, "report what would be materialized without writing")
	flag.Parse()

	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelWarn,
		Component: applog.ComponentScheduler,
	})
	applog.SetDefault(logger)

	asOf := core.Today()
	if *asOfFlag != "" {
		parsed, err := core.ParseDate(*asOfFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -as-of %q: use YYYY-MM-DD\n", *asOfFlag)
			os.Exit(2)
		}
		asOf = parsed
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration validation failed: %v\n", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database %s: %v\n", cfg.SQLiteDBPath, err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	coord := services.NewCoordinator()
	ledger := services.NewLedgerService(repo, coord, nil)
	scheduler := services.NewScheduler(repo, ledger)

	report, err := scheduler.Sweep(ctx, asOf, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sweep failed: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode report: %v\n", err)
		os.Exit(1)
	}

	if report.Failed > 0 {
		os.Exit(1)
	}
}
