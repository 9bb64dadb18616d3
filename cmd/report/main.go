// Package main generates the liquidity activity report from stored data.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"aw-token-ledger/internal/reporting"
	pgstore "aw-token-ledger/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	outputDir := flag.String("output-dir", "", "Output directory for generated files (empty for stdout)")
	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Connect to postgres: %v", err)
	}
	defer pool.Close()

	generator := reporting.NewGenerator(pgstore.NewEventStore(pool), pgstore.NewPositionStore(pool))
	report, err := generator.Generate(ctx)
	if err != nil {
		logger.Fatalf("Generate report: %v", err)
	}

	markdown := reporting.RenderMarkdown(report)
	csv := reporting.RenderCSV(report.AccountActivity)

	if *outputDir == "" {
		fmt.Print(markdown)
		return
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatalf("Create output dir: %v", err)
	}
	mdPath := filepath.Join(*outputDir, "ACTIVITY_REPORT.md")
	csvPath := filepath.Join(*outputDir, "account_activity.csv")
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		logger.Fatalf("Write %s: %v", mdPath, err)
	}
	if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
		logger.Fatalf("Write %s: %v", csvPath, err)
	}

	logger.Printf("Wrote %s and %s", mdPath, csvPath)
}
