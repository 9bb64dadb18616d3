// Package main verifies the event log against the position registry. It
// rebuilds contract state by replaying every logged event, cross-checks the
// result with the live registry, and exits non-zero when they disagree.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/holiman/uint256"

	"aw-token-ledger/internal/replay"
	pgstore "aw-token-ledger/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	maxSupply := flag.String("max-supply", "", "Token supply cap to verify issuance against (empty to skip)")
	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	var supplyCap *uint256.Int
	if *maxSupply != "" {
		v, err := uint256.FromDecimal(*maxSupply)
		if err != nil {
			logger.Fatalf("--max-supply: %v", err)
		}
		supplyCap = v
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Connect to postgres: %v", err)
	}
	defer pool.Close()

	verifier := replay.NewVerifier(pgstore.NewEventStore(pool), pgstore.NewPositionStore(pool), supplyCap)
	report, err := verifier.Run(ctx)
	if err != nil {
		logger.Fatalf("Verification failed: %v", err)
	}

	fmt.Printf("Events replayed:  %d\n", report.EventsReplayed)
	fmt.Printf("Open positions:   %d\n", report.OpenPositions)
	fmt.Printf("Total minted:     %s\n", report.TotalMinted.Dec())

	if report.OK() {
		fmt.Println("Log and registry agree.")
		return
	}

	fmt.Printf("\n%d issue(s):\n", len(report.Issues))
	for _, issue := range report.Issues {
		fmt.Printf("  - %s\n", issue)
	}
	os.Exit(1)
}
