package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/holiman/uint256"

	"aw-token-ledger/internal/amm/sim"
	"aw-token-ledger/internal/api"
	"aw-token-ledger/internal/contract"
	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/feed"
	"aw-token-ledger/internal/ledger"
	"aw-token-ledger/internal/observability"
	"aw-token-ledger/internal/storage"
	chstore "aw-token-ledger/internal/storage/clickhouse"
	"aw-token-ledger/internal/storage/memory"
	"aw-token-ledger/internal/storage/migrations"
	pgstore "aw-token-ledger/internal/storage/postgres"
)

func main() {
	listenAddr := flag.String("listen-addr", ":8080", "HTTP API listen address")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	tokenAsset := flag.String("token-asset", os.Getenv("TOKEN_ASSET"), "Token asset address (base58); also the contract account")
	baseAsset := flag.String("base-asset", os.Getenv("BASE_ASSET"), "Paired base asset address (base58)")
	maxSupply := flag.String("max-supply", os.Getenv("MAX_SUPPLY"), "Token supply cap in base units (empty for default)")
	baseGenesis := flag.String("base-genesis", os.Getenv("BASE_GENESIS"), "Initial base asset balances as account:amount pairs, comma separated")
	taxShareBps := flag.Uint("tax-share-bps", 0, "Removal tax share in basis points (0 for default)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (empty for in-memory storage)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for event archiving (empty to disable)")
	archiveInterval := flag.Duration("archive-interval", 30*time.Second, "Event archiving interval")
	verbose := flag.Bool("verbose", false, "Verbose contract logging")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	tokenAddr, err := domain.ParseAddress(*tokenAsset)
	if err != nil {
		logger.Fatalf("--token-asset: %v", err)
	}
	baseAddr, err := domain.ParseAddress(*baseAsset)
	if err != nil {
		logger.Fatalf("--base-asset: %v", err)
	}

	var supplyCap *uint256.Int
	if *maxSupply != "" {
		supplyCap, err = uint256.FromDecimal(*maxSupply)
		if err != nil {
			logger.Fatalf("--max-supply: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Storage
	var (
		positions storage.PositionStore = memory.NewPositionStore()
		events    storage.EventStore    = memory.NewEventStore()
	)
	if *postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("Run postgres migrations: %v", err)
		}
		positions = pgstore.NewPositionStore(pool)
		events = pgstore.NewEventStore(pool)
		logger.Println("Using PostgreSQL storage")
	} else {
		logger.Println("Using in-memory storage")
	}

	// Feed hub
	hub := feed.NewHub(nil)
	defer hub.Close()

	// Ledgers, AMM engine, and the contract. The contract account is the
	// token asset itself.
	tokens := ledger.New(supplyCap)
	base := ledger.New(nil)

	// Seed base asset balances. The contract never issues the base asset, so
	// without a genesis allocation no account could attach it to a deposit.
	allocations, err := parseAllocations(*baseGenesis)
	if err != nil {
		logger.Fatalf("--base-genesis: %v", err)
	}
	for _, a := range allocations {
		if err := base.Mint(a.account, a.amount); err != nil {
			logger.Fatalf("Seed base balance for %s: %v", a.account, err)
		}
	}
	if len(allocations) > 0 {
		logger.Printf("Seeded %d base asset balance(s)", len(allocations))
	}

	engine := sim.New(tokenAddr, tokens, baseAddr, base)

	c := contract.New(contract.Options{
		Self:            tokenAddr,
		TokenAsset:      tokenAddr,
		BaseAsset:       baseAddr,
		TokenLedger:     tokens,
		BaseLedger:      base,
		Positions:       positions,
		Events:          events,
		Factory:         engine,
		PositionManager: engine,
		TaxShareBps:     uint32(*taxShareBps),
		Notify:          hub.Broadcast,
		Verbose:         *verbose,
	})

	// Event archiver
	if *clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("Run clickhouse migrations: %v", err)
		}
		defer conn.Close()

		archive := chstore.NewEventArchiveStore(conn)
		go runArchiver(ctx, logger, events, archive, *archiveInterval)
		logger.Printf("Archiving events to ClickHouse every %s", *archiveInterval)
	}

	// Metrics server
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// API server
	srv := &http.Server{
		Addr:         *listenAddr,
		Handler:      api.NewServer(c, positions, events, hub, logger).Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("Listening on %s", *listenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server error: %v", err)
		}
	}

	logger.Println("Shutdown complete")
}

type allocation struct {
	account domain.Address
	amount  *uint256.Int
}

// parseAllocations parses "account:amount,account:amount" genesis specs.
// An empty spec yields no allocations.
func parseAllocations(spec string) ([]allocation, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}

	var result []allocation
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		account, amount, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("malformed pair %q, want account:amount", pair)
		}
		addr, err := domain.ParseAddress(strings.TrimSpace(account))
		if err != nil {
			return nil, fmt.Errorf("pair %q: %w", pair, err)
		}
		v, err := uint256.FromDecimal(strings.TrimSpace(amount))
		if err != nil {
			return nil, fmt.Errorf("pair %q: %w", pair, err)
		}
		result = append(result, allocation{account: addr, amount: v})
	}
	return result, nil
}

// runArchiver periodically copies new events from the log into the archive.
// The archive skips already-seen sequence numbers, so restarts are safe.
func runArchiver(ctx context.Context, logger *log.Logger, events storage.EventStore, archive storage.EventArchive, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := archiveOnce(ctx, events, archive); err != nil {
				logger.Printf("Archive events: %v", err)
			}
		}
	}
}

func archiveOnce(ctx context.Context, events storage.EventStore, archive storage.EventArchive) error {
	maxSeq, err := archive.MaxSeq(ctx)
	if err != nil {
		return fmt.Errorf("read archive watermark: %w", err)
	}
	pending, err := events.GetFromSeq(ctx, maxSeq+1)
	if err != nil {
		return fmt.Errorf("read event log: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}
	if err := archive.ArchiveBulk(ctx, pending); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	observability.RecordEventsArchived(len(pending), float64(time.Now().Unix()))
	return nil
}
