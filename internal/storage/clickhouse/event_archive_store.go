package clickhouse

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/storage"
)

// EventArchiveStore implements storage.EventArchive using ClickHouse.
//
// The event log assigns sequence numbers in order, so any event with a
// sequence at or below the archived maximum has already been written.
// ArchiveBulk uses that to stay idempotent; ReplacingMergeTree on seq is
// the backstop for rows written twice across a crash.
type EventArchiveStore struct {
	conn *Conn
}

// NewEventArchiveStore creates a new EventArchiveStore.
func NewEventArchiveStore(conn *Conn) *EventArchiveStore {
	return &EventArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventArchive = (*EventArchiveStore)(nil)

// ArchiveBulk writes a batch of events, skipping any already archived.
func (s *EventArchiveStore) ArchiveBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	maxSeq, err := s.MaxSeq(ctx)
	if err != nil {
		return fmt.Errorf("read archived max seq: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO events_archive (
			seq, kind, timestamp, account, pool, sqrt_price_x96,
			position_id, liquidity, amount_token, amount_base
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	appended := 0
	for _, e := range events {
		if e == nil || e.Seq <= maxSeq {
			continue
		}
		err = batch.Append(
			uint64(e.Seq), string(e.Kind), uint64(e.Timestamp),
			e.Account.String(), e.Pool.String(), archiveAmount(e.SqrtPriceX96),
			e.PositionID, archiveAmount(e.Liquidity),
			archiveAmount(e.AmountToken), archiveAmount(e.AmountBase),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
		appended++
	}

	if appended == 0 {
		return batch.Abort()
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// CountByKind returns archived event counts grouped by kind.
func (s *EventArchiveStore) CountByKind(ctx context.Context) (map[domain.EventKind]uint64, error) {
	query := `
		SELECT kind, count(DISTINCT seq)
		FROM events_archive
		GROUP BY kind
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query counts by kind: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.EventKind]uint64)
	for rows.Next() {
		var kind string
		var count uint64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[domain.EventKind(kind)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count rows: %w", err)
	}

	return counts, nil
}

// MaxSeq returns the highest archived sequence number, or 0 when empty.
func (s *EventArchiveStore) MaxSeq(ctx context.Context) (int64, error) {
	var maxSeq uint64
	err := s.conn.QueryRow(ctx, `SELECT max(seq) FROM events_archive`).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("query max seq: %w", err)
	}
	return int64(maxSeq), nil
}

// archiveAmount renders a nullable amount as a decimal string. Empty means
// the event carried no value for the column.
func archiveAmount(v *uint256.Int) string {
	if v == nil {
		return ""
	}
	return v.Dec()
}
