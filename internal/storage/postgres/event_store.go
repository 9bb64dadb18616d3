package postgres

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"

	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL. Sequence
// numbers come from the events table's BIGSERIAL primary key.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const eventColumns = `
	seq, kind, timestamp, account, pool,
	COALESCE(sqrt_price_x96::text, ''), position_id::text,
	COALESCE(liquidity::text, ''), COALESCE(amount_token::text, ''), COALESCE(amount_base::text, '')
`

// Append adds an event and populates e.Seq.
func (s *EventStore) Append(ctx context.Context, e *domain.Event) error {
	if e == nil || e.Kind == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO events (
			kind, timestamp, account, pool, sqrt_price_x96, position_id, liquidity, amount_token, amount_base
		) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric)
		RETURNING seq
	`

	err := s.pool.QueryRow(ctx, query,
		string(e.Kind),
		e.Timestamp,
		e.Account.String(),
		e.Pool.String(),
		optionalAmount(e.SqrtPriceX96),
		positionIDToString(e.PositionID),
		optionalAmount(e.Liquidity),
		optionalAmount(e.AmountToken),
		optionalAmount(e.AmountBase),
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// GetAll retrieves all events, ordered by sequence ASC.
func (s *EventStore) GetAll(ctx context.Context) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY seq ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// GetFromSeq retrieves events with Seq >= from, ordered by sequence ASC.
func (s *EventStore) GetFromSeq(ctx context.Context, from int64) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE seq >= $1 ORDER BY seq ASC`

	rows, err := s.pool.Query(ctx, query, from)
	if err != nil {
		return nil, fmt.Errorf("get events from seq: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// GetByKind retrieves all events of a kind, ordered by sequence ASC.
func (s *EventStore) GetByKind(ctx context.Context, kind domain.EventKind) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE kind = $1 ORDER BY seq ASC`

	rows, err := s.pool.Query(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("get events by kind: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// optionalAmount renders a nullable amount column.
func optionalAmount(v *uint256.Int) any {
	if v == nil {
		return nil
	}
	return v.Dec()
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var (
		seq         int64
		kind        string
		timestamp   int64
		account     string
		pool        string
		sqrtPrice   string
		positionID  string
		liquidity   string
		amountToken string
		amountBase  string
	)
	if err := row.Scan(&seq, &kind, &timestamp, &account, &pool, &sqrtPrice, &positionID, &liquidity, &amountToken, &amountBase); err != nil {
		return nil, err
	}

	pid, err := positionIDFromString(positionID)
	if err != nil {
		return nil, err
	}

	e := &domain.Event{
		Seq:        seq,
		Kind:       domain.EventKind(kind),
		Timestamp:  timestamp,
		Account:    domain.Address(account),
		Pool:       domain.Address(pool),
		PositionID: pid,
	}

	if sqrtPrice != "" {
		if e.SqrtPriceX96, err = amountFromString(sqrtPrice); err != nil {
			return nil, err
		}
	}
	if liquidity != "" {
		if e.Liquidity, err = amountFromString(liquidity); err != nil {
			return nil, err
		}
	}
	if amountToken != "" {
		if e.AmountToken, err = amountFromString(amountToken); err != nil {
			return nil, err
		}
	}
	if amountBase != "" {
		if e.AmountBase, err = amountFromString(amountBase); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func collectEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var result []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return result, nil
}
