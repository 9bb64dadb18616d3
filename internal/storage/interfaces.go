package storage

import (
	"context"

	"aw-token-ledger/internal/domain"
)

// PositionStore is the position registry: external position identifier to
// custodial owner and recorded liquidity. Entries are inserted whole on
// add-liquidity and deleted whole on remove-liquidity; there is no update.
type PositionStore interface {
	// Insert adds a new position. Returns ErrDuplicateKey if the identifier
	// is already registered.
	Insert(ctx context.Context, p *domain.Position) error

	// GetByID retrieves a position. Returns ErrNotFound if not registered.
	GetByID(ctx context.Context, positionID uint64) (*domain.Position, error)

	// GetByOwner retrieves all open positions of an owner, ordered by ID ASC.
	GetByOwner(ctx context.Context, owner domain.Address) ([]*domain.Position, error)

	// GetAll retrieves all open positions, ordered by ID ASC.
	GetAll(ctx context.Context) ([]*domain.Position, error)

	// Delete removes a position. Returns ErrNotFound if not registered.
	Delete(ctx context.Context, positionID uint64) error
}

// EventStore is the append-only event log. Appending assigns the event a
// strictly increasing sequence number; entries are never mutated or deleted.
type EventStore interface {
	// Append adds an event and populates e.Seq.
	Append(ctx context.Context, e *domain.Event) error

	// GetAll retrieves all events, ordered by sequence ASC.
	GetAll(ctx context.Context) ([]*domain.Event, error)

	// GetFromSeq retrieves events with Seq >= from, ordered by sequence ASC.
	GetFromSeq(ctx context.Context, from int64) ([]*domain.Event, error)

	// GetByKind retrieves all events of a kind, ordered by sequence ASC.
	GetByKind(ctx context.Context, kind domain.EventKind) ([]*domain.Event, error)
}

// EventArchive is the analytical sink for the event log, fed asynchronously
// from the EventStore. Duplicate sequence numbers are ignored, so archiving
// is idempotent.
type EventArchive interface {
	// ArchiveBulk writes a batch of events.
	ArchiveBulk(ctx context.Context, events []*domain.Event) error

	// CountByKind returns archived event counts grouped by kind.
	CountByKind(ctx context.Context) (map[domain.EventKind]uint64, error)

	// MaxSeq returns the highest archived sequence number, or 0 when empty.
	MaxSeq(ctx context.Context) (int64, error)
}
