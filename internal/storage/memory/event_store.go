package memory

import (
	"context"
	"sync"

	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu     sync.RWMutex
	events []*domain.Event // ordered by Seq, Seq starts at 1
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

var _ storage.EventStore = (*EventStore)(nil)

// Append adds an event and populates e.Seq.
func (s *EventStore) Append(_ context.Context, e *domain.Event) error {
	if e == nil || e.Kind == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e.Seq = int64(len(s.events)) + 1
	s.events = append(s.events, e.Clone())
	return nil
}

// GetAll retrieves all events, ordered by sequence ASC.
func (s *EventStore) GetAll(_ context.Context) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Event, 0, len(s.events))
	for _, e := range s.events {
		result = append(result, e.Clone())
	}
	return result, nil
}

// GetFromSeq retrieves events with Seq >= from, ordered by sequence ASC.
func (s *EventStore) GetFromSeq(_ context.Context, from int64) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.events {
		if e.Seq >= from {
			result = append(result, e.Clone())
		}
	}
	return result, nil
}

// GetByKind retrieves all events of a kind, ordered by sequence ASC.
func (s *EventStore) GetByKind(_ context.Context, kind domain.EventKind) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.events {
		if e.Kind == kind {
			result = append(result, e.Clone())
		}
	}
	return result, nil
}
