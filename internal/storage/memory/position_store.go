package memory

import (
	"context"
	"sort"
	"sync"

	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[uint64]*domain.Position
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[uint64]*domain.Position),
	}
}

var _ storage.PositionStore = (*PositionStore)(nil)

// Insert adds a new position. Returns ErrDuplicateKey if the identifier is
// already registered.
func (s *PositionStore) Insert(_ context.Context, p *domain.Position) error {
	if p == nil || p.Owner.IsZero() || p.Liquidity == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[p.ID] = p.Clone()
	return nil
}

// GetByID retrieves a position. Returns ErrNotFound if not registered.
func (s *PositionStore) GetByID(_ context.Context, positionID uint64) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[positionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return p.Clone(), nil
}

// GetByOwner retrieves all open positions of an owner, ordered by ID ASC.
func (s *PositionStore) GetByOwner(_ context.Context, owner domain.Address) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Owner == owner {
			result = append(result, p.Clone())
		}
	}
	sortByID(result)
	return result, nil
}

// GetAll retrieves all open positions, ordered by ID ASC.
func (s *PositionStore) GetAll(_ context.Context) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Position, 0, len(s.data))
	for _, p := range s.data {
		result = append(result, p.Clone())
	}
	sortByID(result)
	return result, nil
}

// Delete removes a position. Returns ErrNotFound if not registered.
func (s *PositionStore) Delete(_ context.Context, positionID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[positionID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, positionID)
	return nil
}

func sortByID(positions []*domain.Position) {
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].ID < positions[j].ID
	})
}
