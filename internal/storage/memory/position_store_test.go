package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/storage"
)

func testPosition(id uint64, owner domain.Address) *domain.Position {
	return &domain.Position{
		ID:          id,
		Owner:       owner,
		Liquidity:   uint256.NewInt(1000),
		TickLower:   -60,
		TickUpper:   60,
		AmountToken: uint256.NewInt(500),
		AmountBase:  uint256.NewInt(500),
		CreatedAt:   1704067200000,
	}
}

func TestPositionStore_InsertAndGetByID(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()
	owner := domain.Address("ownerA")

	if err := store.Insert(ctx, testPosition(7, owner)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, 7)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Owner != owner {
		t.Errorf("Owner mismatch: got %s, want %s", got.Owner, owner)
	}
	if !got.Liquidity.Eq(uint256.NewInt(1000)) {
		t.Errorf("Liquidity mismatch: got %s, want 1000", got.Liquidity)
	}
}

func TestPositionStore_Duplicate(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()
	owner := domain.Address("ownerA")

	if err := store.Insert(ctx, testPosition(7, owner)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	err := store.Insert(ctx, testPosition(7, owner))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestPositionStore_GetByID_NotFound(t *testing.T) {
	store := NewPositionStore()
	_, err := store.GetByID(context.Background(), 42)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPositionStore_GetByOwner(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()
	alice := domain.Address("alice")
	bob := domain.Address("bob")

	for _, p := range []*domain.Position{
		testPosition(3, alice),
		testPosition(1, alice),
		testPosition(2, bob),
	} {
		if err := store.Insert(ctx, p); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByOwner(ctx, alice)
	if err != nil {
		t.Fatalf("GetByOwner failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("positions not ordered by ID: got [%d, %d]", got[0].ID, got[1].ID)
	}
}

func TestPositionStore_Delete(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testPosition(5, domain.Address("alice"))); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Delete(ctx, 5); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, 5); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, 5); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestPositionStore_CloneIsolation(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	p := testPosition(1, domain.Address("alice"))
	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the inserted struct must not affect stored state.
	p.Liquidity.SetUint64(999999)

	got, err := store.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.Liquidity.Eq(uint256.NewInt(1000)) {
		t.Errorf("stored position mutated externally: got %s", got.Liquidity)
	}
}
