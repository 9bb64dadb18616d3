package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/storage"
)

func TestEventStore_AppendAssignsSeq(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	e1 := &domain.Event{Kind: domain.EventMint, Timestamp: 1, AmountToken: uint256.NewInt(100)}
	e2 := &domain.Event{Kind: domain.EventPoolCreated, Timestamp: 2}

	if err := store.Append(ctx, e1); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, e2); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if e1.Seq != 1 || e2.Seq != 2 {
		t.Errorf("sequence numbers not increasing: got %d, %d", e1.Seq, e2.Seq)
	}
}

func TestEventStore_AppendRejectsInvalid(t *testing.T) {
	store := NewEventStore()
	err := store.Append(context.Background(), &domain.Event{})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEventStore_GetAllOrdered(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, &domain.Event{Kind: domain.EventMint, Timestamp: int64(i)}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 events, got %d", len(got))
	}
	for i, e := range got {
		if e.Seq != int64(i)+1 {
			t.Errorf("event %d has seq %d", i, e.Seq)
		}
	}
}

func TestEventStore_GetFromSeq(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, &domain.Event{Kind: domain.EventMint}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := store.GetFromSeq(ctx, 4)
	if err != nil {
		t.Fatalf("GetFromSeq failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Seq != 4 {
		t.Errorf("expected first seq 4, got %d", got[0].Seq)
	}
}

func TestEventStore_GetByKind(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	kinds := []domain.EventKind{
		domain.EventMint,
		domain.EventPoolCreated,
		domain.EventMint,
		domain.EventAddLiquidity,
	}
	for _, k := range kinds {
		if err := store.Append(ctx, &domain.Event{Kind: k}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := store.GetByKind(ctx, domain.EventMint)
	if err != nil {
		t.Fatalf("GetByKind failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 mint events, got %d", len(got))
	}
}

func TestEventStore_CloneIsolation(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	e := &domain.Event{Kind: domain.EventMint, AmountToken: uint256.NewInt(50)}
	if err := store.Append(ctx, e); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	e.AmountToken.SetUint64(999)

	got, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if !got[0].AmountToken.Eq(uint256.NewInt(50)) {
		t.Errorf("stored event mutated externally: got %s", got[0].AmountToken)
	}
}
