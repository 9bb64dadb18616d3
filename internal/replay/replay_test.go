package replay

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/storage/memory"
)

func appendAll(t *testing.T, store *memory.EventStore, events ...*domain.Event) {
	t.Helper()
	for _, e := range events {
		require.NoError(t, store.Append(context.Background(), e))
	}
}

func fullHistory() []*domain.Event {
	return []*domain.Event{
		{Kind: domain.EventInitialized, Account: domain.Address("Owner")},
		{Kind: domain.EventMint, Account: domain.Address("Alice"), AmountToken: uint256.NewInt(1000)},
		{Kind: domain.EventPoolCreated, Pool: domain.Address("Pool1"), SqrtPriceX96: uint256.NewInt(1 << 40)},
		{Kind: domain.EventAddLiquidity, Account: domain.Address("Alice"), PositionID: 1, Liquidity: uint256.NewInt(500), AmountToken: uint256.NewInt(400), AmountBase: uint256.NewInt(400)},
		{Kind: domain.EventAddLiquidity, Account: domain.Address("Bob"), PositionID: 2, Liquidity: uint256.NewInt(300), AmountToken: uint256.NewInt(200), AmountBase: uint256.NewInt(200)},
		{Kind: domain.EventRemoveLiquidity, Account: domain.Address("Alice"), PositionID: 1, Liquidity: uint256.NewInt(500), AmountToken: uint256.NewInt(390), AmountBase: uint256.NewInt(390)},
	}
}

func TestRebuild_FullHistory(t *testing.T) {
	store := memory.NewEventStore()
	appendAll(t, store, fullHistory()...)

	events, err := store.GetAll(context.Background())
	require.NoError(t, err)

	state, err := Rebuild(events)
	require.NoError(t, err)

	assert.True(t, state.Initialized)
	assert.True(t, state.PoolCreated)
	assert.Equal(t, domain.Address("Pool1"), state.Pool)
	assert.True(t, state.TotalMinted.Eq(uint256.NewInt(1000)))
	assert.Equal(t, 6, state.EventsReplayed)

	// Position 1 closed, position 2 still open under Bob.
	require.Len(t, state.Positions, 1)
	p := state.Positions[2]
	require.NotNil(t, p)
	assert.Equal(t, domain.Address("Bob"), p.Owner)
	assert.True(t, p.Liquidity.Eq(uint256.NewInt(300)))
}

func TestRebuild_EmptyLog(t *testing.T) {
	state, err := Rebuild(nil)
	require.NoError(t, err)
	assert.False(t, state.Initialized)
	assert.True(t, state.TotalMinted.IsZero())
	assert.Empty(t, state.Positions)
}

func TestRebuild_MalformedHistories(t *testing.T) {
	for _, tc := range []struct {
		name   string
		events []*domain.Event
	}{
		{"duplicate position", []*domain.Event{
			{Seq: 1, Kind: domain.EventAddLiquidity, PositionID: 1, Liquidity: uint256.NewInt(1)},
			{Seq: 2, Kind: domain.EventAddLiquidity, PositionID: 1, Liquidity: uint256.NewInt(1)},
		}},
		{"remove unknown position", []*domain.Event{
			{Seq: 1, Kind: domain.EventRemoveLiquidity, PositionID: 9},
		}},
		{"second bootstrap", []*domain.Event{
			{Seq: 1, Kind: domain.EventPoolCreated, Pool: domain.Address("P")},
			{Seq: 2, Kind: domain.EventPoolCreated, Pool: domain.Address("P")},
		}},
		{"second initialized", []*domain.Event{
			{Seq: 1, Kind: domain.EventInitialized},
			{Seq: 2, Kind: domain.EventInitialized},
		}},
		{"unknown kind", []*domain.Event{
			{Seq: 1, Kind: domain.EventKind("burn")},
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Rebuild(tc.events)
			assert.ErrorIs(t, err, ErrMalformedLog)
		})
	}
}

func TestRebuild_BrokenSequence(t *testing.T) {
	_, err := Rebuild([]*domain.Event{
		{Seq: 2, Kind: domain.EventInitialized},
		{Seq: 2, Kind: domain.EventMint, AmountToken: uint256.NewInt(1)},
	})
	assert.ErrorIs(t, err, ErrBrokenSequence)
}

func TestVerifier_CleanRun(t *testing.T) {
	ctx := context.Background()
	events := memory.NewEventStore()
	positions := memory.NewPositionStore()

	appendAll(t, events, fullHistory()...)
	require.NoError(t, positions.Insert(ctx, &domain.Position{
		ID:          2,
		Owner:       domain.Address("Bob"),
		Liquidity:   uint256.NewInt(300),
		AmountToken: uint256.NewInt(200),
		AmountBase:  uint256.NewInt(200),
	}))

	report, err := NewVerifier(events, positions, uint256.NewInt(1_000_000)).Run(ctx)
	require.NoError(t, err)

	assert.True(t, report.OK(), "issues: %v", report.Issues)
	assert.Equal(t, 6, report.EventsReplayed)
	assert.Equal(t, 1, report.OpenPositions)
	assert.True(t, report.TotalMinted.Eq(uint256.NewInt(1000)))
}

func TestVerifier_DetectsRegistryDrift(t *testing.T) {
	ctx := context.Background()
	events := memory.NewEventStore()
	positions := memory.NewPositionStore()

	appendAll(t, events, fullHistory()...)

	// Registry holds the wrong owner for position 2, misses nothing else,
	// and carries one position the log never saw.
	require.NoError(t, positions.Insert(ctx, &domain.Position{
		ID:          2,
		Owner:       domain.Address("Mallory"),
		Liquidity:   uint256.NewInt(300),
		AmountToken: uint256.NewInt(200),
		AmountBase:  uint256.NewInt(200),
	}))
	require.NoError(t, positions.Insert(ctx, &domain.Position{
		ID:          99,
		Owner:       domain.Address("Mallory"),
		Liquidity:   uint256.NewInt(1),
		AmountToken: uint256.NewInt(1),
		AmountBase:  uint256.NewInt(1),
	}))

	report, err := NewVerifier(events, positions, nil).Run(ctx)
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.Len(t, report.Issues, 2)
}

func TestVerifier_SupplyCapIssue(t *testing.T) {
	ctx := context.Background()
	events := memory.NewEventStore()
	appendAll(t, events,
		&domain.Event{Kind: domain.EventInitialized},
		&domain.Event{Kind: domain.EventMint, AmountToken: uint256.NewInt(600)},
		&domain.Event{Kind: domain.EventMint, AmountToken: uint256.NewInt(600)},
	)

	report, err := NewVerifier(events, memory.NewPositionStore(), uint256.NewInt(1000)).Run(ctx)
	require.NoError(t, err)

	assert.False(t, report.OK())
	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0], "exceeds max supply")
}
