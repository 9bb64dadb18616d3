// Package replay reconstructs contract state from the append-only event log
// and verifies it against the live position registry. The log claims to
// carry enough for an observer to rebuild registry and supply state without
// reading internal storage; this package is that observer.
package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/storage"
)

// Replay errors.
var (
	// ErrBrokenSequence is returned when event sequence numbers are not
	// strictly increasing.
	ErrBrokenSequence = errors.New("broken event sequence")

	// ErrMalformedLog is returned when the event stream encodes an
	// impossible history (a duplicate position, a removal of an unknown
	// position, a second bootstrap).
	ErrMalformedLog = errors.New("malformed event log")
)

// ReplayedPosition is a position as reconstructed from the log.
type ReplayedPosition struct {
	ID        uint64
	Owner     domain.Address
	Liquidity *uint256.Int
}

// State is contract state folded out of the event log.
type State struct {
	Initialized  bool
	PoolCreated  bool
	Pool         domain.Address
	SqrtPriceX96 *uint256.Int
	TotalMinted  *uint256.Int
	Positions    map[uint64]*ReplayedPosition

	EventsReplayed int
}

// Rebuild folds an ordered event stream into contract state.
func Rebuild(events []*domain.Event) (*State, error) {
	s := &State{
		TotalMinted: uint256.NewInt(0),
		Positions:   make(map[uint64]*ReplayedPosition),
	}

	var lastSeq int64
	for _, e := range events {
		if e.Seq <= lastSeq {
			return nil, fmt.Errorf("%w: seq %d after %d", ErrBrokenSequence, e.Seq, lastSeq)
		}
		lastSeq = e.Seq

		switch e.Kind {
		case domain.EventInitialized:
			if s.Initialized {
				return nil, fmt.Errorf("%w: second initialized at seq %d", ErrMalformedLog, e.Seq)
			}
			s.Initialized = true

		case domain.EventMint:
			if e.AmountToken == nil {
				return nil, fmt.Errorf("%w: mint without amount at seq %d", ErrMalformedLog, e.Seq)
			}
			next, overflow := new(uint256.Int).AddOverflow(s.TotalMinted, e.AmountToken)
			if overflow {
				return nil, fmt.Errorf("%w: minted amounts overflow at seq %d", ErrMalformedLog, e.Seq)
			}
			s.TotalMinted = next

		case domain.EventPoolCreated:
			if s.PoolCreated {
				return nil, fmt.Errorf("%w: second pool_created at seq %d", ErrMalformedLog, e.Seq)
			}
			s.PoolCreated = true
			s.Pool = e.Pool
			if e.SqrtPriceX96 != nil {
				s.SqrtPriceX96 = new(uint256.Int).Set(e.SqrtPriceX96)
			}

		case domain.EventAddLiquidity:
			if _, exists := s.Positions[e.PositionID]; exists {
				return nil, fmt.Errorf("%w: duplicate position %d at seq %d", ErrMalformedLog, e.PositionID, e.Seq)
			}
			if e.Liquidity == nil {
				return nil, fmt.Errorf("%w: add_liquidity without liquidity at seq %d", ErrMalformedLog, e.Seq)
			}
			s.Positions[e.PositionID] = &ReplayedPosition{
				ID:        e.PositionID,
				Owner:     e.Account,
				Liquidity: new(uint256.Int).Set(e.Liquidity),
			}

		case domain.EventRemoveLiquidity:
			if _, exists := s.Positions[e.PositionID]; !exists {
				return nil, fmt.Errorf("%w: removal of unknown position %d at seq %d", ErrMalformedLog, e.PositionID, e.Seq)
			}
			delete(s.Positions, e.PositionID)

		default:
			return nil, fmt.Errorf("%w: unknown event kind %q at seq %d", ErrMalformedLog, e.Kind, e.Seq)
		}
	}

	s.EventsReplayed = len(events)
	return s, nil
}

// Report is the outcome of one verification run. Issues is empty when the
// rebuilt state agrees with the live registry and every invariant holds.
type Report struct {
	EventsReplayed int
	OpenPositions  int
	TotalMinted    *uint256.Int
	Issues         []string
}

// OK reports whether verification found no issues.
func (r *Report) OK() bool {
	return len(r.Issues) == 0
}

// Verifier replays the event log and cross-checks the position registry.
type Verifier struct {
	events    storage.EventStore
	positions storage.PositionStore
	maxSupply *uint256.Int
}

// NewVerifier creates a verifier. maxSupply bounds the replayed issuance.
func NewVerifier(events storage.EventStore, positions storage.PositionStore, maxSupply *uint256.Int) *Verifier {
	return &Verifier{
		events:    events,
		positions: positions,
		maxSupply: maxSupply,
	}
}

// Run rebuilds state from the log and verifies it. Structural log defects
// surface as errors; semantic mismatches surface as report issues.
func (v *Verifier) Run(ctx context.Context) (*Report, error) {
	events, err := v.events.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	state, err := Rebuild(events)
	if err != nil {
		return nil, err
	}

	report := &Report{
		EventsReplayed: state.EventsReplayed,
		OpenPositions:  len(state.Positions),
		TotalMinted:    new(uint256.Int).Set(state.TotalMinted),
	}

	if v.maxSupply != nil && state.TotalMinted.Gt(v.maxSupply) {
		report.Issues = append(report.Issues, fmt.Sprintf(
			"replayed issuance %s exceeds max supply %s", state.TotalMinted, v.maxSupply))
	}
	if len(state.Positions) > 0 && !state.PoolCreated {
		report.Issues = append(report.Issues, "open positions without a pool_created event")
	}

	live, err := v.positions.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}

	liveByID := make(map[uint64]*domain.Position, len(live))
	for _, p := range live {
		liveByID[p.ID] = p
	}

	for id, rp := range state.Positions {
		lp, ok := liveByID[id]
		if !ok {
			report.Issues = append(report.Issues, fmt.Sprintf(
				"position %d open in log but missing from registry", id))
			continue
		}
		if lp.Owner != rp.Owner {
			report.Issues = append(report.Issues, fmt.Sprintf(
				"position %d owner mismatch: log %s, registry %s", id, rp.Owner, lp.Owner))
		}
		if !lp.Liquidity.Eq(rp.Liquidity) {
			report.Issues = append(report.Issues, fmt.Sprintf(
				"position %d liquidity mismatch: log %s, registry %s", id, rp.Liquidity, lp.Liquidity))
		}
	}
	for id := range liveByID {
		if _, ok := state.Positions[id]; !ok {
			report.Issues = append(report.Issues, fmt.Sprintf(
				"position %d in registry but closed or absent in log", id))
		}
	}

	return report, nil
}
