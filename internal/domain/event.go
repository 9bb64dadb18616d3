package domain

import "github.com/holiman/uint256"

// EventKind tags an entry in the append-only event log.
type EventKind string

// Event kinds emitted by the contract. Every successful state-changing
// operation emits exactly one event.
const (
	EventInitialized     EventKind = "initialized"
	EventMint            EventKind = "mint"
	EventPoolCreated     EventKind = "pool_created"
	EventAddLiquidity    EventKind = "add_liquidity"
	EventRemoveLiquidity EventKind = "remove_liquidity"
)

// Event is one entry in the append-only event log. Fields are a union over
// all kinds; unused fields are zero. Events carry enough to let an observer
// reconstruct registry and supply state without reading internal storage
// (see internal/replay).
type Event struct {
	Seq       int64     // assigned by the event store, strictly increasing
	Kind      EventKind //
	Timestamp int64     // unix timestamp in milliseconds

	Account      Address      // mint recipient, or liquidity caller
	Pool         Address      // pool_created only
	SqrtPriceX96 *uint256.Int // pool_created only
	PositionID   uint64       // add/remove_liquidity only
	Liquidity    *uint256.Int // add/remove_liquidity only
	AmountToken  *uint256.Int // minted amount, or token amount moved
	AmountBase   *uint256.Int // base-asset amount moved
}

// Clone returns a deep copy.
func (e *Event) Clone() *Event {
	cp := *e
	if e.SqrtPriceX96 != nil {
		cp.SqrtPriceX96 = uint256.NewInt(0).Set(e.SqrtPriceX96)
	}
	if e.Liquidity != nil {
		cp.Liquidity = uint256.NewInt(0).Set(e.Liquidity)
	}
	if e.AmountToken != nil {
		cp.AmountToken = uint256.NewInt(0).Set(e.AmountToken)
	}
	if e.AmountBase != nil {
		cp.AmountBase = uint256.NewInt(0).Set(e.AmountBase)
	}
	return &cp
}
