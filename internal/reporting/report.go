package reporting

import (
	"time"

	"github.com/holiman/uint256"
)

// Report summarizes contract activity from the event log and the position
// registry at one point in time.
type Report struct {
	// Metadata
	GeneratedAt time.Time

	// Supply and log totals
	Summary Summary

	// Event counts per kind (sorted by kind)
	EventCounts []EventCountRow

	// Per-account liquidity activity (sorted by account)
	AccountActivity []AccountActivityRow

	// Currently open positions (sorted by position id)
	OpenPositions []OpenPositionRow
}

// Summary contains log-wide totals.
type Summary struct {
	EventsLogged  int
	TotalMinted   *uint256.Int
	OpenPositions int
	OpenLiquidity *uint256.Int
	Pool          string // empty until the pool is bootstrapped
	PoolPrice     string // human-readable bootstrap price
	FirstEventAt  int64  // Unix ms, 0 when the log is empty
	LastEventAt   int64  // Unix ms
}

// EventCountRow counts events of one kind.
type EventCountRow struct {
	Kind  string
	Count int
}

// AccountActivityRow aggregates one account's liquidity operations.
type AccountActivityRow struct {
	Account        string
	Adds           int
	Removes        int
	TokenDeposited *uint256.Int
	BaseDeposited  *uint256.Int
	TokenWithdrawn *uint256.Int
	BaseWithdrawn  *uint256.Int
	OpenPositions  int
	OpenLiquidity  *uint256.Int
}

// OpenPositionRow is one currently open position.
type OpenPositionRow struct {
	ID        uint64
	Owner     string
	Liquidity *uint256.Int
	TickLower int32
	TickUpper int32
}
