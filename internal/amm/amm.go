// Package amm defines the boundary to the external concentrated-liquidity
// AMM protocol. The factory and position manager are injected as
// capabilities; internal/amm/sim provides an in-process implementation.
package amm

import (
	"context"
	"errors"

	"github.com/holiman/uint256"

	"aw-token-ledger/internal/domain"
)

// Boundary errors. Validation failures from the external protocol surface
// as these same sentinels.
var (
	// ErrInvalidPrice is returned for a sqrt price of zero or outside the
	// protocol's representable range.
	ErrInvalidPrice = errors.New("invalid sqrt price")

	// ErrInvalidTickRange is returned for a reversed, out-of-bounds, or
	// unaligned tick range.
	ErrInvalidTickRange = errors.New("invalid tick range")

	// ErrInvalidFeeTier is returned for a fee tier the protocol does not offer.
	ErrInvalidFeeTier = errors.New("invalid fee tier")

	// ErrPoolNotFound is returned for operations against an unknown pool.
	ErrPoolNotFound = errors.New("pool not found")

	// ErrPriceAlreadySet is returned when a pool's price is initialized twice.
	ErrPriceAlreadySet = errors.New("pool price already initialized")

	// ErrPositionNotFound is returned for an unknown position identifier.
	ErrPositionNotFound = errors.New("position not found")

	// ErrZeroLiquidity is returned when a mint would produce no liquidity.
	ErrZeroLiquidity = errors.New("zero liquidity")
)

// FeeTier is a pool's trading fee in hundredths of a basis point
// (3000 = 0.3%).
type FeeTier uint32

// Fee tiers offered by the external protocol.
const (
	FeeTier100   FeeTier = 100
	FeeTier500   FeeTier = 500
	FeeTier3000  FeeTier = 3000
	FeeTier10000 FeeTier = 10000
)

// TickSpacing returns the tick alignment required by the fee tier, or an
// error for unknown tiers.
func (f FeeTier) TickSpacing() (int32, error) {
	switch f {
	case FeeTier100:
		return 1, nil
	case FeeTier500:
		return 10, nil
	case FeeTier3000:
		return 60, nil
	case FeeTier10000:
		return 200, nil
	default:
		return 0, ErrInvalidFeeTier
	}
}

// Valid reports whether the fee tier is offered by the protocol.
func (f FeeTier) Valid() bool {
	_, err := f.TickSpacing()
	return err == nil
}

// MintParams are the inputs to PositionManager.MintPosition.
type MintParams struct {
	Token       domain.Address // this token
	Base        domain.Address // paired base asset
	FeeTier     FeeTier
	TickLower   int32
	TickUpper   int32
	AmountToken *uint256.Int   // desired token amount
	AmountBase  *uint256.Int   // desired base-asset amount
	Payer       domain.Address // account funding the mint
	Recipient   domain.Address // custodial owner of the new position
}

// MintResult is the external position manager's response to a mint.
type MintResult struct {
	PositionID      uint64
	Liquidity       *uint256.Int
	AmountTokenUsed *uint256.Int
	AmountBaseUsed  *uint256.Int
}

// Factory creates and addresses pools deterministically per
// (token0, token1, feeTier).
type Factory interface {
	// GetOrCreatePool returns the pool for the canonical ordering of the
	// pair, creating it if absent.
	GetOrCreatePool(ctx context.Context, tokenA, tokenB domain.Address, fee FeeTier) (domain.Address, error)

	// InitializePrice sets a pool's starting sqrt price. May succeed at most
	// once per pool.
	InitializePrice(ctx context.Context, pool domain.Address, sqrtPriceX96 *uint256.Int) error
}

// PositionManager mints, shrinks, and settles positions. Position
// identifiers are issued by this service and are globally unique.
type PositionManager interface {
	// MintPosition creates a new position and returns its identifier,
	// liquidity, and the amounts actually consumed.
	MintPosition(ctx context.Context, params MintParams) (*MintResult, error)

	// DecreaseLiquidity removes liquidity from a position and returns the
	// token and base-asset amounts now owed to its owner.
	DecreaseLiquidity(ctx context.Context, positionID uint64, liquidity *uint256.Int) (amountToken, amountBase *uint256.Int, err error)

	// Collect pays all owed amounts out of a position to the recipient.
	Collect(ctx context.Context, positionID uint64, recipient domain.Address) (amountToken, amountBase *uint256.Int, err error)

	// Approve grants an operator control over a position identifier.
	Approve(ctx context.Context, positionID uint64, operator domain.Address) error
}

// SortPair returns the pair in the protocol's canonical addressing order
// (ascending byte order of the decoded identifiers).
func SortPair(a, b domain.Address) (domain.Address, domain.Address) {
	if a.String() == b.String() {
		return a, b
	}
	ab, errA := a.Bytes()
	bb, errB := b.Bytes()
	if errA != nil || errB != nil {
		// Undecodable addresses are rejected upstream; fall back to string order.
		if a.String() < b.String() {
			return a, b
		}
		return b, a
	}
	for i := range ab {
		if ab[i] != bb[i] {
			if ab[i] < bb[i] {
				return a, b
			}
			return b, a
		}
	}
	return a, b
}
