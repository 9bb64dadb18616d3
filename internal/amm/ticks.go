package amm

import (
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"
)

// Tick bounds of the external protocol.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

// Q96 is the 2^96 fixed-point scale of sqrt prices.
var Q96 = new(uint256.Int).Lsh(uint256.NewInt(1), 96)

// Representable sqrt price range: [sqrt(1.0001^MinTick), sqrt(1.0001^MaxTick)) in Q96.
var (
	MinSqrtRatio = uint256.NewInt(4295128739)
	MaxSqrtRatio = uint256.MustFromDecimal("1461446703485210103287273052203988822378723970342")
)

// CheckSqrtPrice validates an initial sqrt price against the representable
// range. Returns ErrInvalidPrice on nil, zero, or out-of-range values.
func CheckSqrtPrice(sqrtPriceX96 *uint256.Int) error {
	if sqrtPriceX96 == nil || sqrtPriceX96.IsZero() {
		return fmt.Errorf("%w: zero", ErrInvalidPrice)
	}
	if sqrtPriceX96.Lt(MinSqrtRatio) || !sqrtPriceX96.Lt(MaxSqrtRatio) {
		return fmt.Errorf("%w: %s outside representable range", ErrInvalidPrice, sqrtPriceX96)
	}
	return nil
}

// CheckTickRange validates a position's tick range for a fee tier: ordered,
// within protocol bounds, and aligned to the tier's tick spacing.
func CheckTickRange(tickLower, tickUpper int32, fee FeeTier) error {
	spacing, err := fee.TickSpacing()
	if err != nil {
		return err
	}
	if tickLower >= tickUpper {
		return fmt.Errorf("%w: lower %d >= upper %d", ErrInvalidTickRange, tickLower, tickUpper)
	}
	if tickLower < MinTick || tickUpper > MaxTick {
		return fmt.Errorf("%w: [%d, %d] outside [%d, %d]", ErrInvalidTickRange, tickLower, tickUpper, MinTick, MaxTick)
	}
	if tickLower%spacing != 0 || tickUpper%spacing != 0 {
		return fmt.Errorf("%w: [%d, %d] not aligned to spacing %d", ErrInvalidTickRange, tickLower, tickUpper, spacing)
	}
	return nil
}

// TickToSqrtPriceX96 converts a tick to sqrt(1.0001^tick) in Q96.
// Float-derived: adequate for the in-process engine, not bit-exact with the
// on-chain fixed-point implementation.
func TickToSqrtPriceX96(tick int32) *uint256.Int {
	sqrtPrice := math.Pow(1.0001, float64(tick)/2)
	f := new(big.Float).SetPrec(128).SetFloat64(sqrtPrice)
	f.Mul(f, new(big.Float).SetInt(Q96.ToBig()))
	i, _ := f.Int(nil)
	out, overflow := uint256.FromBig(i)
	if overflow {
		return new(uint256.Int).Set(MaxSqrtRatio)
	}
	return out
}
