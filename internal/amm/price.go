package amm

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// PriceFromSqrtX96 converts a Q96 sqrt price into a human-readable
// base-per-token price: (sqrtPriceX96 / 2^96)^2. Display precision only;
// ledger arithmetic never runs on decimals.
func PriceFromSqrtX96(sqrtPriceX96 *uint256.Int) decimal.Decimal {
	if sqrtPriceX96 == nil || sqrtPriceX96.IsZero() {
		return decimal.Zero
	}
	sqrt := decimal.NewFromBigInt(sqrtPriceX96.ToBig(), 0).
		DivRound(decimal.NewFromBigInt(Q96.ToBig(), 0), 36)
	return sqrt.Mul(sqrt)
}
