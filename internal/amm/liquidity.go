package amm

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Liquidity math over Q96 sqrt prices. Intermediate products exceed 256 bits
// for extreme inputs, so the arithmetic runs on big.Int and clamps back to
// uint256 at the edges.

// LiquidityForAmounts returns the largest liquidity fundable by the desired
// token (amount0, canonical token0) and base (amount1) amounts between
// sqrtA and sqrtB at current price sqrtP.
func LiquidityForAmounts(sqrtP, sqrtA, sqrtB, amount0, amount1 *uint256.Int) *uint256.Int {
	if sqrtA.Gt(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	p, a, b := sqrtP.ToBig(), sqrtA.ToBig(), sqrtB.ToBig()
	am0, am1 := amount0.ToBig(), amount1.ToBig()

	switch {
	case p.Cmp(a) <= 0:
		return toUint256(liquidity0(am0, a, b))
	case p.Cmp(b) >= 0:
		return toUint256(liquidity1(am1, a, b))
	default:
		l0 := liquidity0(am0, p, b)
		l1 := liquidity1(am1, a, p)
		if l0.Cmp(l1) < 0 {
			return toUint256(l0)
		}
		return toUint256(l1)
	}
}

// AmountsForLiquidity returns the token (amount0) and base (amount1) amounts
// represented by liquidity between sqrtA and sqrtB at current price sqrtP.
func AmountsForLiquidity(sqrtP, sqrtA, sqrtB, liquidity *uint256.Int) (amount0, amount1 *uint256.Int) {
	if sqrtA.Gt(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	p, a, b := sqrtP.ToBig(), sqrtA.ToBig(), sqrtB.ToBig()
	l := liquidity.ToBig()

	switch {
	case p.Cmp(a) <= 0:
		return toUint256(amount0For(l, a, b)), uint256.NewInt(0)
	case p.Cmp(b) >= 0:
		return uint256.NewInt(0), toUint256(amount1For(l, a, b))
	default:
		return toUint256(amount0For(l, p, b)), toUint256(amount1For(l, a, p))
	}
}

// liquidity0 = amount0 * (sqrtA * sqrtB / Q96) / (sqrtB - sqrtA)
func liquidity0(amount0, sqrtA, sqrtB *big.Int) *big.Int {
	num := new(big.Int).Mul(sqrtA, sqrtB)
	num.Div(num, q96Big())
	num.Mul(num, amount0)
	den := new(big.Int).Sub(sqrtB, sqrtA)
	if den.Sign() == 0 {
		return big.NewInt(0)
	}
	return num.Div(num, den)
}

// liquidity1 = amount1 * Q96 / (sqrtB - sqrtA)
func liquidity1(amount1, sqrtA, sqrtB *big.Int) *big.Int {
	den := new(big.Int).Sub(sqrtB, sqrtA)
	if den.Sign() == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(amount1, q96Big())
	return num.Div(num, den)
}

// amount0For = L * Q96 * (sqrtB - sqrtA) / (sqrtA * sqrtB)
func amount0For(liquidity, sqrtA, sqrtB *big.Int) *big.Int {
	num := new(big.Int).Mul(liquidity, q96Big())
	num.Mul(num, new(big.Int).Sub(sqrtB, sqrtA))
	den := new(big.Int).Mul(sqrtA, sqrtB)
	if den.Sign() == 0 {
		return big.NewInt(0)
	}
	return num.Div(num, den)
}

// amount1For = L * (sqrtB - sqrtA) / Q96
func amount1For(liquidity, sqrtA, sqrtB *big.Int) *big.Int {
	num := new(big.Int).Mul(liquidity, new(big.Int).Sub(sqrtB, sqrtA))
	return num.Div(num, q96Big())
}

func q96Big() *big.Int {
	return Q96.ToBig()
}

func toUint256(i *big.Int) *uint256.Int {
	if i.Sign() < 0 {
		return uint256.NewInt(0)
	}
	out, overflow := uint256.FromBig(i)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return out
}
