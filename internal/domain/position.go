package domain

import "github.com/holiman/uint256"

// Position records custody of one concentrated-liquidity position minted on
// the external AMM. The ID is issued by the external position manager and is
// treated as an opaque foreign key. A position is created whole by a
// successful add-liquidity call and deleted whole by a successful
// remove-liquidity call; it is never partially mutated.
type Position struct {
	ID          uint64       // external position identifier
	Owner       Address      // account that created the position
	Liquidity   *uint256.Int // liquidity magnitude reported at creation
	TickLower   int32
	TickUpper   int32
	AmountToken *uint256.Int // token amount consumed by the external mint
	AmountBase  *uint256.Int // base-asset amount consumed by the external mint
	CreatedAt   int64        // unix timestamp in milliseconds
}

// Clone returns a deep copy.
func (p *Position) Clone() *Position {
	cp := *p
	cp.Liquidity = uint256.NewInt(0).Set(p.Liquidity)
	cp.AmountToken = uint256.NewInt(0).Set(p.AmountToken)
	cp.AmountBase = uint256.NewInt(0).Set(p.AmountBase)
	return &cp
}
