// Package sim is an in-process implementation of the external AMM boundary.
// It reproduces the protocol's observable behavior (deterministic pool
// addressing, one-shot price initialization, monotonic position identifiers,
// liquidity math) against the local ledgers, standing in for the real
// protocol in the server and in tests.
package sim

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"aw-token-ledger/internal/amm"
	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/ledger"
)

type pool struct {
	addr         domain.Address
	token0       domain.Address
	token1       domain.Address
	fee          amm.FeeTier
	sqrtPriceX96 *uint256.Int // nil until initialized
}

type position struct {
	pool      *pool
	owner     domain.Address
	operator  domain.Address
	tickLower int32
	tickUpper int32
	liquidity *uint256.Int
	owed0     *uint256.Int
	owed1     *uint256.Int
}

// Engine simulates the external factory and position manager for one
// token/base asset pair universe. Funds move through the injected ledgers;
// collected amounts are paid out of the engine's vault account.
type Engine struct {
	mu sync.Mutex

	tokenAsset  domain.Address
	baseAsset   domain.Address
	tokenLedger *ledger.Ledger
	baseLedger  *ledger.Ledger
	vault       domain.Address

	pools     map[string]*pool
	byAddr    map[domain.Address]*pool
	positions map[uint64]*position
	nextID    uint64
}

// New creates an engine for the given asset pair and ledgers.
func New(tokenAsset domain.Address, tokenLedger *ledger.Ledger, baseAsset domain.Address, baseLedger *ledger.Ledger) *Engine {
	return &Engine{
		tokenAsset:  tokenAsset,
		baseAsset:   baseAsset,
		tokenLedger: tokenLedger,
		baseLedger:  baseLedger,
		vault:       deriveAddress("vault", tokenAsset, baseAsset, 0),
		pools:       make(map[string]*pool),
		byAddr:      make(map[domain.Address]*pool),
		positions:   make(map[uint64]*position),
		nextID:      1,
	}
}

var (
	_ amm.Factory         = (*Engine)(nil)
	_ amm.PositionManager = (*Engine)(nil)
)

// Vault returns the engine's settlement account.
func (e *Engine) Vault() domain.Address {
	return e.vault
}

// GetOrCreatePool returns the deterministic pool for the canonical pair
// ordering, creating it if absent.
func (e *Engine) GetOrCreatePool(_ context.Context, tokenA, tokenB domain.Address, fee amm.FeeTier) (domain.Address, error) {
	if !fee.Valid() {
		return domain.ZeroAddress, amm.ErrInvalidFeeTier
	}
	if tokenA.IsZero() || tokenB.IsZero() || tokenA == tokenB {
		return domain.ZeroAddress, fmt.Errorf("%w: bad pair (%s, %s)", amm.ErrPoolNotFound, tokenA, tokenB)
	}
	t0, t1 := amm.SortPair(tokenA, tokenB)

	e.mu.Lock()
	defer e.mu.Unlock()

	key := poolKey(t0, t1, fee)
	if p, ok := e.pools[key]; ok {
		return p.addr, nil
	}
	p := &pool{
		addr:   deriveAddress("pool", t0, t1, fee),
		token0: t0,
		token1: t1,
		fee:    fee,
	}
	e.pools[key] = p
	e.byAddr[p.addr] = p
	return p.addr, nil
}

// InitializePrice sets the pool's starting sqrt price, at most once.
func (e *Engine) InitializePrice(_ context.Context, poolAddr domain.Address, sqrtPriceX96 *uint256.Int) error {
	if err := amm.CheckSqrtPrice(sqrtPriceX96); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.byAddr[poolAddr]
	if !ok {
		return amm.ErrPoolNotFound
	}
	if p.sqrtPriceX96 != nil {
		return amm.ErrPriceAlreadySet
	}
	p.sqrtPriceX96 = new(uint256.Int).Set(sqrtPriceX96)
	return nil
}

// MintPosition creates a position, pulling the consumed amounts from the
// payer into the engine vault.
func (e *Engine) MintPosition(_ context.Context, params amm.MintParams) (*amm.MintResult, error) {
	if params.Token != e.tokenAsset || params.Base != e.baseAsset {
		return nil, fmt.Errorf("%w: unknown asset pair", amm.ErrPoolNotFound)
	}
	if err := amm.CheckTickRange(params.TickLower, params.TickUpper, params.FeeTier); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	t0, t1 := amm.SortPair(params.Token, params.Base)
	p, ok := e.pools[poolKey(t0, t1, params.FeeTier)]
	if !ok {
		return nil, amm.ErrPoolNotFound
	}
	if p.sqrtPriceX96 == nil {
		return nil, fmt.Errorf("%w: price not initialized", amm.ErrInvalidPrice)
	}

	amount0, amount1 := e.orient(p, params.AmountToken, params.AmountBase)
	sqrtA := amm.TickToSqrtPriceX96(params.TickLower)
	sqrtB := amm.TickToSqrtPriceX96(params.TickUpper)

	liquidity := amm.LiquidityForAmounts(p.sqrtPriceX96, sqrtA, sqrtB, amount0, amount1)
	if liquidity.IsZero() {
		return nil, amm.ErrZeroLiquidity
	}
	used0, used1 := amm.AmountsForLiquidity(p.sqrtPriceX96, sqrtA, sqrtB, liquidity)
	clamp(used0, amount0)
	clamp(used1, amount1)
	usedToken, usedBase := e.orient(p, used0, used1)

	if err := e.tokenLedger.Transfer(params.Payer, e.vault, usedToken); err != nil {
		return nil, fmt.Errorf("pull token: %w", err)
	}
	if err := e.baseLedger.Transfer(params.Payer, e.vault, usedBase); err != nil {
		// Undo the token pull so a failed mint moves nothing.
		_ = e.tokenLedger.Transfer(e.vault, params.Payer, usedToken)
		return nil, fmt.Errorf("pull base asset: %w", err)
	}

	id := e.nextID
	e.nextID++
	e.positions[id] = &position{
		pool:      p,
		owner:     params.Recipient,
		tickLower: params.TickLower,
		tickUpper: params.TickUpper,
		liquidity: new(uint256.Int).Set(liquidity),
		owed0:     uint256.NewInt(0),
		owed1:     uint256.NewInt(0),
	}

	return &amm.MintResult{
		PositionID:      id,
		Liquidity:       liquidity,
		AmountTokenUsed: usedToken,
		AmountBaseUsed:  usedBase,
	}, nil
}

// DecreaseLiquidity removes liquidity from a position, accruing the owed
// amounts for a later Collect.
func (e *Engine) DecreaseLiquidity(_ context.Context, positionID uint64, liquidity *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if liquidity == nil || liquidity.IsZero() {
		return nil, nil, amm.ErrZeroLiquidity
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[positionID]
	if !ok {
		return nil, nil, amm.ErrPositionNotFound
	}
	if liquidity.Gt(pos.liquidity) {
		return nil, nil, fmt.Errorf("%w: %s exceeds position liquidity %s", amm.ErrZeroLiquidity, liquidity, pos.liquidity)
	}

	sqrtA := amm.TickToSqrtPriceX96(pos.tickLower)
	sqrtB := amm.TickToSqrtPriceX96(pos.tickUpper)
	amount0, amount1 := amm.AmountsForLiquidity(pos.pool.sqrtPriceX96, sqrtA, sqrtB, liquidity)

	pos.liquidity.Sub(pos.liquidity, liquidity)
	pos.owed0.Add(pos.owed0, amount0)
	pos.owed1.Add(pos.owed1, amount1)

	owedToken, owedBase := e.orient(pos.pool, amount0, amount1)
	return owedToken, owedBase, nil
}

// Collect pays all owed amounts from the vault to the recipient. A position
// with no liquidity and nothing owed is burned.
func (e *Engine) Collect(_ context.Context, positionID uint64, recipient domain.Address) (*uint256.Int, *uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[positionID]
	if !ok {
		return nil, nil, amm.ErrPositionNotFound
	}

	owedToken, owedBase := e.orient(pos.pool, pos.owed0, pos.owed1)
	owedToken = new(uint256.Int).Set(owedToken)
	owedBase = new(uint256.Int).Set(owedBase)

	if err := e.tokenLedger.Transfer(e.vault, recipient, owedToken); err != nil {
		return nil, nil, fmt.Errorf("pay token: %w", err)
	}
	if err := e.baseLedger.Transfer(e.vault, recipient, owedBase); err != nil {
		_ = e.tokenLedger.Transfer(recipient, e.vault, owedToken)
		return nil, nil, fmt.Errorf("pay base asset: %w", err)
	}

	pos.owed0.Clear()
	pos.owed1.Clear()
	if pos.liquidity.IsZero() {
		delete(e.positions, positionID)
	}

	return owedToken, owedBase, nil
}

// Approve grants an operator control over a position identifier.
func (e *Engine) Approve(_ context.Context, positionID uint64, operator domain.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[positionID]
	if !ok {
		return amm.ErrPositionNotFound
	}
	pos.operator = operator
	return nil
}

// PositionLiquidity reports the remaining liquidity of a position, for
// inspection in tests and diagnostics.
func (e *Engine) PositionLiquidity(positionID uint64) (*uint256.Int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, ok := e.positions[positionID]
	if !ok {
		return nil, false
	}
	return new(uint256.Int).Set(pos.liquidity), true
}

// orient maps (token, base) amounts to canonical (amount0, amount1) order,
// and back. The mapping is its own inverse.
func (e *Engine) orient(p *pool, amountToken, amountBase *uint256.Int) (*uint256.Int, *uint256.Int) {
	if p.token0 == e.tokenAsset {
		return amountToken, amountBase
	}
	return amountBase, amountToken
}

// clamp caps v at limit in place. Floor rounding keeps computed amounts at
// or below the offered ones, but never above.
func clamp(v, limit *uint256.Int) {
	if v.Gt(limit) {
		v.Set(limit)
	}
}

func poolKey(t0, t1 domain.Address, fee amm.FeeTier) string {
	return fmt.Sprintf("%s|%s|%d", t0, t1, fee)
}

// deriveAddress hashes the inputs into a deterministic 32-byte identifier,
// bumping a trailing seed until the result is off the ed25519 curve. Derived
// addresses therefore never collide with wallet accounts.
func deriveAddress(kind string, t0, t1 domain.Address, fee amm.FeeTier) domain.Address {
	var feeBytes [4]byte
	binary.BigEndian.PutUint32(feeBytes[:], uint32(fee))
	for bump := byte(0); ; bump++ {
		h := sha256.New()
		h.Write([]byte(kind))
		h.Write([]byte(t0))
		h.Write([]byte(t1))
		h.Write(feeBytes[:])
		h.Write([]byte{bump})
		addr, _ := domain.AddressFromBytes(h.Sum(nil))
		if !addr.OnCurve() {
			return addr
		}
	}
}
