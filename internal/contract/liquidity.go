package contract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"aw-token-ledger/internal/amm"
	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/ledger"
	"aw-token-ledger/internal/observability"
	"aw-token-ledger/internal/storage"
)

const bpsDenominator = 10_000

// AddLiquidity mints a new AMM position funded by the caller and records it
// in the registry with the contract as custodial recipient.
//
// The caller must have approved the contract for tokenAmount beforehand;
// baseAmount is the attached base-asset value and moves with the call. Both
// are escrowed into the contract account before the external mint and
// credited back in full if it fails. Whatever the mint leaves unused is
// refunded, so no funds are ever stranded in the contract.
func (c *Contract) AddLiquidity(ctx context.Context, caller domain.Address, tokenAmount *uint256.Int, tickLower, tickUpper int32, baseAmount *uint256.Int) (*domain.Position, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	defer func() { observability.RecordOperation("add_liquidity", err) }()

	if c.phase != PhasePoolBootstrapped {
		err = ErrPoolNotBootstrapped
		return nil, err
	}
	if caller.IsZero() {
		err = ErrInvalidAccount
		return nil, err
	}
	if tokenAmount == nil || baseAmount == nil {
		err = ledger.ErrInvalidAmount
		return nil, err
	}
	if err = amm.CheckTickRange(tickLower, tickUpper, c.feeTier); err != nil {
		return nil, err
	}

	// Escrow: both legs move to the contract account before the external
	// call. The token leg spends the caller's prior allowance; the base leg
	// is the attached value.
	if err = c.tokens.TransferFrom(c.self, caller, c.self, tokenAmount); err != nil {
		return nil, err
	}
	if err = c.base.Transfer(caller, c.self, baseAmount); err != nil {
		c.refund(caller, tokenAmount, nil)
		return nil, err
	}

	start := time.Now()
	res, mintErr := c.manager.MintPosition(ctx, amm.MintParams{
		Token:       c.tokenAsset,
		Base:        c.baseAsset,
		FeeTier:     c.feeTier,
		TickLower:   tickLower,
		TickUpper:   tickUpper,
		AmountToken: tokenAmount,
		AmountBase:  baseAmount,
		Payer:       c.self,
		Recipient:   c.self,
	})
	observability.ObserveExternalCall("mint_position", time.Since(start).Seconds())
	if mintErr != nil {
		c.refund(caller, tokenAmount, baseAmount)
		err = fmt.Errorf("mint position: %w", mintErr)
		return nil, err
	}

	// Refund the unused remainder of both legs.
	unusedToken := new(uint256.Int).Sub(tokenAmount, res.AmountTokenUsed)
	unusedBase := new(uint256.Int).Sub(baseAmount, res.AmountBaseUsed)
	c.refund(caller, unusedToken, unusedBase)

	p := &domain.Position{
		ID:          res.PositionID,
		Owner:       caller,
		Liquidity:   new(uint256.Int).Set(res.Liquidity),
		TickLower:   tickLower,
		TickUpper:   tickUpper,
		AmountToken: new(uint256.Int).Set(res.AmountTokenUsed),
		AmountBase:  new(uint256.Int).Set(res.AmountBaseUsed),
		CreatedAt:   c.now(),
	}
	if err = c.positions.Insert(ctx, p); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			err = ErrDuplicatePosition
		}
		return nil, err
	}
	observability.AddOpenPositions(1)

	c.logf("add liquidity: owner=%s position=%d liquidity=%s", caller, p.ID, p.Liquidity)

	err = c.appendEvent(ctx, &domain.Event{
		Kind:        domain.EventAddLiquidity,
		Account:     caller,
		PositionID:  p.ID,
		Liquidity:   new(uint256.Int).Set(p.Liquidity),
		AmountToken: new(uint256.Int).Set(p.AmountToken),
		AmountBase:  new(uint256.Int).Set(p.AmountBase),
	})
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// RemoveLiquidity closes a position owned by the caller: full recorded
// liquidity only. Proceeds collect into the contract, split between the tax
// wallet (floor of the configured share) and the caller, and the registry
// entry is deleted. If either external step fails the registry entry stays
// untouched.
func (c *Contract) RemoveLiquidity(ctx context.Context, caller domain.Address, positionID uint64, liquidity *uint256.Int) (amountToken, amountBase *uint256.Int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	defer func() { observability.RecordOperation("remove_liquidity", err) }()

	if c.phase != PhasePoolBootstrapped {
		err = ErrPoolNotBootstrapped
		return nil, nil, err
	}
	if liquidity == nil {
		err = ledger.ErrInvalidAmount
		return nil, nil, err
	}

	p, getErr := c.positions.GetByID(ctx, positionID)
	if getErr != nil {
		if errors.Is(getErr, storage.ErrNotFound) {
			err = ErrUnknownPosition
		} else {
			err = fmt.Errorf("get position %d: %w", positionID, getErr)
		}
		return nil, nil, err
	}
	if p.Owner != caller {
		err = ErrNotPositionOwner
		return nil, nil, err
	}
	if !liquidity.Eq(p.Liquidity) {
		err = ErrPartialRemoval
		return nil, nil, err
	}

	start := time.Now()
	_, _, decErr := c.manager.DecreaseLiquidity(ctx, positionID, liquidity)
	observability.ObserveExternalCall("decrease_liquidity", time.Since(start).Seconds())
	if decErr != nil {
		err = fmt.Errorf("decrease liquidity: %w", decErr)
		return nil, nil, err
	}

	start = time.Now()
	gotToken, gotBase, colErr := c.manager.Collect(ctx, positionID, c.self)
	observability.ObserveExternalCall("collect", time.Since(start).Seconds())
	if colErr != nil {
		err = fmt.Errorf("collect: %w", colErr)
		return nil, nil, err
	}

	// Split proceeds: tax share floors, the caller takes the remainder, so
	// the full collected amount is always distributed.
	taxToken, callerToken := c.splitTax(gotToken)
	taxBase, callerBase := c.splitTax(gotBase)

	if err = c.tokens.Transfer(c.self, c.taxWallet, taxToken); err != nil {
		return nil, nil, err
	}
	if err = c.tokens.Transfer(c.self, caller, callerToken); err != nil {
		return nil, nil, err
	}
	if err = c.base.Transfer(c.self, c.taxWallet, taxBase); err != nil {
		return nil, nil, err
	}
	if err = c.base.Transfer(c.self, caller, callerBase); err != nil {
		return nil, nil, err
	}

	if err = c.positions.Delete(ctx, positionID); err != nil {
		err = fmt.Errorf("delete position %d: %w", positionID, err)
		return nil, nil, err
	}
	observability.AddOpenPositions(-1)

	c.logf("remove liquidity: owner=%s position=%d liquidity=%s", caller, positionID, liquidity)

	err = c.appendEvent(ctx, &domain.Event{
		Kind:        domain.EventRemoveLiquidity,
		Account:     caller,
		PositionID:  positionID,
		Liquidity:   new(uint256.Int).Set(liquidity),
		AmountToken: new(uint256.Int).Set(gotToken),
		AmountBase:  new(uint256.Int).Set(gotBase),
	})
	if err != nil {
		return nil, nil, err
	}
	return callerToken, callerBase, nil
}

// refund credits escrowed amounts back to the caller. Nil or zero legs are
// skipped. Escrow credits cannot fail: the contract account holds at least
// what was just debited into it.
func (c *Contract) refund(caller domain.Address, tokenAmount, baseAmount *uint256.Int) {
	if tokenAmount != nil && !tokenAmount.IsZero() {
		if err := c.tokens.Transfer(c.self, caller, tokenAmount); err != nil {
			c.logf("token refund failed: caller=%s amount=%s err=%v", caller, tokenAmount, err)
		}
	}
	if baseAmount != nil && !baseAmount.IsZero() {
		if err := c.base.Transfer(c.self, caller, baseAmount); err != nil {
			c.logf("base refund failed: caller=%s amount=%s err=%v", caller, baseAmount, err)
		}
	}
}

// splitTax divides an amount into the tax wallet's floored share and the
// caller's remainder.
func (c *Contract) splitTax(total *uint256.Int) (tax, rest *uint256.Int) {
	tax = new(uint256.Int).Mul(total, uint256.NewInt(uint64(c.taxShareBps)))
	tax.Div(tax, uint256.NewInt(bpsDenominator))
	rest = new(uint256.Int).Sub(total, tax)
	return tax, rest
}
