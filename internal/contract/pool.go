package contract

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"aw-token-ledger/internal/amm"
	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/observability"
)

// CreatePool bootstraps the trading pool exactly once: canonical pair
// ordering, factory get-or-create, then price initialization at the caller's
// chosen sqrt price. Irreversible; there is no re-bootstrap or price-reset
// path. The pool address commits only after both external calls succeed, so
// a failed bootstrap leaves the contract re-bootstrappable.
func (c *Contract) CreatePool(ctx context.Context, caller domain.Address, sqrtPriceX96 *uint256.Int) (domain.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	defer func() { observability.RecordOperation("create_pool", err) }()

	switch c.phase {
	case PhaseUninitialized:
		err = ErrNotInitialized
		return domain.ZeroAddress, err
	case PhasePoolBootstrapped:
		err = ErrPoolAlreadyExists
		return domain.ZeroAddress, err
	}
	if err = amm.CheckSqrtPrice(sqrtPriceX96); err != nil {
		return domain.ZeroAddress, err
	}

	token0, token1 := amm.SortPair(c.tokenAsset, c.baseAsset)

	start := time.Now()
	pool, err := c.factory.GetOrCreatePool(ctx, token0, token1, c.feeTier)
	observability.ObserveExternalCall("get_or_create_pool", time.Since(start).Seconds())
	if err != nil {
		err = fmt.Errorf("get or create pool: %w", err)
		return domain.ZeroAddress, err
	}

	start = time.Now()
	err = c.factory.InitializePrice(ctx, pool, sqrtPriceX96)
	observability.ObserveExternalCall("initialize_price", time.Since(start).Seconds())
	if err != nil {
		err = fmt.Errorf("initialize price: %w", err)
		return domain.ZeroAddress, err
	}

	c.poolAddress = pool
	c.phase = PhasePoolBootstrapped

	c.logf("pool created: pool=%s sqrtPriceX96=%s", pool, sqrtPriceX96)

	err = c.appendEvent(ctx, &domain.Event{
		Kind:         domain.EventPoolCreated,
		Account:      caller,
		Pool:         pool,
		SqrtPriceX96: new(uint256.Int).Set(sqrtPriceX96),
	})
	if err != nil {
		return domain.ZeroAddress, err
	}
	return pool, nil
}
