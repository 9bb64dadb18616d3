package sim

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aw-token-ledger/internal/amm"
	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/ledger"
)

func testAccount(t *testing.T, seed byte) domain.Address {
	t.Helper()
	var s [ed25519.SeedSize]byte
	s[0] = seed
	pub := ed25519.NewKeyFromSeed(s[:]).Public().(ed25519.PublicKey)
	addr, err := domain.AddressFromBytes(pub)
	require.NoError(t, err)
	return addr
}

type fixture struct {
	engine *Engine
	token  *ledger.Ledger
	base   *ledger.Ledger
	asset  domain.Address
	weth   domain.Address
	payer  domain.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	asset := testAccount(t, 10)
	weth := testAccount(t, 11)
	payer := testAccount(t, 12)

	token := ledger.New(nil)
	base := ledger.New(new(uint256.Int).SetAllOne())

	require.NoError(t, token.Mint(payer, uint256.MustFromDecimal("1000000000000000000000000000")))
	require.NoError(t, base.Mint(payer, uint256.MustFromDecimal("1000000000000000000000")))

	return &fixture{
		engine: New(asset, token, weth, base),
		token:  token,
		base:   base,
		asset:  asset,
		weth:   weth,
		payer:  payer,
	}
}

func (f *fixture) createInitializedPool(t *testing.T) domain.Address {
	t.Helper()
	ctx := context.Background()
	pool, err := f.engine.GetOrCreatePool(ctx, f.asset, f.weth, amm.FeeTier3000)
	require.NoError(t, err)
	require.NoError(t, f.engine.InitializePrice(ctx, pool, new(uint256.Int).Set(amm.Q96)))
	return pool
}

func TestGetOrCreatePool_Deterministic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p1, err := f.engine.GetOrCreatePool(ctx, f.asset, f.weth, amm.FeeTier3000)
	require.NoError(t, err)
	assert.False(t, p1.IsZero())

	// Same pair in either order resolves to the same pool.
	p2, err := f.engine.GetOrCreatePool(ctx, f.weth, f.asset, amm.FeeTier3000)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)

	// A different fee tier is a different pool.
	p3, err := f.engine.GetOrCreatePool(ctx, f.asset, f.weth, amm.FeeTier500)
	require.NoError(t, err)
	assert.NotEqual(t, p1, p3)

	_, err = f.engine.GetOrCreatePool(ctx, f.asset, f.weth, amm.FeeTier(42))
	assert.ErrorIs(t, err, amm.ErrInvalidFeeTier)
}

func TestInitializePrice_Once(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pool := f.createInitializedPool(t)

	err := f.engine.InitializePrice(ctx, pool, new(uint256.Int).Set(amm.Q96))
	assert.ErrorIs(t, err, amm.ErrPriceAlreadySet)

	err = f.engine.InitializePrice(ctx, testAccount(t, 99), new(uint256.Int).Set(amm.Q96))
	assert.ErrorIs(t, err, amm.ErrPoolNotFound)

	err = f.engine.InitializePrice(ctx, pool, uint256.NewInt(0))
	assert.ErrorIs(t, err, amm.ErrInvalidPrice)
}

func TestMintPosition_MovesFundsAndIssuesIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createInitializedPool(t)

	params := amm.MintParams{
		Token:       f.asset,
		Base:        f.weth,
		FeeTier:     amm.FeeTier3000,
		TickLower:   -887220,
		TickUpper:   887220,
		AmountToken: uint256.MustFromDecimal("1000000000000000000000000"),
		AmountBase:  uint256.MustFromDecimal("1000000000000000000"),
		Payer:       f.payer,
		Recipient:   f.payer,
	}

	balTokenBefore := f.token.BalanceOf(f.payer)
	balBaseBefore := f.base.BalanceOf(f.payer)

	res, err := f.engine.MintPosition(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.PositionID)
	assert.False(t, res.Liquidity.IsZero())
	assert.False(t, res.AmountTokenUsed.Gt(params.AmountToken))
	assert.False(t, res.AmountBaseUsed.Gt(params.AmountBase))

	// Used amounts moved payer -> vault.
	wantToken := new(uint256.Int).Sub(balTokenBefore, res.AmountTokenUsed)
	assert.Equal(t, wantToken, f.token.BalanceOf(f.payer))
	assert.Equal(t, res.AmountTokenUsed, f.token.BalanceOf(f.engine.Vault()))
	wantBase := new(uint256.Int).Sub(balBaseBefore, res.AmountBaseUsed)
	assert.Equal(t, wantBase, f.base.BalanceOf(f.payer))

	// Identifiers are issued monotonically.
	res2, err := f.engine.MintPosition(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res2.PositionID)
}

func TestMintPosition_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	params := amm.MintParams{
		Token:       f.asset,
		Base:        f.weth,
		FeeTier:     amm.FeeTier3000,
		TickLower:   -887220,
		TickUpper:   887220,
		AmountToken: uint256.NewInt(1000),
		AmountBase:  uint256.NewInt(1000),
		Payer:       f.payer,
		Recipient:   f.payer,
	}

	// No pool yet.
	_, err := f.engine.MintPosition(ctx, params)
	assert.ErrorIs(t, err, amm.ErrPoolNotFound)

	pool, err := f.engine.GetOrCreatePool(ctx, f.asset, f.weth, amm.FeeTier3000)
	require.NoError(t, err)

	// Pool exists but price not set.
	_, err = f.engine.MintPosition(ctx, params)
	assert.ErrorIs(t, err, amm.ErrInvalidPrice)

	require.NoError(t, f.engine.InitializePrice(ctx, pool, new(uint256.Int).Set(amm.Q96)))

	// Bad tick range.
	bad := params
	bad.TickLower, bad.TickUpper = 60, -60
	_, err = f.engine.MintPosition(ctx, bad)
	assert.ErrorIs(t, err, amm.ErrInvalidTickRange)

	// Nothing offered mints nothing.
	empty := params
	empty.AmountToken = uint256.NewInt(0)
	empty.AmountBase = uint256.NewInt(0)
	_, err = f.engine.MintPosition(ctx, empty)
	assert.ErrorIs(t, err, amm.ErrZeroLiquidity)
}

func TestDecreaseAndCollect_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createInitializedPool(t)

	res, err := f.engine.MintPosition(ctx, amm.MintParams{
		Token:       f.asset,
		Base:        f.weth,
		FeeTier:     amm.FeeTier3000,
		TickLower:   -887220,
		TickUpper:   887220,
		AmountToken: uint256.MustFromDecimal("1000000000000000000000000"),
		AmountBase:  uint256.MustFromDecimal("1000000000000000000"),
		Payer:       f.payer,
		Recipient:   f.payer,
	})
	require.NoError(t, err)

	owedToken, owedBase, err := f.engine.DecreaseLiquidity(ctx, res.PositionID, res.Liquidity)
	require.NoError(t, err)
	assert.False(t, owedToken.IsZero())
	assert.False(t, owedBase.IsZero())

	recipient := testAccount(t, 20)
	gotToken, gotBase, err := f.engine.Collect(ctx, res.PositionID, recipient)
	require.NoError(t, err)
	assert.Equal(t, owedToken, gotToken)
	assert.Equal(t, owedBase, gotBase)
	assert.Equal(t, gotToken, f.token.BalanceOf(recipient))
	assert.Equal(t, gotBase, f.base.BalanceOf(recipient))

	// Fully drained position is burned.
	_, _, err = f.engine.Collect(ctx, res.PositionID, recipient)
	assert.ErrorIs(t, err, amm.ErrPositionNotFound)

	// Collected amounts never exceed what the mint consumed.
	assert.False(t, gotToken.Gt(res.AmountTokenUsed))
	assert.False(t, gotBase.Gt(res.AmountBaseUsed))
}

func TestDecreaseLiquidity_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createInitializedPool(t)

	_, _, err := f.engine.DecreaseLiquidity(ctx, 99, uint256.NewInt(1))
	assert.ErrorIs(t, err, amm.ErrPositionNotFound)

	res, err := f.engine.MintPosition(ctx, amm.MintParams{
		Token:       f.asset,
		Base:        f.weth,
		FeeTier:     amm.FeeTier3000,
		TickLower:   -887220,
		TickUpper:   887220,
		AmountToken: uint256.NewInt(1_000_000),
		AmountBase:  uint256.NewInt(1_000_000),
		Payer:       f.payer,
		Recipient:   f.payer,
	})
	require.NoError(t, err)

	over := new(uint256.Int).AddUint64(res.Liquidity, 1)
	_, _, err = f.engine.DecreaseLiquidity(ctx, res.PositionID, over)
	assert.Error(t, err)

	liq, ok := f.engine.PositionLiquidity(res.PositionID)
	require.True(t, ok)
	assert.Equal(t, res.Liquidity, liq)
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createInitializedPool(t)

	err := f.engine.Approve(ctx, 1, testAccount(t, 30))
	assert.ErrorIs(t, err, amm.ErrPositionNotFound)

	res, err := f.engine.MintPosition(ctx, amm.MintParams{
		Token:       f.asset,
		Base:        f.weth,
		FeeTier:     amm.FeeTier3000,
		TickLower:   -60,
		TickUpper:   60,
		AmountToken: uint256.NewInt(1_000_000),
		AmountBase:  uint256.NewInt(1_000_000),
		Payer:       f.payer,
		Recipient:   f.payer,
	})
	require.NoError(t, err)
	assert.NoError(t, f.engine.Approve(ctx, res.PositionID, testAccount(t, 30)))
}
