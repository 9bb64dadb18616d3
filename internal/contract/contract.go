// Package contract implements the token contract core: one-time
// initialization, owner-only minting, pool bootstrap, and the liquidity
// add/remove workflow against the external AMM.
//
// Every public operation runs under one mutex per contract instance, so an
// external call can never observe or re-enter an inconsistent intermediate
// state. Mutations that weaken a precondition (escrow debits) commit before
// the external call; mutations that depend on its return value (position
// records, refunds, proceeds) commit after.
package contract

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"aw-token-ledger/internal/amm"
	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/ledger"
	"aw-token-ledger/internal/observability"
	"aw-token-ledger/internal/storage"
)

// Phase is the contract's lifecycle state. Transitions fire at most once,
// in order.
type Phase int32

const (
	PhaseUninitialized Phase = iota
	PhaseInitialized
	PhasePoolBootstrapped
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseInitialized:
		return "initialized"
	case PhasePoolBootstrapped:
		return "pool_bootstrapped"
	default:
		return "unknown"
	}
}

// DefaultTaxShareBps is the share of removal proceeds routed to the tax
// wallet when the deployment does not configure one: 5%.
const DefaultTaxShareBps uint32 = 500

// InitializeParams are the one-time setup inputs. The external service
// addresses are recorded for observers; the live capabilities are injected
// through Options.
type InitializeParams struct {
	Owner           domain.Address
	SwapRouter      domain.Address
	Factory         domain.Address
	PositionManager domain.Address
	TaxWallet       domain.Address
	FeeTier         amm.FeeTier
}

// Options for creating a Contract.
type Options struct {
	// Self is the contract's own account: escrow holder and custodial
	// recipient of minted positions.
	Self       domain.Address
	TokenAsset domain.Address // this token's identifier on the AMM
	BaseAsset  domain.Address // paired base asset

	// Ledgers
	TokenLedger *ledger.Ledger
	BaseLedger  *ledger.Ledger

	// Stores
	Positions storage.PositionStore
	Events    storage.EventStore

	// External AMM capabilities
	Factory         amm.Factory
	PositionManager amm.PositionManager

	// TaxShareBps is the removal-proceeds share routed to the tax wallet,
	// in basis points. Zero uses DefaultTaxShareBps.
	TaxShareBps uint32

	// Notify, when set, receives a copy of every appended event.
	Notify func(*domain.Event)

	// Now returns the current unix timestamp in milliseconds. Defaults to
	// the wall clock.
	Now func() int64

	Verbose bool
}

// Contract is the token contract instance. Safe for concurrent use.
type Contract struct {
	mu    sync.Mutex
	phase Phase

	// Set once by Initialize, immutable after.
	owner           domain.Address
	swapRouter      domain.Address
	factoryAddr     domain.Address
	positionMgrAddr domain.Address
	taxWallet       domain.Address
	feeTier         amm.FeeTier

	// Set once by CreatePool, immutable after.
	poolAddress domain.Address

	self       domain.Address
	tokenAsset domain.Address
	baseAsset  domain.Address

	tokens    *ledger.Ledger
	base      *ledger.Ledger
	positions storage.PositionStore
	events    storage.EventStore
	factory   amm.Factory
	manager   amm.PositionManager

	taxShareBps uint32
	notify      func(*domain.Event)
	now         func() int64
	verbose     bool
}

// New creates a contract from its injected dependencies.
func New(opts Options) *Contract {
	now := opts.Now
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	taxShare := opts.TaxShareBps
	if taxShare == 0 {
		taxShare = DefaultTaxShareBps
	}

	return &Contract{
		phase:       PhaseUninitialized,
		self:        opts.Self,
		tokenAsset:  opts.TokenAsset,
		baseAsset:   opts.BaseAsset,
		tokens:      opts.TokenLedger,
		base:        opts.BaseLedger,
		positions:   opts.Positions,
		events:      opts.Events,
		factory:     opts.Factory,
		manager:     opts.PositionManager,
		taxShareBps: taxShare,
		notify:      opts.Notify,
		now:         now,
		verbose:     opts.Verbose,
	}
}

// Initialize performs the one-time setup. Any caller may invoke it; the
// second and later calls fail with ErrAlreadyInitialized.
func (c *Contract) Initialize(ctx context.Context, params InitializeParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	defer func() { observability.RecordOperation("initialize", err) }()

	if c.phase != PhaseUninitialized {
		err = ErrAlreadyInitialized
		return err
	}
	for _, a := range []domain.Address{
		params.Owner, params.SwapRouter, params.Factory,
		params.PositionManager, params.TaxWallet,
	} {
		if a.IsZero() {
			err = ErrInvalidAccount
			return err
		}
	}
	if !params.FeeTier.Valid() {
		err = amm.ErrInvalidFeeTier
		return err
	}

	c.owner = params.Owner
	c.swapRouter = params.SwapRouter
	c.factoryAddr = params.Factory
	c.positionMgrAddr = params.PositionManager
	c.taxWallet = params.TaxWallet
	c.feeTier = params.FeeTier
	c.phase = PhaseInitialized

	c.logf("initialized: owner=%s taxWallet=%s feeTier=%d", params.Owner, params.TaxWallet, params.FeeTier)

	err = c.appendEvent(ctx, &domain.Event{
		Kind:    domain.EventInitialized,
		Account: params.Owner,
	})
	return err
}

// Phase returns the contract's lifecycle state.
func (c *Contract) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Owner returns the contract owner, zero before initialization.
func (c *Contract) Owner() domain.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// TaxWallet returns the configured tax wallet, zero before initialization.
func (c *Contract) TaxWallet() domain.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.taxWallet
}

// FeeTier returns the fee tier recorded at initialization.
func (c *Contract) FeeTier() amm.FeeTier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feeTier
}

// PoolAddress returns the bootstrapped pool address and whether it is set.
func (c *Contract) PoolAddress() (domain.Address, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poolAddress, c.phase == PhasePoolBootstrapped
}

// MaxSupply returns the immutable supply cap.
func (c *Contract) MaxSupply() *uint256.Int {
	return c.tokens.MaxSupply()
}

// TotalIssued returns the total issued token units.
func (c *Contract) TotalIssued() *uint256.Int {
	return c.tokens.TotalIssued()
}

// BalanceOf returns an account's token balance.
func (c *Contract) BalanceOf(a domain.Address) *uint256.Int {
	return c.tokens.BalanceOf(a)
}

// Allowance returns the spender's remaining allowance over the owner's
// balance.
func (c *Contract) Allowance(owner, spender domain.Address) *uint256.Int {
	return c.tokens.Allowance(owner, spender)
}

// Mint issues tokens to a recipient. Owner-only; bounded by the supply cap.
func (c *Contract) Mint(ctx context.Context, caller, to domain.Address, amount *uint256.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	defer func() { observability.RecordOperation("mint", err) }()

	if c.phase == PhaseUninitialized {
		err = ErrNotInitialized
		return err
	}
	if caller != c.owner {
		err = ErrNotOwner
		return err
	}
	if err = c.tokens.Mint(to, amount); err != nil {
		return err
	}

	observability.SetTotalIssued(float64FromAmount(c.tokens.TotalIssued()))
	c.logf("mint: to=%s amount=%s", to, amount)

	err = c.appendEvent(ctx, &domain.Event{
		Kind:        domain.EventMint,
		Account:     to,
		AmountToken: new(uint256.Int).Set(amount),
	})
	return err
}

// Transfer moves tokens from the caller to a recipient.
func (c *Contract) Transfer(caller, to domain.Address, amount *uint256.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseUninitialized {
		return ErrNotInitialized
	}
	return c.tokens.Transfer(caller, to, amount)
}

// Approve sets the spender's allowance over the caller's balance.
func (c *Contract) Approve(caller, spender domain.Address, amount *uint256.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseUninitialized {
		return ErrNotInitialized
	}
	return c.tokens.Approve(caller, spender, amount)
}

// appendEvent stamps, appends, and fans out an event. Caller must hold c.mu.
// Append failures surface to the caller; prior state changes stand, since
// the log is an observer surface rebuilt by replay, not the source of truth.
func (c *Contract) appendEvent(ctx context.Context, e *domain.Event) error {
	e.Timestamp = c.now()
	if err := c.events.Append(ctx, e); err != nil {
		return fmt.Errorf("append %s event: %w", e.Kind, err)
	}
	observability.RecordEventAppended(string(e.Kind))
	if c.notify != nil {
		c.notify(e.Clone())
	}
	return nil
}

func (c *Contract) logf(format string, args ...interface{}) {
	if c.verbose {
		log.Printf("[contract] "+format, args...)
	}
}

// float64FromAmount renders an amount for gauge export. Precision loss is
// acceptable for monitoring.
func float64FromAmount(v *uint256.Int) float64 {
	return v.Float64()
}
