// Package ledger implements the supply ledger: cap-bounded issuance,
// balances, and spender allowances for a single asset.
package ledger

import (
	"errors"
	"sync"

	"github.com/holiman/uint256"

	"aw-token-ledger/internal/domain"
)

// Ledger errors.
var (
	// ErrSupplyCapExceeded is returned when a mint would push total issuance
	// past the immutable maximum supply.
	ErrSupplyCapExceeded = errors.New("supply cap exceeded")

	// ErrInvalidRecipient is returned when the recipient is the null account.
	ErrInvalidRecipient = errors.New("invalid recipient")

	// ErrInsufficientBalance is returned when an account's balance cannot
	// cover a transfer.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance is returned when a spender's allowance cannot
	// cover a delegated transfer.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrInvalidAmount is returned for nil amounts.
	ErrInvalidAmount = errors.New("invalid amount")
)

// DefaultMaxSupply returns the default supply cap: 1e9 whole tokens at 18
// decimals (1e27 base units).
func DefaultMaxSupply() *uint256.Int {
	cap := uint256.NewInt(1_000_000_000)
	return cap.Mul(cap, new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18)))
}

type allowanceKey struct {
	owner   domain.Address
	spender domain.Address
}

// Ledger tracks balances and total issuance against an immutable maximum.
// All amounts are unsigned 256-bit integers; the sum of balances always
// equals total issuance. Safe for concurrent use.
type Ledger struct {
	mu          sync.RWMutex
	maxSupply   *uint256.Int
	totalIssued *uint256.Int
	balances    map[domain.Address]*uint256.Int
	allowances  map[allowanceKey]*uint256.Int
}

// New creates a ledger with the given immutable supply cap.
// A nil cap uses DefaultMaxSupply.
func New(maxSupply *uint256.Int) *Ledger {
	cap := DefaultMaxSupply()
	if maxSupply != nil {
		cap = new(uint256.Int).Set(maxSupply)
	}
	return &Ledger{
		maxSupply:   cap,
		totalIssued: uint256.NewInt(0),
		balances:    make(map[domain.Address]*uint256.Int),
		allowances:  make(map[allowanceKey]*uint256.Int),
	}
}

// MaxSupply returns the immutable supply cap.
func (l *Ledger) MaxSupply() *uint256.Int {
	return new(uint256.Int).Set(l.maxSupply)
}

// TotalIssued returns the total issued units.
func (l *Ledger) TotalIssued() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(uint256.Int).Set(l.totalIssued)
}

// BalanceOf returns the balance of an account. Unknown accounts have zero.
func (l *Ledger) BalanceOf(a domain.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.balances[a]; ok {
		return new(uint256.Int).Set(b)
	}
	return uint256.NewInt(0)
}

// Mint issues amount units to the recipient. Fails with ErrSupplyCapExceeded
// if issuance would exceed the cap, leaving the ledger unchanged.
func (l *Ledger) Mint(to domain.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}
	if to.IsZero() {
		return ErrInvalidRecipient
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next, overflow := new(uint256.Int).AddOverflow(l.totalIssued, amount)
	if overflow || next.Gt(l.maxSupply) {
		return ErrSupplyCapExceeded
	}

	l.totalIssued = next
	l.credit(to, amount)
	return nil
}

// Transfer moves amount units from one account to another.
func (l *Ledger) Transfer(from, to domain.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}
	if to.IsZero() {
		return ErrInvalidRecipient
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, to, amount)
}

// Approve sets the spender's allowance over the owner's balance.
func (l *Ledger) Approve(owner, spender domain.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}
	if spender.IsZero() {
		return ErrInvalidRecipient
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowances[allowanceKey{owner, spender}] = new(uint256.Int).Set(amount)
	return nil
}

// Allowance returns the spender's remaining allowance over the owner's balance.
func (l *Ledger) Allowance(owner, spender domain.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.allowances[allowanceKey{owner, spender}]; ok {
		return new(uint256.Int).Set(a)
	}
	return uint256.NewInt(0)
}

// TransferFrom moves amount units from the owner to the recipient on behalf
// of the spender, consuming allowance. The allowance check runs before the
// balance check so callers can distinguish the two failures.
func (l *Ledger) TransferFrom(spender, from, to domain.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}
	if to.IsZero() {
		return ErrInvalidRecipient
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := allowanceKey{from, spender}
	allowed, ok := l.allowances[key]
	if !ok || allowed.Lt(amount) {
		return ErrInsufficientAllowance
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	allowed.Sub(allowed, amount)
	return nil
}

// move transfers between balances. Caller must hold l.mu.
// Zero-amount moves succeed without touching state.
func (l *Ledger) move(from, to domain.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	bal, ok := l.balances[from]
	if !ok || bal.Lt(amount) {
		return ErrInsufficientBalance
	}
	bal.Sub(bal, amount)
	l.credit(to, amount)
	return nil
}

// credit adds to a balance. Caller must hold l.mu.
func (l *Ledger) credit(to domain.Address, amount *uint256.Int) {
	if b, ok := l.balances[to]; ok {
		b.Add(b, amount)
		return
	}
	l.balances[to] = new(uint256.Int).Set(amount)
}
