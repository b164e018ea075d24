// Package token models the fungible asset collaborator consumed by the
// pool, the adapter and the OTC manager. The interface mirrors ERC-20
// transfer semantics; the in-memory Ledger is the implementation used by an
// off-chain deployment and by tests.
package token

import (
	"sync"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrZeroAddress           = errors.Register("token", 2, "zero address")
	ErrInsufficientBalance   = errors.Register("token", 3, "insufficient balance")
	ErrInsufficientAllowance = errors.Register("token", 4, "insufficient allowance")
	ErrInvalidAmount         = errors.Register("token", 5, "invalid amount")
)

// Token is the fungible asset transfer collaborator. All operations are
// atomic: a returned error implies no balance or allowance changed.
type Token interface {
	Symbol() string
	BalanceOf(account common.Address) math.Int
	// Transfer moves amount from one account to another. The ledger service
	// is the custodian of record, so the sending account is explicit.
	Transfer(from, to common.Address, amount math.Int) error
	// Approve lets spender move up to amount out of owner via TransferFrom.
	Approve(owner, spender common.Address, amount math.Int) error
	Allowance(owner, spender common.Address) math.Int
	// TransferFrom moves amount from `from` to `to`, spending spender's
	// allowance granted by `from`.
	TransferFrom(spender, from, to common.Address, amount math.Int) error
}

// Ledger is an in-memory Token.
type Ledger struct {
	mu         sync.RWMutex
	symbol     string
	balances   map[common.Address]math.Int
	allowances map[common.Address]map[common.Address]math.Int
}

var _ Token = &Ledger{}

func NewLedger(symbol string) *Ledger {
	return &Ledger{
		symbol:     symbol,
		balances:   map[common.Address]math.Int{},
		allowances: map[common.Address]map[common.Address]math.Int{},
	}
}

func (l *Ledger) Symbol() string { return l.symbol }

func (l *Ledger) BalanceOf(account common.Address) math.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceOf(account)
}

func (l *Ledger) balanceOf(account common.Address) math.Int {
	if b, ok := l.balances[account]; ok {
		return b
	}
	return math.ZeroInt()
}

// Mint credits newly issued units to an account. Used for genesis funding
// and in tests; there is no supply cap.
func (l *Ledger) Mint(to common.Address, amount math.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[to] = l.balanceOf(to).Add(amount)
	return nil
}

func (l *Ledger) Transfer(from, to common.Address, amount math.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transfer(from, to, amount)
}

func (l *Ledger) transfer(from, to common.Address, amount math.Int) error {
	if from == (common.Address{}) || to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	balance := l.balanceOf(from)
	if balance.LT(amount) {
		return errors.Wrapf(ErrInsufficientBalance, "%s has %s %s, needs %s",
			from.Hex(), balance, l.symbol, amount)
	}
	l.balances[from] = balance.Sub(amount)
	l.balances[to] = l.balanceOf(to).Add(amount)
	return nil
}

func (l *Ledger) Approve(owner, spender common.Address, amount math.Int) error {
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	spenders, ok := l.allowances[owner]
	if !ok {
		spenders = map[common.Address]math.Int{}
		l.allowances[owner] = spenders
	}
	spenders[spender] = amount
	return nil
}

func (l *Ledger) Allowance(owner, spender common.Address) math.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.allowances[owner][spender]; ok {
		return a
	}
	return math.ZeroInt()
}

func (l *Ledger) TransferFrom(spender, from, to common.Address, amount math.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	allowance, ok := l.allowances[from][spender]
	if !ok {
		allowance = math.ZeroInt()
	}
	if allowance.LT(amount) {
		return errors.Wrapf(ErrInsufficientAllowance, "%s allowed %s %s by %s, needs %s",
			spender.Hex(), allowance, l.symbol, from.Hex(), amount)
	}
	if err := l.transfer(from, to, amount); err != nil {
		return err
	}
	l.allowances[from][spender] = allowance.Sub(amount)
	return nil
}
