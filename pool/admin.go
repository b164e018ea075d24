package pool

import (
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rwax/earnpool/auth"
)

// Manager-gated configuration. Setting a value to what it already is rejects
// with ErrNoChange so that misdirected operations are surfaced instead of
// silently absorbed.

// SetWithdrawFeeRate sets the share fee skimmed on RequestWithdraw, as an
// 18-decimal fraction strictly below 1.
func (p *EarnPool) SetWithdrawFeeRate(caller common.Address, rate math.Int) error {
	if err := p.perm.Require(caller, auth.RoleManager); err != nil {
		return err
	}
	if rate.IsNil() || rate.IsNegative() || rate.GTE(ratePrecision) {
		return ErrInvalidAmount
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.store.PoolState()
	if err != nil {
		return err
	}
	if state.WithdrawFeeRate.Equal(rate) {
		return ErrNoChange
	}
	state.WithdrawFeeRate = rate
	return p.store.SetPoolState(state)
}

// SetFeeReceiver sets the account receiving withdrawal fee shares. The zero
// address disables the fee.
func (p *EarnPool) SetFeeReceiver(caller, receiver common.Address) error {
	if err := p.perm.Require(caller, auth.RoleManager); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.store.PoolState()
	if err != nil {
		return err
	}
	if state.FeeReceiver == receiver {
		return ErrNoChange
	}
	state.FeeReceiver = receiver
	return p.store.SetPoolState(state)
}

// AddWhitelist permits account as a deposit receiver. Once the whitelist is
// non-empty, only whitelisted receivers may be deposited to.
func (p *EarnPool) AddWhitelist(caller, account common.Address) error {
	if err := p.perm.Require(caller, auth.RoleManager); err != nil {
		return err
	}
	if account == (common.Address{}) {
		return ErrZeroAddress
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ok, err := p.store.IsWhitelisted(account)
	if err != nil {
		return err
	}
	if ok {
		return ErrNoChange
	}
	return p.store.SetWhitelisted(account, true)
}

// RemoveWhitelist removes account from the deposit whitelist.
func (p *EarnPool) RemoveWhitelist(caller, account common.Address) error {
	if err := p.perm.Require(caller, auth.RoleManager); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ok, err := p.store.IsWhitelisted(account)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoChange
	}
	return p.store.SetWhitelisted(account, false)
}

// Pause halts the user-facing entry points: Deposit, RequestWithdraw and
// ClaimWithdraw. Adapter entry points stay live so in-flight settlement can
// complete.
func (p *EarnPool) Pause(caller common.Address) error {
	return p.setPaused(caller, true)
}

// Unpause resumes the user-facing entry points.
func (p *EarnPool) Unpause(caller common.Address) error {
	return p.setPaused(caller, false)
}

func (p *EarnPool) setPaused(caller common.Address, paused bool) error {
	if err := p.perm.Require(caller, auth.RolePauser); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.store.PoolState()
	if err != nil {
		return err
	}
	if state.Paused == paused {
		return ErrNoChange
	}
	state.Paused = paused
	return p.store.SetPoolState(state)
}
