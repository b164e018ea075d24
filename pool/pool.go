// Package pool implements the share-accounting core of the RWA earn pool:
// share issuance and redemption against a vesting-adjusted exchange rate,
// the batched withdrawal queue with its confirmation watermark, and the
// linear interest vesting schedule.
//
// The pool never custodies the live asset. Deposits are routed straight to
// the settlement adapter; the pool only holds asset that the adapter has
// returned via FinishWithdraw, pending individual claims.
package pool

import (
	"sync"
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rwax/earnpool/auth"
	"github.com/rwax/earnpool/pool/store"
	"github.com/rwax/earnpool/token"
)

// ratePrecision is the denominator for 18-decimal fraction parameters
// (withdrawal fee rate).
var ratePrecision = math.NewInt(1e18)

var one = math.OneInt()

// EarnPool is one pool instance. Every public entry point executes as an
// indivisible unit against the ledger state: a single mutex serializes all
// mutations, and reads take a shared lock so they observe a consistent
// snapshot.
type EarnPool struct {
	mu      sync.RWMutex
	store   store.Store
	perm    auth.Oracle
	asset   token.Token
	self    common.Address
	adapter common.Address

	// Clock returns the current time. Overridable in tests.
	Clock func() time.Time
}

// New returns an EarnPool backed by the given store. self is the pool's
// custody account on the asset ledger.
func New(s store.Store, perm auth.Oracle, asset token.Token, self common.Address) *EarnPool {
	return &EarnPool{
		store: s,
		perm:  perm,
		asset: asset,
		self:  self,
		Clock: time.Now,
	}
}

// Address returns the pool's custody account.
func (p *EarnPool) Address() common.Address {
	return p.self
}

// SetAdapter wires the settlement adapter. Only the adapter account may call
// FinishWithdraw and NotifyInterest, and deposits are forwarded to it.
func (p *EarnPool) SetAdapter(caller, adapter common.Address) error {
	if err := p.perm.Require(caller, auth.RoleAdmin); err != nil {
		return err
	}
	if adapter == (common.Address{}) {
		return ErrZeroAddress
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adapter == adapter {
		return ErrNoChange
	}
	p.adapter = adapter
	return nil
}

// Adapter returns the configured settlement adapter account.
func (p *EarnPool) Adapter() common.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.adapter
}

func (p *EarnPool) now() time.Time {
	return p.Clock()
}

// convertToShares converts an asset amount to shares at the live exchange
// rate. The +1 virtual share/asset offset makes the empty pool an identity
// mapping and blunts first-depositor rate manipulation. Integer division
// truncates toward zero.
func convertToShares(assets math.Int, s store.PoolState, now time.Time) math.Int {
	return assets.Mul(s.TotalSupply.Add(one)).Quo(totalAssets(s, now).Add(one))
}

// convertToAssets is the inverse of convertToShares, with the same offset
// and truncation.
func convertToAssets(shares math.Int, s store.PoolState, now time.Time) math.Int {
	return shares.Mul(totalAssets(s, now).Add(one)).Quo(s.TotalSupply.Add(one))
}

// validateAmounts enforces the exactly-one-authoritative-amount rule shared
// by Deposit and RequestWithdraw.
func validateAmounts(assetAmount, shareAmount math.Int) error {
	if assetAmount.IsNil() || shareAmount.IsNil() {
		return errors.Wrap(ErrInvalidAmount, "amount is nil")
	}
	if assetAmount.IsNegative() || shareAmount.IsNegative() {
		return errors.Wrap(ErrInvalidAmount, "amount is negative")
	}
	if assetAmount.IsZero() && shareAmount.IsZero() {
		return errors.Wrap(ErrInvalidAmount, "both amounts are zero")
	}
	if assetAmount.IsPositive() && shareAmount.IsPositive() {
		return ErrAmbiguousAmount
	}
	return nil
}

// Deposit mints shares to receiver for assets supplied by caller. Exactly
// one of assetAmount and shareAmount must be positive; the other is derived
// at the current exchange rate. The asset moves from caller to the adapter.
func (p *EarnPool) Deposit(caller common.Address, assetAmount, shareAmount math.Int, receiver common.Address) (math.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.store.PoolState()
	if err != nil {
		return math.Int{}, err
	}
	if state.Paused {
		return math.Int{}, ErrPaused
	}
	if receiver == (common.Address{}) {
		return math.Int{}, ErrZeroAddress
	}
	if err := validateAmounts(assetAmount, shareAmount); err != nil {
		return math.Int{}, err
	}
	if p.adapter == (common.Address{}) {
		return math.Int{}, ErrAdapterNotSet
	}

	whitelisted, err := p.store.WhitelistSize()
	if err != nil {
		return math.Int{}, err
	}
	if whitelisted > 0 {
		ok, err := p.store.IsWhitelisted(receiver)
		if err != nil {
			return math.Int{}, err
		}
		if !ok {
			return math.Int{}, errors.Wrapf(ErrNotWhitelisted, "receiver %s", receiver.Hex())
		}
	}

	now := p.now()
	var assets, shares math.Int
	if assetAmount.IsPositive() {
		assets = assetAmount
		shares = convertToShares(assets, state, now)
	} else {
		shares = shareAmount
		assets = convertToAssets(shares, state, now)
	}
	if shares.IsZero() || assets.IsZero() {
		return math.Int{}, errors.Wrap(ErrInvalidAmount, "deposit too small")
	}

	// The asset transfer is the last fallible precondition: if the caller
	// cannot fund the deposit, no ledger state has changed.
	if err := p.asset.Transfer(caller, p.adapter, assets); err != nil {
		return math.Int{}, err
	}

	balance, err := p.store.SharesOf(receiver)
	if err != nil {
		return math.Int{}, err
	}
	if err := p.store.SetShares(receiver, balance.Add(shares)); err != nil {
		return math.Int{}, err
	}

	state.TotalSupply = state.TotalSupply.Add(shares)
	state.UserTotalAssets = state.UserTotalAssets.Add(assets)
	if err := p.store.SetPoolState(state); err != nil {
		return math.Int{}, err
	}
	return shares, nil
}

// RequestWithdraw burns caller's shares and queues a withdrawal owed to
// receiver, assigned to the current batch. If a withdrawal fee is
// configured, the fee portion of the shares is transferred to the fee
// receiver before the remainder is burned, so the queued amount reflects
// the net shares only.
func (p *EarnPool) RequestWithdraw(caller common.Address, assetAmount, shareAmount math.Int, receiver common.Address) (store.WithdrawalRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero store.WithdrawalRequest
	state, err := p.store.PoolState()
	if err != nil {
		return zero, err
	}
	if state.Paused {
		return zero, ErrPaused
	}
	if receiver == (common.Address{}) {
		return zero, ErrZeroAddress
	}
	if err := validateAmounts(assetAmount, shareAmount); err != nil {
		return zero, err
	}

	now := p.now()
	var shares math.Int
	if assetAmount.IsPositive() {
		shares = convertToShares(assetAmount, state, now)
	} else {
		shares = shareAmount
	}
	if shares.IsZero() {
		return zero, errors.Wrap(ErrInvalidAmount, "withdrawal too small")
	}

	balance, err := p.store.SharesOf(caller)
	if err != nil {
		return zero, err
	}
	if balance.LT(shares) {
		return zero, errors.Wrapf(ErrNotEnoughShares, "have %s, need %s", balance, shares)
	}

	feeShares := math.ZeroInt()
	if state.FeeReceiver != (common.Address{}) && state.WithdrawFeeRate.IsPositive() {
		feeShares = shares.Mul(state.WithdrawFeeRate).Quo(ratePrecision)
	}
	burnShares := shares.Sub(feeShares)
	if burnShares.IsZero() {
		return zero, errors.Wrap(ErrInvalidAmount, "withdrawal consumed entirely by fee")
	}

	// Owed amount is computed before any mutation; the fee transfer below
	// moves shares between holders without touching supply or assets, so
	// the rate it was quoted at stays valid.
	owed := convertToAssets(burnShares, state, now)
	batchID := assignBatch(&state, now)

	if err := p.store.SetShares(caller, balance.Sub(shares)); err != nil {
		return zero, err
	}
	if feeShares.IsPositive() {
		feeBalance, err := p.store.SharesOf(state.FeeReceiver)
		if err != nil {
			return zero, err
		}
		if err := p.store.SetShares(state.FeeReceiver, feeBalance.Add(feeShares)); err != nil {
			return zero, err
		}
	}

	request := store.WithdrawalRequest{
		BatchID:      batchID,
		WithdrawTime: now,
		Amount:       owed,
	}
	if err := p.store.AppendRequest(receiver, request); err != nil {
		return zero, err
	}
	if err := p.store.AddBatchTotal(batchID, owed); err != nil {
		return zero, err
	}

	state.TotalSupply = state.TotalSupply.Sub(burnShares)
	state.UserTotalAssets = state.UserTotalAssets.Sub(owed)
	if err := p.store.SetPoolState(state); err != nil {
		return zero, err
	}
	return request, nil
}

// FinishWithdraw is called by the adapter to fund queued withdrawals. The
// amount is pulled from the adapter into pool custody, added to the
// withdrawal quota, and the confirmed-batch watermark advances greedily
// through consecutive batches the quota fully covers. Partial batches are
// never confirmed.
func (p *EarnPool) FinishWithdraw(caller common.Address, amount math.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller == (common.Address{}) || caller != p.adapter {
		return errors.Wrapf(ErrNotAdapter, "caller %s", caller.Hex())
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}
	state, err := p.store.PoolState()
	if err != nil {
		return err
	}

	if err := p.asset.TransferFrom(p.self, p.adapter, p.self, amount); err != nil {
		return err
	}

	state.WithdrawQuota = state.WithdrawQuota.Add(amount)
	for state.ConfirmedBatchID < state.CurrentBatchID {
		next := state.ConfirmedBatchID + 1
		owed, err := p.store.BatchTotal(next)
		if err != nil {
			return err
		}
		if owed.GT(state.WithdrawQuota) {
			break
		}
		state.WithdrawQuota = state.WithdrawQuota.Sub(owed)
		state.ConfirmedBatchID = next
	}
	return p.store.SetPoolState(state)
}

// ClaimWithdraw pays out the withdrawal request at index in account's
// queue, provided its batch is confirmed. The request is removed by
// swap-with-last-and-pop, so remaining indices are unstable and callers
// must re-read the queue after each claim.
func (p *EarnPool) ClaimWithdraw(account common.Address, index int) (math.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.store.PoolState()
	if err != nil {
		return math.Int{}, err
	}
	if state.Paused {
		return math.Int{}, ErrPaused
	}
	if account == (common.Address{}) {
		return math.Int{}, ErrZeroAddress
	}

	queue, err := p.store.Requests(account)
	if err != nil {
		return math.Int{}, err
	}
	if index < 0 || index >= len(queue) {
		return math.Int{}, store.ErrInvalidIndex
	}
	request := queue[index]
	if request.BatchID > state.ConfirmedBatchID {
		return math.Int{}, errors.Wrapf(ErrNotClaimable, "batch %d, confirmed %d",
			request.BatchID, state.ConfirmedBatchID)
	}

	if _, err := p.store.RemoveRequest(account, index); err != nil {
		return math.Int{}, err
	}
	if err := p.asset.Transfer(p.self, account, request.Amount); err != nil {
		return math.Int{}, err
	}
	return request.Amount, nil
}

// NotifyInterest is called by the adapter to report vault interest in pool
// asset terms. Vested rewards are folded into holder principal and a fresh
// 7-day window opens over the unvested remainder plus the new amount.
func (p *EarnPool) NotifyInterest(caller common.Address, amount math.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller == (common.Address{}) || caller != p.adapter {
		return errors.Wrapf(ErrNotAdapter, "caller %s", caller.Hex())
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}
	state, err := p.store.PoolState()
	if err != nil {
		return err
	}
	restartVesting(&state, amount, p.now())
	return p.store.SetPoolState(state)
}

// TotalSupply returns the total share supply.
func (p *EarnPool) TotalSupply() (math.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	state, err := p.store.PoolState()
	if err != nil {
		return math.Int{}, err
	}
	return state.TotalSupply, nil
}

// TotalAssets returns the live asset figure backing the share supply.
func (p *EarnPool) TotalAssets() (math.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	state, err := p.store.PoolState()
	if err != nil {
		return math.Int{}, err
	}
	return totalAssets(state, p.now()), nil
}

// UnvestedAmount returns the reward remainder still vesting.
func (p *EarnPool) UnvestedAmount() (math.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	state, err := p.store.PoolState()
	if err != nil {
		return math.Int{}, err
	}
	return unvestedAmount(state, p.now()), nil
}

// BalanceOf returns account's share balance.
func (p *EarnPool) BalanceOf(account common.Address) (math.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store.SharesOf(account)
}

// ConvertToShares quotes the share amount for assets at the live rate.
func (p *EarnPool) ConvertToShares(assets math.Int) (math.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	state, err := p.store.PoolState()
	if err != nil {
		return math.Int{}, err
	}
	return convertToShares(assets, state, p.now()), nil
}

// ConvertToAssets quotes the asset amount for shares at the live rate.
func (p *EarnPool) ConvertToAssets(shares math.Int) (math.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	state, err := p.store.PoolState()
	if err != nil {
		return math.Int{}, err
	}
	return convertToAssets(shares, state, p.now()), nil
}

// Requests returns account's withdrawal queue.
func (p *EarnPool) Requests(account common.Address) ([]store.WithdrawalRequest, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store.Requests(account)
}

// State returns a copy of the pool's aggregate state.
func (p *EarnPool) State() (store.PoolState, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store.PoolState()
}

// Stats returns aggregate store statistics.
func (p *EarnPool) Stats() (*store.Stats, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store.Stats()
}

// PendingOwed returns the total owed across unconfirmed batches, net of the
// quota already received. This is the amount the adapter still needs to
// return via FinishWithdraw to settle every queued withdrawal.
func (p *EarnPool) PendingOwed() (math.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	state, err := p.store.PoolState()
	if err != nil {
		return math.Int{}, err
	}
	owed := math.ZeroInt()
	for id := state.ConfirmedBatchID + 1; id <= state.CurrentBatchID; id++ {
		total, err := p.store.BatchTotal(id)
		if err != nil {
			return math.Int{}, err
		}
		owed = owed.Add(total)
	}
	owed = owed.Sub(state.WithdrawQuota)
	if owed.IsNegative() {
		owed = math.ZeroInt()
	}
	return owed, nil
}
