// Package adapter bridges the earn pool's asset to an external asynchronous
// vault. Deposits and redemptions run a two-phase request/fulfill protocol
// against the vault, growth in the vault's reported assets is skimmed for
// fees and reported to the pool as interest, and liquidity can be routed
// through an OTC desk to rebalance between the two asset legs.
package adapter

import (
	"sync"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rwax/earnpool/auth"
	"github.com/rwax/earnpool/pool"
	"github.com/rwax/earnpool/pool/store"
	"github.com/rwax/earnpool/token"
	"github.com/rwax/earnpool/vault"
)

// Swapper routes a managed token out to an OTC counterparty. Implemented by
// the otc package.
type Swapper interface {
	// Address identifies the swapper as a token spender.
	Address() common.Address
	// SwapToken pulls amount of tok from the caller and forwards it on.
	SwapToken(caller common.Address, tok token.Token, amount math.Int) error
}

// Config assembles an Adapter. All fields are required except OTC, which may
// be nil when no OTC desk is wired (SwapToken then rejects).
type Config struct {
	Store store.Store
	Perm  auth.Oracle
	Pool  *pool.EarnPool
	Vault vault.AsyncVault
	OTC   Swapper

	// PoolAsset is the asset the pool accounts in, VaultAsset the asset the
	// vault accepts. They are distinct legs even when pegged 1:1.
	PoolAsset  token.Token
	VaultAsset token.Token

	// Self is the adapter's own account: custodian of idle funds, and both
	// controller and owner of the vault position.
	Self        common.Address
	FeeReceiver common.Address

	// 18-decimal fractions. FeeRate is skimmed from vault growth before it
	// is reported as interest; the loss rates are charged one-sided on each
	// conversion direction.
	FeeRate              math.Int
	ToVaultAssetLossRate math.Int
	ToAssetLossRate      math.Int
}

// Adapter settles between the pool and the async vault. All mutating entry
// points serialize on an internal mutex; the pool has its own lock and never
// calls back into the adapter, so holding both in that order is safe.
type Adapter struct {
	mu    sync.Mutex
	store store.Store
	perm  auth.Oracle
	pool  *pool.EarnPool
	vault vault.AsyncVault
	otc   Swapper

	poolAsset  token.Token
	vaultAsset token.Token

	self        common.Address
	feeReceiver common.Address

	feeRate              math.Int
	toVaultAssetLossRate math.Int
	toAssetLossRate      math.Int
}

func New(config Config) (*Adapter, error) {
	if config.Self == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	for _, rate := range []math.Int{config.FeeRate, config.ToVaultAssetLossRate, config.ToAssetLossRate} {
		if rate.IsNil() || rate.IsNegative() || rate.GTE(ratePrecision) {
			return nil, errors.Wrap(ErrInvalidAmount, "rate must be an 18-decimal fraction below 1")
		}
	}
	return &Adapter{
		store:                config.Store,
		perm:                 config.Perm,
		pool:                 config.Pool,
		vault:                config.Vault,
		otc:                  config.OTC,
		poolAsset:            config.PoolAsset,
		vaultAsset:           config.VaultAsset,
		self:                 config.Self,
		feeReceiver:          config.FeeReceiver,
		feeRate:              config.FeeRate,
		toVaultAssetLossRate: config.ToVaultAssetLossRate,
		toAssetLossRate:      config.ToAssetLossRate,
	}, nil
}

// Address returns the adapter's custodial account.
func (a *Adapter) Address() common.Address {
	return a.self
}

// RequestDepositToVault enters amount of the adapter's idle vault asset into
// the vault's deposit queue. The vault is expected to pull exactly amount;
// any other balance delta aborts with ErrVaultMisbehaved.
func (a *Adapter) RequestDepositToVault(caller common.Address, amount math.Int) error {
	if err := a.perm.Require(caller, auth.RoleBot); err != nil {
		return err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.vaultAsset.Approve(a.self, a.vault.Address(), amount); err != nil {
		return err
	}
	before := a.vaultAsset.BalanceOf(a.self)
	if _, err := a.vault.RequestDeposit(amount, a.self, a.self); err != nil {
		return err
	}
	after := a.vaultAsset.BalanceOf(a.self)
	if !before.Sub(after).Equal(amount) {
		return errors.Wrapf(ErrVaultMisbehaved, "requested %s, balance moved %s",
			amount, before.Sub(after))
	}
	logger.Printf("requested vault deposit of %s %s", amount, a.vaultAsset.Symbol())
	return nil
}

// DepositToVault claims every share the vault has made mintable for the
// adapter. Accrued interest is reconciled first so the freshly minted
// principal is not mistaken for growth.
func (a *Adapter) DepositToVault(caller common.Address) (math.Int, error) {
	if err := a.perm.Require(caller, auth.RoleBot); err != nil {
		return math.Int{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	mintable := a.vault.MaxMint(a.self)
	if !mintable.IsPositive() {
		return math.Int{}, ErrNothingToMint
	}
	if err := a.updateVaultAssets(); err != nil {
		return math.Int{}, err
	}

	before := a.vault.BalanceOf(a.self)
	assets, err := a.vault.Mint(mintable, a.self)
	if err != nil {
		return math.Int{}, err
	}
	after := a.vault.BalanceOf(a.self)
	if !after.Sub(before).Equal(mintable) {
		return math.Int{}, errors.Wrapf(ErrVaultMisbehaved, "minted %s, share balance moved %s",
			mintable, after.Sub(before))
	}
	if err := a.resetWatermark(); err != nil {
		return math.Int{}, err
	}
	logger.Printf("minted %s vault shares for %s %s", mintable, assets, a.vaultAsset.Symbol())
	return mintable, nil
}

// DepositRewards pulls vault asset from the manager, requests it into the
// vault, and immediately reports the pool-asset equivalent as interest.
// The report deliberately leads the mint: the pool's rate starts vesting the
// reward before the vault has converted it into share backing. Rewards into
// an empty pool are rejected since there is no one to vest them to.
func (a *Adapter) DepositRewards(caller common.Address, amount math.Int) error {
	if err := a.perm.Require(caller, auth.RoleManager); err != nil {
		return err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	supply, err := a.pool.TotalSupply()
	if err != nil {
		return err
	}
	if !supply.IsPositive() {
		return ErrEmptyPool
	}

	if err := a.vaultAsset.TransferFrom(a.self, caller, a.self, amount); err != nil {
		return err
	}
	if err := a.vaultAsset.Approve(a.self, a.vault.Address(), amount); err != nil {
		return err
	}
	if _, err := a.vault.RequestDeposit(amount, a.self, a.self); err != nil {
		return err
	}

	interest := a.VaultAssetToAsset(amount)
	if !interest.IsPositive() {
		return errors.Wrapf(ErrInvalidAmount, "reward %s converts to no interest", amount)
	}
	if err := a.pool.NotifyInterest(a.self, interest); err != nil {
		return err
	}
	logger.Printf("deposited rewards of %s %s, reported %s %s interest",
		amount, a.vaultAsset.Symbol(), interest, a.poolAsset.Symbol())
	return nil
}

// RequestWithdrawFromVault enters the share equivalent of amount (in vault
// asset terms, quoted at the vault's current rate) into the redeem queue.
func (a *Adapter) RequestWithdrawFromVault(caller common.Address, amount math.Int) error {
	if err := a.perm.Require(caller, auth.RoleBot); err != nil {
		return err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	shares := a.vault.ConvertToShares(amount)
	if !shares.IsPositive() {
		return errors.Wrapf(ErrInvalidAmount, "%s converts to no vault shares", amount)
	}
	if _, err := a.vault.RequestRedeem(shares, a.self, a.self); err != nil {
		return err
	}
	logger.Printf("requested vault redemption of %s shares for %s %s",
		shares, amount, a.vaultAsset.Symbol())
	return nil
}

// WithdrawFromVault redeems every share the vault has made redeemable for
// the adapter, after reconciling accrued interest. With claimFee, the
// accrued adapter fee is paid out of the redeemed amount to the fee
// receiver; a redemption too small to cover the fee leaves the fee
// accrued for a later claim.
func (a *Adapter) WithdrawFromVault(caller common.Address, claimFee bool) (math.Int, error) {
	if err := a.perm.Require(caller, auth.RoleBot); err != nil {
		return math.Int{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	redeemable := a.vault.MaxRedeem(a.self)
	if !redeemable.IsPositive() {
		return math.Int{}, ErrNothingToRedeem
	}
	if err := a.updateVaultAssets(); err != nil {
		return math.Int{}, err
	}

	assets, err := a.vault.Redeem(redeemable, a.self, a.self)
	if err != nil {
		return math.Int{}, err
	}
	if err := a.resetWatermark(); err != nil {
		return math.Int{}, err
	}

	if claimFee {
		state, err := a.store.AdapterState()
		if err != nil {
			return math.Int{}, err
		}
		if state.AccruedFee.IsPositive() {
			if assets.LT(state.AccruedFee) {
				// Redemption already settled, so the fee stays accrued
				// rather than unwinding the redeem.
				logger.Printf("redeemed %s below accrued fee %s, deferring fee claim",
					assets, state.AccruedFee)
				return assets, nil
			}
			if err := a.vaultAsset.Transfer(a.self, a.feeReceiver, state.AccruedFee); err != nil {
				return math.Int{}, err
			}
			logger.Printf("claimed %s %s accrued fee", state.AccruedFee, a.vaultAsset.Symbol())
			state.AccruedFee = math.ZeroInt()
			if err := a.store.SetAdapterState(state); err != nil {
				return math.Int{}, err
			}
		}
	}
	logger.Printf("redeemed %s vault shares for %s %s", redeemable, assets, a.vaultAsset.Symbol())
	return assets, nil
}

// FinishEarnPoolWithdraw forwards amount of the pool asset to the pool,
// funding queued withdrawals and advancing its confirmed-batch watermark.
func (a *Adapter) FinishEarnPoolWithdraw(caller common.Address, amount math.Int) error {
	if err := a.perm.Require(caller, auth.RoleBot); err != nil {
		return err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.poolAsset.Approve(a.self, a.pool.Address(), amount); err != nil {
		return err
	}
	if err := a.pool.FinishWithdraw(a.self, amount); err != nil {
		return err
	}
	logger.Printf("finished pool withdrawal of %s %s", amount, a.poolAsset.Symbol())
	return nil
}

// SwapToken routes amount of either managed asset to the OTC desk. Only the
// pool asset and the vault asset may leave through this entry point.
func (a *Adapter) SwapToken(caller common.Address, tok token.Token, amount math.Int) error {
	if err := a.perm.Require(caller, auth.RoleBot); err != nil {
		return err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if tok != a.poolAsset && tok != a.vaultAsset {
		return ErrUnknownToken
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.otc == nil {
		return ErrNoOTC
	}
	if err := tok.Approve(a.self, a.otc.Address(), amount); err != nil {
		return err
	}
	if err := a.otc.SwapToken(a.self, tok, amount); err != nil {
		return err
	}
	logger.Printf("swapped %s %s out to OTC", amount, tok.Symbol())
	return nil
}

// UpdateVaultAssets reconciles vault growth since the last watermark on
// demand, outside of the deposit and withdraw flows.
func (a *Adapter) UpdateVaultAssets(caller common.Address) error {
	if err := a.perm.Require(caller, auth.RoleBot); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.updateVaultAssets()
}

// State returns the persisted reconciliation state.
func (a *Adapter) State() (store.AdapterState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.AdapterState()
}

// updateVaultAssets measures the vault position's growth since the last
// watermark, accrues the fee cut, and reports the net remainder to the pool
// as interest in pool-asset terms. A non-positive delta is treated as zero
// interest and the watermark stays put, so accounting self-corrects once the
// vault's value recovers. Callers hold a.mu.
func (a *Adapter) updateVaultAssets() error {
	state, err := a.store.AdapterState()
	if err != nil {
		return err
	}
	current := a.vault.ConvertToAssets(a.vault.BalanceOf(a.self))
	growth := current.Sub(state.LastVaultTotalAssets)
	if !growth.IsPositive() {
		return nil
	}

	fee := growth.Mul(a.feeRate).Quo(ratePrecision)
	state.AccruedFee = state.AccruedFee.Add(fee)
	state.LastVaultTotalAssets = current
	if err := a.store.SetAdapterState(state); err != nil {
		return err
	}

	interest := a.VaultAssetToAsset(growth.Sub(fee))
	if !interest.IsPositive() {
		return nil
	}
	if err := a.pool.NotifyInterest(a.self, interest); err != nil {
		return err
	}
	logger.Printf("vault grew %s %s, accrued %s fee, reported %s %s interest",
		growth, a.vaultAsset.Symbol(), fee, interest, a.poolAsset.Symbol())
	return nil
}

// resetWatermark pins the watermark to the vault's current reported value.
// Called after mint and redeem so principal movements are not counted as
// growth. Callers hold a.mu.
func (a *Adapter) resetWatermark() error {
	state, err := a.store.AdapterState()
	if err != nil {
		return err
	}
	state.LastVaultTotalAssets = a.vault.ConvertToAssets(a.vault.BalanceOf(a.self))
	return a.store.SetAdapterState(state)
}
