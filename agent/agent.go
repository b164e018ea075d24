// Package agent runs the settlement bot: a companion process that polls the
// adapter's vault position and drives the multi-step settlement pipeline
// that the asynchronous vault cannot complete on its own.
package agent

import (
	"errors"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/robfig/cron/v3"

	"github.com/rwax/earnpool/adapter"
	"github.com/rwax/earnpool/pool"
	"github.com/rwax/earnpool/token"
)

// DefaultPollInterval is the time between settlement polls when Agent's
// PollInterval is not set.
const DefaultPollInterval = 15 * time.Second

// DefaultReconcileSchedule reconciles vault growth hourly when Agent's
// ReconcileSchedule is not set.
const DefaultReconcileSchedule = "0 * * * *"

// Agent drives settlement. Each poll it claims whatever the vault has made
// mintable or redeemable, then funds the pool's queued withdrawals out of
// the adapter's pool-asset balance. A cron entry reconciles vault growth on
// a fixed schedule, independent of deposit and withdraw traffic.
type Agent struct {
	Adapter *adapter.Adapter
	Pool    *pool.EarnPool

	// PoolAsset is the asset leg the pool settles withdrawals in.
	PoolAsset token.Token

	// Account is the bot identity used for every adapter call. It must hold
	// the bot role.
	Account common.Address

	// ClaimFee pays the adapter's accrued fee out of each redemption.
	// (Optional)
	ClaimFee bool

	// PollInterval is the time between settlement polls. (Optional)
	PollInterval time.Duration

	// ReconcileSchedule is a cron expression for vault growth reconciliation.
	// (Optional)
	ReconcileSchedule string

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	waitCh  chan error
	cron    *cron.Cron
}

// Start begins the settlement loop and the reconciliation schedule. It
// returns after the first poll completes.
func (a *Agent) Start() error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return errors.New("agent already started")
	}
	a.started = true
	a.stopCh = make(chan struct{})
	a.waitCh = make(chan error, 1)
	a.mu.Unlock()

	schedule := a.ReconcileSchedule
	if schedule == "" {
		schedule = DefaultReconcileSchedule
	}
	abort := func(err error) error {
		a.mu.Lock()
		a.started = false
		a.mu.Unlock()
		return err
	}

	a.cron = cron.New()
	if _, err := a.cron.AddFunc(schedule, func() {
		if err := a.Adapter.UpdateVaultAssets(a.Account); err != nil {
			logger.Printf("reconcile failed: %s", err)
		}
	}); err != nil {
		return abort(err)
	}

	if err := a.settle(); err != nil {
		return abort(err)
	}
	a.cron.Start()

	go func() {
		a.waitCh <- a.serve()
	}()
	logger.Printf("settlement loop started for bot %s", a.Account.Hex())
	return nil
}

// Stop shuts the settlement loop down cleanly.
func (a *Agent) Stop() {
	a.stopCh <- struct{}{}
}

// Wait blocks until the agent is stopped. It returns any error that ended
// the settlement loop.
func (a *Agent) Wait() error {
	return <-a.waitCh
}

func (a *Agent) serve() error {
	interval := a.PollInterval
	if interval == 0 {
		interval = DefaultPollInterval
	}

	defer func() {
		a.cron.Stop()
		a.mu.Lock()
		a.started = false
		a.mu.Unlock()
	}()

	ticker := time.Tick(interval)
	for {
		select {
		case <-ticker:
			if err := a.settle(); err != nil {
				return err
			}
		case <-a.stopCh:
			return nil
		}
	}
}

// settle runs one pass of the pipeline. Nothing-to-do conditions are normal
// while the vault sits on unfulfilled requests, so they are skipped rather
// than treated as failures.
func (a *Agent) settle() error {
	minted, err := a.Adapter.DepositToVault(a.Account)
	switch {
	case err == nil:
		logger.Printf("claimed %s mintable vault shares", minted)
	case errors.Is(err, adapter.ErrNothingToMint):
	default:
		return err
	}

	redeemed, err := a.Adapter.WithdrawFromVault(a.Account, a.ClaimFee)
	switch {
	case err == nil:
		logger.Printf("redeemed vault position for %s", redeemed)
	case errors.Is(err, adapter.ErrNothingToRedeem):
	default:
		return err
	}

	return a.fundWithdrawals()
}

// fundWithdrawals forwards pool asset to the pool while withdrawals are owed
// and the adapter has balance to cover them, partially if need be.
func (a *Agent) fundWithdrawals() error {
	owed, err := a.Pool.PendingOwed()
	if err != nil {
		return err
	}
	if !owed.IsPositive() {
		return nil
	}
	available := a.PoolAsset.BalanceOf(a.Adapter.Address())
	amount := math.MinInt(owed, available)
	if !amount.IsPositive() {
		return nil
	}
	if err := a.Adapter.FinishEarnPoolWithdraw(a.Account, amount); err != nil {
		return err
	}
	logger.Printf("funded %s of %s owed withdrawals", amount, owed)
	return nil
}
