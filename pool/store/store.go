// Package store defines the persistence interface for the earn pool ledger
// and the settlement adapter's reconciliation state.
package store

import (
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// SecondsPerDay is the calendar-day granularity used for withdrawal batch
// assignment.
const SecondsPerDay = 86400

// DayIndex returns the batch-assignment day for a timestamp.
func DayIndex(t time.Time) int64 {
	return t.Unix() / SecondsPerDay
}

// PoolState is the aggregate mutable state of one earn pool instance.
type PoolState struct {
	// TotalSupply is the total share supply. Equals the sum of all share
	// balances at all times.
	TotalSupply math.Int

	// UserTotalAssets is the principal asset amount attributed to holders,
	// excluding rewards still vesting.
	UserTotalAssets math.Int

	// PeriodStart and PeriodRewards describe the single active reward
	// vesting window. Rewards decay linearly to zero over RewardDuration.
	PeriodStart   time.Time
	PeriodRewards math.Int

	// LastDay is the day index of the most recent withdrawal request.
	LastDay int64

	// CurrentBatchID is the batch receiving new withdrawal requests.
	// ConfirmedBatchID is the settlement watermark: every batch at or below
	// it is claimable. ConfirmedBatchID <= CurrentBatchID always.
	CurrentBatchID   uint64
	ConfirmedBatchID uint64

	// WithdrawQuota is settlement funding received via FinishWithdraw that
	// has not yet covered a full batch.
	WithdrawQuota math.Int

	// WithdrawFeeRate is an 18-decimal fraction of shares skimmed to
	// FeeReceiver on RequestWithdraw. Zero receiver disables the fee.
	WithdrawFeeRate math.Int
	FeeReceiver     common.Address

	Paused bool
}

// ZeroPoolState returns a PoolState with all amounts initialized.
func ZeroPoolState() PoolState {
	return PoolState{
		TotalSupply:     math.ZeroInt(),
		UserTotalAssets: math.ZeroInt(),
		PeriodRewards:   math.ZeroInt(),
		WithdrawQuota:   math.ZeroInt(),
		WithdrawFeeRate: math.ZeroInt(),
	}
}

// AdapterState is the settlement adapter's reconciliation state.
type AdapterState struct {
	// LastVaultTotalAssets is the watermark against which vault asset
	// growth is measured. It only moves forward; a reported decrease is
	// treated as zero interest and leaves the watermark in place.
	LastVaultTotalAssets math.Int

	// AccruedFee is the adapter fee accumulated from measured growth, in
	// vault asset terms, pending a claim on WithdrawFromVault.
	AccruedFee math.Int
}

// ZeroAdapterState returns an AdapterState with all amounts initialized.
func ZeroAdapterState() AdapterState {
	return AdapterState{
		LastVaultTotalAssets: math.ZeroInt(),
		AccruedFee:           math.ZeroInt(),
	}
}

// WithdrawalRequest is one queued withdrawal owed to an account. It becomes
// claimable once BatchID <= the pool's ConfirmedBatchID.
type WithdrawalRequest struct {
	BatchID      uint64
	WithdrawTime time.Time
	// Amount is the pool asset owed, net of the withdrawal fee.
	Amount math.Int
}

// Store is the storage interface used by the earn pool and the settlement
// adapter. Implementations must be goroutine-safe. The pool serializes its
// own operations, so cross-call atomicity is not required of drivers, but
// every single call must be atomic.
type Store interface {
	PoolState() (PoolState, error)
	SetPoolState(PoolState) error

	// SharesOf returns the share balance of an account, zero if absent.
	SharesOf(account common.Address) (math.Int, error)
	SetShares(account common.Address, shares math.Int) error
	// EachShareholder visits every account with a non-zero balance.
	EachShareholder(fn func(account common.Address, shares math.Int) error) error

	// Requests returns the append-ordered withdrawal queue of an account.
	Requests(account common.Address) ([]WithdrawalRequest, error)
	AppendRequest(account common.Address, r WithdrawalRequest) error
	// RemoveRequest removes the request at index by swapping it with the
	// last entry and popping. Indices are therefore unstable across
	// removals; clients must re-read the queue after a claim.
	RemoveRequest(account common.Address, index int) (WithdrawalRequest, error)

	// BatchTotal returns the total pool asset owed across all requests
	// assigned to a batch, zero if the batch is unknown.
	BatchTotal(id uint64) (math.Int, error)
	AddBatchTotal(id uint64, amount math.Int) error

	// Whitelisted deposit receivers. An empty whitelist permits everyone.
	IsWhitelisted(account common.Address) (bool, error)
	SetWhitelisted(account common.Address, ok bool) error
	WhitelistSize() (int, error)

	AdapterState() (AdapterState, error)
	SetAdapterState(AdapterState) error

	// Stats returns aggregate statistics about the store state.
	Stats() (*Stats, error)

	Close() error
}

// Stats are aggregate statistics about the store state.
type Stats struct {
	NumShareholders int      `json:"num_shareholders"`
	TotalShares     math.Int `json:"total_shares"`
	NumRequests     int      `json:"num_requests"`
	AmountOwed      math.Int `json:"amount_owed"`
}

// CountShares includes a share balance in the stats.
func (s *Stats) CountShares(shares math.Int) {
	if s.TotalShares.IsNil() {
		s.TotalShares = math.ZeroInt()
	}
	if shares.IsZero() {
		return
	}
	s.NumShareholders += 1
	s.TotalShares = s.TotalShares.Add(shares)
}

// CountRequest includes a withdrawal request in the stats.
func (s *Stats) CountRequest(r WithdrawalRequest) {
	if s.AmountOwed.IsNil() {
		s.AmountOwed = math.ZeroInt()
	}
	s.NumRequests += 1
	s.AmountOwed = s.AmountOwed.Add(r.Amount)
}
