package status

import (
	"context"
	"sync"
	"time"

	"cosmossdk.io/math"

	"github.com/rwax/earnpool/pool"
	"github.com/rwax/earnpool/pool/store"
)

// StatusResponse is the response type for Status calls.
type StatusResponse struct {
	// TimeUpdated is the time when the response was generated. Because the
	// response is cached, it can be sometime in the past.
	TimeUpdated time.Time `json:"time_updated"`

	// TimeStarted is the time when the pool service was started.
	TimeStarted time.Time `json:"time_started"`

	// Version of the pool that is currently running.
	Version string `json:"version"`

	TotalSupply    math.Int `json:"total_supply"`
	TotalAssets    math.Int `json:"total_assets"`
	UnvestedAmount math.Int `json:"unvested_amount"`

	CurrentBatchID   uint64   `json:"current_batch_id"`
	ConfirmedBatchID uint64   `json:"confirmed_batch_id"`
	WithdrawQuota    math.Int `json:"withdraw_quota"`
	PendingOwed      math.Int `json:"pending_owed"`

	Paused bool `json:"paused"`

	// Stats contains aggregate statistics about the state of the store.
	Stats *store.Stats `json:"stats"`

	// Error is set if the last cache update attempt failed and the
	// timestamp was extended.
	Error error `json:"error,omitempty"`
}

// PoolStatus is a service for providing data to a status dashboard. Because
// status calls are unauthenticated, the service only provides cached public
// consumable data.
type PoolStatus struct {
	Pool *pool.EarnPool

	// TimeStarted is the time when the server was started.
	TimeStarted time.Time

	// Version of the pool to report.
	Version string

	// CacheDuration is the time for responses to be cached.
	CacheDuration time.Duration

	mu         sync.RWMutex
	cachedResp *StatusResponse
}

// getStatus is an uncached version of Status
func (s *PoolStatus) getStatus() (*StatusResponse, error) {
	r := &StatusResponse{
		TimeUpdated: time.Now(),
		TimeStarted: s.TimeStarted,
		Version:     s.Version,
	}

	state, err := s.Pool.State()
	if err != nil {
		r.Error = err
		return r, err
	}
	r.TotalSupply = state.TotalSupply
	r.CurrentBatchID = state.CurrentBatchID
	r.ConfirmedBatchID = state.ConfirmedBatchID
	r.WithdrawQuota = state.WithdrawQuota
	r.Paused = state.Paused

	if r.TotalAssets, err = s.Pool.TotalAssets(); err != nil {
		r.Error = err
		return r, err
	}
	if r.UnvestedAmount, err = s.Pool.UnvestedAmount(); err != nil {
		r.Error = err
		return r, err
	}
	if r.PendingOwed, err = s.Pool.PendingOwed(); err != nil {
		r.Error = err
		return r, err
	}

	stats, err := s.Pool.Stats()
	if err != nil {
		r.Error = err
		return r, err
	}
	r.Stats = stats

	return r, nil
}

// Status returns the status of the pool.
func (s *PoolStatus) Status(ctx context.Context) (*StatusResponse, error) {
	s.mu.RLock()
	cachedResp := s.cachedResp
	s.mu.RUnlock()

	if cachedResp != nil && cachedResp.TimeUpdated.Add(s.CacheDuration).After(time.Now()) {
		// Cache is valid
		return cachedResp, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Did another request beat us to it?
	if s.cachedResp != cachedResp {
		return s.cachedResp, nil
	}

	// We save the status even if there is an error (to avoid an error-based DoS)
	r, err := s.getStatus()
	s.cachedResp = r
	return r, err
}
