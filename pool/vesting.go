package pool

import (
	"time"

	"cosmossdk.io/math"

	"github.com/rwax/earnpool/pool/store"
)

// RewardDuration is the fixed window over which injected interest vests
// linearly into the exchange rate.
const RewardDuration = 7 * 24 * time.Hour

// unvestedAmount returns the portion of the active reward period that has
// not vested at time now. It decays linearly from the full PeriodRewards at
// PeriodStart down to zero at PeriodStart + RewardDuration.
func unvestedAmount(s store.PoolState, now time.Time) math.Int {
	if s.PeriodRewards.IsZero() {
		return math.ZeroInt()
	}
	end := s.PeriodStart.Add(RewardDuration)
	if !now.Before(end) {
		return math.ZeroInt()
	}
	remaining := end.Unix() - now.Unix()
	return s.PeriodRewards.MulRaw(remaining).QuoRaw(int64(RewardDuration / time.Second))
}

// totalAssets is the live asset figure backing the share supply: holder
// principal plus rewards, minus the remainder still vesting. It never goes
// negative: unvestedAmount is bounded by PeriodRewards by construction.
func totalAssets(s store.PoolState, now time.Time) math.Int {
	return s.UserTotalAssets.Add(s.PeriodRewards).Sub(unvestedAmount(s, now))
}

// restartVesting folds fully vested rewards into holder principal and opens
// a fresh reward window of the unvested remainder plus the new interest.
func restartVesting(s *store.PoolState, interest math.Int, now time.Time) {
	s.UserTotalAssets = totalAssets(*s, now)
	s.PeriodRewards = unvestedAmount(*s, now).Add(interest)
	s.PeriodStart = now
}
