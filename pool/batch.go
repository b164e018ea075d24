package pool

import (
	"time"

	"github.com/rwax/earnpool/pool/store"
)

// assignBatch returns the batch id for a withdrawal requested at time now,
// mutating the pool state's day/batch counters as needed.
//
// A new batch is opened when the calendar day advances, and also when the
// current batch is already fully confirmed: a settled batch must never
// accumulate new obligations.
func assignBatch(s *store.PoolState, now time.Time) uint64 {
	day := store.DayIndex(now)
	if day > s.LastDay {
		s.LastDay = day
		s.CurrentBatchID++
	} else if s.ConfirmedBatchID == s.CurrentBatchID {
		s.CurrentBatchID++
	}
	return s.CurrentBatchID
}
