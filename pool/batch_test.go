package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rwax/earnpool/pool/store"
)

func TestAssignBatch(t *testing.T) {
	day0 := time.Unix(1700006400, 0)
	state := store.ZeroPoolState()

	// First request opens batch 1.
	require.Equal(t, uint64(1), assignBatch(&state, day0))
	// Same day, unconfirmed: joins the open batch.
	require.Equal(t, uint64(1), assignBatch(&state, day0.Add(time.Hour)))

	// Next day: new batch.
	day1 := day0.Add(24 * time.Hour)
	require.Equal(t, uint64(2), assignBatch(&state, day1))

	// Same day but the open batch got confirmed: a settled batch never
	// accumulates new obligations.
	state.ConfirmedBatchID = 2
	require.Equal(t, uint64(3), assignBatch(&state, day1.Add(time.Hour)))

	// Batch ids advance monotonically.
	require.Equal(t, uint64(3), state.CurrentBatchID)
	require.Equal(t, store.DayIndex(day1), state.LastDay)
}
