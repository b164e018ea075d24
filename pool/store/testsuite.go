package store

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSuite runs a suite of tests against a store implementation.
func TestSuite(t *testing.T, newStore func() Store) {
	t.Helper()

	alice := common.HexToAddress("0xa11ce00000000000000000000000000000000001")
	bob := common.HexToAddress("0xb0b0000000000000000000000000000000000002")

	t.Run("PoolState", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		state, err := s.PoolState()
		require.NoError(t, err)
		assert.True(t, state.TotalSupply.IsZero())
		assert.True(t, state.WithdrawQuota.IsZero())

		state.TotalSupply = math.NewInt(1e18)
		state.UserTotalAssets = math.NewInt(2e18)
		state.PeriodStart = time.Unix(1700000000, 0).UTC()
		state.PeriodRewards = math.NewInt(7e17)
		state.LastDay = 19675
		state.CurrentBatchID = 3
		state.ConfirmedBatchID = 2
		state.WithdrawFeeRate = math.NewInt(1e17)
		state.FeeReceiver = bob
		state.Paused = true
		require.NoError(t, s.SetPoolState(state))

		got, err := s.PoolState()
		require.NoError(t, err)
		assert.Equal(t, state, got)
	})

	t.Run("Shares", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		shares, err := s.SharesOf(alice)
		require.NoError(t, err)
		assert.True(t, shares.IsZero())

		require.NoError(t, s.SetShares(alice, math.NewInt(5)))
		require.NoError(t, s.SetShares(bob, math.NewInt(7)))

		shares, err = s.SharesOf(alice)
		require.NoError(t, err)
		assert.Equal(t, math.NewInt(5), shares)

		sum := math.ZeroInt()
		holders := 0
		err = s.EachShareholder(func(account common.Address, shares math.Int) error {
			holders++
			sum = sum.Add(shares)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, holders)
		assert.Equal(t, math.NewInt(12), sum)

		// Setting to zero removes the holder.
		require.NoError(t, s.SetShares(bob, math.ZeroInt()))
		holders = 0
		err = s.EachShareholder(func(common.Address, math.Int) error {
			holders++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, holders)
	})

	t.Run("Requests", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		queue, err := s.Requests(alice)
		require.NoError(t, err)
		assert.Empty(t, queue)

		_, err = s.RemoveRequest(alice, 0)
		assert.ErrorIs(t, err, ErrInvalidIndex)

		when := time.Unix(1700000000, 0).UTC()
		for i := int64(1); i <= 3; i++ {
			require.NoError(t, s.AppendRequest(alice, WithdrawalRequest{
				BatchID:      uint64(i),
				WithdrawTime: when,
				Amount:       math.NewInt(i * 100),
			}))
		}

		queue, err = s.Requests(alice)
		require.NoError(t, err)
		require.Len(t, queue, 3)
		assert.Equal(t, uint64(1), queue[0].BatchID)
		assert.Equal(t, math.NewInt(300), queue[2].Amount)

		// Swap-with-last-and-pop: removing index 0 moves the tail into it.
		removed, err := s.RemoveRequest(alice, 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), removed.BatchID)

		queue, err = s.Requests(alice)
		require.NoError(t, err)
		require.Len(t, queue, 2)
		assert.Equal(t, uint64(3), queue[0].BatchID)
		assert.Equal(t, uint64(2), queue[1].BatchID)

		_, err = s.RemoveRequest(alice, 2)
		assert.ErrorIs(t, err, ErrInvalidIndex)
	})

	t.Run("Batches", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		total, err := s.BatchTotal(1)
		require.NoError(t, err)
		assert.True(t, total.IsZero())

		require.NoError(t, s.AddBatchTotal(1, math.NewInt(250)))
		require.NoError(t, s.AddBatchTotal(1, math.NewInt(250)))
		require.NoError(t, s.AddBatchTotal(2, math.NewInt(10)))

		total, err = s.BatchTotal(1)
		require.NoError(t, err)
		assert.Equal(t, math.NewInt(500), total)

		total, err = s.BatchTotal(2)
		require.NoError(t, err)
		assert.Equal(t, math.NewInt(10), total)
	})

	t.Run("Whitelist", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		n, err := s.WhitelistSize()
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		require.NoError(t, s.SetWhitelisted(alice, true))
		ok, err := s.IsWhitelisted(alice)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.IsWhitelisted(bob)
		require.NoError(t, err)
		assert.False(t, ok)

		n, err = s.WhitelistSize()
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		require.NoError(t, s.SetWhitelisted(alice, false))
		n, err = s.WhitelistSize()
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("AdapterState", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		state, err := s.AdapterState()
		require.NoError(t, err)
		assert.True(t, state.LastVaultTotalAssets.IsZero())
		assert.True(t, state.AccruedFee.IsZero())

		state.LastVaultTotalAssets = math.NewInt(123456789)
		state.AccruedFee = math.NewInt(42)
		require.NoError(t, s.SetAdapterState(state))

		got, err := s.AdapterState()
		require.NoError(t, err)
		assert.Equal(t, state, got)
	})

	t.Run("Stats", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		require.NoError(t, s.SetShares(alice, math.NewInt(5)))
		require.NoError(t, s.SetShares(bob, math.NewInt(7)))
		require.NoError(t, s.AppendRequest(alice, WithdrawalRequest{
			BatchID: 1,
			Amount:  math.NewInt(100),
		}))

		stats, err := s.Stats()
		require.NoError(t, err)
		assert.Equal(t, 2, stats.NumShareholders)
		assert.Equal(t, math.NewInt(12), stats.TotalShares)
		assert.Equal(t, 1, stats.NumRequests)
		assert.Equal(t, math.NewInt(100), stats.AmountOwed)
	})
}
