package main

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rwax/earnpool/config"
	"github.com/rwax/earnpool/pool/store/memory"
)

// TestServiceLifecycle wires the full deployment the way the CLI does and
// walks one deposit through the vault and back out as a claimed withdrawal.
func TestServiceLifecycle(t *testing.T) {
	cfg, err := config.Load("/nonexistent/earnpool.yml")
	require.NoError(t, err)

	s, err := buildService(cfg, memory.New())
	require.NoError(t, err)
	defer s.store.Close()

	alice := common.HexToAddress("0xa1")
	amount := math.NewInt(10).MulRaw(1e18)
	require.NoError(t, s.poolAsset.Mint(alice, amount))

	// Deposit routes the asset to the adapter.
	shares, err := s.pool.Deposit(alice, amount, math.ZeroInt(), alice)
	require.NoError(t, err)
	require.Equal(t, amount, shares)
	require.Equal(t, amount, s.poolAsset.BalanceOf(s.adapter.Address()))

	// In the pegged demo deployment the vault leg is a distinct token, so
	// the OTC desk would rebalance. Simulate the desk's return leg.
	require.NoError(t, s.vaultAsset.Mint(s.adapter.Address(), amount))
	require.NoError(t, s.adapter.RequestDepositToVault(s.bot, amount))
	s.vault.FulfillDeposits(s.adapter.Address())
	minted, err := s.adapter.DepositToVault(s.bot)
	require.NoError(t, err)
	require.Equal(t, amount, minted)

	// Withdraw half.
	half := amount.QuoRaw(2)
	request, err := s.pool.RequestWithdraw(alice, half, math.ZeroInt(), alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1), request.BatchID)

	require.NoError(t, s.adapter.FinishEarnPoolWithdraw(s.bot, half))
	claimed, err := s.pool.ClaimWithdraw(alice, 0)
	require.NoError(t, err)
	require.Equal(t, half, claimed)

	balance, err := s.pool.BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, half, balance)
}
