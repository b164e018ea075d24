package otc

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rwax/earnpool/auth"
	"github.com/rwax/earnpool/token"
)

var (
	admin       = common.HexToAddress("0xad")
	botAcct     = common.HexToAddress("0xb0")
	otcAddr     = common.HexToAddress("0x04")
	adapterAddr = common.HexToAddress("0x02")
	walletAddr  = common.HexToAddress("0x0c")
)

func TestSwapToken(t *testing.T) {
	perm := auth.NewStatic(admin)
	usd := token.NewLedger("USD1")
	require.NoError(t, usd.Mint(adapterAddr, math.NewInt(100)))

	m, err := New(perm, otcAddr, adapterAddr, walletAddr)
	require.NoError(t, err)

	// Only the adapter may swap out.
	require.ErrorIs(t, m.SwapToken(botAcct, usd, math.NewInt(10)), ErrNotAdapter)

	// The adapter grants the manager an allowance, then swaps.
	require.NoError(t, usd.Approve(adapterAddr, otcAddr, math.NewInt(40)))
	require.NoError(t, m.SwapToken(adapterAddr, usd, math.NewInt(40)))
	require.Equal(t, math.NewInt(40), usd.BalanceOf(walletAddr))
	require.Equal(t, math.NewInt(60), usd.BalanceOf(adapterAddr))

	require.ErrorIs(t, m.SwapToken(adapterAddr, usd, math.ZeroInt()), ErrInvalidAmount)
}

func TestTransferToAdapter(t *testing.T) {
	perm := auth.NewStatic(admin)
	require.NoError(t, perm.Grant(admin, botAcct, auth.RoleBot))
	usd := token.NewLedger("USD1")
	require.NoError(t, usd.Mint(otcAddr, math.NewInt(50)))

	m, err := New(perm, otcAddr, adapterAddr, walletAddr)
	require.NoError(t, err)

	require.ErrorIs(t, m.TransferToAdapter(walletAddr, usd, math.NewInt(10)), auth.ErrUnauthorized)

	require.NoError(t, m.TransferToAdapter(botAcct, usd, math.NewInt(50)))
	require.Equal(t, math.NewInt(50), usd.BalanceOf(adapterAddr))
	require.True(t, usd.BalanceOf(otcAddr).IsZero())

	// Nothing left to return.
	require.ErrorIs(t, m.TransferToAdapter(botAcct, usd, math.NewInt(1)), token.ErrInsufficientBalance)
}

func TestNewRejectsZeroAddresses(t *testing.T) {
	perm := auth.NewStatic(admin)
	_, err := New(perm, common.Address{}, adapterAddr, walletAddr)
	require.ErrorIs(t, err, ErrZeroAddress)
	_, err = New(perm, otcAddr, adapterAddr, common.Address{})
	require.ErrorIs(t, err, ErrZeroAddress)
}
