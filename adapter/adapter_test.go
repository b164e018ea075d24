package adapter

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rwax/earnpool/auth"
	"github.com/rwax/earnpool/internal/fakevault"
	"github.com/rwax/earnpool/otc"
	"github.com/rwax/earnpool/pool"
	"github.com/rwax/earnpool/pool/store/memory"
	"github.com/rwax/earnpool/token"
)

var (
	admin       = common.HexToAddress("0xad")
	managerAcct = common.HexToAddress("0x0a")
	botAcct     = common.HexToAddress("0xb0")
	poolAddr    = common.HexToAddress("0x01")
	adapterAddr = common.HexToAddress("0x02")
	vaultAddr   = common.HexToAddress("0x03")
	feeAcct     = common.HexToAddress("0xfe")
	alice       = common.HexToAddress("0xa1")
)

func unit(n int64) math.Int {
	return math.NewInt(n).Mul(math.NewInt(1e15))
}

type fixture struct {
	adapter    *Adapter
	pool       *pool.EarnPool
	vault      *fakevault.FakeVault
	poolAsset  *token.Ledger
	vaultAsset *token.Ledger
	perm       *auth.Static
	now        time.Time
}

func newFixture(t *testing.T, config Config) *fixture {
	t.Helper()
	f := &fixture{
		poolAsset:  token.NewLedger("USD1"),
		vaultAsset: token.NewLedger("USDC"),
		perm:       auth.NewStatic(admin),
		now:        time.Unix(1700000000, 0),
	}
	require.NoError(t, f.perm.Grant(admin, botAcct, auth.RoleBot))
	require.NoError(t, f.perm.Grant(admin, managerAcct, auth.RoleManager))

	f.vault = fakevault.Vault(vaultAddr, f.vaultAsset)
	memStore := memory.New()
	f.pool = pool.New(memStore, f.perm, f.poolAsset, poolAddr)
	f.pool.Clock = func() time.Time { return f.now }
	require.NoError(t, f.pool.SetAdapter(admin, adapterAddr))

	config.Store = memStore
	config.Perm = f.perm
	config.Pool = f.pool
	config.Vault = f.vault
	config.PoolAsset = f.poolAsset
	config.VaultAsset = f.vaultAsset
	config.Self = adapterAddr
	config.FeeReceiver = feeAcct
	if config.FeeRate.IsNil() {
		config.FeeRate = math.ZeroInt()
	}
	if config.ToVaultAssetLossRate.IsNil() {
		config.ToVaultAssetLossRate = math.ZeroInt()
	}
	if config.ToAssetLossRate.IsNil() {
		config.ToAssetLossRate = math.ZeroInt()
	}

	var err error
	f.adapter, err = New(config)
	require.NoError(t, err)
	return f
}

func TestNewRejectsBadRates(t *testing.T) {
	_, err := New(Config{
		Self:                 adapterAddr,
		FeeRate:              math.NewInt(1e18),
		ToVaultAssetLossRate: math.ZeroInt(),
		ToAssetLossRate:      math.ZeroInt(),
	})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = New(Config{})
	require.ErrorIs(t, err, ErrZeroAddress)
}

func TestRequestDepositToVault(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.vaultAsset.Mint(adapterAddr, unit(10)))

	require.NoError(t, f.adapter.RequestDepositToVault(botAcct, unit(4)))
	require.Equal(t, unit(6), f.vaultAsset.BalanceOf(adapterAddr))
	require.Equal(t, unit(4), f.vaultAsset.BalanceOf(vaultAddr))

	// Not mintable until the vault fulfills.
	_, err := f.adapter.DepositToVault(botAcct)
	require.ErrorIs(t, err, ErrNothingToMint)

	require.ErrorIs(t, f.adapter.RequestDepositToVault(alice, unit(1)), auth.ErrUnauthorized)
	require.ErrorIs(t, f.adapter.RequestDepositToVault(botAcct, math.ZeroInt()), ErrInvalidAmount)

	// The adapter is both controller and owner of the request.
	require.Equal(t, fakevault.Calls{
		fakevault.Call("RequestDeposit", unit(4), adapterAddr, adapterAddr),
	}, f.vault.Calls)
}

func TestDepositToVault(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.vaultAsset.Mint(adapterAddr, unit(10)))
	require.NoError(t, f.adapter.RequestDepositToVault(botAcct, unit(10)))
	f.vault.FulfillDeposits(adapterAddr)

	minted, err := f.adapter.DepositToVault(botAcct)
	require.NoError(t, err)
	require.Equal(t, unit(10), minted)
	require.Equal(t, unit(10), f.vault.BalanceOf(adapterAddr))

	// Watermark pinned to the freshly minted position: no phantom growth.
	state, err := f.adapter.State()
	require.NoError(t, err)
	require.Equal(t, unit(10), state.LastVaultTotalAssets)
	require.NoError(t, f.adapter.UpdateVaultAssets(botAcct))
	state, err = f.adapter.State()
	require.NoError(t, err)
	require.True(t, state.AccruedFee.IsZero())
}

func TestUpdateVaultAssets(t *testing.T) {
	f := newFixture(t, Config{
		FeeRate: math.NewInt(1e17), // 10%
	})
	require.NoError(t, f.vaultAsset.Mint(adapterAddr, unit(10)))
	require.NoError(t, f.adapter.RequestDepositToVault(botAcct, unit(10)))
	f.vault.FulfillDeposits(adapterAddr)
	_, err := f.adapter.DepositToVault(botAcct)
	require.NoError(t, err)

	// Pool needs shares outstanding to receive interest.
	require.NoError(t, f.poolAsset.Mint(alice, unit(10)))
	_, err = f.pool.Deposit(alice, unit(10), math.ZeroInt(), alice)
	require.NoError(t, err)

	// Vault position appreciates 10%: growth 1, fee 0.1, interest 0.9.
	f.vault.SetSharePrice(math.NewInt(11), math.NewInt(10))
	require.NoError(t, f.adapter.UpdateVaultAssets(botAcct))

	state, err := f.adapter.State()
	require.NoError(t, err)
	require.Equal(t, unit(11), state.LastVaultTotalAssets)
	require.Equal(t, unit(1).QuoRaw(10), state.AccruedFee)

	f.now = f.now.Add(pool.RewardDuration)
	assets, err := f.pool.TotalAssets()
	require.NoError(t, err)
	require.Equal(t, unit(10).Add(unit(9).QuoRaw(10)), assets)

	// No further growth: reconciliation is idempotent.
	require.NoError(t, f.adapter.UpdateVaultAssets(botAcct))
	state2, err := f.adapter.State()
	require.NoError(t, err)
	require.Equal(t, state.AccruedFee, state2.AccruedFee)
}

func TestUpdateVaultAssetsOnDecrease(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.vaultAsset.Mint(adapterAddr, unit(10)))
	require.NoError(t, f.adapter.RequestDepositToVault(botAcct, unit(10)))
	f.vault.FulfillDeposits(adapterAddr)
	_, err := f.adapter.DepositToVault(botAcct)
	require.NoError(t, err)

	// A value decrease reports nothing and leaves the watermark alone, so
	// accounting self-corrects once the vault recovers.
	f.vault.SetSharePrice(math.NewInt(9), math.NewInt(10))
	require.NoError(t, f.adapter.UpdateVaultAssets(botAcct))

	state, err := f.adapter.State()
	require.NoError(t, err)
	require.Equal(t, unit(10), state.LastVaultTotalAssets)
	require.True(t, state.AccruedFee.IsZero())
}

func TestDepositRewards(t *testing.T) {
	f := newFixture(t, Config{
		ToAssetLossRate: math.NewInt(1e17), // 10%
	})

	require.NoError(t, f.vaultAsset.Mint(managerAcct, unit(10)))
	require.NoError(t, f.vaultAsset.Approve(managerAcct, adapterAddr, unit(10)))

	// No rewards into an empty pool.
	require.ErrorIs(t, f.adapter.DepositRewards(managerAcct, unit(1)), ErrEmptyPool)

	require.NoError(t, f.poolAsset.Mint(alice, unit(10)))
	_, err := f.pool.Deposit(alice, unit(10), math.ZeroInt(), alice)
	require.NoError(t, err)

	require.NoError(t, f.adapter.DepositRewards(managerAcct, unit(1)))
	require.Equal(t, unit(9), f.vaultAsset.BalanceOf(managerAcct))
	require.Equal(t, unit(1), f.vaultAsset.BalanceOf(vaultAddr))

	// Interest vests net of the conversion loss.
	f.now = f.now.Add(pool.RewardDuration)
	assets, err := f.pool.TotalAssets()
	require.NoError(t, err)
	require.Equal(t, unit(10).Add(unit(9).QuoRaw(10)), assets)

	require.ErrorIs(t, f.adapter.DepositRewards(botAcct, unit(1)), auth.ErrUnauthorized)
}

func TestWithdrawFromVault(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.vaultAsset.Mint(adapterAddr, unit(10)))
	require.NoError(t, f.adapter.RequestDepositToVault(botAcct, unit(10)))
	f.vault.FulfillDeposits(adapterAddr)
	_, err := f.adapter.DepositToVault(botAcct)
	require.NoError(t, err)

	_, err = f.adapter.WithdrawFromVault(botAcct, false)
	require.ErrorIs(t, err, ErrNothingToRedeem)

	require.NoError(t, f.adapter.RequestWithdrawFromVault(botAcct, unit(4)))
	f.vault.FulfillRedeems(adapterAddr)

	redeemed, err := f.adapter.WithdrawFromVault(botAcct, false)
	require.NoError(t, err)
	require.Equal(t, unit(4), redeemed)
	require.Equal(t, unit(4), f.vaultAsset.BalanceOf(adapterAddr))
	require.Equal(t, unit(6), f.vault.BalanceOf(adapterAddr))

	state, err := f.adapter.State()
	require.NoError(t, err)
	require.Equal(t, unit(6), state.LastVaultTotalAssets)
}

func TestWithdrawFromVaultClaimsFee(t *testing.T) {
	f := newFixture(t, Config{
		FeeRate: math.NewInt(1e17), // 10%
	})
	require.NoError(t, f.vaultAsset.Mint(adapterAddr, unit(10)))
	require.NoError(t, f.adapter.RequestDepositToVault(botAcct, unit(10)))
	f.vault.FulfillDeposits(adapterAddr)
	_, err := f.adapter.DepositToVault(botAcct)
	require.NoError(t, err)

	require.NoError(t, f.poolAsset.Mint(alice, unit(10)))
	_, err = f.pool.Deposit(alice, unit(10), math.ZeroInt(), alice)
	require.NoError(t, err)

	// 10% appreciation accrues a fee of 0.1.
	f.vault.SetSharePrice(math.NewInt(11), math.NewInt(10))
	require.NoError(t, f.adapter.UpdateVaultAssets(botAcct))

	require.NoError(t, f.adapter.RequestWithdrawFromVault(botAcct, unit(2)))
	f.vault.FulfillRedeems(adapterAddr)

	redeemed, err := f.adapter.WithdrawFromVault(botAcct, true)
	require.NoError(t, err)
	fee := unit(1).QuoRaw(10)
	require.Equal(t, fee, f.vaultAsset.BalanceOf(feeAcct))
	require.Equal(t, redeemed.Sub(fee), f.vaultAsset.BalanceOf(adapterAddr))

	state, err := f.adapter.State()
	require.NoError(t, err)
	require.True(t, state.AccruedFee.IsZero())
}

func TestWithdrawFromVaultDefersFee(t *testing.T) {
	f := newFixture(t, Config{
		FeeRate: math.NewInt(5e17), // 50%
	})
	require.NoError(t, f.vaultAsset.Mint(adapterAddr, unit(10)))
	require.NoError(t, f.adapter.RequestDepositToVault(botAcct, unit(10)))
	f.vault.FulfillDeposits(adapterAddr)
	_, err := f.adapter.DepositToVault(botAcct)
	require.NoError(t, err)

	require.NoError(t, f.poolAsset.Mint(alice, unit(10)))
	_, err = f.pool.Deposit(alice, unit(10), math.ZeroInt(), alice)
	require.NoError(t, err)

	// Vault doubles: 10 growth accrues a 5 fee.
	f.vault.SetSharePrice(math.NewInt(2), math.NewInt(1))
	require.NoError(t, f.adapter.UpdateVaultAssets(botAcct))

	// Redeem only 1, far short of the accrued fee. The redeem still
	// settles and the fee stays accrued for a later, larger claim.
	require.NoError(t, f.adapter.RequestWithdrawFromVault(botAcct, unit(1)))
	f.vault.FulfillRedeems(adapterAddr)

	redeemed, err := f.adapter.WithdrawFromVault(botAcct, true)
	require.NoError(t, err)
	require.Equal(t, unit(1), redeemed)
	require.Equal(t, unit(1), f.vaultAsset.BalanceOf(adapterAddr))
	require.True(t, f.vaultAsset.BalanceOf(feeAcct).IsZero())

	state, err := f.adapter.State()
	require.NoError(t, err)
	require.Equal(t, unit(5), state.AccruedFee)
}

func TestFinishEarnPoolWithdraw(t *testing.T) {
	f := newFixture(t, Config{})

	require.NoError(t, f.poolAsset.Mint(alice, unit(10)))
	_, err := f.pool.Deposit(alice, unit(10), math.ZeroInt(), alice)
	require.NoError(t, err)
	_, err = f.pool.RequestWithdraw(alice, unit(3), math.ZeroInt(), alice)
	require.NoError(t, err)

	// Deposited assets sit with the adapter already.
	require.NoError(t, f.adapter.FinishEarnPoolWithdraw(botAcct, unit(3)))

	state, err := f.pool.State()
	require.NoError(t, err)
	require.Equal(t, uint64(1), state.ConfirmedBatchID)
	require.Equal(t, unit(3), f.poolAsset.BalanceOf(poolAddr))

	claimed, err := f.pool.ClaimWithdraw(alice, 0)
	require.NoError(t, err)
	require.Equal(t, unit(3), claimed)
}

func TestSwapTokenRouting(t *testing.T) {
	otcAddr := common.HexToAddress("0x04")
	walletAddr := common.HexToAddress("0x0c")

	f := newFixture(t, Config{})
	desk, err := otc.New(f.perm, otcAddr, adapterAddr, walletAddr)
	require.NoError(t, err)
	f.adapter.otc = desk

	require.NoError(t, f.vaultAsset.Mint(adapterAddr, unit(5)))
	require.NoError(t, f.adapter.SwapToken(botAcct, f.vaultAsset, unit(5)))
	require.Equal(t, unit(5), f.vaultAsset.BalanceOf(walletAddr))
	require.True(t, f.vaultAsset.BalanceOf(adapterAddr).IsZero())

	// Only the two managed legs may leave.
	other := token.NewLedger("WETH")
	require.NoError(t, other.Mint(adapterAddr, unit(1)))
	require.ErrorIs(t, f.adapter.SwapToken(botAcct, other, unit(1)), ErrUnknownToken)

	require.ErrorIs(t, f.adapter.SwapToken(alice, f.vaultAsset, unit(1)), auth.ErrUnauthorized)
}
