package agent

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rwax/earnpool/adapter"
	"github.com/rwax/earnpool/auth"
	"github.com/rwax/earnpool/internal/fakevault"
	"github.com/rwax/earnpool/pool"
	"github.com/rwax/earnpool/pool/store/memory"
	"github.com/rwax/earnpool/token"
)

var (
	admin       = common.HexToAddress("0xad")
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
	agent *Agent
	pool  *pool.EarnPool
	vault *fakevault.FakeVault
	asset *token.Ledger
	perm  *auth.Static
}

// newFixture wires the full settlement stack against a single asset serving
// as both the pool leg and the vault leg, which is how a 1:1 pegged
// deployment runs.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	perm := auth.NewStatic(admin)
	require.NoError(t, perm.Grant(admin, botAcct, auth.RoleBot))

	f := &fixture{asset: token.NewLedger("USD1"), perm: perm}
	f.vault = fakevault.Vault(vaultAddr, f.asset)

	memStore := memory.New()
	f.pool = pool.New(memStore, perm, f.asset, poolAddr)
	require.NoError(t, f.pool.SetAdapter(admin, adapterAddr))

	adapt, err := adapter.New(adapter.Config{
		Store:                memStore,
		Perm:                 perm,
		Pool:                 f.pool,
		Vault:                f.vault,
		PoolAsset:            f.asset,
		VaultAsset:           f.asset,
		Self:                 adapterAddr,
		FeeReceiver:          feeAcct,
		FeeRate:              math.ZeroInt(),
		ToVaultAssetLossRate: math.ZeroInt(),
		ToAssetLossRate:      math.ZeroInt(),
	})
	require.NoError(t, err)

	f.agent = &Agent{
		Adapter:   adapt,
		Pool:      f.pool,
		PoolAsset: f.asset,
		Account:   botAcct,
	}
	return f
}

func TestSettleCycle(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.asset.Mint(alice, unit(10)))
	_, err := f.pool.Deposit(alice, unit(10), math.ZeroInt(), alice)
	require.NoError(t, err)

	// Idle poll: nothing pending anywhere.
	require.NoError(t, f.agent.settle())

	// Funds reach the vault once it fulfills the deposit request.
	require.NoError(t, f.agent.Adapter.RequestDepositToVault(botAcct, unit(10)))
	require.NoError(t, f.agent.settle())
	require.True(t, f.vault.BalanceOf(adapterAddr).IsZero())
	f.vault.FulfillDeposits(adapterAddr)
	require.NoError(t, f.agent.settle())
	require.Equal(t, unit(10), f.vault.BalanceOf(adapterAddr))

	// A queued withdrawal gets funded once the vault redemption lands.
	_, err = f.pool.RequestWithdraw(alice, unit(4), math.ZeroInt(), alice)
	require.NoError(t, err)
	require.NoError(t, f.agent.Adapter.RequestWithdrawFromVault(botAcct, unit(4)))
	f.vault.FulfillRedeems(adapterAddr)
	require.NoError(t, f.agent.settle())

	state, err := f.pool.State()
	require.NoError(t, err)
	require.Equal(t, uint64(1), state.ConfirmedBatchID)

	claimed, err := f.pool.ClaimWithdraw(alice, 0)
	require.NoError(t, err)
	require.Equal(t, unit(4), claimed)

	owed, err := f.pool.PendingOwed()
	require.NoError(t, err)
	require.True(t, owed.IsZero())
}

func TestStartStop(t *testing.T) {
	f := newFixture(t)
	f.agent.PollInterval = time.Hour

	require.NoError(t, f.agent.Start())
	require.Error(t, f.agent.Start())

	f.agent.Stop()
	require.NoError(t, f.agent.Wait())

	// Restartable after a clean stop.
	require.NoError(t, f.agent.Start())
	f.agent.Stop()
	require.NoError(t, f.agent.Wait())
}

func TestRestartAfterLoopError(t *testing.T) {
	f := newFixture(t)
	f.agent.PollInterval = time.Millisecond

	require.NoError(t, f.agent.Start())

	// Revoking the bot role makes the next poll fail and end the loop.
	require.NoError(t, f.perm.Revoke(admin, botAcct, auth.RoleBot))
	require.ErrorIs(t, f.agent.Wait(), auth.ErrUnauthorized)

	require.NoError(t, f.perm.Grant(admin, botAcct, auth.RoleBot))
	require.NoError(t, f.agent.Start())
	f.agent.Stop()
	require.NoError(t, f.agent.Wait())
}
