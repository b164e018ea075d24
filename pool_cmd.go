package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"cosmossdk.io/math"
	"github.com/OpenPeeDeeP/xdg"
	"github.com/dgraph-io/badger/v2"
	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rwax/earnpool/adapter"
	"github.com/rwax/earnpool/auth"
	"github.com/rwax/earnpool/config"
	"github.com/rwax/earnpool/internal/fakevault"
	"github.com/rwax/earnpool/internal/pretty"
	"github.com/rwax/earnpool/otc"
	"github.com/rwax/earnpool/pool"
	"github.com/rwax/earnpool/pool/status"
	"github.com/rwax/earnpool/pool/store"
	badgerStore "github.com/rwax/earnpool/pool/store/badger"
	"github.com/rwax/earnpool/pool/store/memory"
	"github.com/rwax/earnpool/token"
)

// Fixed custody accounts for the in-process deployment. User-facing
// accounts come from the config.
var (
	poolAccount    = common.HexToAddress("0x00000000000000000000000000000000000e0001")
	adapterAccount = common.HexToAddress("0x00000000000000000000000000000000000e0002")
	vaultAccount   = common.HexToAddress("0x00000000000000000000000000000000000e0003")
	otcAccount     = common.HexToAddress("0x00000000000000000000000000000000000e0004")

	defaultAdmin  = common.HexToAddress("0x00000000000000000000000000000000000a0001")
	defaultWallet = common.HexToAddress("0x00000000000000000000000000000000000a0002")
)

// findDataDir returns a valid data dir, will create it if it doesn't
// exist.
func findDataDir(overridePath string) (string, error) {
	path := overridePath
	if path == "" {
		path = xdg.New("rwax", "earnpool").DataHome()
	}
	err := os.MkdirAll(path, 0700)
	return path, err
}

func openStore(driver, dataDir string) (store.Store, error) {
	switch driver {
	case "memory":
		return memory.New(), nil
	case "persist", "badger":
		dir, err := findDataDir(dataDir)
		if err != nil {
			return nil, err
		}
		badgerOpts := badger.DefaultOptions(dir)
		s, err := badgerStore.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
		logger.Infof("Persistent store using badger backend: %s", dir)
		return s, nil
	}
	return nil, errors.New("storage driver not implemented")
}

func parseRate(s string) (math.Int, error) {
	rate, ok := math.NewIntFromString(s)
	if !ok {
		return math.Int{}, fmt.Errorf("invalid rate: %q", s)
	}
	return rate, nil
}

func parseAccount(s string, fallback common.Address) common.Address {
	if s == "" {
		return fallback
	}
	return common.HexToAddress(s)
}

// service is the fully wired in-process deployment: pool, adapter, OTC desk
// and a scriptable vault standing in for the external one.
type service struct {
	store      store.Store
	perm       *auth.Static
	pool       *pool.EarnPool
	adapter    *adapter.Adapter
	otc        *otc.Manager
	vault      *fakevault.FakeVault
	poolAsset  *token.Ledger
	vaultAsset *token.Ledger

	admin   common.Address
	manager common.Address
	bot     common.Address
}

func buildService(cfg *config.Config, storeDriver store.Store) (*service, error) {
	s := &service{
		store:      storeDriver,
		poolAsset:  token.NewLedger("USD1"),
		vaultAsset: token.NewLedger("USDC"),
	}
	s.admin = parseAccount(cfg.Accounts.Admin, defaultAdmin)
	s.manager = parseAccount(cfg.Accounts.Manager, s.admin)
	s.bot = parseAccount(cfg.Accounts.Bot, s.admin)

	s.perm = auth.NewStatic(s.admin)
	if s.manager != s.admin {
		if err := s.perm.Grant(s.admin, s.manager, auth.RoleManager); err != nil {
			return nil, err
		}
	}
	if s.bot != s.admin {
		if err := s.perm.Grant(s.admin, s.bot, auth.RoleBot); err != nil {
			return nil, err
		}
	}

	s.vault = fakevault.Vault(vaultAccount, s.vaultAsset)
	s.pool = pool.New(storeDriver, s.perm, s.poolAsset, poolAccount)
	if err := s.pool.SetAdapter(s.admin, adapterAccount); err != nil && !errors.Is(err, pool.ErrNoChange) {
		return nil, err
	}

	if rate := cfg.Pool.WithdrawFeeRate; rate != "0" && rate != "" {
		feeRate, err := parseRate(rate)
		if err != nil {
			return nil, err
		}
		if err := s.pool.SetWithdrawFeeRate(s.admin, feeRate); err != nil && !errors.Is(err, pool.ErrNoChange) {
			return nil, err
		}
	}
	if recv := cfg.Pool.FeeReceiver; recv != "" {
		if err := s.pool.SetFeeReceiver(s.admin, common.HexToAddress(recv)); err != nil && !errors.Is(err, pool.ErrNoChange) {
			return nil, err
		}
	}

	wallet := parseAccount(cfg.OTC.Wallet, defaultWallet)
	desk, err := otc.New(s.perm, otcAccount, adapterAccount, wallet)
	if err != nil {
		return nil, err
	}
	s.otc = desk

	feeRate, err := parseRate(cfg.Adapter.FeeRate)
	if err != nil {
		return nil, err
	}
	toVaultLoss, err := parseRate(cfg.Adapter.ToVaultAssetLossRate)
	if err != nil {
		return nil, err
	}
	toAssetLoss, err := parseRate(cfg.Adapter.ToAssetLossRate)
	if err != nil {
		return nil, err
	}

	s.adapter, err = adapter.New(adapter.Config{
		Store:                storeDriver,
		Perm:                 s.perm,
		Pool:                 s.pool,
		Vault:                s.vault,
		OTC:                  s.otc,
		PoolAsset:            s.poolAsset,
		VaultAsset:           s.vaultAsset,
		Self:                 adapterAccount,
		FeeReceiver:          parseAccount(cfg.Adapter.FeeReceiver, s.admin),
		FeeRate:              feeRate,
		ToVaultAssetLossRate: toVaultLoss,
		ToAssetLossRate:      toAssetLoss,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func runPool(options Options) error {
	cfg, err := config.Load(options.Config)
	if err != nil {
		return err
	}
	if options.Pool.Store != "" {
		cfg.Pool.Store = options.Pool.Store
	}
	if options.Pool.DataDir != "" {
		cfg.Pool.DataDir = options.Pool.DataDir
	}

	storeDriver, err := openStore(cfg.Pool.Store, cfg.Pool.DataDir)
	if err != nil {
		return err
	}
	defer storeDriver.Close()

	s, err := buildService(cfg, storeDriver)
	if err != nil {
		return err
	}

	poolStatus := &status.PoolStatus{
		Pool:          s.pool,
		TimeStarted:   time.Now(),
		Version:       fmt.Sprintf("earnpool/%s", Version),
		CacheDuration: time.Second * 10,
	}

	logger.Infof("Starting pool (version %s), admin %s, adapter %s",
		Version, pretty.Abbrev(s.admin.Hex()), pretty.Abbrev(s.adapter.Address().Hex()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r, err := poolStatus.Status(context.Background())
			if err != nil {
				logger.Warningf("status snapshot failed: %s", err)
				continue
			}
			logger.Infof("up since %s: supply %s, assets %s, batches %d/%d, queue %d",
				humanize.Time(poolStatus.TimeStarted),
				pretty.Amount(*r.TotalSupply.BigInt()), pretty.Amount(*r.TotalAssets.BigInt()),
				r.ConfirmedBatchID, r.CurrentBatchID, r.Stats.NumRequests)
		case <-sigCh:
			logger.Info("Shutting down...")
			return nil
		}
	}
}

func runStatus(options Options) error {
	cfg, err := config.Load(options.Config)
	if err != nil {
		return err
	}
	if options.Status.DataDir != "" {
		cfg.Pool.DataDir = options.Status.DataDir
	}

	storeDriver, err := openStore(cfg.Pool.Store, cfg.Pool.DataDir)
	if err != nil {
		return err
	}
	defer storeDriver.Close()

	s, err := buildService(cfg, storeDriver)
	if err != nil {
		return err
	}

	poolStatus := &status.PoolStatus{
		Pool:    s.pool,
		Version: fmt.Sprintf("earnpool/%s", Version),
	}
	r, err := poolStatus.Status(context.Background())
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
