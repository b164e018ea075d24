package main

import (
	"os"
	"os/signal"
	"time"

	"cosmossdk.io/math"

	"github.com/rwax/earnpool/agent"
	"github.com/rwax/earnpool/config"
	"github.com/rwax/earnpool/internal/pretty"
)

// demoFunding seeds the admin account with pool asset so an in-process demo
// deployment has something to deposit.
var demoFunding = math.NewInt(1_000_000).MulRaw(1e18)

func runBot(options Options) error {
	cfg, err := config.Load(options.Config)
	if err != nil {
		return err
	}
	if options.Bot.PollInterval != "" {
		cfg.Bot.PollInterval = options.Bot.PollInterval
	}
	pollInterval, err := time.ParseDuration(cfg.Bot.PollInterval)
	if err != nil {
		return err
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
	if err := s.poolAsset.Mint(s.admin, demoFunding); err != nil {
		return err
	}
	if err := s.vaultAsset.Mint(s.manager, demoFunding); err != nil {
		return err
	}

	a := &agent.Agent{
		Adapter:           s.adapter,
		Pool:              s.pool,
		PoolAsset:         s.poolAsset,
		Account:           s.bot,
		ClaimFee:          cfg.Bot.ClaimFee,
		PollInterval:      pollInterval,
		ReconcileSchedule: cfg.Bot.ReconcileSchedule,
	}
	if err := a.Start(); err != nil {
		return err
	}
	logger.Infof("Settlement bot running as %s, polling every %s",
		pretty.Abbrev(s.bot.Hex()), pollInterval)

	// Register a.Stop() on ctrl+c signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		for range sigCh {
			logger.Info("Shutting down...")
			a.Stop()
		}
	}()

	return a.Wait()
}
