// Package config holds the deployment configuration for the earn pool
// service: accounts, rate parameters and the settlement bot's schedule.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	Pool struct {
		// Store selects the ledger driver: "memory" or "persist".
		Store string `yaml:"store"`
		// DataDir is the badger directory for the persist driver.
		DataDir string `yaml:"data_dir"`

		FeeReceiver     string `yaml:"fee_receiver"`
		WithdrawFeeRate string `yaml:"withdraw_fee_rate"`
	} `yaml:"pool"`
	Adapter struct {
		FeeReceiver          string `yaml:"fee_receiver"`
		FeeRate              string `yaml:"fee_rate"`
		ToVaultAssetLossRate string `yaml:"to_vault_asset_loss_rate"`
		ToAssetLossRate      string `yaml:"to_asset_loss_rate"`
	} `yaml:"adapter"`
	OTC struct {
		Wallet string `yaml:"wallet"`
	} `yaml:"otc"`
	Accounts struct {
		Admin   string `yaml:"admin"`
		Manager string `yaml:"manager"`
		Bot     string `yaml:"bot"`
	} `yaml:"accounts"`
	Bot struct {
		PollInterval      string `yaml:"poll_interval"`
		ReconcileSchedule string `yaml:"reconcile_schedule"`
		ClaimFee          bool   `yaml:"claim_fee"`
	} `yaml:"bot"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("EARNPOOL_STORE"); v != "" {
		cfg.Pool.Store = v
	}
	if v := os.Getenv("EARNPOOL_DATADIR"); v != "" {
		cfg.Pool.DataDir = v
	}
	if v := os.Getenv("EARNPOOL_ADMIN"); v != "" {
		cfg.Accounts.Admin = v
	}
	if v := os.Getenv("EARNPOOL_BOT_POLL_INTERVAL"); v != "" {
		cfg.Bot.PollInterval = v
	}
	if v := os.Getenv("EARNPOOL_BOT_RECONCILE_SCHEDULE"); v != "" {
		cfg.Bot.ReconcileSchedule = v
	}

	// Defaults
	if cfg.Pool.Store == "" {
		cfg.Pool.Store = "memory"
	}
	if cfg.Pool.WithdrawFeeRate == "" {
		cfg.Pool.WithdrawFeeRate = "0"
	}
	if cfg.Adapter.FeeRate == "" {
		cfg.Adapter.FeeRate = "0"
	}
	if cfg.Adapter.ToVaultAssetLossRate == "" {
		cfg.Adapter.ToVaultAssetLossRate = "0"
	}
	if cfg.Adapter.ToAssetLossRate == "" {
		cfg.Adapter.ToAssetLossRate = "0"
	}
	if cfg.Bot.PollInterval == "" {
		cfg.Bot.PollInterval = "15s"
	}
	if cfg.Bot.ReconcileSchedule == "" {
		cfg.Bot.ReconcileSchedule = "0 * * * *"
	}

	return cfg, nil
}
