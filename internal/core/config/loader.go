package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v2"
)

var hexKeyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Ledger.ChainID == "" {
		cfg.Ledger.ChainID = "SN_SEPOLIA"
	}
	if cfg.Ledger.Timeout == 0 {
		cfg.Ledger.Timeout = 30 * time.Second
	}
	if cfg.Ledger.PollInterval == 0 {
		cfg.Ledger.PollInterval = 2 * time.Second
	}
	if cfg.Ledger.MaxFee == "" {
		cfg.Ledger.MaxFee = "1000000000000000" // 0.001 ETH
	}
	if cfg.Storage.Root == "" {
		cfg.Storage.Root = "secure_storage"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 10 * time.Minute
	}
	if cfg.Gift.Expiry == 0 {
		cfg.Gift.Expiry = 24 * time.Hour
	}
	if cfg.Faucet.Threshold == "" {
		cfg.Faucet.Threshold = "0.0005"
	}
	if cfg.Faucet.Drop == "" {
		cfg.Faucet.Drop = "0.001"
	}
	if cfg.Faucet.PointsDrop == "" {
		cfg.Faucet.PointsDrop = "100"
	}
}

func validate(cfg *AppConfig) error {
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if cfg.Ledger.URL == "" {
		return fmt.Errorf("ledger.url is required")
	}
	if !hexKeyPattern.MatchString(cfg.Wallet.MasterKey) {
		return fmt.Errorf("wallet.master_key must be 64 lowercase hex chars")
	}
	return nil
}
