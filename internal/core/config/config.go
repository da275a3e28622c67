package config

import (
	"time"

	redisclient "github.com/hongbaolabs/hongbao/internal/infra/redis"
	"github.com/hongbaolabs/hongbao/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Telegram TelegramConfig     `yaml:"telegram"`
	Ledger   LedgerConfig       `yaml:"ledger"`
	Wallet   WalletConfig       `yaml:"wallet"`
	Faucet   FaucetConfig       `yaml:"faucet"`
	Gift     GiftConfig         `yaml:"gift"`
	Storage  StorageConfig      `yaml:"storage"`
	Redis    redisclient.Config `yaml:"redis"`
	Session  SessionConfig      `yaml:"session"`
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
}

// TelegramConfig holds bot transport settings.
type TelegramConfig struct {
	Token string `yaml:"token"`
}

// LedgerConfig holds the chain gateway settings.
type LedgerConfig struct {
	URL          string          `yaml:"url"`
	ChainID      string          `yaml:"chain_id"` // short-string id, e.g. SN_SEPOLIA
	MaxFee       string          `yaml:"max_fee"`  // wei, decimal string
	Timeout      time.Duration   `yaml:"timeout"`
	PollInterval time.Duration   `yaml:"poll_interval"`
	Contracts    ContractsConfig `yaml:"contracts"`
}

// ContractsConfig holds the fixed contract addresses the bot talks to.
type ContractsConfig struct {
	ETH              string `yaml:"eth"`
	Points           string `yaml:"points"`
	Gift             string `yaml:"gift"`
	Market           string `yaml:"market"`
	AccountClassHash string `yaml:"account_class_hash"`
}

// WalletConfig holds key management settings. Recreation is rejected by
// default so one user holds at most one record.
type WalletConfig struct {
	MasterKey     string `yaml:"master_key"` // 64 hex chars (256-bit)
	AllowRecreate bool   `yaml:"allow_recreate"`
}

// FaucetConfig holds the funded faucet identity and amounts (token units).
type FaucetConfig struct {
	Address    string `yaml:"address"`
	PrivateKey string `yaml:"private_key"`
	Threshold  string `yaml:"threshold"`   // refuse above this ETH balance
	Drop       string `yaml:"drop"`        // ETH sent per request
	PointsDrop string `yaml:"points_drop"` // points minted per request
}

// GiftConfig holds red-envelope behavior knobs.
type GiftConfig struct {
	Expiry         time.Duration `yaml:"expiry"`
	ValidateSecret bool          `yaml:"validate_secret"` // client-side shape check before submission
}

// StorageConfig selects the secret store backend. Postgres wins when a URL
// is configured, otherwise records live under the filesystem root.
type StorageConfig struct {
	Root     string          `yaml:"root"`
	Database postgres.Config `yaml:"database"`
}

// SessionConfig holds conversation state lifecycle settings.
type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
