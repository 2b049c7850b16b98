package config

import (
	"time"

	redisclient "github.com/vietddude/walletnotify/internal/infra/redis"
	"github.com/vietddude/walletnotify/internal/infra/rpc"
	"github.com/vietddude/walletnotify/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	// Network is the notification network code, e.g. "bitcoin".
	Network string `yaml:"network"`
	// Netcode selects address parameters: BTC (mainnet), XTN (testnet), REG (regtest).
	Netcode       string             `yaml:"netcode"`
	Currency      string             `yaml:"currency"`
	Confirmations int64              `yaml:"confirmations"`
	Notify        NotifyConfig       `yaml:"notify"`
	RPC           rpc.Config         `yaml:"rpc"`
	Server        ServerConfig       `yaml:"server"`
	Redis         redisclient.Config `yaml:"redis"`
	Logging       LoggingConfig      `yaml:"logging"`
	Database      postgres.Config    `yaml:"database"`
}

// NotifyConfig holds the named pipe settings.
type NotifyConfig struct {
	Pipe  string `yaml:"pipe"`
	Mode  uint32 `yaml:"mode"`  // e.g. 0620
	Group string `yaml:"group"` // optional group owner
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

const (
	DefaultNetwork       = "bitcoin"
	DefaultNetcode       = "BTC"
	DefaultCurrency      = "BTC"
	DefaultConfirmations = 3
	DefaultPipeMode      = 0o620
	DefaultRPCTimeout    = 30 * time.Second
)
