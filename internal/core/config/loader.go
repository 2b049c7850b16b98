package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v2"
)

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

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Network == "" {
		c.Network = DefaultNetwork
	}
	c.Network = strings.ToLower(c.Network)
	if c.Netcode == "" {
		c.Netcode = DefaultNetcode
	}
	c.Netcode = strings.ToUpper(c.Netcode)
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	if c.Confirmations == 0 {
		c.Confirmations = DefaultConfirmations
	}
	if c.Notify.Mode == 0 {
		c.Notify.Mode = DefaultPipeMode
	}
	if c.RPC.Timeout == 0 {
		c.RPC.Timeout = DefaultRPCTimeout
	}
	if c.RPC.MaxAttempts == 0 {
		c.RPC.MaxAttempts = 1
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Redis.StreamPrefix == "" {
		c.Redis.StreamPrefix = "walletnotify"
	}
}

// Validate reports every problem with the configuration at once.
func (c *AppConfig) Validate() error {
	var errs *multierror.Error

	if strings.ContainsAny(c.Network, " \t\n") {
		errs = multierror.Append(errs, fmt.Errorf("network %q must be a single token", c.Network))
	}
	switch c.Netcode {
	case "BTC", "XTN", "REG":
	default:
		errs = multierror.Append(errs, fmt.Errorf("unsupported netcode %q", c.Netcode))
	}
	if c.Confirmations < 0 {
		errs = multierror.Append(errs, fmt.Errorf("confirmations must be >= 0, got %d", c.Confirmations))
	}
	if c.Notify.Pipe == "" {
		errs = multierror.Append(errs, fmt.Errorf("notify.pipe is required"))
	}
	if c.Notify.Mode&0o7000 != 0 || c.Notify.Mode > 0o777 {
		errs = multierror.Append(errs, fmt.Errorf("notify.mode %o is not a permission mode", c.Notify.Mode))
	}
	if c.RPC.URL == "" {
		errs = multierror.Append(errs, fmt.Errorf("rpc.url is required"))
	}
	if c.RPC.Timeout < 0 {
		errs = multierror.Append(errs, fmt.Errorf("rpc.timeout must be positive"))
	}
	switch c.Database.Driver {
	case "", "pgx", "postgres":
	default:
		errs = multierror.Append(errs, fmt.Errorf("unsupported database.driver %q", c.Database.Driver))
	}

	return errs.ErrorOrNil()
}
