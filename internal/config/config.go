// Package config exposes the service configuration, loaded from YAML and overridden by the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingKey is returned when live trading is configured without a signing key.
var ErrMissingKey = errors.New("missing HYPERLIQUID_PRIVATE_KEY")

const (
	ModeLive  = "live"
	ModePaper = "paper"

	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"

	SwitchStatic = "static"
	SwitchSheet  = "sheet"

	// StatusStart is the only kill switch value that allows trading.
	StatusStart = "START"
)

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	Port        int    `yaml:"port"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	// RateLimit is webhook requests per second per client IP; zero disables limiting.
	RateLimit    float64 `yaml:"rate_limit"`
	RateBurst    int     `yaml:"rate_burst"`
	MaxBodyBytes int64   `yaml:"max_body_bytes"`
}

// Exchange describes how orders reach Hyperliquid.
type Exchange struct {
	Mode           string  `yaml:"mode"`
	Network        string  `yaml:"network"`
	BaseURL        string  `yaml:"base_url"`
	WSURL          string  `yaml:"ws_url"`
	PrivateKey     string  `yaml:"private_key"`
	AccountAddress string  `yaml:"account_address"`
	Slippage       float64 `yaml:"slippage"`
	// SizeDecimals rounds the computed coin size; -1 uses the asset's own size decimals.
	SizeDecimals int `yaml:"size_decimals"`
	TimeoutMs    int `yaml:"timeout_ms"`
}

// Switch configures the remote kill switch.
type Switch struct {
	Mode            string `yaml:"mode"`
	Status          string `yaml:"status"`
	SheetID         string `yaml:"sheet_id"`
	Range           string `yaml:"range"`
	CredentialsFile string `yaml:"credentials_file"`
	CredentialsJSON string `yaml:"credentials_json"`
}

// Risk holds the guard-rails applied before any order is sent.
type Risk struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"`
	// AllowStacking disables the open-position guard.
	AllowStacking bool `yaml:"allow_stacking"`
}

// Paper configures the dry-run venue.
type Paper struct {
	FillsPath string `yaml:"fills_path"`
	// MaxPosition caps the absolute simulated size per coin; zero disables it.
	MaxPosition    float64 `yaml:"max_position"`
	LedgerCapacity int     `yaml:"ledger_capacity"`
}

// Config collects every configuration leaf.
type Config struct {
	App      App      `yaml:"app"`
	Exchange Exchange `yaml:"exchange"`
	Switch   Switch   `yaml:"switch"`
	Risk     Risk     `yaml:"risk"`
	Paper    Paper    `yaml:"paper"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		App: App{
			Name:         "titan-bot",
			Env:          "production",
			Port:         10000,
			LogLevel:     "info",
			MaxBodyBytes: 1 << 20,
		},
		Exchange: Exchange{
			Mode:         ModeLive,
			Network:      NetworkMainnet,
			Slippage:     0.01,
			SizeDecimals: 5,
			TimeoutMs:    10000,
		},
		Switch: Switch{
			Mode:   SwitchStatic,
			Status: StatusStart,
			Range:  "A1",
		},
		Paper: Paper{
			LedgerCapacity: 64,
		},
	}
}

// Load reads a YAML file over the defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	cfg := Default()
	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a configuration from defaults and the environment only.
func FromEnv() (*Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	_ = godotenv.Load() // best-effort

	setString(&c.Exchange.PrivateKey, "HYPERLIQUID_PRIVATE_KEY", "PRIVATE_KEY")
	setString(&c.Exchange.AccountAddress, "HYPERLIQUID_ACCOUNT_ADDRESS", "WALLET_ADDRESS")
	setString(&c.Exchange.Network, "HYPERLIQUID_NETWORK")
	setString(&c.Exchange.BaseURL, "HYPERLIQUID_BASE_URL")
	setString(&c.Exchange.Mode, "TRADING_MODE")
	setString(&c.Switch.Status, "BOT_STATUS")
	setString(&c.Switch.SheetID, "GOOGLE_SHEET_ID")
	setString(&c.Switch.Range, "GOOGLE_SHEET_RANGE")
	setString(&c.Switch.CredentialsJSON, "GOOGLE_CREDENTIALS_JSON")
	setString(&c.Switch.CredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	setString(&c.App.LogLevel, "LOG_LEVEL")
	setString(&c.App.MetricsAddr, "METRICS_ADDR")
	setString(&c.Paper.FillsPath, "PAPER_FILLS_PATH")
	if c.Switch.SheetID != "" && os.Getenv("SWITCH_MODE") == "" && c.Switch.Mode == SwitchStatic {
		c.Switch.Mode = SwitchSheet
	}
	setString(&c.Switch.Mode, "SWITCH_MODE")

	if raw := strings.TrimSpace(os.Getenv("PORT")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid PORT %q", raw)
		}
		c.App.Port = port
	}
	if raw := strings.TrimSpace(os.Getenv("SLIPPAGE")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid SLIPPAGE %q", raw)
		}
		c.Exchange.Slippage = v
	}
	if raw := strings.TrimSpace(os.Getenv("PAPER_MAX_POSITION")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid PAPER_MAX_POSITION %q", raw)
		}
		c.Paper.MaxPosition = v
	}
	if raw := strings.TrimSpace(os.Getenv("PAPER_LEDGER_CAPACITY")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return fmt.Errorf("invalid PAPER_LEDGER_CAPACITY %q", raw)
		}
		c.Paper.LedgerCapacity = v
	}
	if raw := strings.TrimSpace(os.Getenv("MAX_NOTIONAL_PER_TRADE")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_NOTIONAL_PER_TRADE %q", raw)
		}
		c.Risk.MaxNotionalPerTrade = v
	}
	return nil
}

// setString copies the first non-empty variable among keys into dst.
func setString(dst *string, keys ...string) {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
			return
		}
	}
}

// Validate reports configuration that cannot run, naming what is missing.
func (c *Config) Validate() error {
	c.Exchange.Mode = strings.ToLower(strings.TrimSpace(c.Exchange.Mode))
	c.Exchange.Network = strings.ToLower(strings.TrimSpace(c.Exchange.Network))
	c.Switch.Mode = strings.ToLower(strings.TrimSpace(c.Switch.Mode))

	switch c.Exchange.Mode {
	case ModeLive:
		if c.Exchange.PrivateKey == "" {
			return ErrMissingKey
		}
	case ModePaper:
	default:
		return fmt.Errorf("invalid exchange mode %q: use live or paper", c.Exchange.Mode)
	}
	if c.Exchange.Network != NetworkMainnet && c.Exchange.Network != NetworkTestnet {
		return fmt.Errorf("invalid network %q: use mainnet or testnet", c.Exchange.Network)
	}
	if c.Exchange.Slippage < 0 || c.Exchange.Slippage >= 1 {
		return fmt.Errorf("slippage must be in [0,1), got %v", c.Exchange.Slippage)
	}
	if c.Paper.MaxPosition < 0 {
		return fmt.Errorf("paper max_position must not be negative, got %v", c.Paper.MaxPosition)
	}
	if c.Exchange.SizeDecimals < -1 {
		return fmt.Errorf("size_decimals must be -1 or more, got %d", c.Exchange.SizeDecimals)
	}

	var missing []string
	switch c.Switch.Mode {
	case SwitchStatic:
	case SwitchSheet:
		if c.Switch.SheetID == "" {
			missing = append(missing, "GOOGLE_SHEET_ID")
		}
		if c.Switch.CredentialsJSON == "" && c.Switch.CredentialsFile == "" {
			missing = append(missing, "GOOGLE_CREDENTIALS_JSON")
		}
	default:
		return fmt.Errorf("invalid switch mode %q: use static or sheet", c.Switch.Mode)
	}
	if len(missing) > 0 {
		return errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string { return ":" + strconv.Itoa(c.App.Port) }

// IsMainnet reports whether orders are signed for mainnet.
func (c *Config) IsMainnet() bool { return c.Exchange.Network != NetworkTestnet }
