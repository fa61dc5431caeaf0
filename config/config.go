// Package config is the explicit configuration surface for a backtest
// run. One Config is loaded, validated once, and passed by reference into
// the session controller and adapters; nothing reads environment
// variables or holds ambient connection state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/barsim/cost"
	"github.com/rustyeddy/barsim/market"
)

// Config represents the complete backtest configuration.
type Config struct {
	Account    AccountConfig  `json:"account" yaml:"account"`
	Session    SessionConfig  `json:"session" yaml:"session"`
	Commission cost.Model     `json:"commission_model" yaml:"commission_model"`
	Slippage   cost.Model     `json:"slippage_model" yaml:"slippage_model"`
	Hours      HoursConfig    `json:"hours" yaml:"hours"`
	Strategy   StrategyConfig `json:"strategy" yaml:"strategy"`
	Feed       FeedConfig     `json:"feed" yaml:"feed"`
	Journal    JournalConfig  `json:"journal" yaml:"journal"`
}

// AccountConfig sets up the simulated account.
type AccountConfig struct {
	ID             string  `json:"id" yaml:"id"`
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
}

// SessionConfig selects what to replay.
type SessionConfig struct {
	Instrument string    `json:"instrument" yaml:"instrument"`
	Timeframe  string    `json:"timeframe" yaml:"timeframe"`
	Start      time.Time `json:"start" yaml:"start"`
	End        time.Time `json:"end" yaml:"end"`
}

// HoursConfig describes the trading session in exchange-local time.
type HoursConfig struct {
	Timezone         string `json:"timezone" yaml:"timezone"`
	Open             string `json:"open" yaml:"open"`
	Close            string `json:"close" yaml:"close"`
	ForceCloseWithin string `json:"force_close_within" yaml:"force_close_within"` // e.g. "5m"
}

// Hours builds the market.Hours calendar described by this config.
func (h HoursConfig) Hours() (*market.Hours, error) {
	within, err := time.ParseDuration(h.ForceCloseWithin)
	if err != nil {
		return nil, fmt.Errorf("hours.force_close_within: %w", err)
	}
	return market.NewHours(h.Timezone, h.Open, h.Close, within)
}

// StrategyConfig names the strategy and its parameters.
type StrategyConfig struct {
	Name       string             `json:"name" yaml:"name"`
	Parameters map[string]float64 `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// FeedConfig selects the bar source.
type FeedConfig struct {
	Type    string `json:"type" yaml:"type"` // "sqlite" or "csv"
	DBPath  string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	CSVFile string `json:"csv_file,omitempty" yaml:"csv_file,omitempty"`
}

// JournalConfig selects where session records go.
type JournalConfig struct {
	Type          string `json:"type" yaml:"type"` // "sqlite" or "csv"
	DBPath        string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	SessionsFile  string `json:"sessions_file,omitempty" yaml:"sessions_file,omitempty"`
	OrdersFile    string `json:"orders_file,omitempty" yaml:"orders_file,omitempty"`
	TradesFile    string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	PositionsFile string `json:"positions_file,omitempty" yaml:"positions_file,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml
// extensions, JSON otherwise).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Account.InitialCapital < 0 {
		return fmt.Errorf("account.initial_capital must be >= 0")
	}
	if c.Session.Instrument == "" {
		return fmt.Errorf("session.instrument is required")
	}
	if _, err := market.TFSeconds(c.Session.Timeframe); err != nil {
		return fmt.Errorf("session.timeframe: %w", err)
	}
	if c.Session.Start.IsZero() || c.Session.End.IsZero() {
		return fmt.Errorf("session.start and session.end are required")
	}
	if !c.Session.End.After(c.Session.Start) {
		return fmt.Errorf("session.end must be after session.start")
	}
	// Cost models are deliberately not validated here: an absent or
	// unrecognized kind means zero cost, which keeps pre-cost-model
	// configurations running unchanged.
	if _, err := c.Hours.Hours(); err != nil {
		return err
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}

	switch c.Feed.Type {
	case "sqlite":
		if c.Feed.DBPath == "" {
			return fmt.Errorf("feed.db_path required for sqlite feed")
		}
	case "csv":
		if c.Feed.CSVFile == "" {
			return fmt.Errorf("feed.csv_file required for csv feed")
		}
	default:
		return fmt.Errorf("feed.type must be 'sqlite' or 'csv'")
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite journal")
		}
	case "csv":
		if c.Journal.SessionsFile == "" || c.Journal.OrdersFile == "" ||
			c.Journal.TradesFile == "" || c.Journal.PositionsFile == "" {
			return fmt.Errorf("journal sessions/orders/trades/positions files required for csv journal")
		}
	default:
		return fmt.Errorf("journal.type must be 'sqlite' or 'csv'")
	}

	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:             "SIM-001",
			InitialCapital: 100000,
		},
		Session: SessionConfig{
			Instrument: "SPY",
			Timeframe:  "M5",
			Start:      time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
			End:        time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC),
		},
		Commission: cost.Model{Kind: cost.Percentage, Rate: 0.001},
		Slippage:   cost.Model{Kind: cost.Percentage, Rate: 0.0001},
		Hours: HoursConfig{
			Timezone:         "America/New_York",
			Open:             "09:30",
			Close:            "16:00",
			ForceCloseWithin: "5m",
		},
		Strategy: StrategyConfig{
			Name:       "ma-cross",
			Parameters: map[string]float64{"short_window": 10, "long_window": 50, "size": 100},
		},
		Feed:    FeedConfig{Type: "sqlite", DBPath: "./bars.sqlite"},
		Journal: JournalConfig{Type: "sqlite", DBPath: "./backtest.sqlite"},
	}
}
