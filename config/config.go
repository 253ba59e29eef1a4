package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradesim/commission"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/slippage"
)

const dateLayout = "2006-01-02"

// Config is everything needed to build and run one backtest session
type Config struct {
	Run       RunConfig       `json:"run" yaml:"run"`
	Market    MarketConfig    `json:"market" yaml:"market"`
	Execution ExecutionConfig `json:"execution" yaml:"execution"`
	Data      []DataConfig    `json:"data" yaml:"data"`
	Strategy  StrategyConfig  `json:"strategy" yaml:"strategy"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// RunConfig sets the simulated period
type RunConfig struct {
	Start       string  `json:"start" yaml:"start"` // 2006-01-02
	End         string  `json:"end" yaml:"end"`     // inclusive
	Frequency   string  `json:"frequency" yaml:"frequency"`
	InitialCash float64 `json:"initial_cash" yaml:"initial_cash"`
}

// StartTime is midnight UTC of the start date.
func (r RunConfig) StartTime() (time.Time, error) {
	return time.Parse(dateLayout, r.Start)
}

// EndTime is the last instant of the end date.
func (r RunConfig) EndTime() (time.Time, error) {
	t, err := time.Parse(dateLayout, r.End)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(24*time.Hour - time.Nanosecond), nil
}

func (r RunConfig) ParseFrequency() (market.Frequency, error) {
	return market.ParseFrequency(r.Frequency)
}

// MarketConfig describes the trading session
type MarketConfig struct {
	Open     string   `json:"open" yaml:"open"`   // 15:04, local to timezone
	Close    string   `json:"close" yaml:"close"` // 15:04
	Timezone string   `json:"timezone" yaml:"timezone"`
	Holidays []string `json:"holidays,omitempty" yaml:"holidays,omitempty"`
}

func (m MarketConfig) Calendar() (market.Calendar, error) {
	return market.NewCalendar(m.Open, m.Close, m.Timezone, m.Holidays)
}

// ExecutionConfig controls how orders are filled
type ExecutionConfig struct {
	OrderDelay string           `json:"order_delay,omitempty" yaml:"order_delay,omitempty"` // e.g. "0s", "1m"
	Commission CommissionConfig `json:"commission" yaml:"commission"`
	Slippage   SlippageConfig   `json:"slippage" yaml:"slippage"`
}

// ParseOrderDelay converts the delay string to time.Duration
func (e ExecutionConfig) ParseOrderDelay() (time.Duration, error) {
	if e.OrderDelay == "" {
		return 0, nil
	}
	return time.ParseDuration(e.OrderDelay)
}

type CommissionConfig struct {
	Model string  `json:"model" yaml:"model"` // none, fixed, bps, tiered
	Value float64 `json:"value,omitempty" yaml:"value,omitempty"`
}

func (c CommissionConfig) Build() (commission.Model, error) {
	return commission.New(c.Model, c.Value)
}

type SlippageConfig struct {
	Model          string  `json:"model" yaml:"model"` // none, fixed, fractional
	Value          float64 `json:"value,omitempty" yaml:"value,omitempty"`
	MaxVolumeShare float64 `json:"max_volume_share,omitempty" yaml:"max_volume_share,omitempty"`
}

func (s SlippageConfig) Build(base slippage.Base) (slippage.Model, error) {
	base.MaxVolumeShare = s.MaxVolumeShare
	return slippage.New(s.Model, s.Value, base)
}

// DataConfig points at a CSV bar file for one instrument
type DataConfig struct {
	Ticker    string `json:"ticker" yaml:"ticker"`
	Class     string `json:"class,omitempty" yaml:"class,omitempty"` // stock, future, crypto, fx
	Path      string `json:"path" yaml:"path"`
	Frequency string `json:"frequency,omitempty" yaml:"frequency,omitempty"` // bar size of the file; empty means run.frequency
}

// ParseFrequency returns the bar size of the file, falling back to run.
func (d DataConfig) ParseFrequency(run market.Frequency) (market.Frequency, error) {
	if d.Frequency == "" {
		return run, nil
	}
	return market.ParseFrequency(d.Frequency)
}

func (d DataConfig) Instrument() (market.Instrument, error) {
	c, err := market.ParseAssetClass(d.Class)
	if err != nil {
		return market.Instrument{}, err
	}
	return market.NewInstrument(d.Ticker, c), nil
}

// StrategyConfig selects and parameterizes a bundled strategy
type StrategyConfig struct {
	Name       string  `json:"name" yaml:"name"`
	Instrument string  `json:"instrument" yaml:"instrument"`
	Quantity   float64 `json:"quantity" yaml:"quantity"`
	Fast       int     `json:"fast,omitempty" yaml:"fast,omitempty"`
	Slow       int     `json:"slow,omitempty" yaml:"slow,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type    string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	Dir     string `json:"dir,omitempty" yaml:"dir,omitempty"`
	DBPath  string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	OrgPath string `json:"org_path,omitempty" yaml:"org_path,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error
}

// LoadFromFile loads configuration from a file (YAML or JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
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

// Clone returns a deep copy so concurrent runs never share slices.
func (c *Config) Clone() *Config {
	out := *c
	out.Data = append([]DataConfig(nil), c.Data...)
	out.Market.Holidays = append([]string(nil), c.Market.Holidays...)
	return &out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Run.InitialCash <= 0 {
		return errors.New("run.initial_cash must be positive")
	}
	start, err := c.Run.StartTime()
	if err != nil {
		return fmt.Errorf("run.start: %w", err)
	}
	end, err := c.Run.EndTime()
	if err != nil {
		return fmt.Errorf("run.end: %w", err)
	}
	if end.Before(start) {
		return errors.New("run.end must not be before run.start")
	}
	freq, err := c.Run.ParseFrequency()
	if err != nil {
		return fmt.Errorf("run.frequency: %w", err)
	}

	if _, err := c.Market.Calendar(); err != nil {
		return fmt.Errorf("market: %w", err)
	}

	d, err := c.Execution.ParseOrderDelay()
	if err != nil {
		return fmt.Errorf("execution.order_delay: %w", err)
	}
	if d < 0 {
		return errors.New("execution.order_delay must not be negative")
	}
	if _, err := c.Execution.Commission.Build(); err != nil {
		return fmt.Errorf("execution.commission: %w", err)
	}
	if _, err := c.Execution.Slippage.Build(slippage.Base{}); err != nil {
		return fmt.Errorf("execution.slippage: %w", err)
	}
	if s := c.Execution.Slippage.MaxVolumeShare; s < 0 || s > 1 {
		return errors.New("execution.slippage.max_volume_share must be between 0 and 1")
	}

	if len(c.Data) == 0 {
		return errors.New("at least one data entry is required")
	}
	for i, d := range c.Data {
		if d.Ticker == "" || d.Path == "" {
			return fmt.Errorf("data[%d]: ticker and path are required", i)
		}
		if _, err := d.Instrument(); err != nil {
			return fmt.Errorf("data[%d]: %w", i, err)
		}
		f, err := d.ParseFrequency(freq)
		if err != nil {
			return fmt.Errorf("data[%d].frequency: %w", i, err)
		}
		if f.Duration() > freq.Duration() {
			return fmt.Errorf("data[%d]: %s bars cannot feed a %s run", i, f, freq)
		}
	}

	if c.Strategy.Name == "" {
		return errors.New("strategy.name is required")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.Dir == "" {
			return errors.New("journal dir required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return errors.New("journal db_path required for SQLite type")
		}
	default:
		return errors.New("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Start:       "2024-01-02",
			End:         "2024-12-31",
			Frequency:   "daily",
			InitialCash: 100000,
		},
		Market: MarketConfig{
			Open:     "09:30",
			Close:    "16:00",
			Timezone: "America/New_York",
		},
		Execution: ExecutionConfig{
			OrderDelay: "0s",
			Commission: CommissionConfig{Model: "tiered"},
			Slippage:   SlippageConfig{Model: "fixed", Value: 0.01},
		},
		Data: []DataConfig{
			{Ticker: "SPY", Class: "stock", Path: "./data/SPY.csv"},
		},
		Strategy: StrategyConfig{
			Name:       "ema-cross",
			Instrument: "SPY",
			Quantity:   100,
			Fast:       10,
			Slow:       30,
		},
		Journal: JournalConfig{
			Type: "csv",
			Dir:  "./out",
		},
		Log: LogConfig{Level: "info"},
	}
}
