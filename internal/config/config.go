package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Strategy selects which signal generator runs for a symbol.
type Strategy string

const (
	StrategyMACrossover   Strategy = "ma_crossover"
	StrategyRSIContrarian Strategy = "rsi_contrarian"
)

// SymbolConfig is the per-pair trading configuration. Immutable once loaded.
type SymbolConfig struct {
	Symbol         string   `yaml:"symbol"`
	Strategy       Strategy `yaml:"strategy"`
	MaxPositionPct float64  `yaml:"max_position_pct"`
	StopLossPct    float64  `yaml:"stop_loss_pct"`
	RSIPeriod      int      `yaml:"rsi_period"`
	RSIOversold    float64  `yaml:"rsi_oversold"`
	RSIOverbought  float64  `yaml:"rsi_overbought"`
	MAShortPeriod  int      `yaml:"ma_short_period"`
	MALongPeriod   int      `yaml:"ma_long_period"`
}

type Config struct {
	// Credentials come from the environment, never from the yaml file.
	APIKey    string `yaml:"-"`
	APISecret string `yaml:"-"`

	Timeframe   string         `yaml:"timeframe"`
	IntervalSec int            `yaml:"interval_sec"`
	Symbols     []SymbolConfig `yaml:"symbols"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Storage struct {
		SQLitePath string `yaml:"sqlite_path"`
		MySQLDSN   string `yaml:"mysql_dsn"`
	} `yaml:"storage"`
}

// Load reads the yaml config and merges credentials from the environment.
// A .env file in the working directory is honored for local runs.
//
// There is no sandbox for this exchange; every order spends real money. The
// explicit CONFIRM_TRADING=yes gate exists so a half-configured deployment
// cannot start trading by accident.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := &Config{}
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.APIKey = os.Getenv("BITFLYER_API_KEY")
	cfg.APISecret = os.Getenv("BITFLYER_API_SECRET")
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		cfg.Storage.MySQLDSN = dsn
	}

	cfg.applyDefaults()

	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("BITFLYER_API_KEY and BITFLYER_API_SECRET must be set")
	}
	if os.Getenv("CONFIRM_TRADING") != "yes" {
		return nil, fmt.Errorf("CONFIRM_TRADING=yes must be set to enable trading against a live account")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Timeframe == "" {
		c.Timeframe = "1h"
	}
	if c.IntervalSec == 0 {
		c.IntervalSec = 3600
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "bot.db"
	}
	for i := range c.Symbols {
		sc := &c.Symbols[i]
		if sc.MaxPositionPct == 0 {
			sc.MaxPositionPct = 0.35
		}
		if sc.StopLossPct == 0 {
			sc.StopLossPct = 0.10
		}
		if sc.RSIPeriod == 0 {
			sc.RSIPeriod = 14
		}
		if sc.RSIOversold == 0 {
			sc.RSIOversold = 30
		}
		if sc.RSIOverbought == 0 {
			sc.RSIOverbought = 70
		}
		if sc.MAShortPeriod == 0 {
			sc.MAShortPeriod = 10
		}
		if sc.MALongPeriod == 0 {
			sc.MALongPeriod = 20
		}
	}
}

func (c *Config) validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol must be configured")
	}
	for _, sc := range c.Symbols {
		if sc.Symbol == "" {
			return fmt.Errorf("symbol must not be empty")
		}
		// An unknown strategy is not fatal here: the signal generator
		// resolves it to a hold with a logged warning, so a typo never
		// places an order.
		if sc.MaxPositionPct <= 0 || sc.MaxPositionPct > 1 {
			return fmt.Errorf("%s: max_position_pct must be in (0, 1]", sc.Symbol)
		}
		if sc.StopLossPct <= 0 || sc.StopLossPct > 1 {
			return fmt.Errorf("%s: stop_loss_pct must be in (0, 1]", sc.Symbol)
		}
		if sc.MAShortPeriod >= sc.MALongPeriod {
			return fmt.Errorf("%s: ma_short_period must be less than ma_long_period", sc.Symbol)
		}
	}
	return nil
}
