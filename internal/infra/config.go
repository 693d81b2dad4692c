package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every application setting. Secrets may be overridden by
// environment variables after the file is parsed.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		// Mode selects the execution backend: PAPER or REPLAY.
		Mode              string  `yaml:"mode"`
		StartingCash      float64 `yaml:"starting_cash"`
		DefaultOrderValue float64 `yaml:"default_order_value"`
	} `yaml:"trading"`

	// Instruments maps exchange name to the symbols traded on it.
	Instruments map[string][]string `yaml:"instruments"`

	Strategy struct {
		ShortPeriod int `yaml:"short_period"`
		LongPeriod  int `yaml:"long_period"`
	} `yaml:"strategy"`

	Feed struct {
		WSURL     string `yaml:"ws_url"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		InboxSize int    `yaml:"inbox_size"`
	} `yaml:"feed"`

	Execution struct {
		ExchangeFeeRate  float64 `yaml:"exchange_fee_rate"`
		SlippageRate     float64 `yaml:"slippage_rate"`
		NetworkFee       float64 `yaml:"network_fee"`
		OrderChannelSize int     `yaml:"order_channel_size"`
		MaxOrdersPerSec  float64 `yaml:"max_orders_per_sec"`
	} `yaml:"execution"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	switch c.Trading.Mode {
	case "PAPER", "REPLAY":
	default:
		return fmt.Errorf("unknown trading mode: %s", c.Trading.Mode)
	}

	if c.Trading.StartingCash <= 0 {
		return fmt.Errorf("starting cash must be positive")
	}
	if c.Trading.DefaultOrderValue <= 0 || c.Trading.DefaultOrderValue > c.Trading.StartingCash {
		return fmt.Errorf("default order value must be in (0, starting cash]")
	}

	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	for exchange, symbols := range c.Instruments {
		if exchange == "" {
			return fmt.Errorf("empty exchange name in instruments")
		}
		if len(symbols) == 0 {
			return fmt.Errorf("no symbols configured for exchange %s", exchange)
		}
	}

	if c.Strategy.ShortPeriod <= 0 || c.Strategy.ShortPeriod >= c.Strategy.LongPeriod {
		return fmt.Errorf("strategy short period must be in (0, long period)")
	}

	if c.Trading.Mode == "PAPER" {
		if c.Feed.WSURL == "" || (!strings.HasPrefix(c.Feed.WSURL, "ws://") && !strings.HasPrefix(c.Feed.WSURL, "wss://")) {
			return fmt.Errorf("invalid feed WS URL: %s", c.Feed.WSURL)
		}
	}

	// Rates are fractions of fill value; the network fee is a flat amount.
	if c.Execution.ExchangeFeeRate < 0 || c.Execution.ExchangeFeeRate >= 1 ||
		c.Execution.SlippageRate < 0 || c.Execution.SlippageRate >= 1 {
		return fmt.Errorf("fee rates must be in [0, 1)")
	}
	if c.Execution.NetworkFee < 0 {
		return fmt.Errorf("network fee must not be negative")
	}

	return nil
}

// InboxSize returns the configured feed inbox capacity, defaulted when
// absent from the file.
func (c *Config) InboxSize() int {
	if c.Feed.InboxSize > 0 {
		return c.Feed.InboxSize
	}
	return 1024
}

// OrderChannelSize returns the execution channel capacity, defaulted when
// absent from the file.
func (c *Config) OrderChannelSize() int {
	if c.Execution.OrderChannelSize > 0 {
		return c.Execution.OrderChannelSize
	}
	return 64
}

// overrideWithEnv applies environment variables over file values.
// Environment always wins for secrets.
func overrideWithEnv(cfg *Config) {
	if cfg.Feed.SecretKey != "" {
		fmt.Println("⚠️  SECURITY WARNING: API secret found in config file.")
		fmt.Println("   Recommendation: Use environment variables instead:")
		fmt.Println("   - BARTER_FEED_KEY, BARTER_FEED_SECRET")
	}

	if key := os.Getenv("BARTER_FEED_KEY"); key != "" {
		cfg.Feed.AccessKey = key
	}
	if secret := os.Getenv("BARTER_FEED_SECRET"); secret != "" {
		cfg.Feed.SecretKey = secret
	}
}
