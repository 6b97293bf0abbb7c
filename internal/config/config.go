package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

// DefaultPath is used when neither --config nor CONFIG_PATH is set.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider        string        `yaml:"provider"` // yahoo | fmp | static
		APIKey          string        `yaml:"api_key"`
		StaticPath      string        `yaml:"static_path"` // bars file for provider static
		RequestsPerSec  float64       `yaml:"requests_per_sec"`
		LookbackDays    int           `yaml:"lookback_days"`
		BreakerFailures uint32        `yaml:"breaker_failures"`
		BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
	} `yaml:"data_source"`
	Trading struct {
		Slippage       float64 `yaml:"slippage"`
		HoldDays       int     `yaml:"hold_days"`
		InitialCapital float64 `yaml:"initial_capital"`
		Compound       bool    `yaml:"compound"`
		Threshold      float64 `yaml:"threshold"`
	} `yaml:"trading"`
	Classifier struct {
		Fingerprints string             `yaml:"fingerprints"`
		Weights      map[string]float64 `yaml:"weights"`
		Scales       map[string]float64 `yaml:"scales"`
	} `yaml:"classifier"`
	Calendar struct {
		Name     string   `yaml:"name"`
		Closures []string `yaml:"closures"` // unscheduled full-day closures, YYYY-MM-DD
	} `yaml:"calendar"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
		Timezone  string `yaml:"timezone"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console | json
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Path resolves the config file location from the flag value and CONFIG_PATH.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads .env and the YAML file at path, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, model.NewConfigError(".env", "%w", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, model.NewConfigError(path, "read: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, model.NewConfigError(path, "parse: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("FMP_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		c.Schedule.DailyCron = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("INITIAL_CAPITAL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return model.NewConfigError("INITIAL_CAPITAL", "%w", err)
		}
		c.Trading.InitialCapital = f
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.RequestsPerSec == 0 {
		c.DataSource.RequestsPerSec = 2
	}
	if c.DataSource.LookbackDays == 0 {
		c.DataSource.LookbackDays = 400
	}
	if c.DataSource.BreakerFailures == 0 {
		c.DataSource.BreakerFailures = 3
	}
	if c.DataSource.BreakerTimeout == 0 {
		c.DataSource.BreakerTimeout = time.Minute
	}
	if c.Trading.Slippage == 0 {
		c.Trading.Slippage = 0.0005
	}
	if c.Trading.HoldDays == 0 {
		c.Trading.HoldDays = 5
	}
	if c.Trading.InitialCapital == 0 {
		c.Trading.InitialCapital = 100000
	}
	if c.Trading.Threshold == 0 {
		c.Trading.Threshold = 0.015
	}
	if c.Classifier.Fingerprints == "" {
		c.Classifier.Fingerprints = "configs/regime_fingerprints.yaml"
	}
	if c.Calendar.Name == "" {
		c.Calendar.Name = "nyse"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/paper_trading.db"
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 16 * * 1-5"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "America/New_York"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks the fields every command depends on. Telegram is optional.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo":
	case "static":
		if c.DataSource.StaticPath == "" {
			return model.NewConfigError("data_source.static_path", "required for provider static")
		}
	case "fmp":
		if c.DataSource.APIKey == "" {
			return model.NewConfigError("data_source.api_key", "required for provider fmp (set FMP_API_KEY)")
		}
	default:
		return model.NewConfigError("data_source.provider", "unknown provider %q", c.DataSource.Provider)
	}
	if c.DataSource.RequestsPerSec < 0 {
		return model.NewConfigError("data_source.requests_per_sec", "must not be negative")
	}
	if c.DataSource.LookbackDays < 90 {
		return model.NewConfigError("data_source.lookback_days", "must cover at least 90 days, got %d", c.DataSource.LookbackDays)
	}
	if c.Trading.Slippage < 0 || c.Trading.Slippage >= 1 {
		return model.NewConfigError("trading.slippage", "must be in [0, 1), got %v", c.Trading.Slippage)
	}
	if c.Trading.HoldDays < 1 {
		return model.NewConfigError("trading.hold_days", "must be at least 1, got %d", c.Trading.HoldDays)
	}
	if c.Trading.InitialCapital <= 0 {
		return model.NewConfigError("trading.initial_capital", "must be positive")
	}
	if c.Trading.Threshold <= 0 {
		return model.NewConfigError("trading.threshold", "must be positive")
	}
	switch c.Calendar.Name {
	case "nyse", "weekdays":
	default:
		return model.NewConfigError("calendar.name", "unknown calendar %q", c.Calendar.Name)
	}
	if _, err := c.ClosureDates(); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return model.NewConfigError("schedule.timezone", "%w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return model.NewConfigError("telegram", "bot_token and chat_id must be set together")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return model.NewConfigError("log.format", "must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// ClosureDates parses Calendar.Closures.
func (c *Config) ClosureDates() ([]time.Time, error) {
	out := make([]time.Time, 0, len(c.Calendar.Closures))
	for _, s := range c.Calendar.Closures {
		d, err := model.ParseDate(s)
		if err != nil {
			return nil, model.NewConfigError("calendar.closures", "%w", err)
		}
		out = append(out, d)
	}
	return out, nil
}

// TelegramEnabled reports whether reports should be sent to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func (c *Config) String() string {
	return fmt.Sprintf("provider=%s calendar=%s db=%s cron=%q telegram=%t",
		c.DataSource.Provider, c.Calendar.Name, c.Database.SQLitePath, c.Schedule.DailyCron, c.TelegramEnabled())
}
