package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briancarter456546/paper-trading-system/internal/model"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATA_SOURCE", "FMP_API_KEY", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "SQLITE_PATH",
		"HTTPS_PROXY", "LOG_LEVEL", "CRON_DAILY", "SERVER_ADDR", "INITIAL_CAPITAL", "CONFIG_PATH",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, 400, cfg.DataSource.LookbackDays)
	assert.Equal(t, time.Minute, cfg.DataSource.BreakerTimeout)
	assert.Equal(t, 0.0005, cfg.Trading.Slippage)
	assert.Equal(t, 5, cfg.Trading.HoldDays)
	assert.Equal(t, 100000.0, cfg.Trading.InitialCapital)
	assert.Equal(t, 0.015, cfg.Trading.Threshold)
	assert.False(t, cfg.Trading.Compound)
	assert.Equal(t, "nyse", cfg.Calendar.Name)
	assert.Equal(t, "0 30 16 * * 1-5", cfg.Schedule.DailyCron)
	assert.Equal(t, "America/New_York", cfg.Schedule.Timezone)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
data_source:
  provider: fmp
  breaker_timeout: 30s
trading:
  hold_days: 3
  compound: true
classifier:
  weights:
    vix_level: 2
calendar:
  name: weekdays
  closures: ["2025-01-09"]
telegram:
  chat_id: "file-chat"
`)
	t.Setenv("FMP_API_KEY", "secret")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "env-chat")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("INITIAL_CAPITAL", "50000")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "fmp", cfg.DataSource.Provider)
	assert.Equal(t, "secret", cfg.DataSource.APIKey)
	assert.Equal(t, 30*time.Second, cfg.DataSource.BreakerTimeout)
	assert.Equal(t, 3, cfg.Trading.HoldDays)
	assert.True(t, cfg.Trading.Compound)
	assert.Equal(t, 50000.0, cfg.Trading.InitialCapital)
	assert.Equal(t, 2.0, cfg.Classifier.Weights["vix_level"])
	assert.Equal(t, "env-chat", cfg.Telegram.ChatID)
	assert.Equal(t, "/tmp/x.db", cfg.Database.SQLitePath)
	assert.True(t, cfg.TelegramEnabled())

	closures, err := cfg.ClosureDates()
	require.NoError(t, err)
	assert.Equal(t, []time.Time{time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)}, closures)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "trading: [1, 2"))
	assert.ErrorIs(t, err, model.ErrConfig)

	t.Setenv("INITIAL_CAPITAL", "lots")
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }},
		{"fmp without key", func(c *Config) { c.DataSource.Provider = "fmp" }},
		{"static without file", func(c *Config) { c.DataSource.Provider = "static" }},
		{"short lookback", func(c *Config) { c.DataSource.LookbackDays = 30 }},
		{"negative slippage", func(c *Config) { c.Trading.Slippage = -0.01 }},
		{"zero hold", func(c *Config) { c.Trading.HoldDays = -1 }},
		{"negative capital", func(c *Config) { c.Trading.InitialCapital = -1 }},
		{"unknown calendar", func(c *Config) { c.Calendar.Name = "lse" }},
		{"bad closure", func(c *Config) { c.Calendar.Closures = []string{"01/09/2025"} }},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }},
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "tok" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), model.ErrConfig)
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, DefaultPath, Path(""))
	t.Setenv("CONFIG_PATH", "/etc/papertrader.yaml")
	assert.Equal(t, "/etc/papertrader.yaml", Path(""))
	assert.Equal(t, "flag.yaml", Path("flag.yaml"))
}

func TestShippedConfig(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("../../configs/config.yaml")
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "configs/regime_fingerprints.yaml", cfg.Classifier.Fingerprints)
}
