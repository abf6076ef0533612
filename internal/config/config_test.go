package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luisotee/maplelegends-bot/internal/config"
)

// chdir mirrors testing.T.Chdir, which needs Go 1.24; this builds on Go 1.21.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.BotToken)
	assert.Equal(t, "https://maplelegends.com", cfg.BaseURL)
	assert.Equal(t, 10, cfg.StatusThreshold)
	assert.Equal(t, "watching_users.json", cfg.UsersFile)
	assert.Equal(t, "cash_watchers.json", cfg.CashWatchersFile)
	assert.Equal(t, "info", cfg.LogLevel)

	assert.Equal(t, 15*time.Second, cfg.Timeout())
	assert.Equal(t, time.Minute, cfg.PollEvery())
	assert.Equal(t, time.Minute, cfg.StatusCheckEvery())
}

func TestLoad_MissingToken(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := config.Load()
	assert.ErrorIs(t, err, config.ErrTokenMissing)
}

func TestLoad_ConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")

	toml := `base_url = "http://localhost:8080"
status_threshold = 25
poll_interval = 5
log_level = "debug"
`
	require.NoError(t, os.WriteFile("config.toml", []byte(toml), 0o644))

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, 25, cfg.StatusThreshold)
	assert.Equal(t, 5*time.Second, cfg.PollEvery())
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched keys keep their defaults.
	assert.Equal(t, "cash_watchers.json", cfg.CashWatchersFile)
}
