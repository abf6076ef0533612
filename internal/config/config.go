package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrTokenMissing is fatal at startup: the bot cannot run without its
// platform credential.
var ErrTokenMissing = errors.New("TELEGRAM_BOT_TOKEN is required")

// Config holds everything the bot needs. Every field except the token has a
// built-in default and may be overridden from config.toml; the token comes
// only from the environment.
type Config struct {
	BotToken string `koanf:"-"`

	// Base URL of the MapleLegends site.
	BaseURL string `koanf:"base_url"`
	// Per-request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
	// Online count poll interval in seconds.
	PollInterval int `koanf:"poll_interval"`
	// Server status check interval in seconds.
	StatusCheckInterval int `koanf:"status_check_interval"`
	// Player count below which the server is considered offline.
	StatusThreshold int `koanf:"status_threshold"`
	// Persistence file for status watchers.
	UsersFile string `koanf:"users_file"`
	// Persistence file for cash watchers.
	CashWatchersFile string `koanf:"cash_watchers_file"`
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
}

func defaults() Config {
	return Config{
		BaseURL:             "https://maplelegends.com",
		RequestTimeout:      15000,
		PollInterval:        60,
		StatusCheckInterval: 60,
		StatusThreshold:     10,
		UsersFile:           "watching_users.json",
		CashWatchersFile:    "cash_watchers.json",
		LogLevel:            "info",
	}
}

// Load builds the configuration from defaults, an optional config.toml in the
// working directory, and the TELEGRAM_BOT_TOKEN environment variable.
func Load() (Config, error) {
	cfg := defaults()

	k := koanf.New(".")
	if err := k.Load(file.Provider("config.toml"), toml.Parser()); err == nil {
		if err := k.Unmarshal("", &cfg); err != nil {
			return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("error loading config.toml: %w", err)
	}

	cfg.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if cfg.BotToken == "" {
		return Config{}, ErrTokenMissing
	}

	return cfg, nil
}

// Timeout returns the per-request timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

// PollEvery returns the online count poll interval as a duration.
func (c Config) PollEvery() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// StatusCheckEvery returns the status check interval as a duration.
func (c Config) StatusCheckEvery() time.Duration {
	return time.Duration(c.StatusCheckInterval) * time.Second
}
