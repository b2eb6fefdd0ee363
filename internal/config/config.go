// Package config loads runtime settings with viper.
//
// SOURCES, LOWEST PRIORITY FIRST:
//  1. Defaults set below
//  2. An optional config.yml in the working directory
//  3. Environment variables with the same names (PORT, STORE_DRIVER, ...)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sakif/fileblog/internal/auth"
)

// Store drivers.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Session backends.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Config is the full set of runtime settings.
type Config struct {
	Port     int    `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	StoreDriver      string        `mapstructure:"STORE_DRIVER"`
	PostsPath        string        `mapstructure:"POSTS_PATH"`
	SQLitePath       string        `mapstructure:"SQLITE_PATH"`
	StoreLockTimeout time.Duration `mapstructure:"STORE_LOCK_TIMEOUT"`

	SessionBackend string        `mapstructure:"SESSION_BACKEND"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	SessionSecret  string        `mapstructure:"SESSION_SECRET"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	CookieSecure   bool          `mapstructure:"COOKIE_SECURE"`
	Credentials    string        `mapstructure:"CREDENTIALS"`

	StaticDir string `mapstructure:"STATIC_DIR"`
}

var defaults = map[string]any{
	"PORT":               8080,
	"LOG_LEVEL":          "info",
	"STORE_DRIVER":       StoreFile,
	"POSTS_PATH":         "data/posts.json",
	"SQLITE_PATH":        "data/posts.db",
	"STORE_LOCK_TIMEOUT": "5s",
	"SESSION_BACKEND":    SessionMemory,
	"REDIS_URL":          "redis://localhost:6379/0",
	"SESSION_SECRET":     "",
	"SESSION_TTL":        "12h",
	"COOKIE_SECURE":      false,
	"CREDENTIALS":        auth.DefaultCredentials,
	"STATIC_DIR":         "",
}

// Load reads config.yml from the working directory (if present) and the
// environment.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with an explicit directory to search for config.yml.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var problems []string

	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT %d out of range", c.Port))
	}

	switch c.StoreDriver {
	case StoreFile:
		if c.PostsPath == "" {
			problems = append(problems, "POSTS_PATH is required for the file store")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "SQLITE_PATH is required for the sqlite store")
		}
	case StoreMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.StoreLockTimeout < 0 {
		problems = append(problems, "STORE_LOCK_TIMEOUT must not be negative")
	}

	switch c.SessionBackend {
	case SessionMemory:
	case SessionRedis:
		if c.RedisURL == "" {
			problems = append(problems, "REDIS_URL is required for the redis session backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown SESSION_BACKEND %q", c.SessionBackend))
	}

	if c.SessionSecret != "" && len(c.SessionSecret) < 16 {
		problems = append(problems, "SESSION_SECRET must be at least 16 characters")
	}
	if c.SessionTTL <= 0 {
		problems = append(problems, "SESSION_TTL must be positive")
	}

	if _, err := c.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// SlogLevel parses LOG_LEVEL (debug, info, warn, error).
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	return level, nil
}
