package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fileblog/internal/auth"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StoreFile, cfg.StoreDriver)
	assert.Equal(t, "data/posts.json", cfg.PostsPath)
	assert.Equal(t, 5*time.Second, cfg.StoreLockTimeout)
	assert.Equal(t, SessionMemory, cfg.SessionBackend)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, auth.DefaultCredentials, cfg.Credentials)
	assert.False(t, cfg.CookieSecure)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("STORE_LOCK_TIMEOUT", "250ms")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, 250*time.Millisecond, cfg.StoreLockTimeout)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.CookieSecure)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	yml := "POSTS_PATH: /srv/blog/posts.json\nCREDENTIALS: alice:pw\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o644))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "/srv/blog/posts.json", cfg.PostsPath)
	assert.Equal(t, "alice:pw", cfg.Credentials)

	// Environment beats the file.
	t.Setenv("CREDENTIALS", "bob:pw")
	cfg, err = LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "bob:pw", cfg.Credentials)
}

func TestLoad_BrokenConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("PORT: [unterminated"), 0o644))

	_, err := LoadFrom(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:           8080,
			LogLevel:       "info",
			StoreDriver:    StoreFile,
			PostsPath:      "posts.json",
			SessionBackend: SessionMemory,
			SessionTTL:     time.Hour,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Port = 0 }, wantErr: "PORT"},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "mongo" }, wantErr: "STORE_DRIVER"},
		{name: "unknown backend", mutate: func(c *Config) { c.SessionBackend = "etcd" }, wantErr: "SESSION_BACKEND"},
		{name: "redis without url", mutate: func(c *Config) { c.SessionBackend = SessionRedis }, wantErr: "REDIS_URL"},
		{name: "short secret", mutate: func(c *Config) { c.SessionSecret = "short" }, wantErr: "SESSION_SECRET"},
		{name: "zero ttl", mutate: func(c *Config) { c.SessionTTL = 0 }, wantErr: "SESSION_TTL"},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
