// Package config loads server configuration from an optional YAML file and
// VITALSYNC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides: http.addr is read
// from VITALSYNC_HTTP_ADDR.
const EnvPrefix = "VITALSYNC"

// Config is the complete server configuration.
type Config struct {
	DB        DBConfig        `mapstructure:"db"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Sync      SyncConfig      `mapstructure:"sync"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

type SyncConfig struct {
	PullPageSize       int           `mapstructure:"pull_page_size"`
	MaxBatch           int           `mapstructure:"max_batch"`
	TombstoneRetention time.Duration `mapstructure:"tombstone_retention"`
	GCInterval         time.Duration `mapstructure:"gc_interval"`
}

type RateLimitConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	PerMinute int  `mapstructure:"per_minute"`
	Burst     int  `mapstructure:"burst"`
}

// AuthConfig lists the static bearer tokens accepted by the server. Tokens
// are a list rather than a map because viper lower-cases map keys.
type AuthConfig struct {
	Tokens []TokenConfig `mapstructure:"tokens"`
}

type TokenConfig struct {
	Token   string `mapstructure:"token"`
	Account string `mapstructure:"account"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SetDefaults registers every key with its default value. Keys must be
// registered for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db.path", "vitalsync.db")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.max_body_bytes", 10<<20)

	v.SetDefault("sync.pull_page_size", 500)
	v.SetDefault("sync.max_batch", 1000)
	v.SetDefault("sync.tombstone_retention", 720*time.Hour)
	v.SetDefault("sync.gc_interval", time.Hour)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.per_minute", 60)
	v.SetDefault("ratelimit.burst", 10)

	v.SetDefault("auth.tokens", []map[string]string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
}

// Load reads configuration. An empty path looks for vitalsync.yaml in the
// working directory and tolerates its absence; an explicit path must exist.
// The returned viper instance is needed by Watch.
func Load(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vitalsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.DB.Path == "" {
		errs = append(errs, errors.New("db.path must be set"))
	}
	if c.Sync.PullPageSize <= 0 {
		errs = append(errs, fmt.Errorf("sync.pull_page_size must be positive, got %d", c.Sync.PullPageSize))
	}
	if c.Sync.MaxBatch <= 0 {
		errs = append(errs, fmt.Errorf("sync.max_batch must be positive, got %d", c.Sync.MaxBatch))
	}
	if c.Sync.TombstoneRetention <= 0 {
		errs = append(errs, fmt.Errorf("sync.tombstone_retention must be positive, got %s", c.Sync.TombstoneRetention))
	}
	if c.RateLimit.Enabled && (c.RateLimit.PerMinute <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("ratelimit.per_minute and ratelimit.burst must be positive"))
	}
	seen := make(map[string]bool, len(c.Auth.Tokens))
	for i, tc := range c.Auth.Tokens {
		if tc.Token == "" || tc.Account == "" {
			errs = append(errs, fmt.Errorf("auth.tokens[%d]: token and account are required", i))
		}
		if seen[tc.Token] {
			errs = append(errs, fmt.Errorf("auth.tokens[%d]: duplicate token", i))
		}
		seen[tc.Token] = true
	}
	return errors.Join(errs...)
}

// TokenMap returns token -> account.
func (c *Config) TokenMap() map[string]string {
	m := make(map[string]string, len(c.Auth.Tokens))
	for _, tc := range c.Auth.Tokens {
		m[tc.Token] = tc.Account
	}
	return m
}

// Watch calls fn with the new configuration whenever the config file
// changes. Invalid edits are logged and ignored. Watch is a no-op when no
// file was loaded.
func Watch(v *viper.Viper, fn func(*Config)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			slog.Warn("config reload rejected", "file", e.Name, "error", err)
			return
		}
		slog.Info("config reloaded", "file", e.Name, "op", e.Op.String())
		fn(cfg)
	})
	v.WatchConfig()
}
