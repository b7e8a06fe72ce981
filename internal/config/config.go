// Package config loads WardWatch configuration and exposes per-module
// sections through the plugin.Config interface.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/wardwatch/pkg/plugin"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix: WW_SERVER_PORT=9090.
const EnvPrefix = "WW"

// Load reads configuration from path, or from wardwatch.yaml in the usual
// locations when path is empty. A missing file is not an error; defaults
// and environment variables still apply.
func Load(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("wardwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/wardwatch")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// SetDefaults registers the default value of every known key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 50.0)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/wardwatch.db")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "wardwatch")
	v.SetDefault("auth.access_token_ttl", "15m")

	v.SetDefault("plugins.monitoring.refresh_interval", "1s")
	v.SetDefault("plugins.monitoring.refresh_timeout", "750ms")
	v.SetDefault("plugins.monitoring.cache_size", 100)
	v.SetDefault("plugins.monitoring.max_workers", 8)
	v.SetDefault("plugins.monitoring.seed_beds", true)
	v.SetDefault("plugins.monitoring.backend", "file")
	v.SetDefault("plugins.monitoring.data_dir", "./data/monitor-data")
	v.SetDefault("plugins.monitoring.parse_cache_entries", 64)
	v.SetDefault("plugins.monitoring.seed_history", "24h")
	v.SetDefault("plugins.monitoring.seed_step", "10s")
	v.SetDefault("plugins.monitoring.redis.addr", "localhost:6379")
	v.SetDefault("plugins.monitoring.redis.password", "")
	v.SetDefault("plugins.monitoring.redis.db", 0)
	v.SetDefault("plugins.monitoring.redis.pool_size", 10)

	v.SetDefault("plugins.activity.queue_size", 1024)
	v.SetDefault("plugins.activity.flush_timeout", "2s")
	v.SetDefault("plugins.activity.default_limit", 100)
	v.SetDefault("plugins.activity.max_limit", 1000)

	v.SetDefault("plugins.users.audit_denials", true)
	v.SetDefault("plugins.users.seed_staff", true)
}

var _ plugin.Config = (*ViperConfig)(nil)

// ViperConfig adapts a Viper instance to plugin.Config.
type ViperConfig struct {
	v *viper.Viper
}

// New wraps v. A nil v yields an empty configuration.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

// Unmarshal decodes the section into target using mapstructure tags.
// Duration strings such as "750ms" decode into time.Duration fields.
func (c *ViperConfig) Unmarshal(target any) error {
	if err := c.v.Unmarshal(target); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func (c *ViperConfig) Get(key string) any                   { return c.v.Get(key) }
func (c *ViperConfig) GetString(key string) string          { return c.v.GetString(key) }
func (c *ViperConfig) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *ViperConfig) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *ViperConfig) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }
func (c *ViperConfig) IsSet(key string) bool                { return c.v.IsSet(key) }

// Sub returns the nested section at key, or an empty section.
func (c *ViperConfig) Sub(key string) plugin.Config {
	sub := c.v.Sub(key)
	if sub == nil {
		return New(nil)
	}
	return New(sub)
}

// Viper exposes the wrapped instance for top-level settings.
func (c *ViperConfig) Viper() *viper.Viper {
	return c.v
}
