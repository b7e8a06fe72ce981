package monitor

import (
	"fmt"
	"time"

	"github.com/HerbHall/wardwatch/internal/timeseries"
	"github.com/HerbHall/wardwatch/pkg/models"
)

// Backends selectable through MonitorConfig.Backend.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// MonitorConfig holds the monitoring module settings.
type MonitorConfig struct {
	RefreshInterval   time.Duration          `mapstructure:"refresh_interval"`
	RefreshTimeout    time.Duration          `mapstructure:"refresh_timeout"`
	CacheSize         int                    `mapstructure:"cache_size"`
	MaxWorkers        int                    `mapstructure:"max_workers"`
	SeedBeds          bool                   `mapstructure:"seed_beds"`
	Backend           string                 `mapstructure:"backend"`
	DataDir           string                 `mapstructure:"data_dir"`
	ParseCacheEntries int                    `mapstructure:"parse_cache_entries"`
	SeedHistory       time.Duration          `mapstructure:"seed_history"`
	SeedStep          time.Duration          `mapstructure:"seed_step"`
	Redis             timeseries.RedisConfig `mapstructure:"redis"`
}

func DefaultConfig() MonitorConfig {
	return MonitorConfig{
		RefreshInterval:   time.Second,
		RefreshTimeout:    750 * time.Millisecond,
		CacheSize:         100,
		MaxWorkers:        8,
		SeedBeds:          true,
		Backend:           BackendFile,
		DataDir:           "./data/monitor-data",
		ParseCacheEntries: 64,
		SeedHistory:       24 * time.Hour,
		SeedStep:          10 * time.Second,
		Redis: timeseries.RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
	}
}

// Validate rejects settings the refresh loop cannot run with.
func (c MonitorConfig) Validate() error {
	switch {
	case c.RefreshInterval <= 0:
		return fmt.Errorf("%w: refresh_interval must be positive", models.ErrInvalidInput)
	case c.RefreshTimeout <= 0:
		return fmt.Errorf("%w: refresh_timeout must be positive", models.ErrInvalidInput)
	case c.CacheSize <= 0:
		return fmt.Errorf("%w: cache_size must be positive", models.ErrInvalidInput)
	case c.MaxWorkers <= 0:
		return fmt.Errorf("%w: max_workers must be positive", models.ErrInvalidInput)
	case c.Backend != BackendFile && c.Backend != BackendRedis:
		return fmt.Errorf("%w: backend must be %q or %q", models.ErrInvalidInput, BackendFile, BackendRedis)
	case c.SeedHistory < 0 || c.SeedStep < 0:
		return fmt.Errorf("%w: seed_history and seed_step must not be negative", models.ErrInvalidInput)
	}
	return nil
}
