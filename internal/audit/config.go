package audit

import (
	"fmt"
	"time"

	"github.com/HerbHall/wardwatch/pkg/models"
)

// Config holds the activity module settings.
type Config struct {
	QueueSize    int           `mapstructure:"queue_size"`
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`
	DefaultLimit int           `mapstructure:"default_limit"`
	MaxLimit     int           `mapstructure:"max_limit"`
}

func DefaultConfig() Config {
	return Config{
		QueueSize:    1024,
		FlushTimeout: 2 * time.Second,
		DefaultLimit: 100,
		MaxLimit:     1000,
	}
}

func (c Config) Validate() error {
	switch {
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", models.ErrInvalidInput)
	case c.FlushTimeout <= 0:
		return fmt.Errorf("%w: flush_timeout must be positive", models.ErrInvalidInput)
	case c.DefaultLimit <= 0 || c.MaxLimit < c.DefaultLimit:
		return fmt.Errorf("%w: need 0 < default_limit <= max_limit", models.ErrInvalidInput)
	}
	return nil
}
