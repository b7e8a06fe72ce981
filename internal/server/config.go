package server

import (
	"fmt"
	"time"
)

// Config holds the HTTP server configuration decoded from the "server" section.
type Config struct {
	Host      string  `mapstructure:"host"`
	Port      int     `mapstructure:"port"`
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.RateLimit <= 0 {
		out.RateLimit = 50
	}
	if out.RateBurst <= 0 {
		out.RateBurst = 100
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = 15 * time.Second
	}
	// Zero keeps long-lived websocket streams open; per-route handlers bound
	// their own work.
	if out.WriteTimeout < 0 {
		out.WriteTimeout = 0
	}
	return out
}
