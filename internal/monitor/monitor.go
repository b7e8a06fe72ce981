package monitor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/HerbHall/wardwatch/internal/timeseries"
	"github.com/HerbHall/wardwatch/pkg/models"
	"github.com/HerbHall/wardwatch/pkg/plugin"
	"github.com/HerbHall/wardwatch/pkg/roles"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
	_ plugin.Validator     = (*Module)(nil)
)

// Module implements the bedside monitoring plugin.
type Module struct {
	logger    *zap.Logger
	cfg       MonitorConfig
	bus       plugin.EventBus
	recorder  roles.ActivityRecorder
	source    timeseries.Source
	redis     *redis.Client
	registry  *Registry
	refresher *Refresher
}

// New creates a new monitoring plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "monitoring",
		Version:      "0.1.0",
		Description:  "Bedside vital-sign monitoring",
		Dependencies: []string{"activity"},
		Required:     true,
		Roles:        []string{roles.RoleBedMonitoring},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.bus = deps.Bus
	m.recorder = roles.ResolveRecorder(deps.Plugins)

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("decode monitoring config: %w", err)
		}
	}
	if err := m.cfg.Validate(); err != nil {
		return err
	}

	synth := timeseries.NewSynthesizer(m.cfg.SeedHistory, m.cfg.SeedStep, uint64(time.Now().UnixNano()))
	switch m.cfg.Backend {
	case BackendRedis:
		m.redis = timeseries.NewRedisClient(m.cfg.Redis)
		rs := timeseries.NewRedisSource(m.redis, synth, m.logger.Named("redis"))
		if err := rs.Ping(ctx); err != nil {
			_ = m.redis.Close()
			return fmt.Errorf("connect redis %s: %w", m.cfg.Redis.Addr, err)
		}
		m.source = rs
	default:
		fs, err := timeseries.NewFileSource(m.cfg.DataDir, m.cfg.ParseCacheEntries, synth, m.logger.Named("files"))
		if err != nil {
			return err
		}
		m.source = fs
	}

	m.registry = NewRegistry(m.source, m.cfg.CacheSize, m.logger)
	m.refresher = NewRefresher(m.registry, m.source, m.cfg, m.bus, m.logger.Named("refresh"))

	m.logger.Info("monitoring module initialized",
		zap.String("backend", m.cfg.Backend),
		zap.Duration("refresh_interval", m.cfg.RefreshInterval),
		zap.Int("cache_size", m.cfg.CacheSize),
	)
	return nil
}

// ValidateConfig implements plugin.Validator.
func (m *Module) ValidateConfig() error {
	return m.cfg.Validate()
}

func (m *Module) Start(ctx context.Context) error {
	if m.cfg.SeedBeds {
		m.seed(ctx)
	}
	m.refresher.Start(context.Background())
	m.logger.Info("monitoring module started", zap.Int("beds", len(m.registry.List())))
	return nil
}

// seed registers the demonstration beds. Beds that already have a series
// keep it; seeding failures are logged and do not block startup.
func (m *Module) seed(ctx context.Context) {
	for _, b := range DefaultSeedBeds {
		_, err := m.registry.Add(ctx, b.BedID, b.PatientID, b.PatientName)
		switch {
		case err == nil, errors.Is(err, models.ErrAlreadyExists):
		default:
			m.logger.Warn("failed to seed bed", zap.String("bed_id", b.BedID), zap.Error(err))
		}
	}
}

func (m *Module) Stop(_ context.Context) error {
	if m.refresher != nil {
		m.refresher.Stop()
	}
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			m.logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	m.logger.Info("monitoring module stopped")
	return nil
}

// Registry exposes the bed registry to in-process consumers.
func (m *Module) Registry() *Registry {
	return m.registry
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	if m.registry == nil {
		return plugin.HealthStatus{Status: "unhealthy", Message: "not initialized"}
	}

	active := 0
	beds := m.registry.List()
	for i := range beds {
		if beds[i].IsActive {
			active++
		}
	}
	status := plugin.HealthStatus{
		Status: "healthy",
		Details: map[string]string{
			"backend":        m.cfg.Backend,
			"beds":           strconv.Itoa(len(beds)),
			"active_beds":    strconv.Itoa(active),
			"refresh_loop":   strconv.FormatBool(m.refresher.Running()),
			"refresh_period": m.cfg.RefreshInterval.String(),
		},
	}
	if !m.refresher.Running() {
		status.Status = "degraded"
		status.Message = "refresh loop is not running"
	}
	if rs, ok := m.source.(*timeseries.RedisSource); ok {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			status.Status = "degraded"
			status.Message = "redis unreachable"
		}
	}
	return status
}

func (m *Module) publish(ctx context.Context, topic string, bed models.Bed) {
	if m.bus == nil {
		return
	}
	bed.RecentSamples = nil
	m.bus.PublishAsync(context.WithoutCancel(ctx), plugin.Event{
		Topic:     topic,
		Source:    "monitoring",
		Timestamp: time.Now(),
		Payload:   BedEvent{Bed: bed},
	})
}
