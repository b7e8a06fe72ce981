// Package audit is the append-only activity log. Events are recorded on a
// best-effort basis: the recording call never fails, and a store outage
// costs events rather than requests.
package audit

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/HerbHall/wardwatch/pkg/activity"
	"github.com/HerbHall/wardwatch/pkg/plugin"
	"github.com/HerbHall/wardwatch/pkg/roles"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin          = (*Module)(nil)
	_ plugin.HTTPProvider    = (*Module)(nil)
	_ plugin.HealthChecker   = (*Module)(nil)
	_ plugin.Validator       = (*Module)(nil)
	_ roles.ActivityRecorder = (*Module)(nil)
)

// Module implements the activity log plugin.
type Module struct {
	logger  *zap.Logger
	cfg     Config
	store   *Store
	log     *Logger
	service *Service
}

func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "activity",
		Version:     "0.1.0",
		Description: "Append-only activity and audit log",
		Required:    true,
		Roles:       []string{roles.RoleAudit},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	if m.logger == nil {
		m.logger = zap.NewNop()
	}

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("decode activity config: %w", err)
		}
	}
	if err := m.cfg.Validate(); err != nil {
		return err
	}

	if deps.Store == nil {
		return fmt.Errorf("activity: store is required")
	}
	if err := deps.Store.Migrate(ctx, "activity", migrations()); err != nil {
		return fmt.Errorf("activity migrations: %w", err)
	}

	m.store = NewStore(deps.Store.DB())
	m.log = NewLogger(m.store, m.cfg.QueueSize, m.cfg.FlushTimeout, m.logger)
	m.service = NewService(m.log, m.cfg.DefaultLimit, m.cfg.MaxLimit)

	m.logger.Info("activity module initialized", zap.Int("queue_size", m.cfg.QueueSize))
	return nil
}

// ValidateConfig implements plugin.Validator.
func (m *Module) ValidateConfig() error {
	return m.cfg.Validate()
}

func (m *Module) Start(_ context.Context) error {
	m.log.Start()
	m.logger.Info("activity module started")
	return nil
}

// Stop drains queued events before returning.
func (m *Module) Stop(_ context.Context) error {
	if m.log != nil {
		m.log.Stop()
	}
	m.logger.Info("activity module stopped")
	return nil
}

// Record implements roles.ActivityRecorder. Events recorded before Init
// are discarded.
func (m *Module) Record(ctx context.Context, e activity.Event) {
	if m.log == nil {
		return
	}
	m.log.Record(ctx, e)
}

// Query reads the log directly, bypassing clearance checks. It is meant
// for in-process consumers that have already authorized the caller.
func (m *Module) Query(ctx context.Context, f activity.Filter, limit int) ([]activity.Record, error) {
	return m.log.Query(ctx, f, limit)
}

// Service exposes the gated query API.
func (m *Module) Service() *Service {
	return m.service
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	if m.log == nil {
		return plugin.HealthStatus{Status: "unhealthy", Message: "not initialized"}
	}
	status := plugin.HealthStatus{
		Status: "healthy",
		Details: map[string]string{
			"pending":        strconv.Itoa(m.log.Pending()),
			"dropped":        strconv.FormatUint(m.log.Dropped(), 10),
			"write_failures": strconv.FormatUint(m.log.Failed(), 10),
		},
	}
	if m.log.Pending() >= m.cfg.QueueSize {
		status.Status = "degraded"
		status.Message = "activity queue is full"
	}
	return status
}
