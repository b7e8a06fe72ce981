// Package staff is the clearance directory: who works here, at which
// clearance level, and who may change that level.
package staff

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/HerbHall/wardwatch/pkg/plugin"
	"github.com/HerbHall/wardwatch/pkg/roles"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
)

// Config holds the users module settings.
type Config struct {
	AuditDenials bool `mapstructure:"audit_denials"`
	SeedStaff    bool `mapstructure:"seed_staff"`
}

// Module implements the staff directory plugin.
type Module struct {
	logger  *zap.Logger
	cfg     Config
	store   *Store
	service *Service
}

func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "users",
		Version:      "0.1.0",
		Description:  "Staff directory and clearance management",
		Dependencies: []string{"activity"},
		Required:     true,
		Roles:        []string{roles.RoleStaffDirectory},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.cfg = Config{AuditDenials: true, SeedStaff: true}
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("decode users config: %w", err)
		}
	}
	if deps.Store == nil {
		return errors.New("users: store is required")
	}

	store, err := NewStore(ctx, deps.Store)
	if err != nil {
		return err
	}
	m.store = store
	m.service = NewService(store, roles.ResolveRecorder(deps.Plugins), m.cfg.AuditDenials)
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	if m.cfg.SeedStaff {
		added := 0
		for _, member := range DefaultSeedStaff {
			ok, err := m.store.Insert(ctx, member)
			if err != nil {
				m.logger.Warn("failed to seed staff member", zap.String("id", member.ID), zap.Error(err))
				continue
			}
			if ok {
				added++
			}
		}
		if added > 0 {
			m.logger.Info("seeded staff directory", zap.Int("members", added))
		}
	}
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	return nil
}

// Service exposes the gated directory API.
func (m *Module) Service() *Service {
	return m.service
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	if m.store == nil {
		return plugin.HealthStatus{Status: "unhealthy", Message: "not initialized"}
	}
	members, err := m.store.List(ctx)
	if err != nil {
		return plugin.HealthStatus{Status: "unhealthy", Message: "staff directory unreadable"}
	}
	return plugin.HealthStatus{
		Status:  "healthy",
		Details: map[string]string{"members": fmt.Sprint(len(members))},
	}
}
