// Package plugintest provides shared contract tests that verify any
// plugin.Plugin implementation behaves correctly. Every module's test
// file should call TestPluginContract to ensure conformance.
package plugintest

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/HerbHall/wardwatch/internal/config"
	"github.com/HerbHall/wardwatch/internal/event"
	"github.com/HerbHall/wardwatch/internal/store"
	"github.com/HerbHall/wardwatch/pkg/plugin"
)

// TestPluginContract runs a suite of behavioral contract tests against
// any plugin.Plugin implementation. Call this from each module's _test.go:
//
//	func TestContract(t *testing.T) {
//	    plugintest.TestPluginContract(t, func() plugin.Plugin { return monitor.New() })
//	}
func TestPluginContract(t *testing.T, factory func() plugin.Plugin) {
	t.Helper()

	t.Run("Info_returns_valid_metadata", func(t *testing.T) {
		info := factory().Info()
		if info.Name == "" {
			t.Error("Info().Name must not be empty")
		}
		if info.Version == "" {
			t.Error("Info().Version must not be empty")
		}
		if info.APIVersion < plugin.APIVersionMin || info.APIVersion > plugin.APIVersionCurrent {
			t.Errorf("Info().APIVersion = %d, outside [%d, %d]", info.APIVersion, plugin.APIVersionMin, plugin.APIVersionCurrent)
		}
		for _, dep := range info.Dependencies {
			if dep == info.Name {
				t.Errorf("plugin %q depends on itself", info.Name)
			}
		}
	})

	t.Run("Init_succeeds_with_valid_deps", func(t *testing.T) {
		p := factory()
		if err := p.Init(context.Background(), Deps(t, p.Info().Name)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
	})

	t.Run("Start_and_Stop_after_Init", func(t *testing.T) {
		p := factory()
		if err := p.Init(context.Background(), Deps(t, p.Info().Name)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if err := p.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if err := p.Stop(context.Background()); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
	})

	t.Run("Stop_without_Start_does_not_panic", func(t *testing.T) {
		p := factory()
		if err := p.Init(context.Background(), Deps(t, p.Info().Name)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if err := p.Stop(context.Background()); err != nil {
			t.Fatalf("Stop() without Start error = %v", err)
		}
	})

	t.Run("Routes_are_well_formed", func(t *testing.T) {
		p := factory()
		hp, ok := p.(plugin.HTTPProvider)
		if !ok {
			t.Skip("plugin does not expose routes")
		}
		if err := p.Init(context.Background(), Deps(t, p.Info().Name)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		seen := make(map[string]bool)
		for _, r := range hp.Routes() {
			if r.Handler == nil {
				t.Errorf("%s %q has nil handler", r.Method, r.Path)
			}
			if r.Path != "" && !strings.HasPrefix(r.Path, "/") {
				t.Errorf("%s %q must start with /", r.Method, r.Path)
			}
			key := r.Method + " " + r.Path
			if seen[key] {
				t.Errorf("duplicate route %s", key)
			}
			seen[key] = true
		}
	})

	t.Run("Health_after_Init", func(t *testing.T) {
		p := factory()
		hc, ok := p.(plugin.HealthChecker)
		if !ok {
			t.Skip("plugin does not report health")
		}
		if err := p.Init(context.Background(), Deps(t, p.Info().Name)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if status := hc.Health(context.Background()); status.Status == "" {
			t.Error("Health().Status must not be empty")
		}
	})
}

// Deps returns dependencies backed by an in-memory store, a fresh event bus
// and the default configuration, with file paths redirected into a
// per-test temporary directory.
func Deps(t *testing.T, name string) plugin.Dependencies {
	t.Helper()

	v := viper.New()
	config.SetDefaults(v)
	v.Set("plugins.monitoring.data_dir", t.TempDir())

	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return plugin.Dependencies{
		Config: config.New(v).Sub("plugins." + name),
		Logger: zap.NewNop().Named(name),
		Store:  db,
		Bus:    event.NewBus(nil),
	}
}
