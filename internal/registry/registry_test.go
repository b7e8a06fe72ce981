package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/HerbHall/wardwatch/pkg/plugin"
	"go.uber.org/zap"
)

type testPlugin struct {
	info     plugin.PluginInfo
	initErr  error
	startErr error
	stopErr  error
	panicOn  string
	stopLog  *[]string
	health   *plugin.HealthStatus
}

func newTestPlugin(name string, deps ...string) *testPlugin {
	return &testPlugin{info: plugin.PluginInfo{
		Name:         name,
		Version:      "0.1.0",
		Dependencies: deps,
		APIVersion:   plugin.APIVersionCurrent,
	}}
}

func (p *testPlugin) Info() plugin.PluginInfo { return p.info }

func (p *testPlugin) Init(context.Context, plugin.Dependencies) error {
	if p.panicOn == "init" {
		panic("init exploded")
	}
	return p.initErr
}

func (p *testPlugin) Start(context.Context) error {
	if p.panicOn == "start" {
		panic("start exploded")
	}
	return p.startErr
}

func (p *testPlugin) Stop(context.Context) error {
	if p.stopLog != nil {
		*p.stopLog = append(*p.stopLog, p.info.Name)
	}
	if p.panicOn == "stop" {
		panic("stop exploded")
	}
	return p.stopErr
}

type healthPlugin struct{ *testPlugin }

func (p healthPlugin) Health(context.Context) plugin.HealthStatus { return *p.health }

type routePlugin struct{ *testPlugin }

func (routePlugin) Routes() []plugin.Route {
	return []plugin.Route{{Method: "GET", Path: "/"}}
}

func testDeps(name string) plugin.Dependencies {
	return plugin.Dependencies{Logger: zap.NewNop().Named(name)}
}

func mustValidate(t *testing.T, reg *Registry) {
	t.Helper()
	if err := reg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func names(ps []plugin.Plugin) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Info().Name)
	}
	return out
}

func TestRegister_RejectsDuplicateAndEmpty(t *testing.T) {
	reg := New(zap.NewNop())
	if err := reg.Register(newTestPlugin("activity")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(newTestPlugin("activity")); err == nil {
		t.Error("expected error for duplicate name")
	}
	if err := reg.Register(newTestPlugin("")); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestValidate_DependencyOrder(t *testing.T) {
	reg := New(zap.NewNop())
	_ = reg.Register(newTestPlugin("monitoring", "activity"))
	_ = reg.Register(newTestPlugin("users", "activity"))
	_ = reg.Register(newTestPlugin("activity"))
	mustValidate(t, reg)

	got := names(reg.All())
	want := []string{"activity", "monitoring", "users"}
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestValidate_Cycle(t *testing.T) {
	reg := New(zap.NewNop())
	_ = reg.Register(newTestPlugin("a", "b"))
	_ = reg.Register(newTestPlugin("b", "a"))
	if err := reg.Validate(); err == nil {
		t.Fatal("expected cycle error")
	}
}

func TestValidate_MissingDependency(t *testing.T) {
	t.Run("optional cascades", func(t *testing.T) {
		reg := New(zap.NewNop())
		_ = reg.Register(newTestPlugin("monitoring", "activity"))
		_ = reg.Register(newTestPlugin("ws", "monitoring"))
		mustValidate(t, reg)
		if !reg.IsDisabled("monitoring") || !reg.IsDisabled("ws") {
			t.Error("expected monitoring and its dependent disabled")
		}
	})
	t.Run("required fails", func(t *testing.T) {
		reg := New(zap.NewNop())
		p := newTestPlugin("monitoring", "activity")
		p.info.Required = true
		_ = reg.Register(p)
		if err := reg.Validate(); err == nil {
			t.Fatal("expected error for required module with missing dependency")
		}
	})
}

func TestValidate_APIVersionOutOfRange(t *testing.T) {
	reg := New(zap.NewNop())
	old := newTestPlugin("old")
	old.info.APIVersion = plugin.APIVersionMin - 1
	future := newTestPlugin("future")
	future.info.APIVersion = plugin.APIVersionCurrent + 1
	_ = reg.Register(old)
	_ = reg.Register(future)
	mustValidate(t, reg)

	if !reg.IsDisabled("old") || !reg.IsDisabled("future") {
		t.Error("expected out-of-range modules disabled")
	}
}

func TestInitAll_Failures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(p *testPlugin)
		required bool
		wantErr  bool
	}{
		{name: "optional error disables", mutate: func(p *testPlugin) { p.initErr = errors.New("bad") }},
		{name: "optional panic disables", mutate: func(p *testPlugin) { p.panicOn = "init" }},
		{name: "required error fails", mutate: func(p *testPlugin) { p.initErr = errors.New("bad") }, required: true, wantErr: true},
		{name: "required panic fails", mutate: func(p *testPlugin) { p.panicOn = "init" }, required: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := New(zap.NewNop())
			p := newTestPlugin("activity")
			p.info.Required = tt.required
			tt.mutate(p)
			_ = reg.Register(p)
			mustValidate(t, reg)

			err := reg.InitAll(context.Background(), testDeps)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("InitAll: %v", err)
			}
			if !reg.IsDisabled("activity") {
				t.Error("expected module disabled")
			}
			if _, ok := reg.Resolve("activity"); ok {
				t.Error("disabled module should not resolve")
			}
		})
	}
}

func TestStartAll_PanicDisablesOptional(t *testing.T) {
	reg := New(zap.NewNop())
	p := newTestPlugin("ws")
	p.panicOn = "start"
	_ = reg.Register(p)
	mustValidate(t, reg)

	if err := reg.InitAll(context.Background(), testDeps); err != nil {
		t.Fatalf("InitAll: %v", err)
	}
	if err := reg.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if !reg.IsDisabled("ws") {
		t.Error("expected ws disabled after start panic")
	}
}

func TestStopAll_ReverseOrderDespiteFailures(t *testing.T) {
	var stopped []string
	reg := New(zap.NewNop())

	activity := newTestPlugin("activity")
	monitoring := newTestPlugin("monitoring", "activity")
	monitoring.stopErr = errors.New("refresher stuck")
	users := newTestPlugin("users", "activity")
	users.panicOn = "stop"
	for _, p := range []*testPlugin{activity, monitoring, users} {
		p.stopLog = &stopped
		_ = reg.Register(p)
	}
	mustValidate(t, reg)

	reg.StopAll(context.Background())

	want := []string{"users", "monitoring", "activity"}
	if len(stopped) != len(want) {
		t.Fatalf("stopped = %v, want %v", stopped, want)
	}
	for i := range want {
		if stopped[i] != want[i] {
			t.Fatalf("stopped = %v, want %v", stopped, want)
		}
	}
}

func TestResolveByRole(t *testing.T) {
	reg := New(zap.NewNop())
	audit := newTestPlugin("activity")
	audit.info.Roles = []string{"audit"}
	_ = reg.Register(audit)
	_ = reg.Register(newTestPlugin("monitoring", "activity"))
	mustValidate(t, reg)

	got := reg.ResolveByRole("audit")
	if len(got) != 1 || got[0].Info().Name != "activity" {
		t.Errorf("ResolveByRole(audit) = %v, want [activity]", names(got))
	}
	if got := reg.ResolveByRole("nothing"); len(got) != 0 {
		t.Errorf("ResolveByRole(nothing) = %v, want empty", names(got))
	}
}

func TestAllRoutesAndHealth(t *testing.T) {
	reg := New(zap.NewNop())
	healthy := plugin.HealthStatus{Status: "healthy"}
	hp := newTestPlugin("activity")
	hp.health = &healthy
	_ = reg.Register(healthPlugin{hp})
	_ = reg.Register(routePlugin{newTestPlugin("monitoring")})
	mustValidate(t, reg)

	routes := reg.AllRoutes()
	if len(routes["monitoring"]) != 1 {
		t.Errorf("monitoring routes = %d, want 1", len(routes["monitoring"]))
	}
	if _, ok := routes["activity"]; ok {
		t.Error("activity has no routes and should be absent")
	}

	health := reg.Health(context.Background())
	if health["activity"].Status != "healthy" {
		t.Errorf("activity health = %+v", health["activity"])
	}
	if _, ok := health["monitoring"]; ok {
		t.Error("monitoring does not report health")
	}
}
