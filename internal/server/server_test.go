package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"

	"github.com/HerbHall/wardwatch/pkg/plugin"
)

// fakePlugins satisfies PluginSource.
type fakePlugins struct {
	plugins []plugin.Plugin
	routes  map[string][]plugin.Route
	health  map[string]plugin.HealthStatus
}

func (f *fakePlugins) AllRoutes() map[string][]plugin.Route { return f.routes }
func (f *fakePlugins) All() []plugin.Plugin                 { return f.plugins }
func (f *fakePlugins) Health(context.Context) map[string]plugin.HealthStatus {
	return f.health
}

type stubPlugin struct {
	info plugin.PluginInfo
}

func (s *stubPlugin) Info() plugin.PluginInfo                         { return s.info }
func (s *stubPlugin) Init(context.Context, plugin.Dependencies) error { return nil }
func (s *stubPlugin) Start(context.Context) error                     { return nil }
func (s *stubPlugin) Stop(context.Context) error                      { return nil }

var testConfig = Config{Host: "127.0.0.1", Port: 0}

// wardPlugins mirrors the production plugin set: monitoring and activity
// are required, the staff directory is not.
func wardPlugins(health map[string]plugin.HealthStatus) *fakePlugins {
	return &fakePlugins{
		plugins: []plugin.Plugin{
			&stubPlugin{info: plugin.PluginInfo{
				Name: "activity", Version: "0.1.0", Required: true,
				Roles: []string{"audit"},
			}},
			&stubPlugin{info: plugin.PluginInfo{
				Name: "monitoring", Version: "0.1.0", Required: true,
				Description: "Bedside vital-sign monitoring",
				Roles:       []string{"bed_monitoring"}, Dependencies: []string{"activity"},
			}},
			&stubPlugin{info: plugin.PluginInfo{
				Name: "users", Version: "0.1.0",
				Roles: []string{"staff_directory"}, Dependencies: []string{"activity"},
			}},
		},
		routes: map[string][]plugin.Route{
			"monitoring": {{
				Method: http.MethodGet,
				Path:   "/beds/{bed_id}",
				Handler: func(w http.ResponseWriter, r *http.Request) {
					WriteJSON(w, http.StatusOK, map[string]string{"bed_id": r.PathValue("bed_id")})
				},
			}},
		},
		health: health,
	}
}

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestHandleHealthz(t *testing.T) {
	srv := New(testConfig, wardPlugins(nil), zap.NewNop(), nil, nil)
	w := serve(t, srv.mux, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := decode[map[string]string](t, w); body["status"] != "alive" {
		t.Errorf("status = %q, want alive", body["status"])
	}
}

func TestHandleReadyz(t *testing.T) {
	dbDown := ReadinessChecker(func(context.Context) error { return errors.New("database unreachable") })

	tests := []struct {
		name      string
		ready     ReadinessChecker
		health    map[string]plugin.HealthStatus
		wantCode  int
		wantError string
	}{
		{"no checker", nil, nil, http.StatusOK, ""},
		{"checker fails", dbDown, nil, http.StatusServiceUnavailable, "database unreachable"},
		{
			"required plugin unhealthy", nil,
			map[string]plugin.HealthStatus{"monitoring": {Status: "unhealthy", Message: "not initialized"}},
			http.StatusServiceUnavailable, "plugin monitoring unhealthy",
		},
		{
			"required plugin degraded", nil,
			map[string]plugin.HealthStatus{"activity": {Status: "degraded"}},
			http.StatusOK, "",
		},
		{
			"optional plugin unhealthy", nil,
			map[string]plugin.HealthStatus{"users": {Status: "unhealthy"}},
			http.StatusOK, "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(testConfig, wardPlugins(tt.health), zap.NewNop(), tt.ready, nil)
			w := serve(t, srv.mux, "/readyz")
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			body := decode[map[string]string](t, w)
			if tt.wantError == "" {
				if body["status"] != "ready" {
					t.Errorf("status = %q, want ready", body["status"])
				}
				return
			}
			if body["status"] != "not ready" || !strings.Contains(body["error"], tt.wantError) {
				t.Errorf("body = %v, want error containing %q", body, tt.wantError)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name   string
		health map[string]plugin.HealthStatus
		want   string
	}{
		{"all healthy", map[string]plugin.HealthStatus{"monitoring": {Status: "healthy"}}, "ok"},
		{
			"one degraded",
			map[string]plugin.HealthStatus{
				"monitoring": {Status: "healthy"},
				"activity":   {Status: "degraded", Message: "write failures"},
			},
			"degraded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(testConfig, wardPlugins(tt.health), zap.NewNop(), nil, nil)
			body := decode[HealthResponse](t, serve(t, srv.mux, "/api/v1/health"))
			if body.Status != tt.want {
				t.Errorf("status = %q, want %q", body.Status, tt.want)
			}
			if body.Service != "wardwatch" || body.Version["version"] == "" {
				t.Errorf("service/version = %q/%v", body.Service, body.Version)
			}
			if len(body.Plugins) != len(tt.health) {
				t.Errorf("plugins = %v", body.Plugins)
			}
		})
	}
}

func TestHandlePlugins(t *testing.T) {
	srv := New(testConfig, wardPlugins(nil), zap.NewNop(), nil, nil)
	list := decode[[]PluginResponse](t, serve(t, srv.mux, "/api/v1/plugins"))

	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	mon := list[1]
	if mon.Name != "monitoring" || !mon.Required {
		t.Errorf("monitoring entry = %+v", mon)
	}
	if len(mon.Roles) != 1 || mon.Roles[0] != "bed_monitoring" {
		t.Errorf("roles = %v", mon.Roles)
	}
	if len(mon.Dependencies) != 1 || mon.Dependencies[0] != "activity" {
		t.Errorf("dependencies = %v", mon.Dependencies)
	}
	if list[2].Required {
		t.Error("users plugin should not be required")
	}
}

func TestPluginRoutesMountedUnderName(t *testing.T) {
	srv := New(testConfig, wardPlugins(nil), zap.NewNop(), nil, nil)
	w := serve(t, srv.mux, "/api/v1/monitoring/beds/BED007")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := decode[map[string]string](t, w); body["bed_id"] != "BED007" {
		t.Errorf("bed_id = %q, want BED007", body["bed_id"])
	}
}

func TestHandler_MiddlewareApplied(t *testing.T) {
	srv := New(testConfig, wardPlugins(nil), zap.NewNop(), nil, nil)
	w := serve(t, srv.Handler(), "/healthz")

	for h, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := w.Header().Get(h); got != want {
			t.Errorf("%s = %q, want %q", h, got, want)
		}
	}
	for _, h := range []string{"X-WardWatch-Version", "X-Request-ID"} {
		if w.Header().Get(h) == "" {
			t.Errorf("expected %s header", h)
		}
	}
}

func TestHandler_MetricsLabelledByRoute(t *testing.T) {
	// An inner layer that swaps the request context, as the auth middleware does.
	rewrap := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithoutCancel(r.Context())))
		})
	}
	srv := New(testConfig, wardPlugins(nil), zap.NewNop(), nil, rewrap)

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "GET /api/v1/monitoring/beds/{bed_id}", "200")
	value := func() float64 {
		var m dto.Metric
		if err := counter.Write(&m); err != nil {
			t.Fatalf("read counter: %v", err)
		}
		return m.GetCounter().GetValue()
	}
	before := value()

	serve(t, srv.Handler(), "/api/v1/monitoring/beds/BED001")
	serve(t, srv.Handler(), "/api/v1/monitoring/beds/BED002")

	if got := value() - before; got != 2 {
		t.Errorf("route counter delta = %v, want 2", got)
	}
}

func TestHandleMetrics(t *testing.T) {
	srv := New(testConfig, wardPlugins(nil), zap.NewNop(), nil, nil)
	w := serve(t, srv.mux, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected Go runtime metrics")
	}
}

func TestAuthMiddlewareApplied(t *testing.T) {
	denyAll := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	srv := New(testConfig, wardPlugins(nil), zap.NewNop(), nil, denyAll)
	if w := serve(t, srv.Handler(), "/api/v1/plugins"); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
