// Package roles defines typed contracts for plugin roles.
// Plugins that fill a role (declared via PluginInfo.Roles) should implement
// the corresponding interface so callers can use type-safe access via
// PluginResolver.ResolveByRole followed by a type assertion.
package roles

import (
	"context"

	"github.com/HerbHall/wardwatch/pkg/activity"
	"github.com/HerbHall/wardwatch/pkg/plugin"
)

// Role name constants match the strings used in PluginInfo.Roles.
const (
	RoleAudit          = "audit"
	RoleBedMonitoring  = "bed_monitoring"
	RoleStaffDirectory = "staff_directory"
)

// ActivityRecorder is implemented by plugins that persist activity events.
// Record is fire-and-forget: implementations absorb persistence failures.
type ActivityRecorder interface {
	Record(ctx context.Context, event activity.Event)
}

// ResolveRecorder returns the first active plugin filling RoleAudit that
// implements ActivityRecorder, or a no-op recorder when none is registered.
func ResolveRecorder(resolver plugin.PluginResolver) ActivityRecorder {
	if resolver == nil {
		return NopRecorder{}
	}
	for _, p := range resolver.ResolveByRole(RoleAudit) {
		if r, ok := p.(ActivityRecorder); ok {
			return r
		}
	}
	return NopRecorder{}
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, activity.Event) {}
