// Package authz decides whether a caller may perform an operation. It
// compares clearance levels and applies the clearance-promotion rule. It
// never records denials; call sites that want an audit trail of denials
// record them themselves.
package authz

import (
	"context"
	"fmt"

	"github.com/HerbHall/wardwatch/pkg/clearance"
	"github.com/HerbHall/wardwatch/pkg/models"
)

// Caller is an authenticated identity as established by the identity
// collaborator.
type Caller struct {
	UserID    string
	Clearance clearance.Level
}

type callerKey struct{}

// WithCaller returns a context carrying c.
func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the caller stored by WithCaller, or nil.
func CallerFromContext(ctx context.Context) *Caller {
	c, _ := ctx.Value(callerKey{}).(*Caller)
	return c
}

// Require allows c iff its clearance is at least required. A nil caller is
// unauthorized; an insufficient one is forbidden.
func Require(c *Caller, required clearance.Level) error {
	if c == nil || c.UserID == "" {
		return fmt.Errorf("%w: authentication required", models.ErrUnauthorized)
	}
	if !clearance.AtLeast(c.Clearance, required) {
		return fmt.Errorf("%w: insufficient clearance level", models.ErrForbidden)
	}
	return nil
}

// Authenticated allows any identified caller.
func Authenticated(c *Caller) error {
	if c == nil || c.UserID == "" {
		return fmt.Errorf("%w: authentication required", models.ErrUnauthorized)
	}
	return nil
}

// Operation names a gated action.
type Operation string

const (
	ViewOwnActivity  Operation = "activity.view_own"
	ViewUserActivity Operation = "activity.view_user"
	ViewAuditLog     Operation = "activity.view_audit"
	ListBeds         Operation = "monitoring.list"
	ReadBed          Operation = "monitoring.read"
	ReadVitals       Operation = "monitoring.vitals"
	ReadHistory      Operation = "monitoring.history"
	AddBed           Operation = "monitoring.add"
	RemoveBed        Operation = "monitoring.remove"
	ReassignPatient  Operation = "monitoring.reassign"
	SetBedActive     Operation = "monitoring.set_active"
	StreamVitals     Operation = "monitoring.stream"
	ListStaff        Operation = "users.list"
	ListDoctors      Operation = "users.doctors"
	ChangeClearance  Operation = "users.change_clearance"
)

// anyCaller marks operations open to every authenticated caller.
const anyCaller clearance.Level = ""

// requirements is the access table. Every gated operation has exactly one
// entry.
var requirements = map[Operation]clearance.Level{
	ViewOwnActivity:  anyCaller,
	ViewUserActivity: clearance.L3,
	ViewAuditLog:     clearance.L4,
	ListBeds:         clearance.L2,
	ReadBed:          clearance.L2,
	ReadVitals:       clearance.L2,
	ReadHistory:      clearance.L2,
	AddBed:           clearance.L3,
	RemoveBed:        clearance.L3,
	ReassignPatient:  clearance.L2,
	SetBedActive:     clearance.L2,
	StreamVitals:     clearance.L2,
	ListStaff:        clearance.L3,
	ListDoctors:      anyCaller,
	ChangeClearance:  clearance.L3,
}

// Required returns the minimum clearance for op. The empty level means
// any authenticated caller.
func Required(op Operation) (clearance.Level, bool) {
	l, ok := requirements[op]
	return l, ok
}

// Check applies the level gate for op. Unknown operations are forbidden.
func Check(c *Caller, op Operation) error {
	required, ok := requirements[op]
	if !ok {
		if err := Authenticated(c); err != nil {
			return err
		}
		return fmt.Errorf("%w: unknown operation %q", models.ErrForbidden, op)
	}
	if required == anyCaller {
		return Authenticated(c)
	}
	return Require(c, required)
}

// assignable lists, per caller level, the levels that caller may assign.
// It is an explicit table rather than a rank comparison: an L3 caller may
// hand out L1 and L2 only, an L4 caller anything.
var assignable = map[clearance.Level][]clearance.Level{
	clearance.L3: {clearance.L1, clearance.L2},
	clearance.L4: {clearance.L1, clearance.L2, clearance.L3, clearance.L4},
}

// AuthorizeClearanceChange applies the level gate for ChangeClearance and
// then the promotion rule for newLevel. newLevel must be a valid level.
func AuthorizeClearanceChange(c *Caller, newLevel clearance.Level) error {
	if err := Check(c, ChangeClearance); err != nil {
		return err
	}
	if !newLevel.Valid() {
		return fmt.Errorf("%w: unknown clearance level %q", models.ErrInvalidInput, newLevel)
	}
	for _, l := range assignable[c.Clearance] {
		if l == newLevel {
			return nil
		}
	}
	return fmt.Errorf("%w: %s callers may not assign %s", models.ErrForbidden, c.Clearance, newLevel)
}
