package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/HerbHall/wardwatch/internal/authz"
	"github.com/HerbHall/wardwatch/pkg/activity"
	"github.com/HerbHall/wardwatch/pkg/clearance"
	"github.com/HerbHall/wardwatch/pkg/models"
	"github.com/HerbHall/wardwatch/pkg/roles"
)

// doctorLevels are the clearances that count as a doctor.
var doctorLevels = []clearance.Level{clearance.L2, clearance.L3, clearance.L4}

// Origin is the request provenance attached to audit events.
type Origin struct {
	IPAddress string
	UserAgent string
}

// Service is the gated staff directory API.
type Service struct {
	store        *Store
	recorder     roles.ActivityRecorder
	auditDenials bool
}

// NewService returns a Service. A nil recorder discards events.
func NewService(store *Store, recorder roles.ActivityRecorder, auditDenials bool) *Service {
	if recorder == nil {
		recorder = roles.NopRecorder{}
	}
	return &Service{store: store, recorder: recorder, auditDenials: auditDenials}
}

// List returns every member. Requires L3.
func (s *Service) List(ctx context.Context, caller *authz.Caller) ([]Member, error) {
	if err := authz.Check(caller, authz.ListStaff); err != nil {
		return nil, err
	}
	return s.store.List(ctx)
}

// Doctors returns the active members at L2 or above, ordered by name.
func (s *Service) Doctors(ctx context.Context, caller *authz.Caller) ([]Member, error) {
	if err := authz.Check(caller, authz.ListDoctors); err != nil {
		return nil, err
	}
	return s.store.ListActive(ctx, doctorLevels)
}

// ChangeClearance sets the clearance of the member userID to level after
// applying the promotion rule. A successful change is recorded as a high
// severity event. Denials by the promotion rule are recorded when the
// service was built with auditDenials.
func (s *Service) ChangeClearance(ctx context.Context, caller *authz.Caller, userID string, level clearance.Level, origin Origin) (Member, error) {
	if err := authz.AuthorizeClearanceChange(caller, level); err != nil {
		if s.auditDenials && errors.Is(err, models.ErrForbidden) {
			s.recorder.Record(ctx, activity.Denied(caller.UserID, "change clearance of "+userID+" to "+string(level), err.Error()).
				From(origin.IPAddress, origin.UserAgent))
		}
		return Member{}, err
	}

	old, err := s.store.SetClearance(ctx, userID, level)
	if err != nil {
		return Member{}, err
	}
	s.recorder.Record(ctx, activity.ClearanceChange(caller.UserID, userID, old, level).
		From(origin.IPAddress, origin.UserAgent))

	return s.store.Get(ctx, userID)
}

// ResolveCaller maps an authenticated user id to the member's current
// clearance. Unknown and inactive members are unauthorized.
func (s *Service) ResolveCaller(ctx context.Context, userID string) (*authz.Caller, error) {
	m, err := s.store.Get(ctx, userID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && !m.Active) {
		return nil, fmt.Errorf("%w: invalid or inactive user", models.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	return &authz.Caller{UserID: m.ID, Clearance: m.Clearance}, nil
}
