package audit

import (
	"context"
	"fmt"

	"github.com/HerbHall/wardwatch/internal/authz"
	"github.com/HerbHall/wardwatch/pkg/activity"
	"github.com/HerbHall/wardwatch/pkg/models"
)

// Querier reads the activity log.
type Querier interface {
	Query(ctx context.Context, f activity.Filter, limit int) ([]activity.Record, error)
}

// Service applies clearance gates and limits to activity queries.
type Service struct {
	q            Querier
	defaultLimit int
	maxLimit     int
}

func NewService(q Querier, defaultLimit, maxLimit int) *Service {
	return &Service{q: q, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// Mine returns the caller's own activity. Any actor in f is replaced by
// the caller.
func (s *Service) Mine(ctx context.Context, caller *authz.Caller, f activity.Filter, limit int) ([]activity.Record, error) {
	if err := authz.Check(caller, authz.ViewOwnActivity); err != nil {
		return nil, err
	}
	f.ActorUserID = caller.UserID
	return s.query(ctx, f, limit)
}

// ByUser returns activity for userID, or for every user when userID is
// empty. Requires L3.
func (s *Service) ByUser(ctx context.Context, caller *authz.Caller, userID string, f activity.Filter, limit int) ([]activity.Record, error) {
	if err := authz.Check(caller, authz.ViewUserActivity); err != nil {
		return nil, err
	}
	f.ActorUserID = userID
	return s.query(ctx, f, limit)
}

// AuditWide returns the whole log. Requires L4.
func (s *Service) AuditWide(ctx context.Context, caller *authz.Caller, f activity.Filter, limit int) ([]activity.Record, error) {
	if err := authz.Check(caller, authz.ViewAuditLog); err != nil {
		return nil, err
	}
	return s.query(ctx, f, limit)
}

func (s *Service) query(ctx context.Context, f activity.Filter, limit int) ([]activity.Record, error) {
	if !f.Start.IsZero() && !f.End.IsZero() && f.Start.After(f.End) {
		return nil, fmt.Errorf("%w: start is after end", models.ErrInvalidInput)
	}
	return s.q.Query(ctx, f, s.clampLimit(limit))
}

func (s *Service) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.defaultLimit
	case limit > s.maxLimit:
		return s.maxLimit
	}
	return limit
}
