package audit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/HerbHall/wardwatch/internal/authz"
	"github.com/HerbHall/wardwatch/internal/server"
	"github.com/HerbHall/wardwatch/pkg/activity"
	"github.com/HerbHall/wardwatch/pkg/models"
	"github.com/HerbHall/wardwatch/pkg/plugin"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/my", Handler: m.handleMine},
		{Method: "GET", Path: "/users", Handler: m.handleByUser},
		{Method: "GET", Path: "/audit", Handler: m.handleAudit},
	}
}

// ActivityList is the response body of every activity query.
type ActivityList struct {
	Activities []activity.Record `json:"activities"`
	Count      int               `json:"count" example:"2"`
}

// parseQuery reads the filter and limit shared by every activity endpoint.
func parseQuery(r *http.Request) (activity.Filter, int, error) {
	var f activity.Filter
	q := r.URL.Query()

	if s := q.Get("category"); s != "" {
		c, err := activity.ParseCategory(s)
		if err != nil {
			return f, 0, err
		}
		f.Category = c
	}
	if s := q.Get("severity"); s != "" {
		sev, err := activity.ParseSeverity(s)
		if err != nil {
			return f, 0, err
		}
		f.Severity = sev
	}
	for key, dst := range map[string]*time.Time{"start": &f.Start, "end": &f.End} {
		s := q.Get(key)
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return f, 0, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", models.ErrInvalidInput, key)
		}
		*dst = t
	}
	limit, err := server.QueryInt(r, "limit", 0)
	if err != nil {
		return f, 0, err
	}
	return f, limit, nil
}

type queryFunc func(ctx context.Context, caller *authz.Caller, f activity.Filter, limit int) ([]activity.Record, error)

func (m *Module) serveQuery(w http.ResponseWriter, r *http.Request, query queryFunc) {
	caller := authz.CallerFromContext(r.Context())
	if err := authz.Authenticated(caller); err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	f, limit, err := parseQuery(r)
	if err == nil {
		var records []activity.Record
		records, err = query(r.Context(), caller, f, limit)
		if err == nil {
			server.WriteJSON(w, http.StatusOK, ActivityList{Activities: records, Count: len(records)})
			return
		}
	}
	server.WriteError(w, r, m.logger, err)
}

// handleMine returns the caller's own activity.
//
//	@Summary		My activity
//	@Tags			activity
//	@Produce		json
//	@Security		BearerAuth
//	@Param			category	query		string	false	"Activity category"
//	@Param			severity	query		string	false	"Severity"
//	@Param			start		query		string	false	"Inclusive lower bound (RFC 3339)"
//	@Param			end			query		string	false	"Inclusive upper bound (RFC 3339)"
//	@Param			limit		query		int		false	"Maximum results"	default(100)
//	@Success		200			{object}	ActivityList
//	@Failure		401			{object}	models.APIProblem
//	@Router			/activity/my [get]
func (m *Module) handleMine(w http.ResponseWriter, r *http.Request) {
	m.serveQuery(w, r, m.service.Mine)
}

// handleByUser returns activity for the user named by user_id, or for all
// users when it is omitted.
//
//	@Summary		Activity by user
//	@Tags			activity
//	@Produce		json
//	@Security		BearerAuth
//	@Param			user_id		query		string	false	"Actor user ID"
//	@Param			category	query		string	false	"Activity category"
//	@Param			limit		query		int		false	"Maximum results"	default(100)
//	@Success		200			{object}	ActivityList
//	@Failure		401			{object}	models.APIProblem
//	@Failure		403			{object}	models.APIProblem
//	@Router			/activity/users [get]
func (m *Module) handleByUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	m.serveQuery(w, r, func(ctx context.Context, caller *authz.Caller, f activity.Filter, limit int) ([]activity.Record, error) {
		return m.service.ByUser(ctx, caller, userID, f, limit)
	})
}

// handleAudit returns the whole activity log.
//
//	@Summary		Audit log
//	@Tags			activity
//	@Produce		json
//	@Security		BearerAuth
//	@Param			severity	query		string	false	"Severity"
//	@Param			limit		query		int		false	"Maximum results"	default(100)
//	@Success		200			{object}	ActivityList
//	@Failure		401			{object}	models.APIProblem
//	@Failure		403			{object}	models.APIProblem
//	@Router			/activity/audit [get]
func (m *Module) handleAudit(w http.ResponseWriter, r *http.Request) {
	m.serveQuery(w, r, m.service.AuditWide)
}
