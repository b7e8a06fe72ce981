package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/wardwatch/pkg/models"
)

// Problem types for RFC 7807 Problem Details responses.
const (
	ProblemTypeNotFound     = "https://wardwatch.dev/problems/not-found"
	ProblemTypeBadRequest   = "https://wardwatch.dev/problems/bad-request"
	ProblemTypeInternal     = "https://wardwatch.dev/problems/internal-error"
	ProblemTypeUnauthorized = "https://wardwatch.dev/problems/unauthorized"
	ProblemTypeForbidden    = "https://wardwatch.dev/problems/forbidden"
	ProblemTypeRateLimited  = "https://wardwatch.dev/problems/rate-limited"
	ProblemTypeConflict     = "https://wardwatch.dev/problems/conflict"
	ProblemTypeUnavailable  = "https://wardwatch.dev/problems/source-unavailable"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// WriteProblem writes p as application/problem+json.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteJSON writes data as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type problemKind struct {
	target error
	status int
	typ    string
}

// problemKinds maps the shared error taxonomy to HTTP. Order matters only
// for errors wrapping more than one sentinel.
var problemKinds = []problemKind{
	{models.ErrUnauthorized, http.StatusUnauthorized, ProblemTypeUnauthorized},
	{models.ErrForbidden, http.StatusForbidden, ProblemTypeForbidden},
	{models.ErrNotFound, http.StatusNotFound, ProblemTypeNotFound},
	{models.ErrAlreadyExists, http.StatusConflict, ProblemTypeConflict},
	{models.ErrInvalidInput, http.StatusBadRequest, ProblemTypeBadRequest},
	{models.ErrSourceUnavailable, http.StatusServiceUnavailable, ProblemTypeUnavailable},
}

// WriteError maps err onto a problem response. Expected conditions carry
// their message; anything else is logged with context and reported as a
// generic internal error. Denials use a fixed detail so they reveal
// nothing about the resource.
func WriteError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	for _, k := range problemKinds {
		if !errors.Is(err, k.target) {
			continue
		}
		detail := err.Error()
		switch k.status {
		case http.StatusUnauthorized:
			detail = "authentication required"
		case http.StatusForbidden:
			detail = "insufficient clearance level"
		case http.StatusServiceUnavailable:
			detail = "vital-sign source unavailable"
			logger.Warn("source unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		}
		WriteProblem(w, Problem{
			Type:     k.typ,
			Title:    http.StatusText(k.status),
			Status:   k.status,
			Detail:   detail,
			Instance: r.URL.Path,
		})
		return
	}

	logger.Error("internal error",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.Error(err),
	)
	WriteProblem(w, Problem{
		Type:     ProblemTypeInternal,
		Title:    http.StatusText(http.StatusInternalServerError),
		Status:   http.StatusInternalServerError,
		Detail:   "an internal error occurred",
		Instance: r.URL.Path,
	})
}

// BadRequest writes a 400 problem response.
func BadRequest(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeBadRequest,
		Title:    http.StatusText(http.StatusBadRequest),
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: instance,
	})
}

// RateLimited writes a 429 problem response.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeRateLimited,
		Title:    http.StatusText(http.StatusTooManyRequests),
		Status:   http.StatusTooManyRequests,
		Detail:   detail,
		Instance: instance,
	})
}
