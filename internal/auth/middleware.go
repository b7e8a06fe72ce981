package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/HerbHall/wardwatch/internal/authz"
	"github.com/HerbHall/wardwatch/internal/server"
	"github.com/HerbHall/wardwatch/pkg/models"
)

// CallerResolver looks up the current clearance of an authenticated user.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, userID string) (*authz.Caller, error)
}

// Paths under /api/ that do not require a token.
var publicPaths = map[string]bool{
	"/api/v1/health": true,
}

const wsPrefix = "/api/v1/ws/"

// Middleware validates bearer access tokens on API routes and stores the
// resulting authz.Caller in the request context. Non-API paths (healthz,
// readyz, metrics) and public paths are skipped. WebSocket paths may carry
// the token in the "token" query parameter instead of the header.
//
// When resolver is non-nil the caller's clearance comes from it rather
// than from the token.
func Middleware(tokens *TokenService, resolver CallerResolver, logger *zap.Logger) server.Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, ok := bearerToken(r)
			if !ok {
				server.WriteError(w, r, logger, fmt.Errorf("%w: missing access token", models.ErrUnauthorized))
				return
			}
			claims, err := tokens.ValidateAccessToken(tokenString)
			if err != nil {
				logger.Debug("rejected access token", zap.Error(err))
				server.WriteError(w, r, logger, fmt.Errorf("%w: invalid or expired access token", models.ErrUnauthorized))
				return
			}

			caller, err := callerFor(r.Context(), claims, resolver)
			if err != nil {
				server.WriteError(w, r, logger, err)
				return
			}
			server.SetRequestUser(r.Context(), caller.UserID)
			next.ServeHTTP(w, r.WithContext(authz.WithCaller(r.Context(), caller)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		t := strings.TrimPrefix(h, "Bearer ")
		return t, t != ""
	}
	if strings.HasPrefix(r.URL.Path, wsPrefix) {
		if t := r.URL.Query().Get("token"); t != "" {
			return t, true
		}
	}
	return "", false
}

func callerFor(ctx context.Context, claims *Claims, resolver CallerResolver) (*authz.Caller, error) {
	if resolver != nil {
		return resolver.ResolveCaller(ctx, claims.Subject)
	}
	if !claims.Clearance.Valid() {
		return nil, fmt.Errorf("%w: token carries no valid clearance", models.ErrUnauthorized)
	}
	return &authz.Caller{UserID: claims.Subject, Clearance: claims.Clearance}, nil
}
