package permissions

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bugtrail/bugtrail/internal/platform/httpx"
	"github.com/bugtrail/bugtrail/internal/shared"
)

// Middleware wires permission checks in front of HTTP handlers.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// Require ensures the current principal holds the permission. When the route
// carries a {projectID} parameter the check is project-scoped.
func (m Middleware) Require(key string) func(http.Handler) http.Handler {
	return m.RequireAny(key)
}

// RequireAny ensures the principal holds at least one of the permissions.
func (m Middleware) RequireAny(keys ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			projectID := routeProjectID(r)
			for _, key := range keys {
				if m.Resolver.HasPermission(r.Context(), principal.UserID, key, projectID) {
					next.ServeHTTP(w, r)
					return
				}
			}
			if m.Logger != nil {
				m.Logger.Info("permission denied",
					slog.Int64("user_id", principal.UserID), slog.Any("keys", keys))
			}
			httpx.RespondError(w, httpx.ErrForbidden)
		})
	}
}

func routeProjectID(r *http.Request) *int64 {
	raw := chi.URLParam(r, "projectID")
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
