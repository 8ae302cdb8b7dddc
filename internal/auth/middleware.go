package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bugtrail/bugtrail/internal/platform/httpx"
	"github.com/bugtrail/bugtrail/internal/shared"
)

// Middleware authenticates requests via bearer tokens.
type Middleware struct {
	Tokens *TokenStore
	Logger *slog.Logger
}

// Require rejects requests without a resolvable principal and stores the
// principal in the request context otherwise.
func (m Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		principal, err := m.Tokens.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, shared.ErrTokenMissing) || errors.Is(err, shared.ErrTokenUnknown) {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if m.Logger != nil {
				m.Logger.Error("auth resolve token", slog.Any("error", err))
			}
			httpx.RespondError(w, httpx.ErrUnavailable)
			return
		}
		ctx := shared.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get("X-Auth-Token"))
}
