package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bugtrail/bugtrail/internal/shared"
)

func newTestMiddleware(t *testing.T) (Middleware, *TokenStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewTokenStore(client, time.Hour)
	return Middleware{Tokens: store, Logger: slog.Default()}, store
}

func TestRequireRejectsMissingToken(t *testing.T) {
	mw, _ := newTestMiddleware(t)
	handler := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without a token")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRejectsUnknownToken(t *testing.T) {
	mw, _ := newTestMiddleware(t)
	handler := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run for an unknown token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAttachesPrincipal(t *testing.T) {
	mw, store := newTestMiddleware(t)
	want := shared.Principal{UserID: 42, Email: "dev@bugtrail.local", SystemRole: shared.RoleDeveloper}
	if err := store.Put(context.Background(), "tok-42", want); err != nil {
		t.Fatalf("put token: %v", err)
	}

	var got *shared.Principal
	handler := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = shared.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got == nil || got.UserID != want.UserID || got.SystemRole != want.SystemRole {
		t.Fatalf("principal mismatch: %+v", got)
	}
}
