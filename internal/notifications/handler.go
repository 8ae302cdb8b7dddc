package notifications

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/bugtrail/bugtrail/internal/platform/httpx"
	"github.com/bugtrail/bugtrail/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ReadStorePort is the per-user delivery surface the handler consumes.
type ReadStorePort interface {
	ListForUser(ctx context.Context, userID int64, limit, offset int32) ([]UserNotification, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	DeleteAllForUser(ctx context.Context, userID int64) (int64, error)
}

// Handler serves the per-user notification endpoints.
type Handler struct {
	store  ReadStorePort
	logger *slog.Logger
}

// NewHandler constructs a Handler. logger may be nil.
func NewHandler(store ReadStorePort, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Routes mounts the notification endpoints. All of them act on the
// authenticated principal's own deliveries only.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/notifications", h.list)
	r.Get("/notifications/unread_count", h.unreadCount)
	r.Post("/notifications/{notificationID}/read", h.markRead)
	r.Post("/notifications/read_all", h.markAllRead)
	r.Delete("/notifications", h.deleteAll)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage <= 0 || perPage > maxPageSize {
		perPage = defaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	limit := int32(perPage)
	offset := int32((page - 1) * perPage)

	var (
		items  []UserNotification
		unread int64
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		items, err = h.store.ListForUser(ctx, principal.UserID, limit, offset)
		return err
	})
	g.Go(func() error {
		var err error
		unread, err = h.store.UnreadCount(ctx, principal.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Error("list notifications", slog.Int64("user_id", principal.UserID), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	if items == nil {
		items = []UserNotification{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"unread_count":  unread,
		"page":          page,
		"per_page":      perPage,
	})
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	count, err := h.store.UnreadCount(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("unread count", slog.Int64("user_id", principal.UserID), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"unread_count": count})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "notificationID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	// Idempotent: already read or not owned both end as a quiet no-op.
	if err := h.store.MarkRead(r.Context(), principal.UserID, id); err != nil {
		h.logger.Error("mark read", slog.Int64("user_id", principal.UserID), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"read": true})
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	updated, err := h.store.MarkAllRead(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("mark all read", slog.Int64("user_id", principal.UserID), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": updated})
}

func (h *Handler) deleteAll(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	deleted, err := h.store.DeleteAllForUser(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("delete notifications", slog.Int64("user_id", principal.UserID), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}
