package activity

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bugtrail/bugtrail/internal/permissions"
	"github.com/bugtrail/bugtrail/internal/platform/httpx"
	"github.com/bugtrail/bugtrail/internal/shared"
)

// Handler serves the activity feed endpoints.
type Handler struct {
	recorder *Recorder
	logger   *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(recorder *Recorder, logger *slog.Logger) *Handler {
	return &Handler{recorder: recorder, logger: logger}
}

// Routes mounts the activity endpoints. The project feed needs
// PROJECTS_VIEW; the personal feed is open to any authenticated principal.
func (h *Handler) Routes(r chi.Router, guard permissions.Middleware) {
	r.With(guard.Require(permissions.PermProjectsView)).Get("/projects/{projectID}/activity", h.projectFeed)
	r.Get("/me/activity", h.myFeed)
}

func (h *Handler) projectFeed(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil || projectID <= 0 {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	feed, err := h.recorder.RecentForProject(r.Context(), projectID, int32(limit))
	if err != nil {
		h.logger.Error("project activity feed", slog.Int64("project_id", projectID), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	if feed == nil {
		feed = []Activity{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"activity": feed})
}

func (h *Handler) myFeed(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	feed, err := h.recorder.RecentForUser(r.Context(), principal.UserID, int32(limit))
	if err != nil {
		h.logger.Error("user activity feed", slog.Int64("user_id", principal.UserID), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	if feed == nil {
		feed = []Activity{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"activity": feed})
}
