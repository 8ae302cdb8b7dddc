package bugs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bugtrail/bugtrail/internal/permissions"
	"github.com/bugtrail/bugtrail/internal/platform/httpx"
	"github.com/bugtrail/bugtrail/internal/shared"
)

// Handler serves the bug endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, validate: validator.New(), logger: logger}
}

// Routes mounts the bug endpoints behind per-operation permission checks.
func (h *Handler) Routes(r chi.Router, guard permissions.Middleware) {
	r.With(guard.Require(permissions.PermBugsCreate)).Post("/bugs", h.report)
	r.With(guard.Require(permissions.PermBugsView)).Get("/bugs/{bugID}", h.get)
	r.With(guard.Require(permissions.PermBugsView)).Get("/projects/{projectID}/bugs", h.listByProject)
	r.With(guard.Require(permissions.PermBugsEdit)).Post("/bugs/{bugID}/fixed", h.markFixed)
	r.With(guard.Require(permissions.PermBugsClose)).Post("/bugs/{bugID}/verified", h.verify)
	r.With(guard.Require(permissions.PermBugsEdit)).Post("/bugs/{bugID}/assign", h.assign)
	r.With(guard.Require(permissions.PermBugsComment)).Post("/bugs/{bugID}/comments", h.comment)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var in ReportInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	bug, err := h.service.Report(r.Context(), in, principal.UserID, principal.Email)
	if err != nil {
		h.logger.Error("report bug", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusCreated, bug)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathBugID(w, r)
	if !ok {
		return
	}
	bug, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("get bug", slog.Int64("bug_id", id), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, bug)
}

func (h *Handler) listByProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil || projectID <= 0 {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	p := shared.NewPagination(page, perPage, 0)
	limit, offset := p.LimitOffset()

	list, err := h.service.ListByProject(r.Context(), projectID, limit, offset)
	if err != nil {
		h.logger.Error("list bugs", slog.Int64("project_id", projectID), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	if list == nil {
		list = []Bug{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bugs": list, "page": p.Page, "per_page": p.PerPage})
}

func (h *Handler) markFixed(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkFixed)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Verify)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, bugID, actorID int64, actorName string) (Bug, error)) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := pathBugID(w, r)
	if !ok {
		return
	}
	bug, err := fn(r.Context(), id, principal.UserID, principal.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTransition):
			httpx.Problem(w, http.StatusConflict, "Invalid transition", err.Error())
		case errors.Is(err, shared.ErrNotFound):
			httpx.RespondError(w, httpx.ErrNotFound)
		default:
			h.logger.Error("bug transition", slog.Int64("bug_id", id), slog.Any("error", err))
			httpx.RespondError(w, httpx.ErrUnavailable)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, bug)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := pathBugID(w, r)
	if !ok {
		return
	}
	var body struct {
		AssigneeID int64 `json:"assignee_id" validate:"required,gt=0"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	bug, err := h.service.Assign(r.Context(), id, body.AssigneeID, principal.UserID, principal.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("assign bug", slog.Int64("bug_id", id), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, bug)
}

func (h *Handler) comment(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := pathBugID(w, r)
	if !ok {
		return
	}
	var body struct {
		Body string `json:"body" validate:"required,max=10000"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.Comment(r.Context(), id, principal.UserID, body.Body); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("comment bug", slog.Int64("bug_id", id), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"commented": true})
}

func pathBugID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bugID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, httpx.ErrValidation)
		return 0, false
	}
	return id, true
}
