package projects

import (
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

// Handler serves the project endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, validate: validator.New(), logger: logger}
}

// Routes mounts the project endpoints. Reads need PROJECTS_VIEW, membership
// and lifecycle changes need PROJECTS_MANAGE; the self listing is open to any
// authenticated principal.
func (h *Handler) Routes(r chi.Router, guard permissions.Middleware) {
	r.With(guard.Require(permissions.PermProjectsManage)).Post("/projects", h.create)
	r.With(guard.Require(permissions.PermProjectsView)).Get("/projects/{projectID}", h.get)
	r.With(guard.Require(permissions.PermProjectsView)).Get("/projects/{projectID}/members", h.members)
	r.With(guard.Require(permissions.PermProjectsManage)).Post("/projects/{projectID}/members", h.addMember)
	r.With(guard.Require(permissions.PermProjectsManage)).Delete("/projects/{projectID}/members/{userID}", h.removeMember)
	r.Get("/me/projects", h.myProjects)
}

type createInput struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var in createInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	p, err := h.service.Create(r.Context(), in.Name, in.Description, principal.UserID, principal.Email)
	if err != nil {
		h.logger.Error("create project", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathProjectID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("get project", slog.Int64("project_id", id), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) members(w http.ResponseWriter, r *http.Request) {
	id, ok := pathProjectID(w, r)
	if !ok {
		return
	}
	members, err := h.service.Members(r.Context(), id)
	if err != nil {
		h.logger.Error("list members", slog.Int64("project_id", id), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	if members == nil {
		members = []Member{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"members": members})
}

type addMemberInput struct {
	UserID     int64  `json:"user_id" validate:"required,gt=0"`
	MemberRole string `json:"member_role" validate:"omitempty,oneof=lead member observer"`
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := pathProjectID(w, r)
	if !ok {
		return
	}
	var in addMemberInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	err := h.service.AddMember(r.Context(), id, in.UserID, in.MemberRole, principal.UserID, principal.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("add member", slog.Int64("project_id", id), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"added": true})
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathProjectID(w, r)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.RemoveMember(r.Context(), id, userID); err != nil {
		h.logger.Error("remove member", slog.Int64("project_id", id), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"removed": true})
}

func (h *Handler) myProjects(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	ids, err := h.service.ProjectsFor(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("my projects", slog.Int64("user_id", principal.UserID), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"project_ids": ids})
}

func pathProjectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, httpx.ErrValidation)
		return 0, false
	}
	return id, true
}
