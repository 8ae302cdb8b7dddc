package permissions

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bugtrail/bugtrail/internal/platform/httpx"
)

// Handler exposes the administrative permission endpoints.
type Handler struct {
	resolver *Resolver
	store    *Store
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(resolver *Resolver, store *Store, logger *slog.Logger) *Handler {
	return &Handler{
		resolver: resolver,
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

// Routes mounts the permission endpoints on the given router. Reading the
// catalogue or a user's effective set needs USERS_VIEW; changing overrides
// needs USERS_MANAGE.
func (h *Handler) Routes(r chi.Router, guard Middleware) {
	r.With(guard.Require(PermUsersView)).Get("/permissions", h.listCatalogue)
	r.With(guard.Require(PermUsersView)).Get("/users/{userID}/permissions", h.effective)
	r.With(guard.Require(PermUsersManage)).Put("/users/{userID}/permissions", h.saveOverrides)
	r.With(guard.Require(PermUsersManage)).Post("/users/{userID}/permissions/grant", h.grant)
	r.With(guard.Require(PermUsersManage)).Post("/users/{userID}/permissions/revoke", h.revoke)
}

func (h *Handler) listCatalogue(w http.ResponseWriter, r *http.Request) {
	perms, err := h.store.ListCatalogue(r.Context())
	if err != nil {
		h.logger.Error("list permission catalogue", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (h *Handler) effective(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	projectID, ok := queryProjectID(w, r)
	if !ok {
		return
	}
	set, err := h.resolver.EffectivePermissions(r.Context(), userID, projectID)
	if err != nil {
		h.logger.Error("effective permissions", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	keys := set.Keys()
	sort.Strings(keys)
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": userID, "permissions": keys})
}

type saveOverridesRequest struct {
	Overrides []OverrideInput `json:"overrides" validate:"dive"`
}

func (h *Handler) saveOverrides(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	var req saveOverridesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.resolver.SaveUserPermissions(r.Context(), userID, req.Overrides); err != nil {
		h.logger.Error("save user permissions", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"saved": len(req.Overrides)})
}

type overrideRequest struct {
	PermissionKey string `json:"permission_key" validate:"required"`
	ProjectID     *int64 `json:"project_id"`
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	h.applyOverride(w, r, true)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	h.applyOverride(w, r, false)
}

func (h *Handler) applyOverride(w http.ResponseWriter, r *http.Request, granted bool) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	var req overrideRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var err error
	if granted {
		err = h.resolver.Grant(r.Context(), userID, req.PermissionKey, req.ProjectID)
	} else {
		err = h.resolver.Revoke(r.Context(), userID, req.PermissionKey, req.ProjectID)
	}
	if err != nil {
		if errors.Is(err, ErrUnknownPermission) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("apply override", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permission_key": req.PermissionKey, "granted": granted})
}

// IDs are parsed exactly once at the HTTP edge; everything downstream deals
// in int64 only.
func pathUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, httpx.ErrValidation)
		return 0, false
	}
	return id, true
}

func queryProjectID(w http.ResponseWriter, r *http.Request) (*int64, bool) {
	raw := r.URL.Query().Get("project_id")
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, httpx.ErrValidation)
		return nil, false
	}
	return &id, true
}
