package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bugtrail/bugtrail/internal/activity"
	"github.com/bugtrail/bugtrail/internal/auth"
	"github.com/bugtrail/bugtrail/internal/bugs"
	"github.com/bugtrail/bugtrail/internal/notifications"
	"github.com/bugtrail/bugtrail/internal/observability"
	"github.com/bugtrail/bugtrail/internal/permissions"
	"github.com/bugtrail/bugtrail/internal/projects"
	"github.com/bugtrail/bugtrail/internal/users"
	"github.com/bugtrail/bugtrail/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	Auth  auth.Middleware
	Guard permissions.Middleware

	PermissionsHandler   *permissions.Handler
	UsersHandler         *users.Handler
	ProjectsHandler      *projects.Handler
	BugsHandler          *bugs.Handler
	NotificationsHandler *notifications.Handler
	ActivityHandler      *activity.Handler
	JobHandler           *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with the BugTrail defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(params.Auth.Require)

		params.PermissionsHandler.Routes(r, params.Guard)
		params.UsersHandler.Routes(r, params.Guard)
		params.ProjectsHandler.Routes(r, params.Guard)
		params.BugsHandler.Routes(r, params.Guard)
		params.ActivityHandler.Routes(r, params.Guard)
		params.NotificationsHandler.Routes(r)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
