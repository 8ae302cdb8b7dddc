package permissions

import (
	"context"
	"errors"
	"log/slog"
)

// ErrUnknownPermission indicates a write referenced a key that is not in the
// catalogue.
var ErrUnknownPermission = errors.New("unknown permission")

// StorePort is the data access surface the resolver needs.
type StorePort interface {
	RoleDefaults(ctx context.Context, userID int64) ([]string, error)
	OverridesFor(ctx context.Context, userID int64, projectID *int64) ([]Override, error)
	UpsertOverride(ctx context.Context, userID int64, in OverrideInput) error
	ReplaceOverrides(ctx context.Context, userID int64, overrides []OverrideInput) (int, error)
}

// Resolver computes effective permission sets and answers point queries.
//
// Results are never cached across requests: overrides can change at any
// time and a stale grant is worse than an extra query.
type Resolver struct {
	store  StorePort
	logger *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(store StorePort, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, logger: logger}
}

// HasPermission reports whether the user may perform the capability named by
// key, optionally within a project. Storage errors fail closed: a broken
// permission lookup must never silently grant access.
func (r *Resolver) HasPermission(ctx context.Context, userID int64, key string, projectID *int64) bool {
	defaults, err := r.store.RoleDefaults(ctx, userID)
	if err != nil {
		r.logger.Error("permissions: role defaults", slog.Int64("user_id", userID), slog.Any("error", err))
		return false
	}
	for _, k := range defaults {
		if k == SuperAdminKey {
			// SUPER_ADMIN bypasses everything; no override can revoke it.
			return true
		}
	}
	set, err := r.effective(ctx, userID, projectID, defaults)
	if err != nil {
		r.logger.Error("permissions: resolve", slog.Int64("user_id", userID), slog.Any("error", err))
		return false
	}
	return set.Has(key)
}

// EffectivePermissions merges role defaults with the user's overrides.
//
// Application order is deterministic: role defaults seed the set, then
// global overrides apply, then project-scoped ones, each in insertion
// order. The most specifically scoped override therefore wins for a given
// key, and among duplicates the newest row wins.
func (r *Resolver) EffectivePermissions(ctx context.Context, userID int64, projectID *int64) (Set, error) {
	defaults, err := r.store.RoleDefaults(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.effective(ctx, userID, projectID, defaults)
}

func (r *Resolver) effective(ctx context.Context, userID int64, projectID *int64, defaults []string) (Set, error) {
	set := make(Set, len(defaults))
	for _, k := range defaults {
		set[k] = struct{}{}
	}
	overrides, err := r.store.OverridesFor(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		if o.Granted {
			set[o.PermissionKey] = struct{}{}
		} else {
			delete(set, o.PermissionKey)
		}
	}
	return set, nil
}

// Grant upserts a granting override for (user, permission, project).
func (r *Resolver) Grant(ctx context.Context, userID int64, key string, projectID *int64) error {
	return r.store.UpsertOverride(ctx, userID, OverrideInput{PermissionKey: key, ProjectID: projectID, Granted: true})
}

// Revoke upserts a revoking override for (user, permission, project).
func (r *Resolver) Revoke(ctx context.Context, userID int64, key string, projectID *int64) error {
	return r.store.UpsertOverride(ctx, userID, OverrideInput{PermissionKey: key, ProjectID: projectID, Granted: false})
}

// SaveUserPermissions replaces the user's whole override set atomically.
// The administrative UI edits the full set at once; partial application
// would leave an inconsistent state if the client crashed mid-edit.
func (r *Resolver) SaveUserPermissions(ctx context.Context, userID int64, overrides []OverrideInput) error {
	skipped, err := r.store.ReplaceOverrides(ctx, userID, overrides)
	if err != nil {
		return err
	}
	if skipped > 0 {
		r.logger.Warn("permissions: save skipped unknown keys",
			slog.Int64("user_id", userID), slog.Int("skipped", skipped))
	}
	return nil
}
