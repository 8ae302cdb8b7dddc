package activity

import (
	"context"
	"log/slog"
)

// StorePort is the persistence surface the recorder needs.
type StorePort interface {
	Insert(ctx context.Context, e Entry) (int64, error)
	RecentForProject(ctx context.Context, projectID int64, limit int32) ([]Activity, error)
	RecentForUser(ctx context.Context, userID int64, limit int32) ([]Activity, error)
}

// Recorder appends activity entries and invalidates derived feed caches.
type Recorder struct {
	store  StorePort
	cache  *Cache
	logger *slog.Logger
}

// NewRecorder constructs a Recorder. cache may be nil.
func NewRecorder(store StorePort, cache *Cache, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, cache: cache, logger: logger}
}

// Record appends an entry and bumps the affected feed caches.
//
// Failures are logged and swallowed: recording an activity must never block
// the primary action it describes. The returned ID is 0 when the append
// failed.
func (r *Recorder) Record(ctx context.Context, e Entry) int64 {
	id, err := r.store.Insert(ctx, e)
	if err != nil {
		r.logger.Error("activity record failed",
			slog.String("type", e.Type), slog.Int64("user_id", e.UserID), slog.Any("error", err))
		return 0
	}
	if r.cache != nil {
		if e.ProjectID != nil {
			if err := r.cache.BumpProject(ctx, *e.ProjectID); err != nil {
				r.logger.Warn("activity cache bump project", slog.Any("error", err))
			}
		}
		if err := r.cache.BumpUser(ctx, e.UserID); err != nil {
			r.logger.Warn("activity cache bump user", slog.Any("error", err))
		}
	}
	return id
}

// RecentForProject serves the project feed through the versioned cache.
func (r *Recorder) RecentForProject(ctx context.Context, projectID int64, limit int32) ([]Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if r.cache == nil || r.cache.client == nil {
		return r.store.RecentForProject(ctx, projectID, limit)
	}
	key, err := r.cache.feedKey(ctx, "project", projectID, limit)
	if err != nil {
		// Cache trouble degrades to a direct read.
		r.logger.Warn("activity cache key", slog.Any("error", err))
		return r.store.RecentForProject(ctx, projectID, limit)
	}
	var feed []Activity
	err = r.cache.FetchJSON(ctx, key, &feed, func(ctx context.Context) (any, error) {
		return r.store.RecentForProject(ctx, projectID, limit)
	})
	return feed, err
}

// RecentForUser serves the user feed through the versioned cache.
func (r *Recorder) RecentForUser(ctx context.Context, userID int64, limit int32) ([]Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if r.cache == nil || r.cache.client == nil {
		return r.store.RecentForUser(ctx, userID, limit)
	}
	key, err := r.cache.feedKey(ctx, "user", userID, limit)
	if err != nil {
		r.logger.Warn("activity cache key", slog.Any("error", err))
		return r.store.RecentForUser(ctx, userID, limit)
	}
	var feed []Activity
	err = r.cache.FetchJSON(ctx, key, &feed, func(ctx context.Context) (any, error) {
		return r.store.RecentForUser(ctx, userID, limit)
	})
	return feed, err
}
