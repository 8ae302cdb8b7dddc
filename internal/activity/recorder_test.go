package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubStore struct {
	entries      []Entry
	insertErr    error
	projectRows  []Activity
	projectCalls int
	userRows     []Activity
	userCalls    int
}

func (s *stubStore) Insert(ctx context.Context, e Entry) (int64, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	s.entries = append(s.entries, e)
	return int64(len(s.entries)), nil
}

func (s *stubStore) RecentForProject(ctx context.Context, projectID int64, limit int32) ([]Activity, error) {
	s.projectCalls++
	return s.projectRows, nil
}

func (s *stubStore) RecentForUser(ctx context.Context, userID int64, limit int32) ([]Activity, error) {
	s.userCalls++
	return s.userRows, nil
}

func newTestRecorder(t *testing.T, store StorePort) *Recorder {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRecorder(store, NewCache(client, time.Minute), nil)
}

func TestRecordSwallowsStorageFailure(t *testing.T) {
	store := &stubStore{insertErr: errors.New("relation missing")}
	rec := newTestRecorder(t, store)

	if id := rec.Record(context.Background(), Entry{UserID: 1, Type: TypeBugReported}); id != 0 {
		t.Fatalf("expected 0 id on failure, got %d", id)
	}
}

func TestRecordReturnsActivityID(t *testing.T) {
	store := &stubStore{}
	rec := newTestRecorder(t, store)

	project := int64(5)
	id := rec.Record(context.Background(), Entry{
		UserID: 1, ProjectID: &project, Type: TypeBugReported, Description: "bug #9 reported",
	})
	if id == 0 {
		t.Fatal("expected non-zero activity id")
	}
	if len(store.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(store.entries))
	}
}

func TestRecentForProjectCachesUntilBump(t *testing.T) {
	store := &stubStore{projectRows: []Activity{{ID: 1, UserID: 1, Type: TypeBugReported}}}
	rec := newTestRecorder(t, store)
	ctx := context.Background()

	if _, err := rec.RecentForProject(ctx, 5, 10); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if _, err := rec.RecentForProject(ctx, 5, 10); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if store.projectCalls != 1 {
		t.Fatalf("expected cache hit on second read, got %d store calls", store.projectCalls)
	}

	// Recording into the project invalidates its feed.
	project := int64(5)
	rec.Record(ctx, Entry{UserID: 2, ProjectID: &project, Type: TypeBugFixed})

	if _, err := rec.RecentForProject(ctx, 5, 10); err != nil {
		t.Fatalf("post-bump read: %v", err)
	}
	if store.projectCalls != 2 {
		t.Fatalf("expected reload after bump, got %d store calls", store.projectCalls)
	}
}

func TestFirstBumpChangesFeedKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	// A cold read must pin the version counter so the very first bump
	// already produces a different key.
	before, err := cache.feedKey(ctx, "project", 5, 10)
	if err != nil {
		t.Fatalf("cold key: %v", err)
	}
	if err := cache.BumpProject(ctx, 5); err != nil {
		t.Fatalf("bump: %v", err)
	}
	after, err := cache.feedKey(ctx, "project", 5, 10)
	if err != nil {
		t.Fatalf("post-bump key: %v", err)
	}
	if before == after {
		t.Fatalf("first bump did not invalidate: key stayed %q", before)
	}
}

func TestRecentForUserCachesIndependently(t *testing.T) {
	store := &stubStore{userRows: []Activity{{ID: 2, UserID: 7, Type: TypeBugCommented}}}
	rec := newTestRecorder(t, store)
	ctx := context.Background()

	if _, err := rec.RecentForUser(ctx, 7, 10); err != nil {
		t.Fatalf("read: %v", err)
	}
	rec.Record(ctx, Entry{UserID: 7, Type: TypeBugCommented})
	if _, err := rec.RecentForUser(ctx, 7, 10); err != nil {
		t.Fatalf("read: %v", err)
	}
	if store.userCalls != 2 {
		t.Fatalf("expected user feed reload after user bump, got %d", store.userCalls)
	}
}
