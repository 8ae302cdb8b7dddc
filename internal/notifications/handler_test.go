package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/bugtrail/bugtrail/internal/shared"
)

// deliveryRow is one recipient's read state for a notification.
type deliveryRow struct {
	NotificationID int64
	UserID         int64
	Read           bool
	ReadAt         *time.Time
}

// memReadStore mirrors the delivery table semantics: one row per
// (notification, user), marking read is a no-op when the row is already
// read or belongs to someone else.
type memReadStore struct {
	deliveries []deliveryRow
}

func (m *memReadStore) ListForUser(_ context.Context, userID int64, limit, offset int32) ([]UserNotification, error) {
	var out []UserNotification
	for _, d := range m.deliveries {
		if d.UserID != userID {
			continue
		}
		out = append(out, UserNotification{
			Notification: Notification{ID: d.NotificationID, Type: TypeGeneral},
			Read:         d.Read,
			ReadAt:       d.ReadAt,
		})
	}
	if int(offset) >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memReadStore) UnreadCount(_ context.Context, userID int64) (int64, error) {
	var n int64
	for _, d := range m.deliveries {
		if d.UserID == userID && !d.Read {
			n++
		}
	}
	return n, nil
}

func (m *memReadStore) MarkRead(_ context.Context, userID, notificationID int64) error {
	for i, d := range m.deliveries {
		if d.UserID == userID && d.NotificationID == notificationID && !d.Read {
			now := time.Now()
			m.deliveries[i].Read = true
			m.deliveries[i].ReadAt = &now
		}
	}
	return nil
}

func (m *memReadStore) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	var updated int64
	now := time.Now()
	for i, d := range m.deliveries {
		if d.UserID == userID && !d.Read {
			m.deliveries[i].Read = true
			m.deliveries[i].ReadAt = &now
			updated++
		}
	}
	return updated, nil
}

func (m *memReadStore) DeleteAllForUser(_ context.Context, userID int64) (int64, error) {
	var kept []deliveryRow
	var deleted int64
	for _, d := range m.deliveries {
		if d.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	m.deliveries = kept
	return deleted, nil
}

func newHandlerRig(store ReadStorePort, userID int64) http.Handler {
	h := NewHandler(store, nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithPrincipal(req.Context(), &shared.Principal{
				UserID: userID, Email: "u@bugtrail.local", SystemRole: shared.RoleDeveloper,
			})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	h.Routes(r)
	return r
}

func do(t *testing.T, rig http.Handler, method, path string) map[string]any {
	t.Helper()
	rr := httptest.NewRecorder()
	rig.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestUnreadCountMatchesUnreadRows(t *testing.T) {
	store := &memReadStore{deliveries: []deliveryRow{
		{NotificationID: 1, UserID: 7},
		{NotificationID: 2, UserID: 7},
		{NotificationID: 3, UserID: 7, Read: true},
		{NotificationID: 1, UserID: 8},
	}}
	rig := newHandlerRig(store, 7)

	body := do(t, rig, http.MethodGet, "/notifications/unread_count")
	require.EqualValues(t, 2, body["unread_count"])
}

func TestMarkReadThenCountDrops(t *testing.T) {
	store := &memReadStore{deliveries: []deliveryRow{
		{NotificationID: 1, UserID: 7},
		{NotificationID: 2, UserID: 7},
	}}
	rig := newHandlerRig(store, 7)

	do(t, rig, http.MethodPost, "/notifications/1/read")
	body := do(t, rig, http.MethodGet, "/notifications/unread_count")
	require.EqualValues(t, 1, body["unread_count"])

	// Marking again is a quiet no-op.
	do(t, rig, http.MethodPost, "/notifications/1/read")
	body = do(t, rig, http.MethodGet, "/notifications/unread_count")
	require.EqualValues(t, 1, body["unread_count"])
}

func TestMarkReadIgnoresForeignDelivery(t *testing.T) {
	store := &memReadStore{deliveries: []deliveryRow{
		{NotificationID: 9, UserID: 8},
	}}
	rig := newHandlerRig(store, 7)

	do(t, rig, http.MethodPost, "/notifications/9/read")
	require.False(t, store.deliveries[0].Read, "another user's delivery must stay untouched")
}

func TestMarkAllReadZeroesUnread(t *testing.T) {
	store := &memReadStore{deliveries: []deliveryRow{
		{NotificationID: 1, UserID: 7},
		{NotificationID: 2, UserID: 7},
		{NotificationID: 3, UserID: 8},
	}}
	rig := newHandlerRig(store, 7)

	body := do(t, rig, http.MethodPost, "/notifications/read_all")
	require.EqualValues(t, 2, body["updated"])

	body = do(t, rig, http.MethodGet, "/notifications/unread_count")
	require.EqualValues(t, 0, body["unread_count"])

	other, err := store.UnreadCount(context.Background(), 8)
	require.NoError(t, err)
	require.EqualValues(t, 1, other, "other users' unread state must survive")
}

func TestDeleteAllRemovesOnlyOwnDeliveries(t *testing.T) {
	store := &memReadStore{deliveries: []deliveryRow{
		{NotificationID: 1, UserID: 7},
		{NotificationID: 2, UserID: 7, Read: true},
		{NotificationID: 1, UserID: 8},
	}}
	rig := newHandlerRig(store, 7)

	body := do(t, rig, http.MethodDelete, "/notifications")
	require.EqualValues(t, 2, body["deleted"])
	require.Len(t, store.deliveries, 1)
	require.EqualValues(t, 8, store.deliveries[0].UserID)
}

func TestListReportsReadStateAndUnread(t *testing.T) {
	store := &memReadStore{deliveries: []deliveryRow{
		{NotificationID: 1, UserID: 7},
		{NotificationID: 2, UserID: 7, Read: true},
	}}
	rig := newHandlerRig(store, 7)

	body := do(t, rig, http.MethodGet, "/notifications")
	require.EqualValues(t, 1, body["unread_count"])
	items, ok := body["notifications"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
}
