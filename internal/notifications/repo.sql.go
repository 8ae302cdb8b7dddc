package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bugtrail/bugtrail/internal/platform/db"
	"github.com/bugtrail/bugtrail/internal/shared"
)

// Store provides PostgreSQL backed persistence for notifications and their
// per-recipient deliveries.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// AcceptedTypes reads the notification_type enum values from the live
// schema. Called once at startup to seed the compat table.
func (s *Store) AcceptedTypes(ctx context.Context) ([]Type, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.enumlabel
		FROM pg_enum e
		JOIN pg_type t ON t.oid = e.enumtypid
		WHERE t.typname = 'notification_type'
		ORDER BY e.enumsortorder`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []Type
	for rows.Next() {
		var t Type
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// DeliveryOutcome classifies one recipient's fan-out result.
type DeliveryOutcome int

const (
	// OutcomeDelivered: a new delivery row was created.
	OutcomeDelivered DeliveryOutcome = iota
	// OutcomeDuplicate: the recipient already had a delivery; end state
	// matches intent, so this counts as success.
	OutcomeDuplicate
	// OutcomeMissingUser: the recipient no longer exists; soft failure.
	OutcomeMissingUser
)

// DispatchTx is the transactional surface the dispatcher writes through.
type DispatchTx interface {
	CreateNotification(ctx context.Context, draft Draft, typ Type) (int64, error)
	AddDelivery(ctx context.Context, notificationID, userID int64) (DeliveryOutcome, error)
}

type dispatchTx struct {
	tx pgx.Tx
}

// DispatchTx runs fn inside one transaction; a returned error rolls back
// the notification row along with every delivery.
func (s *Store) DispatchTx(ctx context.Context, fn func(DispatchTx) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(dispatchTx{tx: tx})
	})
}

func (d dispatchTx) CreateNotification(ctx context.Context, draft Draft, typ Type) (int64, error) {
	var entityType *string
	if draft.EntityType != "" {
		entityType = &draft.EntityType
	}
	var id int64
	err := d.tx.QueryRow(ctx, `
		INSERT INTO notifications (type, title, message, entity_type, entity_id, project_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		typ, draft.Title, draft.Message, entityType, draft.EntityID, draft.ProjectID, draft.CreatedBy).
		Scan(&id)
	return id, err
}

// AddDelivery inserts one delivery row. Existence is checked up front
// because a failed statement would poison the surrounding transaction;
// duplicates are absorbed by ON CONFLICT DO NOTHING.
func (d dispatchTx) AddDelivery(ctx context.Context, notificationID, userID int64) (DeliveryOutcome, error) {
	var exists bool
	if err := d.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND is_active)`, userID).Scan(&exists); err != nil {
		return OutcomeMissingUser, err
	}
	if !exists {
		return OutcomeMissingUser, nil
	}
	tag, err := d.tx.Exec(ctx, `
		INSERT INTO user_notifications (notification_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (notification_id, user_id) DO NOTHING`, notificationID, userID)
	if err != nil {
		return OutcomeMissingUser, err
	}
	if tag.RowsAffected() == 0 {
		return OutcomeDuplicate, nil
	}
	return OutcomeDelivered, nil
}

// GetNotification fetches one notification.
func (s *Store) GetNotification(ctx context.Context, id int64) (Notification, error) {
	var n Notification
	err := s.pool.QueryRow(ctx, `
		SELECT id, type, title, message, entity_type, entity_id, project_id, created_by, created_at
		FROM notifications WHERE id = $1`, id).
		Scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.EntityType, &n.EntityID, &n.ProjectID, &n.CreatedBy, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Notification{}, shared.ErrNotFound
	}
	return n, err
}

// ListForUser returns the user's deliveries joined with notifications,
// newest first.
func (s *Store) ListForUser(ctx context.Context, userID int64, limit, offset int32) ([]UserNotification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT n.id, n.type, n.title, n.message, n.entity_type, n.entity_id, n.project_id,
		       n.created_by, n.created_at, un.read, un.read_at
		FROM user_notifications un
		JOIN notifications n ON n.id = un.notification_id
		WHERE un.user_id = $1
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UserNotification
	for rows.Next() {
		var un UserNotification
		if err := rows.Scan(&un.ID, &un.Type, &un.Title, &un.Message, &un.EntityType, &un.EntityID,
			&un.ProjectID, &un.CreatedBy, &un.CreatedAt, &un.Read, &un.ReadAt); err != nil {
			return nil, err
		}
		out = append(out, un)
	}
	return out, rows.Err()
}

// UnreadCount counts the user's unread deliveries.
func (s *Store) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&count)
	return count, err
}

// MarkRead flips one delivery to read. Already-read rows and rows owned by
// someone else are a no-op, not an error.
func (s *Store) MarkRead(ctx context.Context, userID, notificationID int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE user_notifications
		SET read = TRUE, read_at = $3
		WHERE user_id = $1 AND notification_id = $2 AND NOT read`,
		userID, notificationID, time.Now().UTC())
	return err
}

// MarkAllRead flips all of the user's unread deliveries.
func (s *Store) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE user_notifications
		SET read = TRUE, read_at = $2
		WHERE user_id = $1 AND NOT read`, userID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteAllForUser removes the user's deliveries. Shared notification rows
// stay; other recipients still reference them.
func (s *Store) DeleteAllForUser(ctx context.Context, userID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM user_notifications WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
