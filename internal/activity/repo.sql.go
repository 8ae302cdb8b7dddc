package activity

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides PostgreSQL backed persistence for the activity log.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert appends one activity row.
func (s *Store) Insert(ctx context.Context, e Entry) (int64, error) {
	meta := e.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO activities (user_id, project_id, type, description, related_id, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		e.UserID, e.ProjectID, e.Type, e.Description, e.RelatedID, metaJSON).Scan(&id)
	return id, err
}

const activityColumns = `id, user_id, project_id, type, description, related_id, meta, occurred_at`

// RecentForProject returns the newest activities for a project.
func (s *Store) RecentForProject(ctx context.Context, projectID int64, limit int32) ([]Activity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+activityColumns+` FROM activities
		WHERE project_id = $1 ORDER BY occurred_at DESC, id DESC LIMIT $2`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivities(rows)
}

// RecentForUser returns the newest activities by a user.
func (s *Store) RecentForUser(ctx context.Context, userID int64, limit int32) ([]Activity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+activityColumns+` FROM activities
		WHERE user_id = $1 ORDER BY occurred_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivities(rows)
}

func scanActivities(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Activity, error) {
	var out []Activity
	for rows.Next() {
		var a Activity
		var metaJSON []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.ProjectID, &a.Type, &a.Description,
			&a.RelatedID, &metaJSON, &a.OccurredAt); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &a.Meta)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
