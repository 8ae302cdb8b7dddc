package bugs

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bugtrail/bugtrail/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const bugColumns = `id, project_id, title, description, severity, status, reported_by, assigned_to, created_at, updated_at`

func scanBug(row pgx.Row) (Bug, error) {
	var b Bug
	err := row.Scan(&b.ID, &b.ProjectID, &b.Title, &b.Description, &b.Severity, &b.Status,
		&b.ReportedBy, &b.AssignedTo, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// Create inserts a new bug in status open.
func (r *Repository) Create(ctx context.Context, in ReportInput, reportedBy int64) (Bug, error) {
	severity := in.Severity
	if severity == "" {
		severity = "medium"
	}
	return scanBug(r.pool.QueryRow(ctx, `
		INSERT INTO bugs (project_id, title, description, severity, reported_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+bugColumns,
		in.ProjectID, in.Title, in.Description, severity, reportedBy))
}

// Get fetches one bug.
func (r *Repository) Get(ctx context.Context, id int64) (Bug, error) {
	b, err := scanBug(r.pool.QueryRow(ctx, `SELECT `+bugColumns+` FROM bugs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Bug{}, shared.ErrNotFound
	}
	return b, err
}

// ListByProject returns a project's bugs, newest first.
func (r *Repository) ListByProject(ctx context.Context, projectID int64, limit, offset int32) ([]Bug, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bugColumns+` FROM bugs
		WHERE project_id = $1 ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, projectID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bug
	for rows.Next() {
		b, err := scanBug(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateStatus moves a bug from one status to another. The WHERE clause
// enforces the expected current status so racing writers cannot double-apply
// a transition.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to string) (Bug, error) {
	b, err := scanBug(r.pool.QueryRow(ctx, `
		UPDATE bugs SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+bugColumns, id, from, to))
	if errors.Is(err, pgx.ErrNoRows) {
		return Bug{}, ErrInvalidTransition
	}
	return b, err
}

// Assign sets the bug's assignee.
func (r *Repository) Assign(ctx context.Context, id, userID int64) (Bug, error) {
	b, err := scanBug(r.pool.QueryRow(ctx, `
		UPDATE bugs SET assigned_to = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+bugColumns, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Bug{}, shared.ErrNotFound
	}
	return b, err
}
