package projects

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bugtrail/bugtrail/internal/platform/db"
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

// CreateProject inserts a project and its creator as first member.
func (r *Repository) CreateProject(ctx context.Context, name, description string, createdBy int64) (Project, error) {
	var p Project
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO projects (name, description, created_by)
			VALUES ($1, $2, $3)
			RETURNING id, name, description, created_by, created_at`,
			name, description, createdBy).
			Scan(&p.ID, &p.Name, &p.Description, &p.CreatedBy, &p.CreatedAt)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO project_members (project_id, user_id, member_role)
			VALUES ($1, $2, 'lead')`, p.ID, createdBy)
		return err
	})
	return p, err
}

// GetProject fetches one project.
func (r *Repository) GetProject(ctx context.Context, id int64) (Project, error) {
	var p Project
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, created_by, created_at FROM projects WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedBy, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, shared.ErrNotFound
	}
	return p, err
}

// Members returns the project's membership rows.
func (r *Repository) Members(ctx context.Context, projectID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT project_id, user_id, member_role, created_at
		FROM project_members WHERE project_id = $1 ORDER BY user_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.MemberRole, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// MembersBySystemRole returns member user IDs whose users.system_role equals
// role. The filter deliberately joins the users table; member_role is a
// different attribute entirely.
func (r *Repository) MembersBySystemRole(ctx context.Context, projectID int64, role shared.SystemRole) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pm.user_id
		FROM project_members pm
		JOIN users u ON u.id = pm.user_id
		WHERE pm.project_id = $1 AND u.system_role = $2 AND u.is_active
		ORDER BY pm.user_id`, projectID, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MemberIDs returns every member user ID of the project.
func (r *Repository) MemberIDs(ctx context.Context, projectID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pm.user_id
		FROM project_members pm
		JOIN users u ON u.id = pm.user_id
		WHERE pm.project_id = $1 AND u.is_active
		ORDER BY pm.user_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ProjectsFor returns the IDs of projects the user belongs to.
func (r *Repository) ProjectsFor(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT project_id FROM project_members WHERE user_id = $1 ORDER BY project_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddMember attaches a user to the project. Re-adding an existing member is
// a no-op; the end state matches intent either way.
func (r *Repository) AddMember(ctx context.Context, projectID, userID int64, memberRole string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO project_members (project_id, user_id, member_role)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, user_id) DO UPDATE SET member_role = EXCLUDED.member_role`,
		projectID, userID, memberRole)
	return err
}

// RemoveMember detaches a user from the project.
func (r *Repository) RemoveMember(ctx context.Context, projectID, userID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	return err
}
