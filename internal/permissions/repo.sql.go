package permissions

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bugtrail/bugtrail/internal/platform/db"
)

// Store provides PostgreSQL backed persistence for the permission catalogue,
// role defaults and per-user overrides.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ListCatalogue returns every permission ordered by category then key.
func (s *Store) ListCatalogue(ctx context.Context) ([]Permission, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, key, category, scope FROM permissions ORDER BY category, key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Key, &p.Category, &p.Scope); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// RoleDefaults returns the permission keys attached to the user's role.
// A user without a role (or an unknown user) yields an empty slice.
func (s *Store) RoleDefaults(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.key
		FROM users u
		JOIN role_permissions rp ON rp.role_id = u.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE u.id = $1
		ORDER BY p.key`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// OverridesFor returns the user's applicable overrides in application order:
// global (NULL project) overrides first, then project-scoped ones, ties
// broken by row id. The join drops overrides whose permission was removed
// from the catalogue.
//
// When projectID is nil only global overrides apply.
func (s *Store) OverridesFor(ctx context.Context, userID int64, projectID *int64) ([]Override, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT o.id, o.user_id, p.key, o.project_id, o.granted
		FROM permission_overrides o
		JOIN permissions p ON p.id = o.permission_id
		WHERE o.user_id = $1
		  AND (o.project_id IS NULL OR ($2::BIGINT IS NOT NULL AND o.project_id = $2))
		ORDER BY (o.project_id IS NULL) DESC, o.id`, userID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var overrides []Override
	for rows.Next() {
		var o Override
		if err := rows.Scan(&o.ID, &o.UserID, &o.PermissionKey, &o.ProjectID, &o.Granted); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// UpsertOverride inserts or updates the override for (user, permission,
// project). The expression index on COALESCE(project_id, 0) makes the NULL
// project scope participate in conflict detection.
func (s *Store) UpsertOverride(ctx context.Context, userID int64, in OverrideInput) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO permission_overrides (user_id, permission_id, project_id, granted)
		SELECT $1, p.id, $3, $4 FROM permissions p WHERE p.key = $2
		ON CONFLICT (user_id, permission_id, COALESCE(project_id, 0))
		DO UPDATE SET granted = EXCLUDED.granted`,
		userID, in.PermissionKey, in.ProjectID, in.Granted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("permissions: unknown permission key %q: %w", in.PermissionKey, ErrUnknownPermission)
	}
	return nil
}

// ReplaceOverrides replaces the user's entire override set in one
// transaction: delete-all, then bulk insert. Inputs referencing unknown
// permission keys are skipped; the skipped count is returned so callers can
// log it.
func (s *Store) ReplaceOverrides(ctx context.Context, userID int64, overrides []OverrideInput) (skipped int, err error) {
	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM permission_overrides WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, in := range overrides {
			tag, err := tx.Exec(ctx, `
				INSERT INTO permission_overrides (user_id, permission_id, project_id, granted)
				SELECT $1, p.id, $3, $4 FROM permissions p WHERE p.key = $2
				ON CONFLICT (user_id, permission_id, COALESCE(project_id, 0))
				DO UPDATE SET granted = EXCLUDED.granted`,
				userID, in.PermissionKey, in.ProjectID, in.Granted)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				skipped++
			}
		}
		return nil
	})
	return skipped, err
}
