package permissions

import "time"

// SuperAdminKey is the reserved permission key that bypasses every other
// check. No override can revoke it; the resolver short-circuits on it.
const SuperAdminKey = "SUPER_ADMIN"

// Well-known permission keys grouped by category.
const (
	PermBugsView    = "BUGS_VIEW"
	PermBugsCreate  = "BUGS_CREATE"
	PermBugsEdit    = "BUGS_EDIT"
	PermBugsComment = "BUGS_COMMENT"
	PermBugsClose   = "BUGS_CLOSE"

	PermProjectsView   = "PROJECTS_VIEW"
	PermProjectsManage = "PROJECTS_MANAGE"

	PermUsersView   = "USERS_VIEW"
	PermUsersManage = "USERS_MANAGE"

	PermDocsView = "DOCS_VIEW"
	PermDocsEdit = "DOCS_EDIT"
)

// Catalogue lists the permission keys seeded into the catalogue table.
func Catalogue() []Permission {
	return []Permission{
		{Key: SuperAdminKey, Category: "system", Scope: ScopeGlobal},
		{Key: PermBugsView, Category: "bugs", Scope: ScopeProject},
		{Key: PermBugsCreate, Category: "bugs", Scope: ScopeProject},
		{Key: PermBugsEdit, Category: "bugs", Scope: ScopeProject},
		{Key: PermBugsComment, Category: "bugs", Scope: ScopeProject},
		{Key: PermBugsClose, Category: "bugs", Scope: ScopeProject},
		{Key: PermProjectsView, Category: "projects", Scope: ScopeGlobal},
		{Key: PermProjectsManage, Category: "projects", Scope: ScopeGlobal},
		{Key: PermUsersView, Category: "users", Scope: ScopeGlobal},
		{Key: PermUsersManage, Category: "users", Scope: ScopeGlobal},
		{Key: PermDocsView, Category: "documents", Scope: ScopeProject},
		{Key: PermDocsEdit, Category: "documents", Scope: ScopeProject},
	}
}

// Permission scopes.
const (
	ScopeGlobal  = "global"
	ScopeProject = "project"
)

// Permission is an immutable catalogue entry for one capability.
type Permission struct {
	ID       int64  `json:"id"`
	Key      string `json:"key"`
	Category string `json:"category"`
	Scope    string `json:"scope"`
}

// Role is a named bundle of default permissions.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Override adjusts a user's role defaults for one permission, optionally
// limited to a single project. A nil ProjectID applies everywhere.
type Override struct {
	ID            int64  `json:"id"`
	UserID        int64  `json:"user_id"`
	PermissionKey string `json:"permission_key"`
	ProjectID     *int64 `json:"project_id,omitempty"`
	Granted       bool   `json:"granted"`
}

// OverrideInput is the write-side shape for grant/revoke and bulk saves.
type OverrideInput struct {
	PermissionKey string `json:"permission_key" validate:"required"`
	ProjectID     *int64 `json:"project_id"`
	Granted       bool   `json:"granted"`
}

// Set is an effective permission set keyed by permission key.
type Set map[string]struct{}

// Has reports membership.
func (s Set) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Keys returns the contained permission keys. Order is unspecified.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}
