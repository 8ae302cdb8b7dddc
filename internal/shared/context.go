package shared

import "context"

// SystemRole is the coarse platform-wide role carried by every user.
// It is distinct from a user's project membership role and from the
// permission Role bundle; the recipient selector keys off this value only.
type SystemRole string

const (
	RoleAdmin     SystemRole = "admin"
	RoleDeveloper SystemRole = "developer"
	RoleTester    SystemRole = "tester"
)

// Principal is the verified identity supplied by the auth layer.
// The core trusts it; token verification happens upstream.
type Principal struct {
	UserID     int64      `json:"user_id"`
	Email      string     `json:"email"`
	SystemRole SystemRole `json:"system_role"`
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context, nil when absent.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
