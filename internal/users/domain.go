package users

import (
	"time"

	"github.com/bugtrail/bugtrail/internal/shared"
)

// User represents a platform account.
type User struct {
	ID          int64             `json:"id"`
	Email       string            `json:"email"`
	DisplayName string            `json:"display_name"`
	SystemRole  shared.SystemRole `json:"system_role"`
	RoleID      *int64            `json:"role_id,omitempty"`
	IsActive    bool              `json:"is_active"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
