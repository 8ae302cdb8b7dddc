package projects

import "time"

// Project is a tenant workspace grouping bugs, tasks and documents.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   *int64    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Member links a user to a project.
//
// MemberRole is the project-specific role label (lead, member, observer).
// It is NOT the user's system role: the recipient selector and every other
// consumer that needs admin/developer/tester MUST look at users.system_role
// instead. Confusing the two has caused real mis-delivery bugs.
type Member struct {
	ProjectID  int64     `json:"project_id"`
	UserID     int64     `json:"user_id"`
	MemberRole string    `json:"member_role"`
	CreatedAt  time.Time `json:"created_at"`
}
