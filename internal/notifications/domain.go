package notifications

import "time"

// Type enumerates the notification event types. The set is closed at the
// storage layer (a Postgres enum) and grows by migration; the dispatcher
// maps not-yet-migrated types onto older ones via the compat table.
type Type string

const (
	TypeBugReported      Type = "bug_reported"
	TypeBugFixed         Type = "bug_fixed"
	TypeBugVerified      Type = "bug_verified"
	TypeTaskAssigned     Type = "task_assigned"
	TypeProjectCreated   Type = "project_created"
	TypeProjectUpdate    Type = "project_update"
	TypeMeetingScheduled Type = "meeting_scheduled"
	TypeDocumentShared   Type = "document_shared"
	TypeGeneral          Type = "general"
)

// Notification is one immutable record of an event worth surfacing.
type Notification struct {
	ID         int64     `json:"id"`
	Type       Type      `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	EntityType *string   `json:"entity_type,omitempty"`
	EntityID   *int64    `json:"entity_id,omitempty"`
	ProjectID  *int64    `json:"project_id,omitempty"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserNotification is a delivery row joined with its notification for
// listing. Deliveries themselves are uniquely keyed by
// (notification_id, user_id) at the storage layer; re-delivery is a no-op.
type UserNotification struct {
	Notification
	Read   bool       `json:"read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}

// Draft carries the fields of a notification about to be dispatched.
type Draft struct {
	Type       Type
	Title      string
	Message    string
	EntityType string
	EntityID   *int64
	ProjectID  *int64
	CreatedBy  string
}

// Event is the selector's input: what happened, where, and who did it.
type Event struct {
	Type      Type
	ProjectID *int64
	ActorID   int64
}
