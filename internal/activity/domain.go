package activity

import "time"

// Activity is one append-only event log row.
type Activity struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"user_id"`
	ProjectID   *int64         `json:"project_id,omitempty"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	RelatedID   *int64         `json:"related_id,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// Entry is the write-side shape for recording.
type Entry struct {
	UserID      int64
	ProjectID   *int64
	Type        string
	Description string
	RelatedID   *int64
	Meta        map[string]any
}

// Common activity types.
const (
	TypeBugReported    = "bug_reported"
	TypeBugFixed       = "bug_fixed"
	TypeBugCommented   = "bug_commented"
	TypeProjectCreated = "project_created"
	TypeMemberAdded    = "member_added"
)
