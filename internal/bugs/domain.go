package bugs

import (
	"errors"
	"time"
)

// Bug lifecycle statuses.
const (
	StatusOpen     = "open"
	StatusFixed    = "fixed"
	StatusVerified = "verified"
	StatusClosed   = "closed"
)

// ErrInvalidTransition indicates a status change the lifecycle forbids.
var ErrInvalidTransition = errors.New("bugs: invalid status transition")

// Bug is a reported defect within a project.
type Bug struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Status      string    `json:"status"`
	ReportedBy  int64     `json:"reported_by"`
	AssignedTo  *int64    `json:"assigned_to,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReportInput is the write-side shape for reporting a bug.
type ReportInput struct {
	ProjectID   int64  `json:"project_id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=10000"`
	Severity    string `json:"severity" validate:"omitempty,oneof=low medium high critical"`
}
