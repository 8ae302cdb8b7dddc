package bugs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bugtrail/bugtrail/internal/activity"
	"github.com/bugtrail/bugtrail/internal/notifications"
)

// RepositoryPort defines data access methods for bugs.
type RepositoryPort interface {
	Create(ctx context.Context, in ReportInput, reportedBy int64) (Bug, error)
	Get(ctx context.Context, id int64) (Bug, error)
	ListByProject(ctx context.Context, projectID int64, limit, offset int32) ([]Bug, error)
	UpdateStatus(ctx context.Context, id int64, from, to string) (Bug, error)
	Assign(ctx context.Context, id, userID int64) (Bug, error)
}

// NotifierPort publishes notifications for bug events.
type NotifierPort interface {
	Publish(ctx context.Context, draft notifications.Draft, actorID int64) (int64, error)
}

// RecorderPort appends activity entries.
type RecorderPort interface {
	Record(ctx context.Context, e activity.Entry) int64
}

// Service handles the bug lifecycle and fans events out to the
// notification and activity subsystems.
type Service struct {
	repo     RepositoryPort
	notifier NotifierPort
	recorder RecorderPort
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, notifier NotifierPort, recorder RecorderPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, recorder: recorder, logger: logger}
}

// Report creates a bug, records activity and notifies the project's
// developers plus all admins.
func (s *Service) Report(ctx context.Context, in ReportInput, actorID int64, actorName string) (Bug, error) {
	bug, err := s.repo.Create(ctx, in, actorID)
	if err != nil {
		return Bug{}, err
	}

	s.recorder.Record(ctx, activity.Entry{
		UserID:      actorID,
		ProjectID:   &bug.ProjectID,
		Type:        activity.TypeBugReported,
		Description: fmt.Sprintf("reported bug #%d: %s", bug.ID, bug.Title),
		RelatedID:   &bug.ID,
		Meta:        map[string]any{"severity": bug.Severity},
	})

	s.publish(ctx, notifications.Draft{
		Type:       notifications.TypeBugReported,
		Title:      fmt.Sprintf("New bug: %s", bug.Title),
		Message:    bug.Description,
		EntityType: "bug",
		EntityID:   &bug.ID,
		ProjectID:  &bug.ProjectID,
		CreatedBy:  actorName,
	}, actorID)

	return bug, nil
}

// MarkFixed moves an open bug to fixed and notifies the project's testers
// plus all admins so the fix gets verified.
func (s *Service) MarkFixed(ctx context.Context, bugID, actorID int64, actorName string) (Bug, error) {
	bug, err := s.repo.UpdateStatus(ctx, bugID, StatusOpen, StatusFixed)
	if err != nil {
		return Bug{}, err
	}

	s.recorder.Record(ctx, activity.Entry{
		UserID:      actorID,
		ProjectID:   &bug.ProjectID,
		Type:        activity.TypeBugFixed,
		Description: fmt.Sprintf("fixed bug #%d: %s", bug.ID, bug.Title),
		RelatedID:   &bug.ID,
	})

	s.publish(ctx, notifications.Draft{
		Type:       notifications.TypeBugFixed,
		Title:      fmt.Sprintf("Bug fixed: %s", bug.Title),
		Message:    fmt.Sprintf("Bug #%d awaits verification.", bug.ID),
		EntityType: "bug",
		EntityID:   &bug.ID,
		ProjectID:  &bug.ProjectID,
		CreatedBy:  actorName,
	}, actorID)

	return bug, nil
}

// Verify moves a fixed bug to verified and informs the project.
func (s *Service) Verify(ctx context.Context, bugID, actorID int64, actorName string) (Bug, error) {
	bug, err := s.repo.UpdateStatus(ctx, bugID, StatusFixed, StatusVerified)
	if err != nil {
		return Bug{}, err
	}

	s.publish(ctx, notifications.Draft{
		Type:       notifications.TypeBugVerified,
		Title:      fmt.Sprintf("Bug verified: %s", bug.Title),
		Message:    fmt.Sprintf("Bug #%d is verified fixed.", bug.ID),
		EntityType: "bug",
		EntityID:   &bug.ID,
		ProjectID:  &bug.ProjectID,
		CreatedBy:  actorName,
	}, actorID)

	return bug, nil
}

// Assign sets the assignee and notifies the project.
func (s *Service) Assign(ctx context.Context, bugID, assigneeID, actorID int64, actorName string) (Bug, error) {
	bug, err := s.repo.Assign(ctx, bugID, assigneeID)
	if err != nil {
		return Bug{}, err
	}

	s.publish(ctx, notifications.Draft{
		Type:       notifications.TypeTaskAssigned,
		Title:      fmt.Sprintf("Bug assigned: %s", bug.Title),
		Message:    fmt.Sprintf("Bug #%d has a new assignee.", bug.ID),
		EntityType: "bug",
		EntityID:   &bug.ID,
		ProjectID:  &bug.ProjectID,
		CreatedBy:  actorName,
	}, actorID)

	return bug, nil
}

// Comment records a comment in the activity log. Comments do not fan out.
func (s *Service) Comment(ctx context.Context, bugID, actorID int64, body string) error {
	bug, err := s.repo.Get(ctx, bugID)
	if err != nil {
		return err
	}
	s.recorder.Record(ctx, activity.Entry{
		UserID:      actorID,
		ProjectID:   &bug.ProjectID,
		Type:        activity.TypeBugCommented,
		Description: body,
		RelatedID:   &bug.ID,
	})
	return nil
}

// Get fetches one bug.
func (s *Service) Get(ctx context.Context, id int64) (Bug, error) {
	return s.repo.Get(ctx, id)
}

// ListByProject returns a project's bugs.
func (s *Service) ListByProject(ctx context.Context, projectID int64, limit, offset int32) ([]Bug, error) {
	return s.repo.ListByProject(ctx, projectID, limit, offset)
}

// publish dispatches a notification; failures are logged, never propagated.
// The bug write already happened and must stand on its own.
func (s *Service) publish(ctx context.Context, draft notifications.Draft, actorID int64) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Publish(ctx, draft, actorID); err != nil {
		s.logger.Error("bug notification failed",
			slog.String("type", string(draft.Type)), slog.Any("error", err))
	}
}
