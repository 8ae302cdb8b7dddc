package projects

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bugtrail/bugtrail/internal/activity"
	"github.com/bugtrail/bugtrail/internal/notifications"
)

// RepositoryPort defines data access methods for projects.
type RepositoryPort interface {
	CreateProject(ctx context.Context, name, description string, createdBy int64) (Project, error)
	GetProject(ctx context.Context, id int64) (Project, error)
	Members(ctx context.Context, projectID int64) ([]Member, error)
	ProjectsFor(ctx context.Context, userID int64) ([]int64, error)
	AddMember(ctx context.Context, projectID, userID int64, memberRole string) error
	RemoveMember(ctx context.Context, projectID, userID int64) error
}

// NotifierPort publishes notifications for project events.
type NotifierPort interface {
	Publish(ctx context.Context, draft notifications.Draft, actorID int64) (int64, error)
}

// RecorderPort appends activity entries.
type RecorderPort interface {
	Record(ctx context.Context, e activity.Entry) int64
}

// Service handles project lifecycle and membership.
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

// Create makes a new project with the actor as lead, records the activity
// and announces it. project_created carries no project filter on purpose:
// at creation time the only member is the actor, so the announcement goes
// to the admin group instead.
func (s *Service) Create(ctx context.Context, name, description string, actorID int64, actorName string) (Project, error) {
	p, err := s.repo.CreateProject(ctx, name, description, actorID)
	if err != nil {
		return Project{}, err
	}

	s.recorder.Record(ctx, activity.Entry{
		UserID:      actorID,
		ProjectID:   &p.ID,
		Type:        activity.TypeProjectCreated,
		Description: fmt.Sprintf("created project %q", p.Name),
		RelatedID:   &p.ID,
	})

	s.publish(ctx, notifications.Draft{
		Type:       notifications.TypeProjectCreated,
		Title:      fmt.Sprintf("New project: %s", p.Name),
		Message:    description,
		EntityType: "project",
		EntityID:   &p.ID,
		CreatedBy:  actorName,
	}, actorID)

	return p, nil
}

// Get fetches one project.
func (s *Service) Get(ctx context.Context, id int64) (Project, error) {
	return s.repo.GetProject(ctx, id)
}

// Members lists the project's membership.
func (s *Service) Members(ctx context.Context, projectID int64) ([]Member, error) {
	return s.repo.Members(ctx, projectID)
}

// ProjectsFor lists the IDs of projects the user belongs to.
func (s *Service) ProjectsFor(ctx context.Context, userID int64) ([]int64, error) {
	return s.repo.ProjectsFor(ctx, userID)
}

// AddMember attaches a user and notifies the project members.
func (s *Service) AddMember(ctx context.Context, projectID, userID int64, memberRole string, actorID int64, actorName string) error {
	if memberRole == "" {
		memberRole = "member"
	}
	p, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.repo.AddMember(ctx, projectID, userID, memberRole); err != nil {
		return err
	}

	s.recorder.Record(ctx, activity.Entry{
		UserID:      actorID,
		ProjectID:   &projectID,
		Type:        activity.TypeMemberAdded,
		Description: fmt.Sprintf("added user %d to %q as %s", userID, p.Name, memberRole),
		RelatedID:   &userID,
	})

	s.publish(ctx, notifications.Draft{
		Type:       notifications.TypeProjectUpdate,
		Title:      fmt.Sprintf("Team change in %s", p.Name),
		Message:    "A new member joined the project.",
		EntityType: "project",
		EntityID:   &projectID,
		ProjectID:  &projectID,
		CreatedBy:  actorName,
	}, actorID)

	return nil
}

// RemoveMember detaches a user from the project.
func (s *Service) RemoveMember(ctx context.Context, projectID, userID int64) error {
	return s.repo.RemoveMember(ctx, projectID, userID)
}

// publish dispatches a notification; failures are logged, never propagated.
func (s *Service) publish(ctx context.Context, draft notifications.Draft, actorID int64) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Publish(ctx, draft, actorID); err != nil {
		s.logger.Error("project notification failed",
			slog.String("type", string(draft.Type)), slog.Any("error", err))
	}
}
