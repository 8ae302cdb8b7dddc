package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bugtrail/bugtrail/internal/shared"
)

// MembershipPort is the project membership lookup the selector consumes.
type MembershipPort interface {
	// MembersBySystemRole filters members by users.system_role.
	// WARNING: the project membership role (project_members.member_role) is
	// a different attribute and must never be used here.
	MembersBySystemRole(ctx context.Context, projectID int64, role shared.SystemRole) ([]int64, error)
	MemberIDs(ctx context.Context, projectID int64) ([]int64, error)
}

// DirectoryPort is the user directory lookup the selector consumes.
type DirectoryPort interface {
	AllAdmins(ctx context.Context) ([]int64, error)
}

// Selector computes the set of users that should learn about an event.
type Selector struct {
	members   MembershipPort
	directory DirectoryPort
	logger    *slog.Logger
}

// NewSelector constructs a Selector.
func NewSelector(members MembershipPort, directory DirectoryPort, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{members: members, directory: directory, logger: logger}
}

// audienceKind classifies event types into recipient rules.
type audienceKind int

const (
	// audienceDevelopers: the entity needs developer attention.
	audienceDevelopers audienceKind = iota
	// audienceTesters: the entity is resolved and needs verification.
	audienceTesters
	// audienceMembers: project-wide informational.
	audienceMembers
)

func audienceFor(t Type) audienceKind {
	switch t {
	case TypeBugReported:
		return audienceDevelopers
	case TypeBugFixed:
		return audienceTesters
	default:
		return audienceMembers
	}
}

// Recipients resolves the event into a sorted, de-duplicated recipient set.
//
// The base set per audience is unioned with all admins and the actor is
// excluded. An empty result falls back to all admins minus the actor, and
// an empty fallback notifies the actor alone: a notification must never be
// silently dropped for lack of a target.
func (s *Selector) Recipients(ctx context.Context, ev Event) ([]int64, error) {
	admins, err := s.directory.AllAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("notifications: select admins: %w", err)
	}

	set := make(map[int64]struct{})
	if ev.ProjectID != nil {
		var base []int64
		switch audienceFor(ev.Type) {
		case audienceDevelopers:
			base, err = s.members.MembersBySystemRole(ctx, *ev.ProjectID, shared.RoleDeveloper)
		case audienceTesters:
			base, err = s.members.MembersBySystemRole(ctx, *ev.ProjectID, shared.RoleTester)
		default:
			base, err = s.members.MemberIDs(ctx, *ev.ProjectID)
		}
		if err != nil {
			return nil, fmt.Errorf("notifications: select members: %w", err)
		}
		for _, id := range base {
			set[id] = struct{}{}
		}
	}
	for _, id := range admins {
		set[id] = struct{}{}
	}
	delete(set, ev.ActorID)

	if len(set) == 0 {
		for _, id := range admins {
			set[id] = struct{}{}
		}
		delete(set, ev.ActorID)
	}
	if len(set) == 0 {
		// Actor is the only possible target; notify them rather than drop.
		s.logger.Warn("notifications: recipient fallback to actor",
			slog.String("type", string(ev.Type)), slog.Int64("actor_id", ev.ActorID))
		set[ev.ActorID] = struct{}{}
	}

	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
