package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bugtrail/bugtrail/internal/shared"
)

type stubMembers struct {
	developers map[int64][]int64
	testers    map[int64][]int64
	members    map[int64][]int64
}

func (s *stubMembers) MembersBySystemRole(ctx context.Context, projectID int64, role shared.SystemRole) ([]int64, error) {
	switch role {
	case shared.RoleDeveloper:
		return s.developers[projectID], nil
	case shared.RoleTester:
		return s.testers[projectID], nil
	}
	return nil, nil
}

func (s *stubMembers) MemberIDs(ctx context.Context, projectID int64) ([]int64, error) {
	return s.members[projectID], nil
}

type stubDirectory struct {
	admins []int64
}

func (s *stubDirectory) AllAdmins(ctx context.Context) ([]int64, error) {
	return s.admins, nil
}

func ptr(v int64) *int64 { return &v }

func TestBugReportedGoesToDevelopersAndAdminsMinusActor(t *testing.T) {
	// Project P: developers {D1=10, D2=11}, admin {A1=1}. D1 reports a bug.
	selector := NewSelector(
		&stubMembers{developers: map[int64][]int64{5: {10, 11}}},
		&stubDirectory{admins: []int64{1}},
		nil,
	)

	got, err := selector.Recipients(context.Background(), Event{
		Type: TypeBugReported, ProjectID: ptr(5), ActorID: 10,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 11}, got)
}

func TestBugFixedGoesToTestersNotDevelopers(t *testing.T) {
	selector := NewSelector(
		&stubMembers{
			developers: map[int64][]int64{5: {10, 11}},
			testers:    map[int64][]int64{5: {20}},
		},
		&stubDirectory{admins: []int64{1}},
		nil,
	)

	got, err := selector.Recipients(context.Background(), Event{
		Type: TypeBugFixed, ProjectID: ptr(5), ActorID: 10,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 20}, got)
}

func TestProjectUpdateGoesToAllMembers(t *testing.T) {
	selector := NewSelector(
		&stubMembers{members: map[int64][]int64{5: {10, 20, 30}}},
		&stubDirectory{admins: []int64{1}},
		nil,
	)

	got, err := selector.Recipients(context.Background(), Event{
		Type: TypeProjectUpdate, ProjectID: ptr(5), ActorID: 30,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 10, 20}, got)
}

func TestNoProjectContextNotifiesAdminsOnly(t *testing.T) {
	selector := NewSelector(
		&stubMembers{members: map[int64][]int64{5: {10, 20}}},
		&stubDirectory{admins: []int64{1, 2}},
		nil,
	)

	got, err := selector.Recipients(context.Background(), Event{
		Type: TypeGeneral, ActorID: 2,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1}, got)
}

func TestFallbackToAdminsWhenBaseEmpty(t *testing.T) {
	// Project has no developers; admins still hear about the bug.
	selector := NewSelector(
		&stubMembers{},
		&stubDirectory{admins: []int64{1, 2}},
		nil,
	)

	got, err := selector.Recipients(context.Background(), Event{
		Type: TypeBugReported, ProjectID: ptr(9), ActorID: 50,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, got)
}

func TestFallbackToActorWhenActorIsOnlyAdmin(t *testing.T) {
	// Zero developers and the actor is the only admin: the notification
	// must still land somewhere, so the actor gets it.
	selector := NewSelector(
		&stubMembers{},
		&stubDirectory{admins: []int64{1}},
		nil,
	)

	got, err := selector.Recipients(context.Background(), Event{
		Type: TypeBugReported, ProjectID: ptr(9), ActorID: 1,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1}, got)
}

func TestRecipientsAreDeduplicated(t *testing.T) {
	// Admin 1 is also a project member; they appear once.
	selector := NewSelector(
		&stubMembers{members: map[int64][]int64{5: {1, 10}}},
		&stubDirectory{admins: []int64{1}},
		nil,
	)

	got, err := selector.Recipients(context.Background(), Event{
		Type: TypeProjectUpdate, ProjectID: ptr(5), ActorID: 10,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1}, got)
}
