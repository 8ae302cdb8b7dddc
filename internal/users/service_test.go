package users

import (
	"context"
	"sync"
	"testing"

	"github.com/bugtrail/bugtrail/internal/shared"
)

type stubRepo struct {
	users map[int64]User
}

func (s *stubRepo) GetUser(ctx context.Context, id int64) (User, error) {
	u, ok := s.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubRepo) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *stubRepo) SystemRole(ctx context.Context, id int64) (shared.SystemRole, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	return u.SystemRole, nil
}

func (s *stubRepo) AllAdmins(ctx context.Context) ([]int64, error) {
	var ids []int64
	for id, u := range s.users {
		if u.SystemRole == shared.RoleAdmin {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *stubRepo) DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string)
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			names[id] = u.DisplayName
		}
	}
	return names, nil
}

func TestGetUserKeepsExplicitDisplayName(t *testing.T) {
	svc := NewService(&stubRepo{users: map[int64]User{
		1: {ID: 1, Email: "jo@bugtrail.local", DisplayName: "Jo the Admin"},
	}})
	u, err := svc.GetUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.DisplayName != "Jo the Admin" {
		t.Fatalf("expected explicit name kept, got %q", u.DisplayName)
	}
}

// Run with -race: the title caser is stateful and must not be shared
// between concurrent lookups.
func TestGetUserConcurrentNameDerivation(t *testing.T) {
	svc := NewService(&stubRepo{users: map[int64]User{
		3: {ID: 3, Email: "pat.o_neil@bugtrail.local"},
	}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := svc.GetUser(context.Background(), 3)
			if err != nil {
				t.Errorf("get user: %v", err)
				return
			}
			if u.DisplayName != "Pat O Neil" {
				t.Errorf("expected derived name, got %q", u.DisplayName)
			}
		}()
	}
	wg.Wait()
}

func TestGetUserDerivesNameFromEmail(t *testing.T) {
	svc := NewService(&stubRepo{users: map[int64]User{
		2: {ID: 2, Email: "maria.van_dam@bugtrail.local"},
	}})
	u, err := svc.GetUser(context.Background(), 2)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.DisplayName != "Maria Van Dam" {
		t.Fatalf("expected derived title-cased name, got %q", u.DisplayName)
	}
}
