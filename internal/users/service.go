package users

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bugtrail/bugtrail/internal/shared"
)

// RepositoryPort defines data access methods for the user directory.
type RepositoryPort interface {
	GetUser(ctx context.Context, id int64) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SystemRole(ctx context.Context, id int64) (shared.SystemRole, error)
	AllAdmins(ctx context.Context) ([]int64, error)
	DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// Service is the read-only user directory consumed by the recipient
// selector and the HTTP layer.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// GetUser fetches one user with a presentable display name.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.DisplayName = s.normalizeName(u)
	return u, nil
}

// ListUsers returns the directory.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	list, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].DisplayName = s.normalizeName(list[i])
	}
	return list, nil
}

// SystemRole returns the coarse platform role for one user.
func (s *Service) SystemRole(ctx context.Context, id int64) (shared.SystemRole, error) {
	return s.repo.SystemRole(ctx, id)
}

// AllAdmins lists every active admin ID.
func (s *Service) AllAdmins(ctx context.Context) ([]int64, error) {
	return s.repo.AllAdmins(ctx)
}

// DisplayNames resolves IDs to names, falling back to the email local part.
func (s *Service) DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	return s.repo.DisplayNames(ctx, ids)
}

// normalizeName falls back to a title-cased email local part when the
// account has no display name set. A cases.Caser carries internal state and
// is not safe for concurrent use, so one is built per call instead of being
// stored on the service.
func (s *Service) normalizeName(u User) string {
	name := strings.TrimSpace(u.DisplayName)
	if name != "" {
		return name
	}
	local := u.Email
	if at := strings.IndexByte(local, '@'); at > 0 {
		local = local[:at]
	}
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	return cases.Title(language.English).String(local)
}
