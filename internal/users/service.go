package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-dms/meridian-dms/internal/rbac"
)

// RepositoryPort abstracts the users repository.
type RepositoryPort interface {
	GetByID(ctx context.Context, id int64) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, u User) (int64, error)
	SetActive(ctx context.Context, id int64, active bool) error
	ListSalesReps(ctx context.Context) ([]SalesRep, error)
	SalesRepActive(ctx context.Context, id int64) (bool, error)
}

// Service manages accounts and doubles as the sales rep directory for
// the vanstock module.
type Service struct {
	repo RepositoryPort
}

func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateUser provisions an account with a bcrypt password hash.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (int64, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return 0, fmt.Errorf("users: email and password are required")
	}
	if !rbac.KnownRole(input.Role) {
		return 0, fmt.Errorf("users: unknown role %q", input.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	return s.repo.Create(ctx, User{
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: string(hash),
		Role:         input.Role,
		IsActive:     true,
	})
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

func (s *Service) ListSalesReps(ctx context.Context) ([]SalesRep, error) {
	return s.repo.ListSalesReps(ctx)
}

// SalesRepActive satisfies the vanstock rep directory.
func (s *Service) SalesRepActive(ctx context.Context, id int64) (bool, error) {
	return s.repo.SalesRepActive(ctx, id)
}
