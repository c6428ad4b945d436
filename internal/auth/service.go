package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-dms/meridian-dms/internal/shared"
	"github.com/meridian-dms/meridian-dms/internal/users"
)

// Directory is the slice of the users module auth needs.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (users.User, error)
	GetByID(ctx context.Context, id int64) (users.User, error)
}

// Service authenticates credentials against the user directory.
type Service struct {
	directory Directory
}

func NewService(directory Directory) *Service {
	return &Service{directory: directory}
}

// Login verifies the email/password pair. Unknown accounts, disabled
// accounts and wrong passwords all yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (users.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return users.User{}, shared.ErrInvalidCredentials
	}
	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return users.User{}, shared.ErrInvalidCredentials
		}
		return users.User{}, err
	}
	if !user.IsActive {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// CurrentUser resolves the account behind a session user ID.
func (s *Service) CurrentUser(ctx context.Context, id int64) (users.User, error) {
	return s.directory.GetByID(ctx, id)
}
