package users

import (
	"errors"
	"time"
)

// User is a back-office identity: admin, warehouse manager or sales rep.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SalesRep is the directory view of a field representative.
type SalesRep struct {
	ID       int64
	Name     string
	Email    string
	IsActive bool
}

var (
	ErrUserNotFound = errors.New("users: user not found")
	ErrEmailTaken   = errors.New("users: email already registered")
)

// CreateUserInput carries the fields for provisioning an account.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Role     string
}
