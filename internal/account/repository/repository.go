package repository

import (
	"context"
	"errors"

	"personnel-registry/backend/internal/account/domain"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines persistence for user accounts.
type Repository interface {
	// FindBySubject returns the user whose login handle (email) equals subject.
	FindBySubject(ctx context.Context, subject string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// UpdatePassword replaces the stored credential blob wholesale.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error
}
