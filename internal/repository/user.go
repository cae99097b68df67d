// Package repository defines the storage interfaces the services depend on.
package repository

import (
	"context"

	"multiuser-chat/internal/domain"
)

// UserRepository stores and retrieves chat participants.
type UserRepository interface {
	// FindByID returns the user or ErrUserNotFound.
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// FindByName returns the user with the given display name or
	// ErrUserNotFound. Names are unique.
	FindByName(ctx context.Context, name string) (*domain.User, error)

	// Save inserts a new user. Returns ErrDuplicateEntry when the name is
	// already taken.
	Save(ctx context.Context, user *domain.User) error
}
