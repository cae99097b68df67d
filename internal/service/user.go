package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"multiuser-chat/internal/domain"
	"multiuser-chat/internal/repository"
)

// avatarPalette is the set of colors assigned to users who do not pick one.
var avatarPalette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FECA57",
	"#FF9FF3", "#54A0FF", "#5F27CD", "#00D2D3", "#FF9F43",
	"#10AC84", "#EE5A24", "#0984E3", "#A29BFE", "#FD79A8",
}

// UserService handles participant lookup and creation.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	if userRepo == nil {
		panic("UserRepository cannot be nil for UserService")
	}
	return &UserService{userRepo: userRepo}
}

// GetOrCreate returns the user with the given display name, creating it on
// first use. The avatar color is only applied at creation time; existing
// users are immutable.
func (s *UserService) GetOrCreate(ctx context.Context, name, avatarColor string) (*domain.User, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	logCtx := logrus.WithField("name", name)

	user, err := s.userRepo.FindByName(ctx, name)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		logCtx.WithError(err).Error("Failed to look up user by name")
		return nil, ErrInternalServer
	}

	if avatarColor == "" {
		avatarColor = avatarPalette[rand.Intn(len(avatarPalette))]
	}
	newUser := &domain.User{
		ID:          uuid.NewString(),
		Name:        name,
		AvatarColor: avatarColor,
	}
	if err := s.userRepo.Save(ctx, newUser); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// Lost a race against a concurrent create for the same name.
			if user, ferr := s.userRepo.FindByName(ctx, name); ferr == nil {
				return user, nil
			}
		}
		logCtx.WithError(err).Error("Failed to save new user")
		return nil, ErrInternalServer
	}

	logCtx.WithField("user_id", newUser.ID).Info("User created")
	return newUser, nil
}

// GetUser returns the user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		logrus.WithError(err).WithField("user_id", id).Error("Failed to find user by id")
		return nil, ErrInternalServer
	}
	return user, nil
}
