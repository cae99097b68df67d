package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"multiuser-chat/internal/domain"
	"multiuser-chat/internal/repository"
	"multiuser-chat/internal/repository/mocks"
	"multiuser-chat/internal/service"
)

func TestUserService_GetOrCreate_CreatesOnFirstUse(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	userService := service.NewUserService(mockUserRepo)
	ctx := context.Background()

	mockUserRepo.On("FindByName", ctx, "alice").Return(nil, repository.ErrUserNotFound).Once()
	mockUserRepo.On("Save", ctx, mock.MatchedBy(func(user *domain.User) bool {
		assert.Equal(t, "alice", user.Name)
		assert.NotEmpty(t, user.ID)
		assert.NotEmpty(t, user.AvatarColor, "new users get an avatar color from the palette")
		return true
	})).Return(nil).Once()

	// Act
	user, err := userService.GetOrCreate(ctx, "alice", "")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Name)
	mockUserRepo.AssertExpectations(t)
}

func TestUserService_GetOrCreate_ReturnsExisting(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	userService := service.NewUserService(mockUserRepo)
	ctx := context.Background()
	existing := &domain.User{ID: "user-1", Name: "alice", AvatarColor: "#FF6B6B"}

	mockUserRepo.On("FindByName", ctx, "alice").Return(existing, nil).Once()

	user, err := userService.GetOrCreate(ctx, "alice", "#000000")

	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	// Existing users are immutable; the requested color is ignored.
	assert.Equal(t, "#FF6B6B", user.AvatarColor)
	mockUserRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUserService_GetOrCreate_EmptyName(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	userService := service.NewUserService(mockUserRepo)

	_, err := userService.GetOrCreate(context.Background(), "", "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrValidation))
}

func TestUserService_GetOrCreate_LosesCreateRace(t *testing.T) {
	// Two clients race on the same fresh name; the loser re-reads the
	// winner's row instead of failing.
	mockUserRepo := new(mocks.UserRepository)
	userService := service.NewUserService(mockUserRepo)
	ctx := context.Background()
	winner := &domain.User{ID: "user-9", Name: "bob"}

	mockUserRepo.On("FindByName", ctx, "bob").Return(nil, repository.ErrUserNotFound).Once()
	mockUserRepo.On("Save", ctx, mock.AnythingOfType("*domain.User")).Return(repository.ErrDuplicateEntry).Once()
	mockUserRepo.On("FindByName", ctx, "bob").Return(winner, nil).Once()

	user, err := userService.GetOrCreate(ctx, "bob", "")

	require.NoError(t, err)
	assert.Equal(t, "user-9", user.ID)
	mockUserRepo.AssertExpectations(t)
}

func TestUserService_GetUser_NotFound(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	userService := service.NewUserService(mockUserRepo)
	ctx := context.Background()

	mockUserRepo.On("FindByID", ctx, "missing").Return(nil, repository.ErrUserNotFound).Once()

	_, err := userService.GetUser(ctx, "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrUserNotFound))
}
