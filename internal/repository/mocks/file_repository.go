package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"multiuser-chat/internal/domain"
	"multiuser-chat/internal/repository"
)

// FileRepository is a mock for repository.FileRepository.
type FileRepository struct {
	mock.Mock
}

func (m *FileRepository) Save(ctx context.Context, file *domain.UploadedFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *FileRepository) ListByRoom(ctx context.Context, roomID string) ([]repository.RoomFile, error) {
	args := m.Called(ctx, roomID)
	var files []repository.RoomFile
	if args.Get(0) != nil {
		files = args.Get(0).([]repository.RoomFile)
	}
	return files, args.Error(1)
}

func (m *FileRepository) FindByID(ctx context.Context, id string) (*domain.UploadedFile, error) {
	args := m.Called(ctx, id)
	var file *domain.UploadedFile
	if args.Get(0) != nil {
		file = args.Get(0).(*domain.UploadedFile)
	}
	return file, args.Error(1)
}

// PresenceRepository is a mock for repository.PresenceRepository.
type PresenceRepository struct {
	mock.Mock
}

func (m *PresenceRepository) MarkOnline(ctx context.Context, roomID, userID string) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *PresenceRepository) MarkOffline(ctx context.Context, roomID, userID string) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *PresenceRepository) OnlineUsers(ctx context.Context, roomID string) ([]string, error) {
	args := m.Called(ctx, roomID)
	var users []string
	if args.Get(0) != nil {
		users = args.Get(0).([]string)
	}
	return users, args.Error(1)
}

func (m *PresenceRepository) SetAITyping(ctx context.Context, roomID string, typing bool) error {
	args := m.Called(ctx, roomID, typing)
	return args.Error(0)
}
