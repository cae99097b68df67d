package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"multiuser-chat/internal/domain"
)

// MessageRepository is a mock for repository.MessageRepository.
type MessageRepository struct {
	mock.Mock
}

func (m *MessageRepository) Save(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepository) ListRecent(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, roomID, limit)
	var msgs []domain.Message
	if args.Get(0) != nil {
		msgs = args.Get(0).([]domain.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	var msg *domain.Message
	if args.Get(0) != nil {
		msg = args.Get(0).(*domain.Message)
	}
	return msg, args.Error(1)
}

// SequenceRepository is a mock for repository.SequenceRepository.
type SequenceRepository struct {
	mock.Mock
}

func (m *SequenceRepository) NextSeq(ctx context.Context, roomID string) (uint64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(uint64), args.Error(1)
}
