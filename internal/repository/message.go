package repository

import (
	"context"

	"multiuser-chat/internal/domain"
)

// MessageRepository appends and reads back room messages. Messages are never
// updated or deleted.
type MessageRepository interface {
	// Save appends a message.
	Save(ctx context.Context, msg *domain.Message) error

	// ListRecent returns up to limit messages of a room, oldest first.
	ListRecent(ctx context.Context, roomID string, limit int) ([]domain.Message, error)

	// FindByID returns the message or ErrNotFound.
	FindByID(ctx context.Context, id string) (*domain.Message, error)
}

// SequenceRepository hands out the per-room monotonic message sequence.
type SequenceRepository interface {
	// NextSeq atomically increments and returns the room's sequence counter.
	NextSeq(ctx context.Context, roomID string) (uint64, error)
}
