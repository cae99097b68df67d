package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"multiuser-chat/internal/domain"
	"multiuser-chat/internal/repository"
)

// GormMessageRepository is the GORM implementation of MessageRepository.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a GormMessageRepository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Save(ctx context.Context, msg *domain.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save message %s in room %s: %w", msg.ID, msg.RoomID, err)
	}
	return nil
}

// ListRecent fetches the newest limit messages and returns them oldest first.
func (r *GormMessageRepository) ListRecent(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("seq DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list recent messages of room %s: %w", roomID, err)
	}
	// Reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *GormMessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find message by id %s: %w", id, err)
	}
	return &msg, nil
}
