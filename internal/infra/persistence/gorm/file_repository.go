package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"multiuser-chat/internal/domain"
	"multiuser-chat/internal/repository"
)

// GormFileRepository is the GORM implementation of FileRepository.
type GormFileRepository struct {
	db *gorm.DB
}

// NewGormFileRepository creates a GormFileRepository.
func NewGormFileRepository(db *gorm.DB) *GormFileRepository {
	if db == nil {
		panic("database connection cannot be nil for GormFileRepository")
	}
	return &GormFileRepository{db: db}
}

func (r *GormFileRepository) Save(ctx context.Context, file *domain.UploadedFile) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save uploaded file %s: %w", file.ID, err)
	}
	return nil
}

func (r *GormFileRepository) ListByRoom(ctx context.Context, roomID string) ([]repository.RoomFile, error) {
	var files []repository.RoomFile
	err := r.db.WithContext(ctx).
		Table("uploaded_files uf").
		Select("uf.*, u.name AS user_name").
		Joins("JOIN users u ON u.id = uf.user_id").
		Where("uf.room_id = ?", roomID).
		Order("uf.created_at DESC").
		Scan(&files).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list files of room %s: %w", roomID, err)
	}
	return files, nil
}

func (r *GormFileRepository) FindByID(ctx context.Context, id string) (*domain.UploadedFile, error) {
	var file domain.UploadedFile
	err := r.db.WithContext(ctx).First(&file, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrFileNotFound
		}
		return nil, fmt.Errorf("gorm: find uploaded file by id %s: %w", id, err)
	}
	return &file, nil
}
