package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"multiuser-chat/internal/domain"
	"multiuser-chat/internal/repository"
)

// GormRoomRepository is the GORM implementation of RoomRepository.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a GormRoomRepository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %s: %w", id, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) FindByInviteCode(ctx context.Context, code string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Where("invite_code = ?", code).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by invite code %q: %w", code, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save room (id: %s, invite_code: %s): %w", room.ID, room.InviteCode, err)
	}
	return nil
}

func (r *GormRoomRepository) IsInviteCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Room{}).Where("invite_code = ?", code).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count rooms by invite code %q: %w", code, err)
	}
	return count > 0, nil
}

// AddMember inserts the membership row. ON CONFLICT DO NOTHING keeps repeated
// joins from creating duplicates or failing.
func (r *GormRoomRepository) AddMember(ctx context.Context, roomID, userID string) error {
	member := domain.Membership{RoomID: roomID, UserID: userID}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error
	if err != nil {
		return fmt.Errorf("gorm: add member %s to room %s: %w", userID, roomID, err)
	}
	return nil
}

func (r *GormRoomRepository) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Membership{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: check membership of %s in room %s: %w", userID, roomID, err)
	}
	return count > 0, nil
}

func (r *GormRoomRepository) ListMembers(ctx context.Context, roomID string) ([]domain.Member, error) {
	var members []domain.Member
	err := r.db.WithContext(ctx).
		Table("room_members rm").
		Select("u.id, u.name, u.avatar_color, rm.joined_at").
		Joins("JOIN users u ON u.id = rm.user_id").
		Where("rm.room_id = ?", roomID).
		Order("rm.joined_at").
		Scan(&members).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list members of room %s: %w", roomID, err)
	}
	return members, nil
}
