package repository

import (
	"context"

	"multiuser-chat/internal/domain"
)

// RoomRepository manages rooms and their memberships.
type RoomRepository interface {
	// FindByID returns the room or ErrRoomNotFound.
	FindByID(ctx context.Context, id string) (*domain.Room, error)

	// FindByInviteCode returns the room matching the code or ErrRoomNotFound.
	FindByInviteCode(ctx context.Context, code string) (*domain.Room, error)

	// Save inserts a new room. Returns ErrDuplicateEntry on an invite code
	// collision.
	Save(ctx context.Context, room *domain.Room) error

	// IsInviteCodeExists reports whether a room already uses the code.
	IsInviteCodeExists(ctx context.Context, code string) (bool, error)

	// AddMember adds a user to a room. Adding an existing member is a no-op,
	// not an error: membership has set semantics at the write boundary.
	AddMember(ctx context.Context, roomID, userID string) error

	// IsMember reports whether the user belongs to the room.
	IsMember(ctx context.Context, roomID, userID string) (bool, error)

	// ListMembers returns the room's members ordered by join time.
	ListMembers(ctx context.Context, roomID string) ([]domain.Member, error)
}
