package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"multiuser-chat/internal/domain"
	"multiuser-chat/internal/repository"
)

// RoomWithMembers is a room bundled with its current member list.
type RoomWithMembers struct {
	domain.Room
	Members []domain.Member `json:"members"`
}

// RoomService handles room creation, invite-code resolution, and membership.
type RoomService struct {
	roomRepo repository.RoomRepository
	userRepo repository.UserRepository
}

// NewRoomService creates a RoomService.
func NewRoomService(roomRepo repository.RoomRepository, userRepo repository.UserRepository) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	if userRepo == nil {
		panic("UserRepository cannot be nil for RoomService")
	}
	return &RoomService{roomRepo: roomRepo, userRepo: userRepo}
}

// CreateRoom creates a room with a fresh invite code and joins the creator as
// the first member.
func (s *RoomService) CreateRoom(ctx context.Context, name, creatorID string) (*domain.Room, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrValidation)
	}
	if creatorID == "" {
		return nil, fmt.Errorf("%w: createdBy is required", ErrValidation)
	}
	logCtx := logrus.WithFields(logrus.Fields{"name": name, "creator_id": creatorID})

	if _, err := s.userRepo.FindByID(ctx, creatorID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		logCtx.WithError(err).Error("Failed to validate room creator")
		return nil, ErrInternalServer
	}

	inviteCode, err := s.generateUniqueInviteCode(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate unique invite code")
		return nil, ErrInternalServer
	}

	room := &domain.Room{
		ID:         uuid.NewString(),
		Name:       name,
		InviteCode: inviteCode,
		CreatedBy:  creatorID,
	}
	if err := s.roomRepo.Save(ctx, room); err != nil {
		logCtx.WithError(err).Error("Failed to save new room")
		return nil, ErrInternalServer
	}

	// Creator becomes the first member. The two writes are independent; a
	// crash in between leaves a memberless room, same as the no-transaction
	// behavior this store has always had.
	if err := s.roomRepo.AddMember(ctx, room.ID, creatorID); err != nil {
		logCtx.WithError(err).Error("Failed to add creator as room member")
		return nil, ErrInternalServer
	}

	logCtx.WithFields(logrus.Fields{"room_id": room.ID, "invite_code": inviteCode}).Info("Room created")
	return room, nil
}

// JoinRoom resolves the invite code and adds the user as a member. Joining a
// room the user already belongs to is a no-op.
func (s *RoomService) JoinRoom(ctx context.Context, inviteCode, userID string) (*domain.Room, error) {
	if inviteCode == "" {
		return nil, fmt.Errorf("%w: invite code is required", ErrValidation)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	}
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "invite_code": inviteCode})

	room, err := s.roomRepo.FindByInviteCode(ctx, inviteCode)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			logCtx.Warn("Join with unknown invite code")
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Failed to resolve invite code")
		return nil, ErrInternalServer
	}

	if err := s.roomRepo.AddMember(ctx, room.ID, userID); err != nil {
		logCtx.WithError(err).Error("Failed to add room member")
		return nil, ErrInternalServer
	}

	logCtx.WithField("room_id", room.ID).Info("User joined room")
	return room, nil
}

// GetRoom returns a room together with its member list.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*RoomWithMembers, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to find room")
		return nil, ErrInternalServer
	}
	members, err := s.roomRepo.ListMembers(ctx, roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to list room members")
		return nil, ErrInternalServer
	}
	return &RoomWithMembers{Room: *room, Members: members}, nil
}

// Members returns the room's member list ordered by join time.
func (s *RoomService) Members(ctx context.Context, roomID string) ([]domain.Member, error) {
	if _, err := s.roomRepo.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to find room")
		return nil, ErrInternalServer
	}
	members, err := s.roomRepo.ListMembers(ctx, roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to list room members")
		return nil, ErrInternalServer
	}
	return members, nil
}

// inviteAlphabet is the 36-symbol alphabet invite codes are drawn from.
const inviteAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const inviteCodeLength = 6

// generateUniqueInviteCode draws random codes until one is unused. Collisions
// retry instead of surfacing a constraint violation to the caller.
func (s *RoomService) generateUniqueInviteCode(ctx context.Context) (string, error) {
	const maxAttempts = 10

	b := make([]byte, inviteCodeLength)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for i := range b {
			b[i] = inviteAlphabet[int(b[i])%len(inviteAlphabet)]
		}
		code := string(b)

		exists, err := s.roomRepo.IsInviteCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("database error checking invite code: %w", err)
		}
		if !exists {
			return code, nil
		}
		logrus.WithField("invite_code", code).Warnf("Generated invite code already exists, retrying (attempt %d)", attempt+1)
	}
	return "", fmt.Errorf("failed to generate a unique invite code after %d attempts", maxAttempts)
}
