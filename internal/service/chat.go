package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"multiuser-chat/internal/domain"
	"multiuser-chat/internal/dto"
	"multiuser-chat/internal/repository"
)

// aiUser is the synthetic participant attached to AI messages in outbound
// events. It is never persisted.
var aiUser = dto.UserRef{ID: "ai", Name: "AI Assistant", AvatarColor: "#4ECDC4"}

// ContextMessage is one entry of the conversation context handed to the AI
// agents.
type ContextMessage struct {
	Content  string `json:"content"`
	Type     string `json:"type"`
	UserName string `json:"userName,omitempty"`
}

// RoomContext is the compact view of a room the AI agents reason over.
type RoomContext struct {
	RoomID         string
	UserID         string
	CurrentMessage string
	RecentMessages []ContextMessage
	MemberNames    []string
}

// ChatService persists messages and builds the conversation context for the
// AI flow.
type ChatService struct {
	msgRepo  repository.MessageRepository
	seqRepo  repository.SequenceRepository
	userRepo repository.UserRepository
	roomRepo repository.RoomRepository
}

// NewChatService creates a ChatService.
func NewChatService(
	msgRepo repository.MessageRepository,
	seqRepo repository.SequenceRepository,
	userRepo repository.UserRepository,
	roomRepo repository.RoomRepository,
) *ChatService {
	if msgRepo == nil {
		panic("MessageRepository cannot be nil for ChatService")
	}
	if seqRepo == nil {
		panic("SequenceRepository cannot be nil for ChatService")
	}
	if userRepo == nil {
		panic("UserRepository cannot be nil for ChatService")
	}
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for ChatService")
	}
	return &ChatService{msgRepo: msgRepo, seqRepo: seqRepo, userRepo: userRepo, roomRepo: roomRepo}
}

// PostMessage assigns the room's next sequence number, persists the message,
// and returns the broadcast payload with the sender attached. A nil userID
// marks an AI message.
func (s *ChatService) PostMessage(ctx context.Context, roomID string, userID *string, content, msgType, metadata string) (*dto.NewMessage, error) {
	if roomID == "" {
		return nil, fmt.Errorf("%w: roomId is required", ErrValidation)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if msgType == "" {
		msgType = domain.MessageTypeText
	}

	if _, err := s.roomRepo.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to validate message room")
		return nil, ErrInternalServer
	}

	seq, err := s.seqRepo.NextSeq(ctx, roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to get next message seq")
		return nil, ErrInternalServer
	}

	msg := &domain.Message{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		UserID:   userID,
		Content:  content,
		Type:     msgType,
		Metadata: metadata,
		Seq:      seq,
	}
	if err := s.msgRepo.Save(ctx, msg); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"room_id": roomID, "seq": seq}).Error("Failed to save message")
		return nil, ErrInternalServer
	}

	out := &dto.NewMessage{Message: *msg}
	if userID == nil {
		u := aiUser
		out.User = &u
	} else if sender, err := s.userRepo.FindByID(ctx, *userID); err == nil {
		out.User = &dto.UserRef{ID: sender.ID, Name: sender.Name, AvatarColor: sender.AvatarColor}
	}
	return out, nil
}

// RecentMessages returns up to limit messages of a room, oldest first.
func (s *ChatService) RecentMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	messages, err := s.msgRepo.ListRecent(ctx, roomID, limit)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to list recent messages")
		return nil, ErrInternalServer
	}
	return messages, nil
}

// BuildRoomContext assembles the recent conversation plus member names for
// the AI agents. limit bounds the number of messages included.
func (s *ChatService) BuildRoomContext(ctx context.Context, roomID, userID, currentMessage string, limit int) (*RoomContext, error) {
	messages, err := s.msgRepo.ListRecent(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages for context: %w", err)
	}
	members, err := s.roomRepo.ListMembers(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load members for context: %w", err)
	}

	names := make(map[string]string, len(members))
	memberNames := make([]string, 0, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
		memberNames = append(memberNames, m.Name)
	}

	contextMessages := make([]ContextMessage, 0, len(messages))
	for _, m := range messages {
		cm := ContextMessage{Content: m.Content, Type: m.Type}
		if m.UserID != nil {
			cm.UserName = names[*m.UserID]
		} else if m.Type == domain.MessageTypeAI {
			cm.UserName = aiUser.Name
		}
		contextMessages = append(contextMessages, cm)
	}

	return &RoomContext{
		RoomID:         roomID,
		UserID:         userID,
		CurrentMessage: currentMessage,
		RecentMessages: contextMessages,
		MemberNames:    memberNames,
	}, nil
}
