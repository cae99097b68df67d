package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"multiuser-chat/internal/domain"
	"multiuser-chat/internal/dto"
)

// Session is a client-side chat session: the local view of one user in one
// room, kept in sync over a single WebSocket connection and mirrored to
// Storage on every change.
type Session struct {
	serverURL string
	storage   Storage

	mu           sync.RWMutex
	state        SessionState
	connected    bool
	voiceEnabled bool
	aiTyping     bool

	connMu sync.Mutex // guards conn and serializes writes to it
	conn   *websocket.Conn
	done   chan struct{}
}

// NewSession creates a Session and rehydrates any state the storage holds.
// serverURL is the websocket endpoint, e.g. "ws://localhost:8080/ws".
func NewSession(serverURL string, storage Storage) (*Session, error) {
	if storage == nil {
		panic("Storage cannot be nil for Session")
	}
	s := &Session{
		serverURL: serverURL,
		storage:   storage,
		done:      make(chan struct{}),
	}
	stored, err := storage.Load()
	if err != nil {
		return nil, fmt.Errorf("session: rehydrate failed: %w", err)
	}
	if stored != nil {
		s.state = *stored
	}
	return s, nil
}

// SetUser records the current user and mirrors the state.
func (s *Session) SetUser(user *domain.User) {
	s.mu.Lock()
	s.state.User = user
	s.mu.Unlock()
	s.mirror()
}

// SetRoom records the current room, resets the room-scoped state and mirrors.
func (s *Session) SetRoom(room *domain.Room) {
	s.mu.Lock()
	s.state.Room = room
	s.state.Messages = nil
	s.state.Members = nil
	s.mu.Unlock()
	s.mirror()
}

// Connect dials the server and, when user and room are set, joins the room.
// A Session holds at most one connection for its lifetime.
func (s *Session) Connect(ctx context.Context) error {
	s.connMu.Lock()
	if s.conn != nil {
		s.connMu.Unlock()
		return fmt.Errorf("session: already connected")
	}
	s.connMu.Unlock()

	s.mu.RLock()
	user, room := s.state.User, s.state.Room
	s.mu.RUnlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.serverURL, nil)
	if err != nil {
		return fmt.Errorf("session: failed to dial %s: %w", s.serverURL, err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()

	go s.readLoop(conn)

	if user != nil && room != nil {
		if err := s.sendEvent(dto.EventJoinRoom, dto.JoinRoom{RoomID: room.ID, UserID: user.ID}); err != nil {
			return err
		}
	}
	return nil
}

// SendMessage emits a text message to the room.
func (s *Session) SendMessage(content string) error {
	user, room, err := s.requireJoined()
	if err != nil {
		return err
	}
	return s.sendEvent(dto.EventSendMessage, dto.SendMessage{
		RoomID:      room.ID,
		UserID:      user.ID,
		Content:     content,
		MessageType: domain.MessageTypeText,
	})
}

// MentionAI sends a message that always receives an AI reply.
func (s *Session) MentionAI(content string) error {
	user, room, err := s.requireJoined()
	if err != nil {
		return err
	}
	return s.sendEvent(dto.EventAIMention, dto.AIMention{
		RoomID:  room.ID,
		UserID:  user.ID,
		Content: content,
	})
}

// NotifyFileUpload announces a completed upload to the room.
func (s *Session) NotifyFileUpload(filename string, fileSize int64) error {
	user, room, err := s.requireJoined()
	if err != nil {
		return err
	}
	return s.sendEvent(dto.EventFileUpload, dto.FileUpload{
		RoomID:   room.ID,
		UserID:   user.ID,
		Filename: filename,
		FileSize: fileSize,
	})
}

// SendVoiceMessage emits an inline voice recording.
func (s *Session) SendVoiceMessage(audioData string) error {
	user, room, err := s.requireJoined()
	if err != nil {
		return err
	}
	return s.sendEvent(dto.EventVoiceMessage, dto.VoiceMessage{
		RoomID:    room.ID,
		UserID:    user.ID,
		AudioData: audioData,
	})
}

// ToggleVoice flips the local voice flag and returns the new value.
func (s *Session) ToggleVoice() bool {
	s.mu.Lock()
	s.voiceEnabled = !s.voiceEnabled
	v := s.voiceEnabled
	s.mu.Unlock()
	return v
}

// Leave clears the room-scoped state and the storage mirror. The server keeps
// the membership; leaving is a client-local operation.
func (s *Session) Leave() error {
	s.mu.Lock()
	s.state.Room = nil
	s.state.Messages = nil
	s.state.Members = nil
	s.mu.Unlock()
	return s.storage.Clear()
}

// Close shuts the connection down.
func (s *Session) Close() error {
	s.connMu.Lock()
	conn := s.conn
	s.conn = nil
	s.connMu.Unlock()
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return conn.Close()
}

func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User
}

func (s *Session) Room() *domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Room
}

// Messages returns a copy of the local message list.
func (s *Session) Messages() []dto.NewMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dto.NewMessage, len(s.state.Messages))
	copy(out, s.state.Messages)
	return out
}

// Members returns a copy of the local member roster.
func (s *Session) Members() []domain.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Member, len(s.state.Members))
	copy(out, s.state.Members)
	return out
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Session) VoiceEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voiceEnabled
}

func (s *Session) AITyping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aiTyping
}

func (s *Session) requireJoined() (*domain.User, *domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil || s.state.Room == nil {
		return nil, nil, fmt.Errorf("session: no active room")
	}
	if !s.connected {
		return nil, nil, fmt.Errorf("session: not connected")
	}
	return s.state.User, s.state.Room, nil
}

func (s *Session) sendEvent(event string, data any) error {
	raw, err := dto.NewEnvelope(event, data)
	if err != nil {
		return fmt.Errorf("session: failed to marshal %s: %w", event, err)
	}
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("session: not connected")
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("session: failed to send %s: %w", event, err)
	}
	return nil
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			s.connected = false
			s.mu.Unlock()
			select {
			case <-s.done:
			default:
				logrus.WithError(err).Debug("Session: connection closed")
			}
			return
		}
		var envelope dto.Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			logrus.WithError(err).Warn("Session: dropping malformed event")
			continue
		}
		s.applyEvent(envelope)
	}
}

// applyEvent mutates local state from a server event and mirrors the result.
func (s *Session) applyEvent(envelope dto.Envelope) {
	switch envelope.Event {
	case dto.EventNewMessage:
		var msg dto.NewMessage
		if err := json.Unmarshal(envelope.Data, &msg); err != nil {
			return
		}
		s.mu.Lock()
		s.state.Messages = append(s.state.Messages, msg)
		s.mu.Unlock()
		s.mirror()

	case dto.EventRoomMembers:
		var payload dto.RoomMembers
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return
		}
		s.mu.Lock()
		s.state.Members = payload.Members
		s.mu.Unlock()
		s.mirror()

	case dto.EventUserJoined:
		var payload dto.UserJoined
		if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.User == nil {
			return
		}
		s.mu.Lock()
		known := false
		for _, m := range s.state.Members {
			if m.ID == payload.UserID {
				known = true
				break
			}
		}
		if !known {
			s.state.Members = append(s.state.Members, domain.Member{
				ID:          payload.User.ID,
				Name:        payload.User.Name,
				AvatarColor: payload.User.AvatarColor,
			})
		}
		s.mu.Unlock()
		s.mirror()

	case dto.EventUserLeft:
		var payload dto.UserLeft
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return
		}
		s.mu.Lock()
		members := s.state.Members[:0]
		for _, m := range s.state.Members {
			if m.ID != payload.UserID {
				members = append(members, m)
			}
		}
		s.state.Members = members
		s.mu.Unlock()
		s.mirror()

	case dto.EventAITyping:
		var payload dto.AITyping
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return
		}
		s.mu.Lock()
		s.aiTyping = payload.IsTyping
		s.mu.Unlock()

	case dto.EventFileUploaded:
		// The companion new-message event carries the state change.

	case dto.EventError:
		var payload dto.Error
		if json.Unmarshal(envelope.Data, &payload) == nil {
			logrus.WithField("message", payload.Message).Warn("Session: server reported error")
		}
	}
}

// mirror writes the current state to storage; mirror failures are logged,
// never fatal.
func (s *Session) mirror() {
	s.mu.RLock()
	state := SessionState{
		User:     s.state.User,
		Room:     s.state.Room,
		Messages: append([]dto.NewMessage(nil), s.state.Messages...),
		Members:  append([]domain.Member(nil), s.state.Members...),
	}
	s.mu.RUnlock()
	if err := s.storage.Save(&state); err != nil {
		logrus.WithError(err).Warn("Session: failed to mirror state to storage")
	}
}
