// Package dto holds the wire-level payloads exchanged over the realtime
// channel between clients and the hub.
package dto

import (
	"encoding/json"

	"multiuser-chat/internal/domain"
)

// Event names accepted from clients.
const (
	EventJoinRoom     = "join-room"
	EventSendMessage  = "send-message"
	EventAIMention    = "ai-mention"
	EventFileUpload   = "file-upload"
	EventVoiceMessage = "voice-message"
)

// Event names emitted by the server.
const (
	EventNewMessage   = "new-message"
	EventUserJoined   = "user-joined"
	EventUserLeft     = "user-left"
	EventRoomMembers  = "room-members"
	EventAITyping     = "ai-typing"
	EventFileUploaded = "file-uploaded"
	EventError        = "error"
)

// Envelope frames every realtime message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope wraps a payload into a serialized Envelope.
func NewEnvelope(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// JoinRoom is sent by a client to attach its connection to a room channel.
type JoinRoom struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// SendMessage carries a user chat message.
type SendMessage struct {
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	Content     string `json:"content"`
	MessageType string `json:"messageType,omitempty"`
}

// AIMention forces an AI reply, bypassing the decision gate.
type AIMention struct {
	RoomID  string `json:"roomId"`
	UserID  string `json:"userId"`
	Content string `json:"content"`
}

// FileUpload announces an uploaded file to the room.
type FileUpload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Filename string `json:"filename"`
	FileSize int64  `json:"fileSize"`
}

// VoiceMessage carries an inline voice recording.
type VoiceMessage struct {
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
	AudioData string `json:"audioData"`
}

// UserRef is the compact user object embedded in outbound events.
type UserRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AvatarColor string `json:"avatarColor"`
}

// NewMessage is broadcast to the whole room, sender included.
type NewMessage struct {
	domain.Message
	User *UserRef `json:"user"`
}

// UserJoined notifies existing members about a new connection.
type UserJoined struct {
	UserID string   `json:"userId"`
	User   *UserRef `json:"user"`
}

// UserLeft notifies remaining members after a disconnect.
type UserLeft struct {
	UserID string `json:"userId"`
}

// RoomMembers is sent to a freshly joined connection with the full roster.
type RoomMembers struct {
	Members []domain.Member `json:"members"`
}

// AITyping toggles the room-wide AI typing indicator.
type AITyping struct {
	IsTyping bool `json:"isTyping"`
}

// FileUploaded is the type-specific companion event to a file message.
type FileUploaded struct {
	Filename string `json:"filename"`
	UserID   string `json:"userId"`
}

// Error is reported to the originating connection when an event handler fails.
type Error struct {
	Message string `json:"message"`
}
