package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types. AI and system messages carry a nil UserID.
const (
	MessageTypeText  = "text"
	MessageTypeFile  = "file"
	MessageTypeVoice = "voice"
	MessageTypeAI    = "ai"
)

// Message is one append-only chat room entry. Seq is a per-room monotonic
// counter assigned at write time; ordering within a room is by Seq, so
// same-millisecond writes stay deterministic.
type Message struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	RoomID    string    `gorm:"column:room_id;type:text;not null;index:idx_messages_room_id" json:"roomId"`
	UserID    *string   `gorm:"column:user_id;type:text" json:"userId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Type      string    `gorm:"type:text;not null;default:text" json:"type"`
	Metadata  string    `gorm:"type:text" json:"metadata,omitempty"`
	Seq       uint64    `gorm:"not null;index:idx_messages_room_seq" json:"seq"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_messages_created_at" json:"createdAt"`
}

// FileMetadata is the metadata blob attached to messages of type "file".
// ContentPreview holds the first part of a text file's content for AI context.
type FileMetadata struct {
	FileID         string `json:"fileId,omitempty"`
	Filename       string `json:"filename"`
	FileSize       int64  `json:"fileSize"`
	MimeType       string `json:"mimeType,omitempty"`
	ContentPreview string `json:"content,omitempty"`
}

// ParseFileMetadata decodes the Metadata blob of a file message.
func (m *Message) ParseFileMetadata() (FileMetadata, error) {
	var meta FileMetadata
	if m.Metadata == "" {
		return meta, fmt.Errorf("message %s has no metadata", m.ID)
	}
	if err := json.Unmarshal([]byte(m.Metadata), &meta); err != nil {
		return meta, fmt.Errorf("failed to unmarshal file metadata: %w", err)
	}
	return meta, nil
}

// SetMetadata serializes any metadata value into the Metadata blob.
func (m *Message) SetMetadata(v any) error {
	bytes, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message metadata: %w", err)
	}
	m.Metadata = string(bytes)
	return nil
}
