// Package tasks defines the asynq task types exchanged between the HTTP/WS
// process and the background worker.
package tasks

import (
	"encoding/json"
)

const (
	// TypeAIReply asks the worker to consider (and possibly generate) an
	// AI reply to a chat message.
	TypeAIReply = "ai:reply"
)

// AIReplyPayload carries everything the worker needs to evaluate one
// message. Force skips the decision gate; it is set when the message
// mentioned the assistant explicitly.
type AIReplyPayload struct {
	RoomID  string `json:"room_id"`
	UserID  string `json:"user_id"`
	Content string `json:"content"`
	Force   bool   `json:"force"`
}

// NewAIReplyTask marshals the payload for an ai:reply task.
func NewAIReplyTask(roomID, userID, content string, force bool) ([]byte, error) {
	payload := AIReplyPayload{
		RoomID:  roomID,
		UserID:  userID,
		Content: content,
		Force:   force,
	}
	return json.Marshal(payload)
}
