package repository

import "context"

// PresenceRepository tracks which users currently hold a live connection to a
// room. State is ephemeral; it backs the AI worker's room-liveness check and
// the typing indicator, not the durable membership table.
type PresenceRepository interface {
	// MarkOnline records a live connection of the user in the room.
	MarkOnline(ctx context.Context, roomID, userID string) error

	// MarkOffline removes the user's presence record for the room.
	MarkOffline(ctx context.Context, roomID, userID string) error

	// OnlineUsers returns the user IDs currently connected to the room.
	OnlineUsers(ctx context.Context, roomID string) ([]string, error)

	// SetAITyping flips the room's AI typing flag.
	SetAITyping(ctx context.Context, roomID string, typing bool) error
}
