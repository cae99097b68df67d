package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// responderTimeout bounds reply generation. Longer than the decision gate
// since this call does the actual writing.
const responderTimeout = 45 * time.Second

const responderSystemPrompt = `You are a helpful AI assistant participating in a group chat. ` +
	`Keep replies conversational and concise, usually a few sentences. ` +
	`You can see who said what; address people by name when it helps. ` +
	`Respond with ONLY a JSON object: {"message": "your reply here"}.`

// Responder is the second phase of the AI reply flow: it turns the room
// context into the assistant's message.
type Responder struct {
	client Client
}

// NewResponder creates a Responder. Panics if client is nil.
func NewResponder(client Client) *Responder {
	if client == nil {
		panic("NewResponder: client is nil")
	}
	return &Responder{client: client}
}

type responderReply struct {
	Message string `json:"message"`
}

// Reply generates the assistant's message for the latest message in a room.
// recentMessages are oldest first, already formatted as "Name: text" lines.
func (r *Responder) Reply(ctx context.Context, latestMessage string, recentMessages []string, memberNames []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, responderTimeout)
	defer cancel()

	var prompt strings.Builder
	if len(memberNames) > 0 {
		prompt.WriteString("People in the room: ")
		prompt.WriteString(strings.Join(memberNames, ", "))
		prompt.WriteString("\n\n")
	}
	if len(recentMessages) > 0 {
		prompt.WriteString("Recent conversation:\n")
		for _, m := range recentMessages {
			prompt.WriteString(m)
			prompt.WriteString("\n")
		}
		prompt.WriteString("\n")
	}
	prompt.WriteString("Latest message: ")
	prompt.WriteString(latestMessage)

	raw, err := r.client.CompleteWithSystem(ctx, responderSystemPrompt, prompt.String())
	if err != nil {
		return "", fmt.Errorf("responder: %w", err)
	}

	// Models occasionally ignore the JSON instruction. The raw text is
	// still a usable reply, so fall back to it rather than dropping the
	// response.
	var reply responderReply
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &reply); err == nil && reply.Message != "" {
		return reply.Message, nil
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("responder: empty reply")
	}
	return trimmed, nil
}
