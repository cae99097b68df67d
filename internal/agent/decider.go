package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// deciderTimeout bounds the decision gate. A slow gate must never hold up
// the room, so the budget is deliberately short.
const deciderTimeout = 8 * time.Second

const deciderSystemPrompt = `You observe a group chat that includes an AI assistant. ` +
	`Given the latest message and recent conversation, decide whether the AI assistant should reply. ` +
	`Reply when the message is a question, asks for help, or clearly invites the assistant to speak. ` +
	`Stay silent during casual conversation between humans. ` +
	`Respond with ONLY a JSON object: {"should_reply": true} or {"should_reply": false}.`

// Decider is the first phase of the AI reply flow: a cheap yes/no gate that
// keeps the assistant out of conversations it was not invited into.
type Decider struct {
	client Client
}

// NewDecider creates a Decider. Panics if client is nil.
func NewDecider(client Client) *Decider {
	if client == nil {
		panic("NewDecider: client is nil")
	}
	return &Decider{client: client}
}

type deciderVerdict struct {
	ShouldReply bool `json:"should_reply"`
}

// ShouldReply asks the agent whether the assistant should respond to the
// latest message. Any failure, malformed output included, means no: the
// gate fails closed so an API outage silences the assistant instead of
// making it chatty.
func (d *Decider) ShouldReply(ctx context.Context, latestMessage string, recentMessages []string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, deciderTimeout)
	defer cancel()

	var prompt strings.Builder
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

	raw, err := d.client.CompleteWithSystem(ctx, deciderSystemPrompt, prompt.String())
	if err != nil {
		return false, fmt.Errorf("decider: %w", err)
	}

	var verdict deciderVerdict
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &verdict); err != nil {
		return false, fmt.Errorf("decider: unparseable verdict %q: %w", raw, err)
	}
	return verdict.ShouldReply, nil
}

// extractJSONObject returns the first {...} span of s, tolerating models
// that wrap their JSON in prose or code fences.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
