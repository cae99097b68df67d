package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"multiuser-chat/internal/agent"
	"multiuser-chat/internal/domain"
	"multiuser-chat/internal/dto"
	"multiuser-chat/internal/repository"
	"multiuser-chat/internal/service"
	"multiuser-chat/internal/tasks"
)

// contextMessageLimit is how many recent messages the responder sees.
const contextMessageLimit = 10

// Broadcaster delivers an event to every client currently connected to a
// room. The hub implements this.
type Broadcaster interface {
	BroadcastEvent(roomID, event string, data any)
}

// AIReplyHandler processes ai:reply tasks: decide whether the assistant
// should speak, and if so generate and post its message.
type AIReplyHandler struct {
	decider      *agent.Decider
	responder    *agent.Responder
	chat         *service.ChatService
	presenceRepo repository.PresenceRepository
	broadcaster  Broadcaster
}

// NewAIReplyHandler creates an AIReplyHandler. Panics if any dependency is nil.
func NewAIReplyHandler(
	decider *agent.Decider,
	responder *agent.Responder,
	chat *service.ChatService,
	presenceRepo repository.PresenceRepository,
	broadcaster Broadcaster,
) *AIReplyHandler {
	if decider == nil || responder == nil || chat == nil || presenceRepo == nil || broadcaster == nil {
		panic("NewAIReplyHandler: received nil dependency")
	}
	return &AIReplyHandler{
		decider:      decider,
		responder:    responder,
		chat:         chat,
		presenceRepo: presenceRepo,
		broadcaster:  broadcaster,
	}
}

// ProcessTask implements asynq.Handler.
func (h *AIReplyHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.AIReplyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"task_type": t.Type(),
		"room_id":   payload.RoomID,
		"user_id":   payload.UserID,
		"force":     payload.Force,
	})
	logCtx.Info("Processing AI reply task...")

	// A reply to an empty room is wasted API spend. This also covers
	// rooms everyone left while the task sat in the queue.
	online, err := h.presenceRepo.OnlineUsers(ctx, payload.RoomID)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to check room presence, continuing")
	} else if len(online) == 0 {
		logCtx.Info("Room has no online users, skipping AI reply")
		return nil
	}

	roomCtx, err := h.chat.BuildRoomContext(ctx, payload.RoomID, payload.UserID, payload.Content, contextMessageLimit)
	if err != nil {
		return fmt.Errorf("failed to build room context: %w", err)
	}
	recent := formatContextMessages(roomCtx.RecentMessages)

	if !payload.Force {
		shouldReply, err := h.decider.ShouldReply(ctx, payload.Content, recent)
		if err != nil {
			// Fails closed: a broken gate means silence, not spam.
			logCtx.WithError(err).Warn("Decision gate failed, staying silent")
			return nil
		}
		if !shouldReply {
			logCtx.Debug("Decision gate declined, staying silent")
			return nil
		}
	}

	h.broadcaster.BroadcastEvent(payload.RoomID, dto.EventAITyping, dto.AITyping{IsTyping: true})
	if err := h.presenceRepo.SetAITyping(ctx, payload.RoomID, true); err != nil {
		logCtx.WithError(err).Warn("Failed to set AI typing state")
	}
	// The typing indicator must come down no matter how generation ends.
	defer func() {
		h.broadcaster.BroadcastEvent(payload.RoomID, dto.EventAITyping, dto.AITyping{IsTyping: false})
		if err := h.presenceRepo.SetAITyping(context.Background(), payload.RoomID, false); err != nil {
			logCtx.WithError(err).Warn("Failed to clear AI typing state")
		}
	}()

	reply, err := h.responder.Reply(ctx, payload.Content, recent, roomCtx.MemberNames)
	if err != nil {
		return fmt.Errorf("failed to generate reply: %w", err)
	}

	msg, err := h.chat.PostMessage(ctx, payload.RoomID, nil, reply, domain.MessageTypeAI, "")
	if err != nil {
		return fmt.Errorf("failed to post AI message: %w", err)
	}

	h.broadcaster.BroadcastEvent(payload.RoomID, dto.EventNewMessage, msg)
	logCtx.WithField("message_id", msg.ID).Info("AI reply task processed successfully")
	return nil
}

// formatContextMessages renders messages as "Name: text" lines, oldest first.
func formatContextMessages(msgs []service.ContextMessage) []string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		name := m.UserName
		if name == "" {
			name = "AI Assistant"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, m.Content))
	}
	return lines
}
