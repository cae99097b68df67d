// Package hub coordinates the WebSocket side of the chat server: it tracks
// which connections belong to which room and fans events out to them.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"multiuser-chat/internal/domain"
	"multiuser-chat/internal/dto"
	"multiuser-chat/internal/repository"
	"multiuser-chat/internal/service"
	"multiuser-chat/internal/tasks"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Voice messages carry inline
	// base64 audio, so this is far above a plain chat message.
	maxMessageSize = 1 << 20
)

// HubMessage is what flows through the Hub's internal channel.
type HubMessage struct {
	Type    string // "register", "unregister", "event"
	Client  *Client
	RawData []byte // only for "event": the raw WebSocket frame
}

// Hub maintains the set of active clients per room and dispatches their
// events into the service layer.
type Hub struct {
	messageChan chan HubMessage

	// map[roomID]map[*Client]bool
	rooms   map[string]map[*Client]bool
	roomsMu sync.RWMutex

	chat         *service.ChatService
	roomService  *service.RoomService
	userService  *service.UserService
	presenceRepo repository.PresenceRepository
	taskClient   *asynq.Client
}

// NewHub creates a Hub. Panics on nil dependencies.
func NewHub(
	chat *service.ChatService,
	roomService *service.RoomService,
	userService *service.UserService,
	presenceRepo repository.PresenceRepository,
	taskClient *asynq.Client,
) *Hub {
	if chat == nil {
		panic("ChatService cannot be nil for Hub")
	}
	if roomService == nil {
		panic("RoomService cannot be nil for Hub")
	}
	if userService == nil {
		panic("UserService cannot be nil for Hub")
	}
	if presenceRepo == nil {
		panic("PresenceRepository cannot be nil for Hub")
	}
	if taskClient == nil {
		panic("asynq client cannot be nil for Hub")
	}
	return &Hub{
		messageChan:  make(chan HubMessage, 512),
		rooms:        make(map[string]map[*Client]bool),
		chat:         chat,
		roomService:  roomService,
		userService:  userService,
		presenceRepo: presenceRepo,
		taskClient:   taskClient,
	}
}

// Run is the Hub's main event loop. It should run in its own goroutine.
// join-room is handled inline so a client's room assignment is visible
// before any of its later events are dispatched; the rest run concurrently.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.Type {
		case "register":
			// The connection exists but belongs to no room until join-room.
		case "unregister":
			h.unregisterClient(msg.Client)
		case "event":
			var envelope dto.Envelope
			if err := json.Unmarshal(msg.RawData, &envelope); err != nil {
				h.sendError(msg.Client, "Invalid message format")
				continue
			}
			if envelope.Event == dto.EventJoinRoom {
				h.handleJoinRoom(msg.Client, envelope.Data)
				continue
			}
			go h.handleEvent(msg.Client, envelope)
		default:
			log.Warnf("Hub: Received unknown message type: %s", msg.Type)
		}
	}
	log.Info("Hub is shutting down...")
}

// QueueMessage puts a message into the Hub's queue without blocking.
// Returns false if the queue is full.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// BroadcastEvent sends an event to every client in a room, sender included.
// Safe to call from any goroutine; the background worker uses it too.
func (h *Hub) BroadcastEvent(roomID, event string, data any) {
	raw, err := dto.NewEnvelope(event, data)
	if err != nil {
		logrus.WithError(err).WithField("event", event).Error("Failed to marshal broadcast event")
		return
	}
	h.broadcast(roomID, raw, nil)
}

func (h *Hub) handleJoinRoom(client *Client, data json.RawMessage) {
	if client == nil {
		return
	}
	var payload dto.JoinRoom
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" || payload.UserID == "" {
		h.sendError(client, "Invalid join-room payload")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": payload.RoomID,
		"user_id": payload.UserID,
		"action":  "joinRoom",
	})

	ctx := context.Background()
	user, err := h.userService.GetUser(ctx, payload.UserID)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to resolve joining user")
		h.sendError(client, "Failed to join room")
		return
	}

	// A connection can switch rooms; it leaves the old one but stays open.
	if prev := client.RoomID(); prev != "" && prev != payload.RoomID {
		h.leaveRoom(client, prev)
	}
	client.setIdentity(payload.RoomID, payload.UserID)

	h.roomsMu.Lock()
	if _, ok := h.rooms[payload.RoomID]; !ok {
		h.rooms[payload.RoomID] = make(map[*Client]bool)
		logCtx.Info("Client list created for new room")
	}
	h.rooms[payload.RoomID][client] = true
	h.roomsMu.Unlock()

	if err := h.presenceRepo.MarkOnline(ctx, payload.RoomID, payload.UserID); err != nil {
		logCtx.WithError(err).Warn("Failed to mark user online")
	}

	// Roster goes to the joiner only; the join notice goes to everyone else.
	members, err := h.roomService.Members(ctx, payload.RoomID)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to load room members")
		members = []domain.Member{}
	}
	h.sendTo(client, dto.EventRoomMembers, dto.RoomMembers{Members: members})

	joined := dto.UserJoined{
		UserID: payload.UserID,
		User:   &dto.UserRef{ID: user.ID, Name: user.Name, AvatarColor: user.AvatarColor},
	}
	if raw, err := dto.NewEnvelope(dto.EventUserJoined, joined); err == nil {
		h.broadcast(payload.RoomID, raw, client)
	}
	logCtx.Info("Client joined room")
}

func (h *Hub) handleEvent(client *Client, envelope dto.Envelope) {
	if client == nil {
		return
	}
	if client.RoomID() == "" {
		h.sendError(client, "Join a room first")
		return
	}
	ctx := context.Background()

	var err error
	switch envelope.Event {
	case dto.EventSendMessage:
		err = h.handleSendMessage(ctx, client, envelope.Data)
	case dto.EventAIMention:
		err = h.handleAIMention(ctx, client, envelope.Data)
	case dto.EventFileUpload:
		err = h.handleFileUpload(ctx, client, envelope.Data)
	case dto.EventVoiceMessage:
		err = h.handleVoiceMessage(ctx, client, envelope.Data)
	default:
		h.sendError(client, "Unknown event: "+envelope.Event)
		return
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"room_id": client.RoomID(),
			"user_id": client.UserID(),
			"event":   envelope.Event,
		}).WithError(err).Error("Error processing client event")
		h.sendError(client, eventFailureMessage(envelope.Event))
	}
}

func (h *Hub) handleSendMessage(ctx context.Context, client *Client, data json.RawMessage) error {
	var payload dto.SendMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	roomID, userID := client.RoomID(), client.UserID()
	msgType := payload.MessageType
	if msgType == "" {
		msgType = domain.MessageTypeText
	}

	msg, err := h.chat.PostMessage(ctx, roomID, &userID, payload.Content, msgType, "")
	if err != nil {
		return err
	}
	h.BroadcastEvent(roomID, dto.EventNewMessage, msg)

	// Only plain text can summon the assistant; the worker's decision gate
	// does the actual judging.
	if msgType == domain.MessageTypeText {
		h.enqueueAIReply(roomID, userID, payload.Content, false)
	}
	return nil
}

func (h *Hub) handleAIMention(ctx context.Context, client *Client, data json.RawMessage) error {
	var payload dto.AIMention
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	roomID, userID := client.RoomID(), client.UserID()

	msg, err := h.chat.PostMessage(ctx, roomID, &userID, payload.Content, domain.MessageTypeText, "")
	if err != nil {
		return err
	}
	h.BroadcastEvent(roomID, dto.EventNewMessage, msg)
	h.enqueueAIReply(roomID, userID, payload.Content, true)
	return nil
}

func (h *Hub) handleFileUpload(ctx context.Context, client *Client, data json.RawMessage) error {
	var payload dto.FileUpload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	roomID, userID := client.RoomID(), client.UserID()

	meta := domain.FileMetadata{Filename: payload.Filename, FileSize: payload.FileSize}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	msg, err := h.chat.PostMessage(ctx, roomID, &userID, "Uploaded file: "+payload.Filename, domain.MessageTypeFile, string(metaJSON))
	if err != nil {
		return err
	}
	h.BroadcastEvent(roomID, dto.EventNewMessage, msg)
	h.BroadcastEvent(roomID, dto.EventFileUploaded, dto.FileUploaded{Filename: payload.Filename, UserID: userID})
	return nil
}

func (h *Hub) handleVoiceMessage(ctx context.Context, client *Client, data json.RawMessage) error {
	var payload dto.VoiceMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	roomID, userID := client.RoomID(), client.UserID()

	meta, err := json.Marshal(map[string]string{"audioData": payload.AudioData})
	if err != nil {
		return err
	}
	msg, err := h.chat.PostMessage(ctx, roomID, &userID, "[Voice Message]", domain.MessageTypeVoice, string(meta))
	if err != nil {
		return err
	}
	h.BroadcastEvent(roomID, dto.EventNewMessage, msg)
	return nil
}

func (h *Hub) enqueueAIReply(roomID, userID, content string, force bool) {
	payload, err := tasks.NewAIReplyTask(roomID, userID, content, force)
	if err != nil {
		logrus.WithError(err).Error("Failed to build AI reply task payload")
		return
	}
	task := asynq.NewTask(tasks.TypeAIReply, payload)
	info, err := h.taskClient.Enqueue(task, asynq.MaxRetry(2), asynq.Timeout(2*time.Minute))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"room_id": roomID,
			"user_id": userID,
		}).WithError(err).Error("Failed to enqueue AI reply task")
		return
	}
	logrus.WithFields(logrus.Fields{
		"room_id": roomID,
		"task_id": info.ID,
		"force":   force,
	}).Debug("AI reply task enqueued")
}

func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	roomID := client.RoomID()
	userID := client.UserID()
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": roomID,
		"user_id": userID,
		"action":  "unregisterClient",
	})

	if roomID != "" {
		h.detachFromRoom(client, roomID)
	} else {
		// Connection never joined a room; just release its send channel.
		client.closeSend()
	}
	logCtx.Info("Client unregistered from Hub")
}

// leaveRoom removes a client from a room and tells the remaining members it
// left. The send channel stays open so the connection can join another room.
// Reports whether the client was actually in the room.
func (h *Hub) leaveRoom(client *Client, roomID string) bool {
	userID := client.UserID()
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": roomID,
		"user_id": userID,
	})

	removed := false
	h.roomsMu.Lock()
	if roomClients, ok := h.rooms[roomID]; ok {
		if _, exists := roomClients[client]; exists {
			delete(roomClients, client)
			removed = true
			if len(roomClients) == 0 {
				delete(h.rooms, roomID)
				logCtx.Info("Room empty, removed from Hub")
			}
		}
	}
	h.roomsMu.Unlock()
	if !removed {
		return false
	}

	ctx := context.Background()
	if err := h.presenceRepo.MarkOffline(ctx, roomID, userID); err != nil {
		logCtx.WithError(err).Warn("Failed to mark user offline")
	}
	h.BroadcastEvent(roomID, dto.EventUserLeft, dto.UserLeft{UserID: userID})
	return true
}

// detachFromRoom is the disconnect path: leave the room and release the
// send channel.
func (h *Hub) detachFromRoom(client *Client, roomID string) {
	if h.leaveRoom(client, roomID) {
		client.closeSend()
	}
}

// broadcast sends raw bytes to every client in a room except skip (nil skip
// means everyone).
func (h *Hub) broadcast(roomID string, message []byte, skip *Client) {
	h.roomsMu.RLock()
	roomClients, ok := h.rooms[roomID]
	clientsToSend := make([]*Client, 0, len(roomClients))
	if ok {
		for client := range roomClients {
			if client != skip {
				clientsToSend = append(clientsToSend, client)
			}
		}
	}
	h.roomsMu.RUnlock()

	if len(clientsToSend) == 0 {
		return
	}
	for _, client := range clientsToSend {
		select {
		case client.send <- message:
		default:
			logrus.WithFields(logrus.Fields{
				"room_id":          roomID,
				"receiver_user_id": client.UserID(),
			}).Warn("Client send channel full during broadcast, skipping this client")
		}
	}
}

// sendTo delivers an event to a single client, dropping it if the channel
// is full.
func (h *Hub) sendTo(client *Client, event string, data any) {
	raw, err := dto.NewEnvelope(event, data)
	if err != nil {
		logrus.WithError(err).WithField("event", event).Error("Failed to marshal event")
		return
	}
	select {
	case client.send <- raw:
	default:
		logrus.WithField("user_id", client.UserID()).Warn("Client send channel full, event dropped")
	}
}

// sendError reports a failure to the originating connection only.
func (h *Hub) sendError(client *Client, message string) {
	if client == nil {
		return
	}
	h.sendTo(client, dto.EventError, dto.Error{Message: message})
}

func eventFailureMessage(event string) string {
	switch event {
	case dto.EventSendMessage:
		return "Failed to send message"
	case dto.EventAIMention:
		return "Failed to process AI mention"
	case dto.EventFileUpload:
		return "Failed to upload file"
	case dto.EventVoiceMessage:
		return "Failed to process voice message"
	default:
		return "Failed to process event"
	}
}
