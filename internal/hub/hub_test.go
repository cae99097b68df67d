package hub

import (
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"multiuser-chat/internal/domain"
	"multiuser-chat/internal/dto"
	"multiuser-chat/internal/repository/mocks"
	"multiuser-chat/internal/service"
)

func newTestHub(presenceRepo *mocks.PresenceRepository) *Hub {
	userRepo := new(mocks.UserRepository)
	roomRepo := new(mocks.RoomRepository)
	msgRepo := new(mocks.MessageRepository)
	seqRepo := new(mocks.SequenceRepository)

	chat := service.NewChatService(msgRepo, seqRepo, userRepo, roomRepo)
	roomService := service.NewRoomService(roomRepo, userRepo)
	userService := service.NewUserService(userRepo)

	// The asynq client only touches Redis when a task is enqueued, which
	// these tests never do.
	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: "localhost:6379"})
	return NewHub(chat, roomService, userService, presenceRepo, taskClient)
}

func addTestClient(h *Hub, roomID, userID string) *Client {
	c := &Client{hub: h, send: make(chan []byte, 8)}
	c.setIdentity(roomID, userID)
	h.roomsMu.Lock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][c] = true
	h.roomsMu.Unlock()
	return c
}

func receivedEvents(t *testing.T, c *Client) []dto.Envelope {
	t.Helper()
	var events []dto.Envelope
	for {
		select {
		case raw := <-c.send:
			var env dto.Envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			events = append(events, env)
		default:
			return events
		}
	}
}

func TestHub_BroadcastEvent_EveryMemberOnceIncludingSender(t *testing.T) {
	h := newTestHub(new(mocks.PresenceRepository))
	sender := addTestClient(h, "room-1", "user-1")
	peer := addTestClient(h, "room-1", "user-2")
	outsider := addTestClient(h, "room-2", "user-3")

	h.BroadcastEvent("room-1", dto.EventNewMessage, dto.NewMessage{})

	senderEvents := receivedEvents(t, sender)
	peerEvents := receivedEvents(t, peer)
	require.Len(t, senderEvents, 1, "sender receives its own message exactly once")
	require.Len(t, peerEvents, 1)
	assert.Equal(t, dto.EventNewMessage, senderEvents[0].Event)
	assert.Empty(t, receivedEvents(t, outsider), "other rooms hear nothing")
}

func TestHub_BroadcastEvent_UnknownRoomIsNoop(t *testing.T) {
	h := newTestHub(new(mocks.PresenceRepository))

	// Must not panic or create the room.
	h.BroadcastEvent("ghost-room", dto.EventAITyping, dto.AITyping{IsTyping: true})

	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	assert.Empty(t, h.rooms)
}

func TestHub_DetachFromRoom_NotifiesRemainingMembers(t *testing.T) {
	presenceRepo := new(mocks.PresenceRepository)
	presenceRepo.On("MarkOffline", mock.Anything, "room-1", "user-1").Return(nil).Once()
	h := newTestHub(presenceRepo)

	leaver := addTestClient(h, "room-1", "user-1")
	stayer := addTestClient(h, "room-1", "user-2")

	h.detachFromRoom(leaver, "room-1")

	events := receivedEvents(t, stayer)
	require.Len(t, events, 1)
	assert.Equal(t, dto.EventUserLeft, events[0].Event)
	var payload dto.UserLeft
	require.NoError(t, json.Unmarshal(events[0].Data, &payload))
	assert.Equal(t, "user-1", payload.UserID)

	h.roomsMu.RLock()
	_, stillThere := h.rooms["room-1"][leaver]
	h.roomsMu.RUnlock()
	assert.False(t, stillThere)
	presenceRepo.AssertExpectations(t)
}

func TestHub_DetachFromRoom_LastClientRemovesRoom(t *testing.T) {
	presenceRepo := new(mocks.PresenceRepository)
	presenceRepo.On("MarkOffline", mock.Anything, "room-1", "user-1").Return(nil).Once()
	h := newTestHub(presenceRepo)
	only := addTestClient(h, "room-1", "user-1")

	h.detachFromRoom(only, "room-1")

	h.roomsMu.RLock()
	_, roomExists := h.rooms["room-1"]
	h.roomsMu.RUnlock()
	assert.False(t, roomExists, "empty rooms are dropped from the map")
}

func TestHub_DetachFromRoom_DoubleDetachIsSafe(t *testing.T) {
	presenceRepo := new(mocks.PresenceRepository)
	presenceRepo.On("MarkOffline", mock.Anything, "room-1", "user-1").Return(nil)
	h := newTestHub(presenceRepo)
	c := addTestClient(h, "room-1", "user-1")

	h.detachFromRoom(c, "room-1")
	// A second detach must not double-close the send channel.
	h.detachFromRoom(c, "room-1")

	presenceRepo.AssertNumberOfCalls(t, "MarkOffline", 1)
}

func TestHub_JoinRoom_SwitchingRoomsKeepsConnectionAlive(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	roomRepo := new(mocks.RoomRepository)
	msgRepo := new(mocks.MessageRepository)
	seqRepo := new(mocks.SequenceRepository)
	presenceRepo := new(mocks.PresenceRepository)

	h := NewHub(
		service.NewChatService(msgRepo, seqRepo, userRepo, roomRepo),
		service.NewRoomService(roomRepo, userRepo),
		service.NewUserService(userRepo),
		presenceRepo,
		asynq.NewClient(asynq.RedisClientOpt{Addr: "localhost:6379"}),
	)

	mover := addTestClient(h, "room-1", "user-1")
	stayer := addTestClient(h, "room-1", "user-2")

	userRepo.On("FindByID", mock.Anything, "user-1").
		Return(&domain.User{ID: "user-1", Name: "alice"}, nil)
	roomRepo.On("FindByID", mock.Anything, "room-2").
		Return(&domain.Room{ID: "room-2", Name: "other"}, nil)
	roomRepo.On("ListMembers", mock.Anything, "room-2").
		Return([]domain.Member{{ID: "user-1", Name: "alice"}}, nil)
	presenceRepo.On("MarkOffline", mock.Anything, "room-1", "user-1").Return(nil).Once()
	presenceRepo.On("MarkOnline", mock.Anything, "room-2", "user-1").Return(nil).Once()

	payload, err := json.Marshal(dto.JoinRoom{RoomID: "room-2", UserID: "user-1"})
	require.NoError(t, err)

	require.NotPanics(t, func() { h.handleJoinRoom(mover, payload) })

	assert.Equal(t, "room-2", mover.RoomID())

	// The mover's channel is still open and received the new room's roster.
	moverEvents := receivedEvents(t, mover)
	require.Len(t, moverEvents, 1)
	assert.Equal(t, dto.EventRoomMembers, moverEvents[0].Event)

	// The old room heard a user-left.
	stayerEvents := receivedEvents(t, stayer)
	require.Len(t, stayerEvents, 1)
	assert.Equal(t, dto.EventUserLeft, stayerEvents[0].Event)

	h.roomsMu.RLock()
	_, inOldRoom := h.rooms["room-1"][mover]
	_, inNewRoom := h.rooms["room-2"][mover]
	h.roomsMu.RUnlock()
	assert.False(t, inOldRoom)
	assert.True(t, inNewRoom)
	presenceRepo.AssertExpectations(t)
}

func TestHub_QueueMessage_DropsWhenFull(t *testing.T) {
	h := newTestHub(new(mocks.PresenceRepository))
	// Fill the channel without a running Run loop.
	for {
		if ok := h.QueueMessage(HubMessage{Type: "register"}); !ok {
			break
		}
	}
	assert.False(t, h.QueueMessage(HubMessage{Type: "register"}))
}
