package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"multiuser-chat/internal/agent"
	"multiuser-chat/internal/domain"
	"multiuser-chat/internal/dto"
	"multiuser-chat/internal/repository/mocks"
	"multiuser-chat/internal/service"
	"multiuser-chat/internal/tasks"
)

// scriptedAgent returns its canned replies and errors in call order.
type scriptedAgent struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
}

func (s *scriptedAgent) CompleteWithSystem(_ context.Context, _, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	var reply string
	var err error
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return reply, err
}

func (s *scriptedAgent) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// eventRecorder captures BroadcastEvent calls in order.
type eventRecorder struct {
	mu     sync.Mutex
	events []broadcastCall
}

type broadcastCall struct {
	roomID string
	event  string
	data   any
}

func (r *eventRecorder) BroadcastEvent(roomID, event string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, broadcastCall{roomID: roomID, event: event, data: data})
}

func (r *eventRecorder) Events() []broadcastCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]broadcastCall, len(r.events))
	copy(out, r.events)
	return out
}

type aiHandlerFixture struct {
	handler   *AIReplyHandler
	client    *scriptedAgent
	broadcast *eventRecorder
	presence  *mocks.PresenceRepository
	msgRepo   *mocks.MessageRepository
	roomRepo  *mocks.RoomRepository
	seqRepo   *mocks.SequenceRepository
}

func newAIHandlerFixture(client *scriptedAgent) *aiHandlerFixture {
	userRepo := new(mocks.UserRepository)
	roomRepo := new(mocks.RoomRepository)
	msgRepo := new(mocks.MessageRepository)
	seqRepo := new(mocks.SequenceRepository)
	presence := new(mocks.PresenceRepository)
	broadcast := &eventRecorder{}

	chat := service.NewChatService(msgRepo, seqRepo, userRepo, roomRepo)
	handler := NewAIReplyHandler(
		agent.NewDecider(client),
		agent.NewResponder(client),
		chat,
		presence,
		broadcast,
	)
	return &aiHandlerFixture{
		handler:   handler,
		client:    client,
		broadcast: broadcast,
		presence:  presence,
		msgRepo:   msgRepo,
		roomRepo:  roomRepo,
		seqRepo:   seqRepo,
	}
}

// stubRoomContext wires the repo calls BuildRoomContext makes.
func (f *aiHandlerFixture) stubRoomContext(roomID string) {
	f.msgRepo.On("ListRecent", mock.Anything, roomID, mock.Anything).
		Return([]domain.Message{}, nil)
	f.roomRepo.On("ListMembers", mock.Anything, roomID).
		Return([]domain.Member{{ID: "user-1", Name: "alice"}}, nil)
}

func newAIReplyTask(t *testing.T, roomID, userID, content string, force bool) *asynq.Task {
	t.Helper()
	payload, err := tasks.NewAIReplyTask(roomID, userID, content, force)
	require.NoError(t, err)
	return asynq.NewTask(tasks.TypeAIReply, payload)
}

func eventNames(calls []broadcastCall) []string {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.event)
	}
	return names
}

func TestAIReplyHandler_MalformedPayloadSkipsRetry(t *testing.T) {
	f := newAIHandlerFixture(&scriptedAgent{})

	err := f.handler.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeAIReply, []byte("{not json")))

	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAIReplyHandler_SkipsEmptyRoom(t *testing.T) {
	f := newAIHandlerFixture(&scriptedAgent{})
	f.presence.On("OnlineUsers", mock.Anything, "room-1").Return([]string{}, nil)

	err := f.handler.ProcessTask(context.Background(), newAIReplyTask(t, "room-1", "user-1", "hello", false))

	require.NoError(t, err)
	assert.Empty(t, f.broadcast.Events())
	assert.Zero(t, f.client.callCount(), "no API call for an empty room")
}

func TestAIReplyHandler_DeciderErrorStaysSilent(t *testing.T) {
	f := newAIHandlerFixture(&scriptedAgent{errs: []error{errors.New("agent: request timed out")}})
	f.presence.On("OnlineUsers", mock.Anything, "room-1").Return([]string{"user-2"}, nil)
	f.stubRoomContext("room-1")

	err := f.handler.ProcessTask(context.Background(), newAIReplyTask(t, "room-1", "user-1", "hello", false))

	require.NoError(t, err, "a broken decision gate must not retry the task")
	assert.Empty(t, f.broadcast.Events(), "no ai-typing, no new-message")
	f.msgRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.presence.AssertNotCalled(t, "SetAITyping", mock.Anything, mock.Anything, mock.Anything)
}

func TestAIReplyHandler_DeciderDeclinesStaysSilent(t *testing.T) {
	f := newAIHandlerFixture(&scriptedAgent{replies: []string{`{"should_reply": false}`}})
	f.presence.On("OnlineUsers", mock.Anything, "room-1").Return([]string{"user-2"}, nil)
	f.stubRoomContext("room-1")

	err := f.handler.ProcessTask(context.Background(), newAIReplyTask(t, "room-1", "user-1", "hello", false))

	require.NoError(t, err)
	assert.Empty(t, f.broadcast.Events())
	f.msgRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAIReplyHandler_ResponderErrorClearsTyping(t *testing.T) {
	f := newAIHandlerFixture(&scriptedAgent{
		replies: []string{`{"should_reply": true}`, ""},
		errs:    []error{nil, errors.New("agent: request failed with status 500")},
	})
	f.presence.On("OnlineUsers", mock.Anything, "room-1").Return([]string{"user-2"}, nil)
	f.presence.On("SetAITyping", mock.Anything, "room-1", true).Return(nil).Once()
	f.presence.On("SetAITyping", mock.Anything, "room-1", false).Return(nil).Once()
	f.stubRoomContext("room-1")

	err := f.handler.ProcessTask(context.Background(), newAIReplyTask(t, "room-1", "user-1", "hello", false))

	require.Error(t, err)
	names := eventNames(f.broadcast.Events())
	assert.Equal(t, []string{dto.EventAITyping, dto.EventAITyping}, names,
		"typing comes down even when generation fails, and no message is broadcast")
	f.msgRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.presence.AssertExpectations(t)
}

func TestAIReplyHandler_ForcedMentionPostsReply(t *testing.T) {
	f := newAIHandlerFixture(&scriptedAgent{replies: []string{`{"message": "Here to help."}`}})
	f.presence.On("OnlineUsers", mock.Anything, "room-1").Return([]string{"user-2"}, nil)
	f.presence.On("SetAITyping", mock.Anything, "room-1", true).Return(nil).Once()
	f.presence.On("SetAITyping", mock.Anything, "room-1", false).Return(nil).Once()
	f.stubRoomContext("room-1")
	f.roomRepo.On("FindByID", mock.Anything, "room-1").Return(&domain.Room{ID: "room-1"}, nil)
	f.seqRepo.On("NextSeq", mock.Anything, "room-1").Return(uint64(5), nil)
	f.msgRepo.On("Save", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		return m.UserID == nil && m.Type == domain.MessageTypeAI && m.Content == "Here to help."
	})).Return(nil).Once()

	err := f.handler.ProcessTask(context.Background(), newAIReplyTask(t, "room-1", "user-1", "@ai help", true))

	require.NoError(t, err)
	assert.Equal(t, 1, f.client.callCount(), "forced mentions skip the decision gate")
	names := eventNames(f.broadcast.Events())
	assert.Equal(t, []string{dto.EventAITyping, dto.EventNewMessage, dto.EventAITyping}, names)
	f.msgRepo.AssertExpectations(t)
	f.presence.AssertExpectations(t)
}
