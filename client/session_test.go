package client

import (
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiuser-chat/internal/domain"
	"multiuser-chat/internal/dto"
)

func mustEnvelope(t *testing.T, event string, data any) dto.Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return dto.Envelope{Event: event, Data: raw}
}

func newTestSession(t *testing.T) (*Session, *FileStorage) {
	t.Helper()
	storage := NewFileStorage(filepath.Join(t.TempDir(), "session.json"))
	s, err := NewSession("ws://localhost:8080/ws", storage)
	require.NoError(t, err)
	return s, storage
}

func TestSession_RehydratesFromStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	storage := NewFileStorage(path)
	require.NoError(t, storage.Save(&SessionState{
		User: &domain.User{ID: "user-1", Name: "alice"},
		Room: &domain.Room{ID: "room-1", Name: "general", InviteCode: "ABC123"},
		Messages: []dto.NewMessage{
			{Message: domain.Message{ID: "m1", Content: "hello"}},
		},
		Members: []domain.Member{{ID: "user-1", Name: "alice"}},
	}))

	s, err := NewSession("ws://localhost:8080/ws", NewFileStorage(path))
	require.NoError(t, err)

	require.NotNil(t, s.User())
	assert.Equal(t, "alice", s.User().Name)
	require.NotNil(t, s.Room())
	assert.Equal(t, "ABC123", s.Room().InviteCode)
	assert.Len(t, s.Messages(), 1)
	assert.Len(t, s.Members(), 1)
}

func TestSession_FreshStorageStartsEmpty(t *testing.T) {
	s, _ := newTestSession(t)

	assert.Nil(t, s.User())
	assert.Nil(t, s.Room())
	assert.Empty(t, s.Messages())
	assert.False(t, s.Connected())
}

func TestSession_ApplyNewMessage_AppendsAndMirrors(t *testing.T) {
	s, storage := newTestSession(t)

	s.applyEvent(mustEnvelope(t, dto.EventNewMessage, dto.NewMessage{
		Message: domain.Message{ID: "m1", RoomID: "room-1", Content: "hi"},
	}))
	s.applyEvent(mustEnvelope(t, dto.EventNewMessage, dto.NewMessage{
		Message: domain.Message{ID: "m2", RoomID: "room-1", Content: "there"},
	}))

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "there", msgs[1].Content)

	stored, err := storage.Load()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, stored.Messages, 2, "every change is mirrored to storage")
}

func TestSession_ApplyRoomMembers_ReplacesRoster(t *testing.T) {
	s, _ := newTestSession(t)

	s.applyEvent(mustEnvelope(t, dto.EventRoomMembers, dto.RoomMembers{
		Members: []domain.Member{{ID: "u1", Name: "alice"}, {ID: "u2", Name: "bob"}},
	}))

	require.Len(t, s.Members(), 2)
}

func TestSession_ApplyUserJoinedAndLeft(t *testing.T) {
	s, _ := newTestSession(t)

	s.applyEvent(mustEnvelope(t, dto.EventUserJoined, dto.UserJoined{
		UserID: "u1",
		User:   &dto.UserRef{ID: "u1", Name: "alice", AvatarColor: "#FF6B6B"},
	}))
	// Duplicate join must not duplicate the roster entry.
	s.applyEvent(mustEnvelope(t, dto.EventUserJoined, dto.UserJoined{
		UserID: "u1",
		User:   &dto.UserRef{ID: "u1", Name: "alice", AvatarColor: "#FF6B6B"},
	}))
	require.Len(t, s.Members(), 1)

	s.applyEvent(mustEnvelope(t, dto.EventUserLeft, dto.UserLeft{UserID: "u1"}))
	assert.Empty(t, s.Members())
}

func TestSession_ApplyAITyping_SetsFlag(t *testing.T) {
	s, _ := newTestSession(t)

	s.applyEvent(mustEnvelope(t, dto.EventAITyping, dto.AITyping{IsTyping: true}))
	assert.True(t, s.AITyping())

	s.applyEvent(mustEnvelope(t, dto.EventAITyping, dto.AITyping{IsTyping: false}))
	assert.False(t, s.AITyping())
}

func TestSession_SendWithoutConnection(t *testing.T) {
	s, _ := newTestSession(t)
	s.SetUser(&domain.User{ID: "u1", Name: "alice"})
	s.SetRoom(&domain.Room{ID: "room-1"})

	err := s.SendMessage("hello")
	require.Error(t, err)
}

func TestSession_Leave_ClearsRoomStateAndStorage(t *testing.T) {
	s, storage := newTestSession(t)
	s.SetUser(&domain.User{ID: "u1", Name: "alice"})
	s.SetRoom(&domain.Room{ID: "room-1"})
	s.applyEvent(mustEnvelope(t, dto.EventNewMessage, dto.NewMessage{
		Message: domain.Message{ID: "m1", Content: "hi"},
	}))

	require.NoError(t, s.Leave())

	assert.Nil(t, s.Room())
	assert.Empty(t, s.Messages())
	stored, err := storage.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestSession_ToggleVoice(t *testing.T) {
	s, _ := newTestSession(t)

	assert.False(t, s.VoiceEnabled())
	assert.True(t, s.ToggleVoice())
	assert.False(t, s.ToggleVoice())
}

func TestSession_ConcurrentCloseAndSendIsSafe(t *testing.T) {
	s, _ := newTestSession(t)
	s.SetUser(&domain.User{ID: "u1", Name: "alice"})
	s.SetRoom(&domain.Room{ID: "room-1"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.SendMessage("hi")
		}()
		go func() {
			defer wg.Done()
			_ = s.Close()
		}()
	}
	wg.Wait()
	assert.False(t, s.Connected())
}

func TestFileStorage_LoadMissingFileReturnsNil(t *testing.T) {
	storage := NewFileStorage(filepath.Join(t.TempDir(), "nope.json"))

	state, err := storage.Load()

	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestFileStorage_SaveLoadRoundTrip(t *testing.T) {
	storage := NewFileStorage(filepath.Join(t.TempDir(), "deep", "dir", "session.json"))
	in := &SessionState{
		User: &domain.User{ID: "u1", Name: "alice", AvatarColor: "#FF6B6B"},
		Room: &domain.Room{ID: "r1", InviteCode: "XYZ789"},
	}

	require.NoError(t, storage.Save(in))
	out, err := storage.Load()

	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "alice", out.User.Name)
	assert.Equal(t, "XYZ789", out.Room.InviteCode)
}
