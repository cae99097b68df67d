package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client is one WebSocket connection attached to the Hub. Its room and user
// identity are unset until the client sends join-room.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	roomID string
	userID string

	closeOnce sync.Once
}

// NewClient creates a Client for an accepted connection.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// Run starts the client's read and write goroutines.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

func (c *Client) RoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) setIdentity(roomID, userID string) {
	c.mu.Lock()
	c.roomID = roomID
	c.userID = userID
	c.mu.Unlock()
}

// closeSend shuts the send channel exactly once, which ends WritePump.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// ReadPump pumps frames from the WebSocket connection into the Hub channel.
// It runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		unregisterMsg := HubMessage{Type: "unregister", Client: c}
		select {
		case c.hub.messageChan <- unregisterMsg:
		case <-time.After(1 * time.Second):
			logrus.WithFields(logrus.Fields{"user_id": c.UserID(), "room_id": c.RoomID()}).Warn("Timeout sending unregister message to Hub channel")
		}
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"user_id": c.UserID(), "room_id": c.RoomID()}).Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"user_id": c.UserID(), "room_id": c.RoomID()})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed normally or read error")
			}
			break
		}

		if messageType != websocket.TextMessage {
			continue
		}
		eventMsg := HubMessage{
			Type:    "event",
			Client:  c,
			RawData: message,
		}
		select {
		case c.hub.messageChan <- eventMsg:
		default:
			logrus.WithFields(logrus.Fields{"user_id": c.UserID(), "room_id": c.RoomID()}).Warn("Hub message channel full, dropping client message")
		}
	}
}

// WritePump pumps messages from the send channel to the WebSocket
// connection and keeps the connection alive with pings. It runs in its own
// goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"user_id": c.UserID(), "room_id": c.RoomID()}).Info("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithFields(logrus.Fields{"user_id": c.UserID(), "room_id": c.RoomID()}).WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}

// CloseConn force-closes the underlying connection.
func (c *Client) CloseConn() { c.conn.Close() }
