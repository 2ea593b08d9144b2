package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lorrc/civic-dashboard/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	sendBuffer = 64

	maxRoomLength = 100
)

// eventPong answers a client keep-alive.
const eventPong domain.EventName = "PONG"

// ClientConfig controls browser keep-alive.
type ClientConfig struct {
	PongWait     time.Duration
	PingInterval time.Duration
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = c.PongWait * 9 / 10
	}
	return c
}

// Client is a middleman between one browser websocket and the hub.
type Client struct {
	ID     uuid.UUID
	UserID int64

	hub  *Hub
	conn *websocket.Conn
	cfg  ClientConfig

	mu     sync.Mutex
	send   chan domain.Event
	closed bool

	logger *slog.Logger
}

// NewClient creates a new relay client for an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, userID int64, cfg ClientConfig, logger *slog.Logger) *Client {
	id := uuid.New()
	return &Client{
		ID:     id,
		UserID: userID,
		hub:    hub,
		conn:   conn,
		cfg:    cfg.withDefaults(),
		send:   make(chan domain.Event, sendBuffer),
		logger: logger.With("client_id", id.String(), "user_id", userID),
	}
}

// trySend queues event without blocking and reports whether it was queued.
func (c *Client) trySend(event domain.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// CloseSend safely closes the send channel exactly once
func (c *Client) CloseSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump reads keep-alives from the browser until the connection drops.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		c.handleIncomingMessage(message)
	}
}

// WritePump writes queued events and pings to the browser.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.logger.Debug("failed to write event", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// ClientMessage is the structure for messages sent from the browser.
type ClientMessage struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
}

func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case "PING":
		c.trySend(domain.Event{Type: eventPong})
	case string(domain.EventJoinRoom), string(domain.EventLeaveRoom):
		if msg.Room == "" || len(msg.Room) > maxRoomLength {
			c.logger.Warn("ignoring room message with invalid room", "type", msg.Type)
			return
		}
		if err := c.hub.forward(domain.EventName(msg.Type), msg.Room); err != nil {
			c.logger.Warn("failed to forward room message", "type", msg.Type, "room", msg.Room, "error", err)
		}
	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}
