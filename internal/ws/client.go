package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// FrameHandler reacts to inbound client frames; the hub stays transport-only
// and never touches business state itself.
type FrameHandler interface {
	HandleFrame(client *Client, frame *Frame) error
}

// Client is one live connection bound to exactly one authenticated user.
type Client struct {
	ID     uuid.UUID
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *Hub

	mu    sync.RWMutex
	rooms map[string]bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		ID:     uuid.New(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		Hub:    hub,
		rooms:  make(map[string]bool),
	}
}

// ReadPump reads frames until the connection drops, then unregisters.
func (c *Client) ReadPump(handler FrameHandler) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame Frame
		if err := c.Conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Debugw("websocket read failed", "client_id", c.ID, "error", err)
			}
			break
		}

		if frame.Type == FramePong {
			continue
		}

		if handler != nil {
			if err := handler.HandleFrame(c, &frame); err != nil {
				c.Hub.logger.Debugw("frame rejected", "client_id", c.ID, "type", frame.Type, "error", err)
				c.SendError(err.Error())
			}
		}
	}
}

// WritePump drains the send queue onto the connection and keeps it alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent queues a named event for this connection only.
func (c *Client) SendEvent(name string, payload any) error {
	data, err := marshalEvent(name, "", payload)
	if err != nil {
		return err
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (c *Client) SendError(msg string) {
	c.SendEvent("error", map[string]string{"error": msg})
}

func (c *Client) IsSubscribed(roomID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[roomID]
}

// SubscribedRooms snapshots the connection's current room set.
func (c *Client) SubscribedRooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// enqueue drops the message when the client's queue is full rather than
// blocking the publisher.
func (c *Client) enqueue(data []byte, logger *zap.SugaredLogger) {
	select {
	case c.Send <- data:
	default:
		logger.Warnw("client send queue full, dropping event", "client_id", c.ID)
	}
}
