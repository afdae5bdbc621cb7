// Package ws is the fan-out gateway: it maps users and rooms to live
// websocket connections and delivers events best-effort, at most once per
// connected session. Nothing here is persisted; a client that was not
// connected at publish time reconciles by re-fetching over HTTP.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is the wire envelope for everything pushed to clients.
type Event struct {
	Name      string          `json:"event"`
	RoomID    string          `json:"room_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Frame is an inbound client message.
type Frame struct {
	Type   string          `json:"type"`
	RoomID string          `json:"room_id,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Inbound frame types.
const (
	FrameSubscribe   = "room:join"
	FrameUnsubscribe = "room:leave"
	FrameSend        = "message:send"
	FrameMarkRead    = "messages:read"
	FramePong        = "pong"
)

// Hub is the live-connection registry. It is created at service start,
// started with Run and torn down with Stop; there is no ambient global
// instance.
type Hub struct {
	logger *zap.SugaredLogger

	clients map[uuid.UUID]*Client

	// One user may hold several simultaneous sessions.
	userClients map[string]map[uuid.UUID]*Client

	// Connections currently subscribed per room.
	rooms map[string]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		logger:      logger,
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[string]map[uuid.UUID]*Client),
		rooms:       make(map[string]map[uuid.UUID]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run processes registrations until Stop is called. Call in a goroutine.
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop ends the Run loop and closes every connection.
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.Send)
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.userClients = make(map[string]map[uuid.UUID]*Client)
	h.rooms = make(map[string]map[uuid.UUID]*Client)
}

// Register hands the connection to the Run loop. After Stop it is a no-op:
// Stop already closed every connection.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client

	if _, ok := h.userClients[client.UserID]; !ok {
		h.userClients[client.UserID] = make(map[uuid.UUID]*Client)
	}
	h.userClients[client.UserID][client.ID] = client

	h.logger.Debugw("client registered", "client_id", client.ID, "user_id", client.UserID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	for roomID := range client.rooms {
		h.removeFromRoomLocked(client, roomID)
	}

	if userClients, ok := h.userClients[client.UserID]; ok {
		delete(userClients, client.ID)
		if len(userClients) == 0 {
			delete(h.userClients, client.UserID)
		}
	}

	delete(h.clients, client.ID)
	close(client.Send)

	h.logger.Debugw("client unregistered", "client_id", client.ID, "user_id", client.UserID)
}

// Bind subscribes a freshly-registered connection to all the given rooms.
// The personal channel keyed by user id exists from registration.
func (h *Hub) Bind(client *Client, roomIDs []string) {
	for _, roomID := range roomIDs {
		h.JoinRoom(client, roomID)
	}
}

// JoinRoom subscribes the connection to a room. Membership has to be
// validated by the caller before this is reached.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[uuid.UUID]*Client)
	}
	h.rooms[roomID][client.ID] = client

	client.mu.Lock()
	client.rooms[roomID] = true
	client.mu.Unlock()
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomLocked(client, roomID)
}

func (h *Hub) removeFromRoomLocked(client *Client, roomID string) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(room, client.ID)
	if len(room) == 0 {
		delete(h.rooms, roomID)
	}

	client.mu.Lock()
	delete(client.rooms, roomID)
	client.mu.Unlock()
}

// PublishToRoom delivers an event to every connection subscribed to roomID.
// Zero live subscribers is a silent no-op.
func (h *Hub) PublishToRoom(roomID, event string, payload any) {
	data, err := marshalEvent(event, roomID, payload)
	if err != nil {
		h.logger.Errorw("event marshal failed", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.rooms[roomID] {
		client.enqueue(data, h.logger)
	}
}

// PublishToUser delivers an event to every live session of userID.
func (h *Hub) PublishToUser(userID, event string, payload any) {
	data, err := marshalEvent(event, "", payload)
	if err != nil {
		h.logger.Errorw("event marshal failed", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.userClients[userID] {
		client.enqueue(data, h.logger)
	}
}

// ConnectedUsers returns the ids of users with at least one live session.
func (h *Hub) ConnectedUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

// RoomSubscribers returns the distinct user ids currently subscribed to a
// room.
func (h *Hub) RoomSubscribers(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool)
	for _, client := range h.rooms[roomID] {
		seen[client.UserID] = true
	}

	users := make([]string, 0, len(seen))
	for userID := range seen {
		users = append(users, userID)
	}
	return users
}

func marshalEvent(event, roomID string, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(Event{
		Name:      event,
		RoomID:    roomID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Hub) ping() {
	data, err := marshalEvent("ping", "", nil)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		client.enqueue(data, h.logger)
	}
}
