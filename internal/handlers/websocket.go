package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ryabink/chatline/internal/chat"
	"github.com/ryabink/chatline/internal/middleware"
	"github.com/ryabink/chatline/internal/ws"
)

type WebSocketHandler struct {
	logger   *zap.SugaredLogger
	hub      *ws.Hub
	svc      *chat.Service
	frames   *FrameRouter
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(logger *zap.SugaredLogger, hub *ws.Hub, svc *chat.Service) *WebSocketHandler {
	return &WebSocketHandler{
		logger: logger,
		hub:    hub,
		svc:    svc,
		frames: NewFrameRouter(logger, hub, svc),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO restrict origins once the frontend domain is fixed
				return true
			},
		},
	}
}

// Connect upgrades the request and binds the connection: the client is
// auto-subscribed to every room it is currently a member of, plus its
// personal channel.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	roomIDs, err := h.svc.MemberRoomIDs(c.Request.Context(), userID.(string))
	if err != nil {
		h.logger.Errorw("room lookup for bind failed", "user_id", userID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.hub, conn, userID.(string))
	h.hub.Register(client)
	h.hub.Bind(client, roomIDs)

	go client.WritePump()
	go client.ReadPump(h.frames)
}
