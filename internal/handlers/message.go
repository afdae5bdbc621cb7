package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ryabink/chatline/internal/chat"
	"github.com/ryabink/chatline/internal/middleware"
)

type MessageHandler struct {
	logger *zap.SugaredLogger
	svc    *chat.Service
}

func NewMessageHandler(logger *zap.SugaredLogger, svc *chat.Service) *MessageHandler {
	return &MessageHandler{logger: logger, svc: svc}
}

// ListMessages pages through a room's history oldest-first. `before` is an
// RFC 3339 cursor; `limit` caps at 200.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)
	roomID := c.Param("id")

	var limit int64
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	var before time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before timestamp"})
			return
		}
		before = t
	}

	msgs, err := h.svc.ListMessages(c.Request.Context(), roomID, userID, limit, before)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage appends a message and fans it out to the room.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)
	roomID := c.Param("id")

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.svc.SendMessage(c.Request.Context(), roomID, userID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// MarkRead flips every unread message from other senders and returns the
// affected ids.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)
	roomID := c.Param("id")

	ids, err := h.svc.MarkRead(c.Request.Context(), roomID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"message_ids": ids})
}
