package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ryabink/chatline/internal/chat"
	"github.com/ryabink/chatline/internal/middleware"
)

// Group avatars above this size are rejected before touching the blob store.
const maxAvatarSize = 5 << 20

type RoomHandler struct {
	logger *zap.SugaredLogger
	svc    *chat.Service
}

func NewRoomHandler(logger *zap.SugaredLogger, svc *chat.Service) *RoomHandler {
	return &RoomHandler{logger: logger, svc: svc}
}

// ListRooms returns the requester's visible rooms, newest activity first.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)

	rooms, err := h.svc.ListRooms(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// CreateRoom opens a direct chat (single other user id) or creates a group
// (member id list + name, optional multipart avatar).
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)

	var req struct {
		IsGroup   bool     `form:"is_group" json:"is_group"`
		UserID    string   `form:"user_id" json:"user_id"`
		MemberIDs []string `form:"member_ids" json:"member_ids"`
		Name      string   `form:"name" json:"name"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !req.IsGroup {
		otherID := req.UserID
		if otherID == "" && len(req.MemberIDs) == 1 {
			otherID = req.MemberIDs[0]
		}
		if otherID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required for a direct chat"})
			return
		}

		room, created, err := h.svc.CreateOrJoinDirect(c.Request.Context(), userID, otherID)
		if err != nil {
			respondError(c, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"room": room, "created": created})
		return
	}

	avatar := h.readAvatar(c)
	room, err := h.svc.CreateGroup(c.Request.Context(), userID, req.MemberIDs, req.Name, avatar)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": room, "created": true})
}

// DeleteRoom hides the room for the requester; once every member has done
// the same the room and its messages are purged for good.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)
	roomID := c.Param("id")

	result, err := h.svc.DeleteForUser(c.Request.Context(), roomID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateAvatar replaces a group's avatar image.
func (h *RoomHandler) UpdateAvatar(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)
	roomID := c.Param("id")

	avatar := h.readAvatar(c)
	if avatar == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}

	room, err := h.svc.UpdateGroupAvatar(c.Request.Context(), roomID, userID, *avatar)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *RoomHandler) readAvatar(c *gin.Context) *chat.Avatar {
	file, err := c.FormFile("avatar")
	if err != nil {
		return nil
	}
	if file.Size > maxAvatarSize {
		return nil
	}

	f, err := file.Open()
	if err != nil {
		h.logger.Warnw("avatar open failed", "error", err)
		return nil
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.logger.Warnw("avatar read failed", "error", err)
		return nil
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &chat.Avatar{Data: data, ContentType: contentType}
}
