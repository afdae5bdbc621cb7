package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ryabink/chatline/internal/middleware"
	"github.com/ryabink/chatline/internal/models"
	"github.com/ryabink/chatline/internal/store"
)

const maxSearchResults = 25

type UserHandler struct {
	logger *zap.SugaredLogger
	users  store.UserStore
}

func NewUserHandler(logger *zap.SugaredLogger, users store.UserStore) *UserHandler {
	return &UserHandler{logger: logger, users: users}
}

// Search finds users by username substring, excluding the requester.
func (h *UserHandler) Search(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusOK, gin.H{"users": []*models.User{}})
		return
	}

	users, err := h.users.Search(c.Request.Context(), userID, query, maxSearchResults)
	if err != nil {
		h.logger.Errorw("user search failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if users == nil {
		users = []*models.User{}
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Me returns the authenticated user's own record.
func (h *UserHandler) Me(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
