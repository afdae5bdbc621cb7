package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ryabink/chatline/internal/chat"
)

// respondError maps core errors onto HTTP statuses. Permission failures are
// reported as plain access-denied so responses do not reveal whether the
// room exists.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrPermission):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, chat.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, chat.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	case errors.Is(err, chat.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
