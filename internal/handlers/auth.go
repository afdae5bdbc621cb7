package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ryabink/chatline/internal/handlers/dto"
	"github.com/ryabink/chatline/internal/middleware"
	"github.com/ryabink/chatline/internal/models"
	"github.com/ryabink/chatline/internal/store"
	"github.com/ryabink/chatline/pkg/auth"
)

type AuthHandler struct {
	logger     *zap.SugaredLogger
	users      store.UserStore
	jwtManager *auth.JWTManager
	redis      *redis.Client
}

func NewAuthHandler(logger *zap.SugaredLogger, users store.UserStore, jwtMgr *auth.JWTManager, rdb *redis.Client) *AuthHandler {
	return &AuthHandler{logger: logger, users: users, jwtManager: jwtMgr, redis: rdb}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot hash password"})
		return
	}

	user := &models.User{
		ID:           primitive.NewObjectID().Hex(),
		Username:     req.Username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := h.users.Insert(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "username is taken"})
			return
		}
		h.logger.Errorw("user insert failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": user.ID})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.FindByUsername(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := h.users.UpdateLastSeen(c.Request.Context(), user.ID, time.Now().UTC()); err != nil {
		h.logger.Warnw("last_seen update failed", "user_id", user.ID, "error", err)
	}

	token, err := h.jwtManager.Generate(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Logout blacklists the token in redis until it would have expired anyway.
// The middleware already verified it and left it on the context.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.MustGet(middleware.TokenKey).(string)

	_, exp, err := h.jwtManager.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if ttl := time.Until(exp); ttl > 0 {
		if err := h.redis.Set(c.Request.Context(), "blacklist:"+token, 1, ttl).Err(); err != nil {
			h.logger.Errorw("token blacklist write failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
			return
		}
	}

	c.Status(http.StatusOK)
}
