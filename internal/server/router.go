package server

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/ryabink/chatline/internal/handlers"
	"github.com/ryabink/chatline/internal/middleware"
	"github.com/ryabink/chatline/pkg/auth"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Rooms    *handlers.RoomHandler
	Messages *handlers.MessageHandler
	Users    *handlers.UserHandler
	WS       *handlers.WebSocketHandler
}

func APIEndpoints(r *gin.Engine, h Handlers, jwtMgr *auth.JWTManager, rdb *redis.Client) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", middleware.Auth(jwtMgr, rdb), h.Auth.Logout)
	}

	api := r.Group("/api", middleware.Auth(jwtMgr, rdb))
	{
		api.GET("/rooms", h.Rooms.ListRooms)
		api.POST("/rooms", h.Rooms.CreateRoom)
		api.DELETE("/rooms/:id", h.Rooms.DeleteRoom)
		api.PUT("/rooms/:id/avatar", h.Rooms.UpdateAvatar)

		api.GET("/rooms/:id/messages", h.Messages.ListMessages)
		api.POST("/rooms/:id/messages", h.Messages.SendMessage)
		api.POST("/rooms/:id/read", h.Messages.MarkRead)

		api.GET("/users/search", h.Users.Search)
		api.GET("/users/me", h.Users.Me)
	}

	r.GET("/ws", middleware.WSAuth(jwtMgr, rdb), h.WS.Connect)
}
