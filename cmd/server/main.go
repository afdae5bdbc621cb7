package main

import (
	"context"
	"log"

	"github.com/go-redis/redis/v8"

	"github.com/ryabink/chatline/internal/blob"
	"github.com/ryabink/chatline/internal/chat"
	"github.com/ryabink/chatline/internal/config"
	"github.com/ryabink/chatline/internal/handlers"
	"github.com/ryabink/chatline/internal/logger"
	"github.com/ryabink/chatline/internal/server"
	"github.com/ryabink/chatline/internal/store/mongodb"
	"github.com/ryabink/chatline/internal/ws"
	"github.com/ryabink/chatline/pkg/auth"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logg.Sync()

	ctx := context.Background()

	db, err := mongodb.Connect(ctx, logg, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logg.Fatalw("mongo connect failed", "error", err)
	}
	defer db.Close(context.Background())

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logg.Fatalw("invalid redis url", "error", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		logg.Fatalw("redis connect failed", "error", err)
	}

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	var avatars chat.AvatarStore
	if cfg.S3Bucket != "" {
		s3Store, err := blob.NewS3Store(ctx, logg, cfg.S3Region, cfg.S3Bucket)
		if err != nil {
			logg.Fatalw("blob store init failed", "error", err)
		}
		avatars = s3Store
	} else {
		logg.Info("no S3 bucket configured, avatars disabled")
	}

	hub := ws.NewHub(logg)
	go hub.Run()
	defer hub.Stop()

	dir := chat.NewDirectory(logg, db.Rooms, db.Messages)
	msgs := chat.NewMessages(logg, db.Rooms, db.Messages, dir)
	svc := chat.NewService(logg, dir, msgs, hub, avatars)

	h := server.Handlers{
		Auth:     handlers.NewAuthHandler(logg, db.Users, jwtMgr, rdb),
		Rooms:    handlers.NewRoomHandler(logg, svc),
		Messages: handlers.NewMessageHandler(logg, svc),
		Users:    handlers.NewUserHandler(logg, db.Users),
		WS:       handlers.NewWebSocketHandler(logg, hub, svc),
	}

	srv := server.New(logg, cfg.Port, h, jwtMgr, rdb)
	if err := srv.Start(); err != nil {
		logg.Fatalw("server run failed", "error", err)
	}
}
