package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/ryabink/chatline/pkg/auth"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	logger     *zap.SugaredLogger
	httpServer *http.Server
}

func New(logger *zap.SugaredLogger, port int, h Handlers, jwtMgr *auth.JWTManager, rdb *redis.Client) *Server {
	router := gin.Default()
	APIEndpoints(router, h, jwtMgr, rdb)

	return &Server{
		logger: logger,
		httpServer: &http.Server{
			Addr:    ":" + strconv.Itoa(port),
			Handler: router,
		},
	}
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests.
func (s *Server) Start() error {
	idleConnsClosed := make(chan struct{})

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		s.logger.Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Errorw("http shutdown failed", "error", err)
		}
		close(idleConnsClosed)
	}()

	s.logger.Infow("server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-idleConnsClosed
	return nil
}
