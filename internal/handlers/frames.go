package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ryabink/chatline/internal/chat"
	"github.com/ryabink/chatline/internal/ws"
)

const frameTimeout = 10 * time.Second

// FrameRouter dispatches inbound websocket frames onto the orchestrator.
type FrameRouter struct {
	logger *zap.SugaredLogger
	hub    *ws.Hub
	svc    *chat.Service
}

func NewFrameRouter(logger *zap.SugaredLogger, hub *ws.Hub, svc *chat.Service) *FrameRouter {
	return &FrameRouter{logger: logger, hub: hub, svc: svc}
}

func (r *FrameRouter) HandleFrame(client *ws.Client, frame *ws.Frame) error {
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	switch frame.Type {
	case ws.FrameSubscribe:
		return r.subscribe(ctx, client, frame.RoomID)

	case ws.FrameUnsubscribe:
		if frame.RoomID != "" {
			r.hub.LeaveRoom(client, frame.RoomID)
		}
		return nil

	case ws.FrameSend:
		return r.send(ctx, client, frame)

	case ws.FrameMarkRead:
		if frame.RoomID == "" {
			return ws.ErrInvalidFrame
		}
		_, err := r.svc.MarkRead(ctx, frame.RoomID, client.UserID)
		return err

	default:
		r.logger.Debugw("unknown frame type", "type", frame.Type)
		return nil
	}
}

// subscribe validates membership first; a non-member request is silently
// ignored so error shape does not leak whether the room exists.
func (r *FrameRouter) subscribe(ctx context.Context, client *ws.Client, roomID string) error {
	if roomID == "" {
		return ws.ErrInvalidFrame
	}

	ok, err := r.svc.IsMember(ctx, client.UserID, roomID)
	if err != nil {
		return err
	}
	if ok {
		r.hub.JoinRoom(client, roomID)
	}
	return nil
}

func (r *FrameRouter) send(ctx context.Context, client *ws.Client, frame *ws.Frame) error {
	if frame.RoomID == "" {
		return ws.ErrInvalidFrame
	}

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		return ws.ErrInvalidFrame
	}

	_, err := r.svc.SendMessage(ctx, frame.RoomID, client.UserID, payload.Content)
	if errors.Is(err, chat.ErrPermission) || errors.Is(err, chat.ErrValidation) {
		return err
	}
	if err != nil {
		r.logger.Errorw("websocket send failed", "room_id", frame.RoomID, "error", err)
		return errors.New("could not send message")
	}
	return nil
}
