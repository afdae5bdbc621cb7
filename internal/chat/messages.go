package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ryabink/chatline/internal/models"
	"github.com/ryabink/chatline/internal/store"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Messages owns message creation, ordered retrieval and read-state mutation.
// It shares the Directory's per-room lock set: an append must not slip
// between the last member's deletion marker and the purge.
type Messages struct {
	logger *zap.SugaredLogger
	rooms  store.RoomStore
	msgs   store.MessageStore
	locks  *keyedMutex
}

func NewMessages(logger *zap.SugaredLogger, rooms store.RoomStore, msgs store.MessageStore, dir *Directory) *Messages {
	return &Messages{logger: logger, rooms: rooms, msgs: msgs, locks: dir.locks}
}

// Append persists a message from senderID. The sender must be a current
// member and the content non-empty after trimming. Sending clears the
// sender's own deletion marker and bumps the room's updated_at. The whole
// check-insert-touch sequence holds the room's lock, so a concurrent hard
// delete either purges this message with the room or fails the append with
// not-found.
func (m *Messages) Append(ctx context.Context, roomID, senderID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is empty", ErrValidation)
	}

	unlock := m.locks.lock("room:" + roomID)
	defer unlock()

	room, err := m.rooms.Get(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !room.HasMember(senderID) {
		return nil, fmt.Errorf("%w: not a member of this room", ErrPermission)
	}

	msg := &models.Message{
		ID:        newID(),
		RoomID:    roomID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.msgs.Insert(ctx, msg); err != nil {
		return nil, err
	}
	if err := m.rooms.Touch(ctx, roomID, senderID, msg.CreatedAt); err != nil {
		return nil, err
	}
	return msg, nil
}

// List returns up to limit messages oldest-first, older than before when
// given. Messages from before the viewer's deletion marker never resurface.
// Only members may list.
func (m *Messages) List(ctx context.Context, roomID, viewerID string, limit int64, before time.Time) ([]*models.Message, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	room, err := m.rooms.Get(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !room.HasMember(viewerID) {
		return nil, fmt.Errorf("%w: not a member of this room", ErrPermission)
	}

	marker, _ := room.DeletedAt(viewerID)
	msgs, err := m.msgs.List(ctx, roomID, store.MessageFilter{
		Limit:  limit,
		Before: before,
		After:  marker,
	})
	if err != nil {
		return nil, err
	}

	// The store yields newest-first; deliver oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// MarkAllRead flips is_read on every unread message in the room not authored
// by readerID, returning the affected ids. Flags never revert, so a repeat
// call returns an empty set.
func (m *Messages) MarkAllRead(ctx context.Context, roomID, readerID string) ([]string, error) {
	return m.msgs.MarkRead(ctx, roomID, readerID)
}

// CountUnread counts messages unread by viewerID and newer than the
// viewer's deletion marker, if any.
func (m *Messages) CountUnread(ctx context.Context, roomID, viewerID string) (int64, error) {
	room, err := m.rooms.Get(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	marker, _ := room.DeletedAt(viewerID)
	return m.msgs.CountUnread(ctx, roomID, viewerID, marker)
}
