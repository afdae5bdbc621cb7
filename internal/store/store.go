// Package store defines the persistence interfaces the chat core is written
// against. The mongodb subpackage is the production implementation; memory
// backs the test suite.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ryabink/chatline/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	// ErrUnavailable wraps transient backend failures that survived the
	// retry policy.
	ErrUnavailable = errors.New("storage unavailable")
)

// MessageFilter narrows a room's message listing. Before and After are
// exclusive bounds on created_at; zero values disable them.
type MessageFilter struct {
	Limit  int64
	Before time.Time
	After  time.Time
}

type RoomStore interface {
	Insert(ctx context.Context, room *models.Room) error
	Get(ctx context.Context, roomID string) (*models.Room, error)
	// FindDirectByMembers looks up the non-group room whose member set is
	// exactly {a, b}.
	FindDirectByMembers(ctx context.Context, a, b string) (*models.Room, error)
	// ListByMember returns every room userID belongs to, updated_at descending.
	ListByMember(ctx context.Context, userID string) ([]*models.Room, error)
	// SetDeletion records a deletion marker and returns the updated room.
	SetDeletion(ctx context.Context, roomID, userID string, at time.Time) (*models.Room, error)
	// ClearDeletion removes userID's deletion marker, if present.
	ClearDeletion(ctx context.Context, roomID, userID string) error
	// Touch bumps updated_at and clears senderID's deletion marker in one
	// write (sending a message restores the conversation for the sender).
	Touch(ctx context.Context, roomID, senderID string, at time.Time) error
	SetAvatar(ctx context.Context, roomID, url string, at time.Time) error
	Delete(ctx context.Context, roomID string) error
}

type MessageStore interface {
	Insert(ctx context.Context, msg *models.Message) error
	// List returns the newest matching messages first, up to f.Limit.
	List(ctx context.Context, roomID string, f MessageFilter) ([]*models.Message, error)
	// Latest returns the newest message in the room with created_at > after,
	// or ErrNotFound when there is none.
	Latest(ctx context.Context, roomID string, after time.Time) (*models.Message, error)
	CountUnread(ctx context.Context, roomID, viewerID string, after time.Time) (int64, error)
	// MarkRead flips is_read on every unread message not authored by readerID
	// and returns the affected ids.
	MarkRead(ctx context.Context, roomID, readerID string) ([]string, error)
	// DeleteByRoom removes all of a room's messages, returning the count.
	DeleteByRoom(ctx context.Context, roomID string) (int64, error)
}

type UserStore interface {
	Insert(ctx context.Context, user *models.User) error
	Get(ctx context.Context, userID string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	// Search matches usernames case-insensitively by substring, excluding
	// requesterID, capped at limit.
	Search(ctx context.Context, requesterID, query string, limit int64) ([]*models.User, error)
	UpdateLastSeen(ctx context.Context, userID string, at time.Time) error
}
