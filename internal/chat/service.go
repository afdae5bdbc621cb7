package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ryabink/chatline/internal/models"
)

// Event names pushed over the live channel.
const (
	EventMessageNew   = "message:new"
	EventMessagesRead = "messages:read"
	EventRoomCreated  = "room:created"
	EventRoomUpdated  = "room:updated"
	EventRoomDeleted  = "room:deleted"
)

// Publisher delivers events to live connections, best-effort at-most-once.
// Publishing to a room or user with no live connections is a silent no-op;
// failures are never part of an operation's success contract.
type Publisher interface {
	PublishToRoom(roomID, event string, payload any)
	PublishToUser(userID, event string, payload any)
}

// AvatarStore is the blob-store collaborator used for group avatars only.
type AvatarStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (url string, err error)
	Delete(ctx context.Context, url string) error
}

// Avatar is an uploaded image payload.
type Avatar struct {
	Data        []byte
	ContentType string
}

type MessageEvent struct {
	RoomID  string          `json:"room_id"`
	Message *models.Message `json:"message"`
}

type ReadEvent struct {
	RoomID     string   `json:"room_id"`
	ReaderID   string   `json:"reader_id"`
	MessageIDs []string `json:"message_ids"`
}

type RoomEvent struct {
	Room *models.Room `json:"room"`
}

type RoomDeletedEvent struct {
	RoomID string `json:"room_id"`
}

// DeleteResult reports how a delete request resolved.
type DeleteResult struct {
	RoomID      string `json:"room_id"`
	HardDeleted bool   `json:"hard_deleted"`
	PurgedCount int64  `json:"purged_count,omitempty"`
}

// Service is the façade the API layer talks to. It coordinates the room
// directory, the message store and the fan-out gateway under access control.
type Service struct {
	logger  *zap.SugaredLogger
	dir     *Directory
	msgs    *Messages
	pub     Publisher
	avatars AvatarStore // nil when no blob store is configured
}

func NewService(logger *zap.SugaredLogger, dir *Directory, msgs *Messages, pub Publisher, avatars AvatarStore) *Service {
	return &Service{logger: logger, dir: dir, msgs: msgs, pub: pub, avatars: avatars}
}

func (s *Service) Directory() *Directory { return s.dir }

// SendMessage persists a message and fans it out to the room's live
// connections.
func (s *Service) SendMessage(ctx context.Context, roomID, senderID, content string) (*models.Message, error) {
	msg, err := s.msgs.Append(ctx, roomID, senderID, content)
	if err != nil {
		return nil, err
	}
	s.pub.PublishToRoom(roomID, EventMessageNew, MessageEvent{RoomID: roomID, Message: msg})
	return msg, nil
}

// MarkRead flips unread flags for readerID and, when anything changed,
// notifies the room.
func (s *Service) MarkRead(ctx context.Context, roomID, readerID string) ([]string, error) {
	ok, err := s.dir.IsMember(ctx, readerID, roomID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPermission
	}

	ids, err := s.msgs.MarkAllRead(ctx, roomID, readerID)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		s.pub.PublishToRoom(roomID, EventMessagesRead, ReadEvent{
			RoomID:     roomID,
			ReaderID:   readerID,
			MessageIDs: ids,
		})
	}
	return ids, nil
}

// CreateOrJoinDirect returns the direct room between requester and other,
// creating it if needed. On creation every member is notified on their
// personal channel so the other party learns of the room without polling.
func (s *Service) CreateOrJoinDirect(ctx context.Context, requesterID, otherID string) (*models.Room, bool, error) {
	room, created, err := s.dir.FindOrCreateDirect(ctx, requesterID, otherID)
	if err != nil {
		return nil, false, err
	}
	if created {
		for _, member := range room.Members {
			s.pub.PublishToUser(member, EventRoomCreated, RoomEvent{Room: room})
		}
	}
	return room, created, nil
}

// CreateGroup creates a group room. The avatar is best-effort: an upload
// failure is logged and the group is created without one.
func (s *Service) CreateGroup(ctx context.Context, creatorID string, memberIDs []string, name string, avatar *Avatar) (*models.Room, error) {
	avatarURL := ""
	if avatar != nil && s.avatars != nil {
		url, err := s.avatars.Upload(ctx, avatarKey(), avatar.ContentType, avatar.Data)
		if err != nil {
			s.logger.Warnw("group avatar upload failed, creating room without it", "error", err)
		} else {
			avatarURL = url
		}
	}

	room, err := s.dir.CreateGroup(ctx, creatorID, memberIDs, name, avatarURL)
	if err != nil {
		return nil, err
	}
	for _, member := range room.Members {
		s.pub.PublishToUser(member, EventRoomCreated, RoomEvent{Room: room})
	}
	return room, nil
}

// DeleteForUser records userID's deletion marker. A soft delete notifies the
// requester's other sessions; a hard delete needs no event since every
// member already issued their own delete.
func (s *Service) DeleteForUser(ctx context.Context, roomID, userID string) (*DeleteResult, error) {
	room, hard, purged, err := s.dir.MarkDeleted(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}

	if hard {
		if room.AvatarURL != "" && s.avatars != nil {
			if err := s.avatars.Delete(ctx, room.AvatarURL); err != nil {
				s.logger.Warnw("avatar cleanup failed", "room_id", roomID, "error", err)
			}
		}
		return &DeleteResult{RoomID: roomID, HardDeleted: true, PurgedCount: purged}, nil
	}

	s.pub.PublishToUser(userID, EventRoomDeleted, RoomDeletedEvent{RoomID: roomID})
	return &DeleteResult{RoomID: roomID, HardDeleted: false}, nil
}

// ListRooms returns the requester's visible rooms with previews and unread
// counts, most recently updated first.
func (s *Service) ListRooms(ctx context.Context, userID string) ([]*models.RoomSummary, error) {
	return s.dir.ListRoomsFor(ctx, userID)
}

// ListMessages returns a page of the room's messages for a member.
func (s *Service) ListMessages(ctx context.Context, roomID, viewerID string, limit int64, before time.Time) ([]*models.Message, error) {
	return s.msgs.List(ctx, roomID, viewerID, limit, before)
}

// UpdateGroupAvatar replaces a group's avatar and notifies every member. The
// old blob is deleted best-effort; an upload failure leaves the room
// untouched rather than failing it.
func (s *Service) UpdateGroupAvatar(ctx context.Context, roomID, requesterID string, avatar Avatar) (*models.Room, error) {
	room, err := s.dir.Room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(requesterID) {
		return nil, ErrPermission
	}
	if !room.IsGroup {
		return nil, ErrValidation
	}
	if s.avatars == nil {
		s.logger.Warnw("no blob store configured, keeping current avatar", "room_id", roomID)
		return room, nil
	}

	if room.AvatarURL != "" {
		if err := s.avatars.Delete(ctx, room.AvatarURL); err != nil {
			s.logger.Warnw("old avatar cleanup failed", "room_id", roomID, "error", err)
		}
	}

	url, err := s.avatars.Upload(ctx, avatarKey(), avatar.ContentType, avatar.Data)
	if err != nil {
		s.logger.Warnw("avatar upload failed, keeping current room state", "room_id", roomID, "error", err)
		return room, nil
	}

	updated, err := s.dir.UpdateGroupAvatar(ctx, roomID, requesterID, url)
	if err != nil {
		return nil, err
	}
	for _, member := range updated.Members {
		s.pub.PublishToUser(member, EventRoomUpdated, RoomEvent{Room: updated})
	}
	return updated, nil
}

// MemberRoomIDs lists every room the user belongs to, for connection binding.
func (s *Service) MemberRoomIDs(ctx context.Context, userID string) ([]string, error) {
	return s.dir.MemberRoomIDs(ctx, userID)
}

// IsMember exposes the membership predicate for subscribe validation.
func (s *Service) IsMember(ctx context.Context, userID, roomID string) (bool, error) {
	return s.dir.IsMember(ctx, userID, roomID)
}

func avatarKey() string {
	return "group-avatars/" + newID()
}
