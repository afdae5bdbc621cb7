package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ryabink/chatline/internal/models"
	"github.com/ryabink/chatline/internal/store"
)

// Directory owns room existence, membership and per-member deletion markers.
// Its lock set is shared with Messages so appends serialize against the
// delete-and-purge sequence.
type Directory struct {
	logger *zap.SugaredLogger
	rooms  store.RoomStore
	msgs   store.MessageStore
	locks  *keyedMutex
}

func NewDirectory(logger *zap.SugaredLogger, rooms store.RoomStore, msgs store.MessageStore) *Directory {
	return &Directory{logger: logger, rooms: rooms, msgs: msgs, locks: &keyedMutex{}}
}

// newID returns an ObjectID hex string. ObjectIDs embed a timestamp and a
// counter, so generation order is monotonic and usable as an order tie-break.
func newID() string {
	return primitive.NewObjectID().Hex()
}

func (d *Directory) Room(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := d.rooms.Get(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return room, err
}

// IsMember reports whether userID belongs to roomID. An absent room counts
// as non-membership so access checks do not leak room existence.
func (d *Directory) IsMember(ctx context.Context, userID, roomID string) (bool, error) {
	room, err := d.rooms.Get(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return room.HasMember(userID), nil
}

// MemberRoomIDs returns the ids of every room userID belongs to, including
// rooms hidden by a deletion marker. Used to bind a fresh connection.
func (d *Directory) MemberRoomIDs(ctx context.Context, userID string) ([]string, error) {
	rooms, err := d.rooms.ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(rooms))
	for i, r := range rooms {
		ids[i] = r.ID
	}
	return ids, nil
}

// ListRoomsFor returns userID's rooms ordered by updated_at descending,
// enriched with the last visible message and unread count. A room carrying
// the user's deletion marker is hidden unless a newer message exists.
func (d *Directory) ListRoomsFor(ctx context.Context, userID string) ([]*models.RoomSummary, error) {
	rooms, err := d.rooms.ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*models.RoomSummary, len(rooms))
	g, gctx := errgroup.WithContext(ctx)
	for i, room := range rooms {
		g.Go(func() error {
			marker, deleted := room.DeletedAt(userID)

			last, err := d.msgs.Latest(gctx, room.ID, marker)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if deleted && last == nil {
				return nil // hidden: deleted and nothing newer
			}

			unread, err := d.msgs.CountUnread(gctx, room.ID, userID, marker)
			if err != nil {
				return err
			}

			summaries[i] = &models.RoomSummary{
				Room:        room,
				LastMessage: last,
				UnreadCount: unread,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := summaries[:0]
	for _, s := range summaries {
		if s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

// FindOrCreateDirect returns the direct room between the two users, creating
// it when absent. Lookup and create are serialized per pair so concurrent
// requests cannot produce duplicate rooms. Re-requesting an existing chat
// clears the requester's deletion marker.
func (d *Directory) FindOrCreateDirect(ctx context.Context, requesterID, otherID string) (*models.Room, bool, error) {
	if requesterID == otherID {
		return nil, false, fmt.Errorf("%w: cannot open a direct chat with yourself", ErrValidation)
	}

	a, b := requesterID, otherID
	if b < a {
		a, b = b, a
	}
	unlock := d.locks.lock("direct:" + a + ":" + b)
	defer unlock()

	room, err := d.rooms.FindDirectByMembers(ctx, a, b)
	if err == nil {
		if _, deleted := room.DeletedAt(requesterID); deleted {
			if err := d.rooms.ClearDeletion(ctx, room.ID, requesterID); err != nil {
				return nil, false, err
			}
			delete(room.DeletedFor, requesterID)
		}
		return room, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	room = &models.Room{
		ID:        newID(),
		IsGroup:   false,
		Members:   []string{a, b},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.rooms.Insert(ctx, room); err != nil {
		return nil, false, err
	}

	d.logger.Infow("direct room created", "room_id", room.ID)
	return room, true, nil
}

// CreateGroup creates a group room from the creator plus the given member
// ids, deduplicated. Fewer than 3 distinct members is a validation error;
// the direct-chat path covers pairs.
func (d *Directory) CreateGroup(ctx context.Context, creatorID string, memberIDs []string, name, avatarURL string) (*models.Room, error) {
	seen := map[string]bool{creatorID: true}
	members := []string{creatorID}
	for _, id := range memberIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}
	if len(members) < 3 {
		return nil, fmt.Errorf("%w: a group needs at least 3 distinct members", ErrValidation)
	}

	now := time.Now().UTC()
	room := &models.Room{
		ID:        newID(),
		Name:      name,
		IsGroup:   true,
		AvatarURL: avatarURL,
		Members:   members,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.rooms.Insert(ctx, room); err != nil {
		return nil, err
	}

	d.logger.Infow("group room created", "room_id", room.ID, "members", len(members))
	return room, nil
}

// MarkDeleted records userID's deletion marker. Once every member carries a
// marker the room and its messages are purged; marker-check and purge are
// serialized per room so two concurrent last-member deletes cannot race.
// Returns the room as it was before a purge, whether the delete was hard,
// and how many messages were purged.
func (d *Directory) MarkDeleted(ctx context.Context, roomID, userID string) (*models.Room, bool, int64, error) {
	unlock := d.locks.lock("room:" + roomID)
	defer unlock()

	room, err := d.rooms.Get(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, 0, ErrNotFound
	}
	if err != nil {
		return nil, false, 0, err
	}
	if !room.HasMember(userID) {
		return nil, false, 0, fmt.Errorf("%w: not a member of this room", ErrPermission)
	}

	updated, err := d.rooms.SetDeletion(ctx, roomID, userID, time.Now().UTC())
	if err != nil {
		return nil, false, 0, err
	}

	if len(updated.DeletedFor) < len(updated.Members) {
		return updated, false, 0, nil
	}

	purged, err := d.msgs.DeleteByRoom(ctx, roomID)
	if err != nil {
		return nil, false, 0, err
	}
	if err := d.rooms.Delete(ctx, roomID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, false, 0, err
	}

	d.logger.Infow("room hard-deleted", "room_id", roomID, "messages_purged", purged)
	return updated, true, purged, nil
}

// UpdateGroupAvatar stores a new avatar URL on a group room.
func (d *Directory) UpdateGroupAvatar(ctx context.Context, roomID, requesterID, url string) (*models.Room, error) {
	room, err := d.rooms.Get(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !room.HasMember(requesterID) {
		return nil, fmt.Errorf("%w: not a member of this room", ErrPermission)
	}
	if !room.IsGroup {
		return nil, fmt.Errorf("%w: direct chats have no avatar", ErrValidation)
	}

	now := time.Now().UTC()
	if err := d.rooms.SetAvatar(ctx, roomID, url, now); err != nil {
		return nil, err
	}
	room.AvatarURL = url
	room.UpdatedAt = now
	return room, nil
}
