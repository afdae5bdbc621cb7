package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ryabink/chatline/internal/models"
	"github.com/ryabink/chatline/internal/store"
)

func cloneRoom(r *models.Room) *models.Room {
	cp := *r
	cp.Members = append([]string(nil), r.Members...)
	if r.DeletedFor != nil {
		cp.DeletedFor = make(map[string]time.Time, len(r.DeletedFor))
		for k, v := range r.DeletedFor {
			cp.DeletedFor[k] = v
		}
	}
	return &cp
}

func (r *Rooms) Insert(_ context.Context, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.ID]; ok {
		return store.ErrDuplicate
	}
	r.rooms[room.ID] = cloneRoom(room)
	return nil
}

func (r *Rooms) Get(_ context.Context, roomID string) (*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneRoom(room), nil
}

func (r *Rooms) FindDirectByMembers(_ context.Context, a, b string) (*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, room := range r.rooms {
		if room.IsGroup || len(room.Members) != 2 {
			continue
		}
		if room.HasMember(a) && room.HasMember(b) {
			return cloneRoom(room), nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *Rooms) ListByMember(_ context.Context, userID string) ([]*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Room
	for _, room := range r.rooms {
		if room.HasMember(userID) {
			out = append(out, cloneRoom(room))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *Rooms) SetDeletion(_ context.Context, roomID, userID string, at time.Time) (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if room.DeletedFor == nil {
		room.DeletedFor = make(map[string]time.Time)
	}
	room.DeletedFor[userID] = at
	return cloneRoom(room), nil
}

func (r *Rooms) ClearDeletion(_ context.Context, roomID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[roomID]; ok {
		delete(room.DeletedFor, userID)
	}
	return nil
}

func (r *Rooms) Touch(_ context.Context, roomID, senderID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[roomID]; ok {
		room.UpdatedAt = at
		delete(room.DeletedFor, senderID)
	}
	return nil
}

func (r *Rooms) SetAvatar(_ context.Context, roomID, url string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return store.ErrNotFound
	}
	room.AvatarURL = url
	room.UpdatedAt = at
	return nil
}

func (r *Rooms) Delete(_ context.Context, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomID]; !ok {
		return store.ErrNotFound
	}
	delete(r.rooms, roomID)
	return nil
}
