package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ryabink/chatline/internal/models"
	"github.com/ryabink/chatline/internal/store"
)

func cloneMessage(m *models.Message) *models.Message {
	cp := *m
	return &cp
}

// newestFirst orders by created_at descending, id descending on ties.
func newestFirst(msgs []*models.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
		}
		return msgs[i].ID > msgs[j].ID
	})
}

func (m *Messages) Insert(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byRoom[msg.RoomID] = append(m.byRoom[msg.RoomID], cloneMessage(msg))
	return nil
}

func (m *Messages) List(_ context.Context, roomID string, f store.MessageFilter) ([]*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Message
	for _, msg := range m.byRoom[roomID] {
		if !f.Before.IsZero() && !msg.CreatedAt.Before(f.Before) {
			continue
		}
		if !f.After.IsZero() && !msg.CreatedAt.After(f.After) {
			continue
		}
		out = append(out, cloneMessage(msg))
	}
	newestFirst(out)
	if f.Limit > 0 && int64(len(out)) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Messages) Latest(_ context.Context, roomID string, after time.Time) (*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *models.Message
	for _, msg := range m.byRoom[roomID] {
		if !after.IsZero() && !msg.CreatedAt.After(after) {
			continue
		}
		if latest == nil || msg.CreatedAt.After(latest.CreatedAt) ||
			(msg.CreatedAt.Equal(latest.CreatedAt) && msg.ID > latest.ID) {
			latest = msg
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return cloneMessage(latest), nil
}

func (m *Messages) CountUnread(_ context.Context, roomID, viewerID string, after time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, msg := range m.byRoom[roomID] {
		if msg.SenderID == viewerID || msg.IsRead {
			continue
		}
		if !after.IsZero() && !msg.CreatedAt.After(after) {
			continue
		}
		n++
	}
	return n, nil
}

func (m *Messages) MarkRead(_ context.Context, roomID, readerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for _, msg := range m.byRoom[roomID] {
		if msg.SenderID == readerID || msg.IsRead {
			continue
		}
		msg.IsRead = true
		ids = append(ids, msg.ID)
	}
	return ids, nil
}

func (m *Messages) DeleteByRoom(_ context.Context, roomID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := int64(len(m.byRoom[roomID]))
	delete(m.byRoom, roomID)
	return n, nil
}
