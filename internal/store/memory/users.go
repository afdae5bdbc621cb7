package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ryabink/chatline/internal/models"
	"github.com/ryabink/chatline/internal/store"
)

func cloneUser(u *models.User) *models.User {
	cp := *u
	return &cp
}

func (u *Users) Insert(_ context.Context, user *models.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, existing := range u.users {
		if existing.Username == user.Username {
			return store.ErrDuplicate
		}
	}
	u.users[user.ID] = cloneUser(user)
	return nil
}

func (u *Users) Get(_ context.Context, userID string) (*models.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	user, ok := u.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneUser(user), nil
}

func (u *Users) FindByUsername(_ context.Context, username string) (*models.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	for _, user := range u.users {
		if user.Username == username {
			return cloneUser(user), nil
		}
	}
	return nil, store.ErrNotFound
}

func (u *Users) Search(_ context.Context, requesterID, query string, limit int64) ([]*models.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	q := strings.ToLower(query)
	var out []*models.User
	for _, user := range u.users {
		if user.ID == requesterID {
			continue
		}
		if strings.Contains(strings.ToLower(user.Username), q) {
			out = append(out, cloneUser(user))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (u *Users) UpdateLastSeen(_ context.Context, userID string, at time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if user, ok := u.users[userID]; ok {
		user.LastSeen = at
	}
	return nil
}
