package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ryabink/chatline/internal/store/memory"
)

// publishedEvent records one fan-out call for assertions.
type publishedEvent struct {
	Target  string
	Event   string
	Payload any
}

type capturePublisher struct {
	mu   sync.Mutex
	room []publishedEvent
	user []publishedEvent
}

func (p *capturePublisher) PublishToRoom(roomID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.room = append(p.room, publishedEvent{Target: roomID, Event: event, Payload: payload})
}

func (p *capturePublisher) PublishToUser(userID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.user = append(p.user, publishedEvent{Target: userID, Event: event, Payload: payload})
}

func (p *capturePublisher) roomEvents() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.room...)
}

func (p *capturePublisher) userEvents() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.user...)
}

type fakeAvatarStore struct {
	mu         sync.Mutex
	failUpload bool
	uploads    []string
	deletes    []string
}

func (f *fakeAvatarStore) Upload(_ context.Context, key, _ string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpload {
		return "", errors.New("upload refused")
	}
	url := "https://blobs.test/" + key
	f.uploads = append(f.uploads, url)
	return url, nil
}

func (f *fakeAvatarStore) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, url)
	return nil
}

type testEnv struct {
	store   *memory.Store
	dir     *Directory
	msgs    *Messages
	svc     *Service
	pub     *capturePublisher
	avatars *fakeAvatarStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	st := memory.New()
	dir := NewDirectory(logger.Sugar(), st.Rooms, st.Messages)
	msgs := NewMessages(logger.Sugar(), st.Rooms, st.Messages, dir)
	pub := &capturePublisher{}
	avatars := &fakeAvatarStore{}
	svc := NewService(logger.Sugar(), dir, msgs, pub, avatars)

	return &testEnv{store: st, dir: dir, msgs: msgs, svc: svc, pub: pub, avatars: avatars}
}
