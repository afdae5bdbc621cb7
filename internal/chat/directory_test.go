package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFindOrCreateDirect(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	room, created, err := env.dir.FindOrCreateDirect(ctx, "u1", "u2")
	require.NoError(t, err)
	require.True(t, created)
	require.False(t, room.IsGroup)
	require.Len(t, room.Members, 2)
	require.True(t, room.HasMember("u1"))
	require.True(t, room.HasMember("u2"))

	// Same pair from either side returns the same room.
	again, created, err := env.dir.FindOrCreateDirect(ctx, "u2", "u1")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, room.ID, again.ID)
}

func TestFindOrCreateDirectWithSelf(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	_, _, err := env.dir.FindOrCreateDirect(context.Background(), "u1", "u1")
	require.ErrorIs(t, err, ErrValidation)
}

func TestFindOrCreateDirectConcurrent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	const callers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = make(map[string]bool)
		creates int
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			room, created, err := env.dir.FindOrCreateDirect(ctx, "u1", "u2")
			require.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			ids[room.ID] = true
			if created {
				creates++
			}
		}()
	}
	wg.Wait()

	require.Len(t, ids, 1, "concurrent requests must converge on one room")
	require.Equal(t, 1, creates, "exactly one caller creates the room")
}

func TestFindOrCreateDirectRestoresDeleted(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	room, _, err := env.dir.FindOrCreateDirect(ctx, "u1", "u2")
	require.NoError(t, err)

	_, hard, _, err := env.dir.MarkDeleted(ctx, room.ID, "u1")
	require.NoError(t, err)
	require.False(t, hard)

	// Hidden for u1 while nothing new happened.
	rooms, err := env.dir.ListRoomsFor(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, rooms)

	// Re-requesting the chat clears the marker.
	restored, created, err := env.dir.FindOrCreateDirect(ctx, "u1", "u2")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, room.ID, restored.ID)

	got, err := env.dir.Room(ctx, room.ID)
	require.NoError(t, err)
	_, deleted := got.DeletedAt("u1")
	require.False(t, deleted)
}

func TestCreateGroupValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	// Two distinct members is the direct-chat path, not a group.
	_, err := env.dir.CreateGroup(ctx, "u1", []string{"u2"}, "pair", "")
	require.ErrorIs(t, err, ErrValidation)

	// Duplicates collapse before the size check.
	_, err = env.dir.CreateGroup(ctx, "u1", []string{"u2", "u2", "u1"}, "dupes", "")
	require.ErrorIs(t, err, ErrValidation)

	room, err := env.dir.CreateGroup(ctx, "u1", []string{"u2", "u3", "u2"}, "friends", "")
	require.NoError(t, err)
	require.True(t, room.IsGroup)
	require.Equal(t, "friends", room.Name)
	require.ElementsMatch(t, []string{"u1", "u2", "u3"}, room.Members)
}

func TestMarkDeletedLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	room, _, err := env.dir.FindOrCreateDirect(ctx, "u1", "u2")
	require.NoError(t, err)

	_, err = env.msgs.Append(ctx, room.ID, "u1", "hello")
	require.NoError(t, err)
	_, err = env.msgs.Append(ctx, room.ID, "u2", "hi back")
	require.NoError(t, err)

	// Non-member cannot delete.
	_, _, _, err = env.dir.MarkDeleted(ctx, room.ID, "intruder")
	require.ErrorIs(t, err, ErrPermission)

	// First member: soft delete, room survives for the other.
	_, hard, purged, err := env.dir.MarkDeleted(ctx, room.ID, "u1")
	require.NoError(t, err)
	require.False(t, hard)
	require.Zero(t, purged)

	rooms, err := env.dir.ListRoomsFor(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, rooms, 1)

	// Second member: every member deleted, purge everything.
	_, hard, purged, err = env.dir.MarkDeleted(ctx, room.ID, "u2")
	require.NoError(t, err)
	require.True(t, hard)
	require.EqualValues(t, 2, purged)

	_, err = env.dir.Room(ctx, room.ID)
	require.ErrorIs(t, err, ErrNotFound)

	for _, userID := range []string{"u1", "u2"} {
		rooms, err := env.dir.ListRoomsFor(ctx, userID)
		require.NoError(t, err)
		require.Empty(t, rooms)
	}
}

func TestMarkDeletedConcurrentLastMembers(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	room, _, err := env.dir.FindOrCreateDirect(ctx, "u1", "u2")
	require.NoError(t, err)
	_, err = env.msgs.Append(ctx, room.ID, "u1", "about to vanish")
	require.NoError(t, err)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		hards int
	)
	for _, userID := range []string{"u1", "u2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, hard, _, err := env.dir.MarkDeleted(ctx, room.ID, userID)
			require.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			if hard {
				hards++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, hards, "exactly one delete is the hard one")
	_, err = env.dir.Room(ctx, room.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListRoomsForOrderAndCounts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	first, _, err := env.dir.FindOrCreateDirect(ctx, "u1", "u2")
	require.NoError(t, err)
	second, err := env.dir.CreateGroup(ctx, "u1", []string{"u2", "u3"}, "trio", "")
	require.NoError(t, err)

	_, err = env.msgs.Append(ctx, first.ID, "u2", "older")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = env.msgs.Append(ctx, second.ID, "u3", "newer")
	require.NoError(t, err)

	rooms, err := env.dir.ListRoomsFor(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	// Most recent activity first.
	require.Equal(t, second.ID, rooms[0].Room.ID)
	require.Equal(t, first.ID, rooms[1].Room.ID)

	require.Equal(t, "newer", rooms[0].LastMessage.Content)
	require.EqualValues(t, 1, rooms[0].UnreadCount)
	require.EqualValues(t, 1, rooms[1].UnreadCount)
}

func TestListRoomsForHiddenUntilNewMessage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	room, _, err := env.dir.FindOrCreateDirect(ctx, "u1", "u2")
	require.NoError(t, err)
	_, err = env.msgs.Append(ctx, room.ID, "u2", "before deletion")
	require.NoError(t, err)

	_, _, _, err = env.dir.MarkDeleted(ctx, room.ID, "u1")
	require.NoError(t, err)

	rooms, err := env.dir.ListRoomsFor(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, rooms)

	// A message after the marker restores the room in the listing, with the
	// preview and unread count scoped to post-marker history.
	time.Sleep(2 * time.Millisecond)
	_, err = env.msgs.Append(ctx, room.ID, "u2", "anyone there?")
	require.NoError(t, err)

	rooms, err = env.dir.ListRoomsFor(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, "anyone there?", rooms[0].LastMessage.Content)
	require.EqualValues(t, 1, rooms[0].UnreadCount)
}

func TestUpdateGroupAvatar(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	group, err := env.dir.CreateGroup(ctx, "u1", []string{"u2", "u3"}, "trio", "")
	require.NoError(t, err)
	direct, _, err := env.dir.FindOrCreateDirect(ctx, "u1", "u2")
	require.NoError(t, err)

	_, err = env.dir.UpdateGroupAvatar(ctx, group.ID, "intruder", "https://blobs.test/x")
	require.ErrorIs(t, err, ErrPermission)

	_, err = env.dir.UpdateGroupAvatar(ctx, direct.ID, "u1", "https://blobs.test/x")
	require.ErrorIs(t, err, ErrValidation)

	updated, err := env.dir.UpdateGroupAvatar(ctx, group.ID, "u1", "https://blobs.test/x")
	require.NoError(t, err)
	require.Equal(t, "https://blobs.test/x", updated.AvatarURL)
}

func TestIsMemberDoesNotLeakExistence(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	ok, err := env.dir.IsMember(ctx, "u1", "no-such-room")
	require.NoError(t, err)
	require.False(t, ok)

	room, _, err := env.dir.FindOrCreateDirect(ctx, "u1", "u2")
	require.NoError(t, err)

	ok, err = env.dir.IsMember(ctx, "u3", room.ID)
	require.NoError(t, err)
	require.False(t, ok)
}
