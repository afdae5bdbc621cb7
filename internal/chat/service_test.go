package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendMessagePublishesToRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, _, err := env.svc.CreateOrJoinDirect(ctx, "u1", "u2")
	require.NoError(t, err)

	msg, err := env.svc.SendMessage(ctx, room.ID, "u1", "hello")
	require.NoError(t, err)

	events := env.pub.roomEvents()
	require.Len(t, events, 1)
	require.Equal(t, room.ID, events[0].Target)
	require.Equal(t, EventMessageNew, events[0].Event)

	payload, ok := events[0].Payload.(MessageEvent)
	require.True(t, ok)
	require.Equal(t, room.ID, payload.RoomID)
	require.Equal(t, msg.ID, payload.Message.ID)
}

func TestSendMessageRejectedNothingPublished(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, _, err := env.svc.CreateOrJoinDirect(ctx, "u1", "u2")
	require.NoError(t, err)

	_, err = env.svc.SendMessage(ctx, room.ID, "outsider", "hello")
	require.ErrorIs(t, err, ErrPermission)
	require.Empty(t, env.pub.roomEvents())

	_, err = env.svc.SendMessage(ctx, room.ID, "u1", "  ")
	require.ErrorIs(t, err, ErrValidation)
	require.Empty(t, env.pub.roomEvents())
}

func TestMarkReadPublishesOnlyWhenSomethingChanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, _, err := env.svc.CreateOrJoinDirect(ctx, "u1", "u2")
	require.NoError(t, err)

	// Nothing unread yet, so no event.
	ids, err := env.svc.MarkRead(ctx, room.ID, "u2")
	require.NoError(t, err)
	require.Empty(t, ids)
	require.Empty(t, env.pub.roomEvents())

	msg, err := env.svc.SendMessage(ctx, room.ID, "u1", "hi")
	require.NoError(t, err)

	ids, err = env.svc.MarkRead(ctx, room.ID, "u2")
	require.NoError(t, err)
	require.Equal(t, []string{msg.ID}, ids)

	events := env.pub.roomEvents()
	require.Len(t, events, 2) // message:new then messages:read
	require.Equal(t, EventMessagesRead, events[1].Event)

	payload, ok := events[1].Payload.(ReadEvent)
	require.True(t, ok)
	require.Equal(t, "u2", payload.ReaderID)
	require.Equal(t, []string{msg.ID}, payload.MessageIDs)

	_, err = env.svc.MarkRead(ctx, room.ID, "outsider")
	require.ErrorIs(t, err, ErrPermission)
}

func TestCreateOrJoinDirectNotifiesMembersOnceOnCreation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, created, err := env.svc.CreateOrJoinDirect(ctx, "u1", "u2")
	require.NoError(t, err)
	require.True(t, created)

	events := env.pub.userEvents()
	require.Len(t, events, 2)
	notified := map[string]bool{}
	for _, ev := range events {
		require.Equal(t, EventRoomCreated, ev.Event)
		payload, ok := ev.Payload.(RoomEvent)
		require.True(t, ok)
		require.Equal(t, room.ID, payload.Room.ID)
		notified[ev.Target] = true
	}
	require.True(t, notified["u1"])
	require.True(t, notified["u2"])

	// Finding the existing room announces nothing.
	_, created, err = env.svc.CreateOrJoinDirect(ctx, "u2", "u1")
	require.NoError(t, err)
	require.False(t, created)
	require.Len(t, env.pub.userEvents(), 2)
}

func TestCreateGroupWithAvatar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	avatar := &Avatar{Data: []byte{0xff, 0xd8}, ContentType: "image/jpeg"}
	room, err := env.svc.CreateGroup(ctx, "u1", []string{"u2", "u3"}, "weekend", avatar)
	require.NoError(t, err)
	require.True(t, room.IsGroup)
	require.NotEmpty(t, room.AvatarURL)
	require.Equal(t, env.avatars.uploads[0], room.AvatarURL)
	require.Len(t, env.pub.userEvents(), 3)
}

func TestCreateGroupAvatarUploadFailureDegrades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.avatars.failUpload = true

	room, err := env.svc.CreateGroup(ctx, "u1", []string{"u2", "u3"}, "weekend",
		&Avatar{Data: []byte{1}, ContentType: "image/png"})
	require.NoError(t, err)
	require.Empty(t, room.AvatarURL)
	require.Len(t, env.pub.userEvents(), 3)
}

func TestCreateGroupWithoutBlobStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc = NewService(env.svc.logger, env.dir, env.msgs, env.pub, nil)

	room, err := env.svc.CreateGroup(ctx, "u1", []string{"u2", "u3"}, "weekend",
		&Avatar{Data: []byte{1}, ContentType: "image/png"})
	require.NoError(t, err)
	require.Empty(t, room.AvatarURL)
}

func TestDeleteForUserSoftNotifiesRequesterOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, _, err := env.svc.CreateOrJoinDirect(ctx, "u1", "u2")
	require.NoError(t, err)
	env.pub.user = nil

	res, err := env.svc.DeleteForUser(ctx, room.ID, "u1")
	require.NoError(t, err)
	require.False(t, res.HardDeleted)

	events := env.pub.userEvents()
	require.Len(t, events, 1)
	require.Equal(t, "u1", events[0].Target)
	require.Equal(t, EventRoomDeleted, events[0].Event)
}

func TestDeleteForUserHardCleansUpAvatar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, err := env.svc.CreateGroup(ctx, "u1", []string{"u2", "u3"}, "ephemeral",
		&Avatar{Data: []byte{1}, ContentType: "image/png"})
	require.NoError(t, err)
	_, err = env.svc.SendMessage(ctx, room.ID, "u1", "bye")
	require.NoError(t, err)
	env.pub.user = nil

	for _, member := range []string{"u1", "u2"} {
		res, err := env.svc.DeleteForUser(ctx, room.ID, member)
		require.NoError(t, err)
		require.False(t, res.HardDeleted)
	}

	res, err := env.svc.DeleteForUser(ctx, room.ID, "u3")
	require.NoError(t, err)
	require.True(t, res.HardDeleted)
	require.EqualValues(t, 1, res.PurgedCount)
	require.Equal(t, []string{room.AvatarURL}, env.avatars.deletes)

	// Hard deletes carry no event; the two soft ones did.
	require.Len(t, env.pub.userEvents(), 2)
}

func TestUpdateGroupAvatarReplacesAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, err := env.svc.CreateGroup(ctx, "u1", []string{"u2", "u3"}, "pics",
		&Avatar{Data: []byte{1}, ContentType: "image/png"})
	require.NoError(t, err)
	oldURL := room.AvatarURL
	env.pub.user = nil

	updated, err := env.svc.UpdateGroupAvatar(ctx, room.ID, "u2", Avatar{Data: []byte{2}, ContentType: "image/png"})
	require.NoError(t, err)
	require.NotEqual(t, oldURL, updated.AvatarURL)
	require.Equal(t, []string{oldURL}, env.avatars.deletes)

	events := env.pub.userEvents()
	require.Len(t, events, 3)
	for _, ev := range events {
		require.Equal(t, EventRoomUpdated, ev.Event)
	}
}

func TestUpdateGroupAvatarRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group, err := env.svc.CreateGroup(ctx, "u1", []string{"u2", "u3"}, "pics", nil)
	require.NoError(t, err)
	direct, _, err := env.svc.CreateOrJoinDirect(ctx, "u1", "u2")
	require.NoError(t, err)

	_, err = env.svc.UpdateGroupAvatar(ctx, group.ID, "outsider", Avatar{Data: []byte{1}})
	require.ErrorIs(t, err, ErrPermission)

	_, err = env.svc.UpdateGroupAvatar(ctx, direct.ID, "u1", Avatar{Data: []byte{1}})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateGroupAvatarUploadFailureKeepsRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, err := env.svc.CreateGroup(ctx, "u1", []string{"u2", "u3"}, "pics",
		&Avatar{Data: []byte{1}, ContentType: "image/png"})
	require.NoError(t, err)
	env.avatars.failUpload = true
	env.pub.user = nil

	got, err := env.svc.UpdateGroupAvatar(ctx, room.ID, "u1", Avatar{Data: []byte{2}, ContentType: "image/png"})
	require.NoError(t, err)
	require.Equal(t, room.AvatarURL, got.AvatarURL)
	require.Empty(t, env.pub.userEvents())
}
