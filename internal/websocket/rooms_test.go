package websocket

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomJoinAnnouncesToOthers(t *testing.T) {
	m := NewRoomManager(zerolog.Nop())
	roomID := uuid.New()
	first := NewClient(uuid.New(), &fakeConn{})
	second := NewClient(uuid.New(), &fakeConn{})

	m.Join(roomID, first)
	assert.Empty(t, drainEvents(first), "nobody to announce to yet")

	m.Join(roomID, second)
	evs := drainEvents(first)
	require.Len(t, evs, 1)
	assert.Equal(t, EventRoomUserJoined, evs[0].Type)
	assert.Empty(t, drainEvents(second), "the joiner is excluded from its own announcement")

	assert.ElementsMatch(t, []uuid.UUID{first.UserID, second.UserID}, m.Members(roomID))
}

func TestRoomLeave(t *testing.T) {
	m := NewRoomManager(zerolog.Nop())
	roomID := uuid.New()
	first := NewClient(uuid.New(), &fakeConn{})
	second := NewClient(uuid.New(), &fakeConn{})
	m.Join(roomID, first)
	m.Join(roomID, second)
	drainEvents(first)

	m.Leave(roomID, second)
	evs := drainEvents(first)
	require.Len(t, evs, 1)
	assert.Equal(t, EventRoomUserLeft, evs[0].Type)
	assert.False(t, m.IsMember(roomID, second.UserID))

	// Leaving again is a no-op.
	m.Leave(roomID, second)
	assert.Empty(t, drainEvents(first))
}

func TestRoomLeaveIgnoresDisplacedConnection(t *testing.T) {
	m := NewRoomManager(zerolog.Nop())
	roomID := uuid.New()
	userID := uuid.New()
	old := NewClient(userID, &fakeConn{})
	m.Join(roomID, old)

	replacement := NewClient(userID, &fakeConn{})
	m.Join(roomID, replacement)

	// The old socket's teardown must not evict the replacement.
	m.Leave(roomID, old)
	assert.True(t, m.IsMember(roomID, userID))
}

func TestRoomBroadcastScopeAndExclusion(t *testing.T) {
	m := NewRoomManager(zerolog.Nop())
	roomID := uuid.New()
	sender := NewClient(uuid.New(), &fakeConn{})
	member := NewClient(uuid.New(), &fakeConn{})
	outsider := NewClient(uuid.New(), &fakeConn{})
	m.Join(roomID, sender)
	m.Join(roomID, member)
	m.Join(uuid.New(), outsider)
	drainEvents(sender)
	drainEvents(member)

	m.Broadcast(roomID, NewEvent(EventChatNew, ChatNewPayload{Text: "hi"}), sender.UserID)

	evs := drainEvents(member)
	require.Len(t, evs, 1)
	assert.Equal(t, EventChatNew, evs[0].Type)
	assert.Empty(t, drainEvents(sender))
	assert.Empty(t, drainEvents(outsider))
}

func TestRoomBroadcastNilExcludesNobody(t *testing.T) {
	m := NewRoomManager(zerolog.Nop())
	roomID := uuid.New()
	a := NewClient(uuid.New(), &fakeConn{})
	b := NewClient(uuid.New(), &fakeConn{})
	m.Join(roomID, a)
	m.Join(roomID, b)
	drainEvents(a)
	drainEvents(b)

	m.Broadcast(roomID, NewEvent(EventChatNew, ChatNewPayload{Text: "hi"}), uuid.Nil)
	assert.Len(t, drainEvents(a), 1)
	assert.Len(t, drainEvents(b), 1)
}

func TestRoomEmptyRoomIsDropped(t *testing.T) {
	m := NewRoomManager(zerolog.Nop())
	roomID := uuid.New()
	c := NewClient(uuid.New(), &fakeConn{})
	m.Join(roomID, c)
	m.Leave(roomID, c)

	m.mu.RLock()
	defer m.mu.RUnlock()
	assert.Empty(t, m.rooms)
}

func TestRoomClose(t *testing.T) {
	m := NewRoomManager(zerolog.Nop())
	roomID := uuid.New()
	a := NewClient(uuid.New(), &fakeConn{})
	b := NewClient(uuid.New(), &fakeConn{})
	m.Join(roomID, a)
	m.Join(roomID, b)
	drainEvents(a)
	drainEvents(b)

	m.Close(roomID, NewEvent(EventRoomClosed, RoomClosedPayload{ConsultationID: roomID}))

	for _, c := range []*Client{a, b} {
		evs := drainEvents(c)
		require.Len(t, evs, 1)
		assert.Equal(t, EventRoomClosed, evs[0].Type)
		assert.False(t, m.IsMember(roomID, c.UserID))
		assert.Empty(t, c.Rooms())
	}
	assert.Empty(t, m.Members(roomID))

	// Closing an absent room is a no-op.
	m.Close(uuid.New(), NewEvent(EventRoomClosed, RoomClosedPayload{}))
}

func TestRoomLeaveAll(t *testing.T) {
	m := NewRoomManager(zerolog.Nop())
	roomA, roomB := uuid.New(), uuid.New()
	c := NewClient(uuid.New(), &fakeConn{})
	m.Join(roomA, c)
	m.Join(roomB, c)

	m.LeaveAll(c)
	assert.False(t, m.IsMember(roomA, c.UserID))
	assert.False(t, m.IsMember(roomB, c.UserID))
	assert.Empty(t, c.Rooms())
}

func TestClientEnqueueAfterClose(t *testing.T) {
	c := NewClient(uuid.New(), &fakeConn{})
	assert.True(t, c.Enqueue(NewEvent(EventPong, struct{}{})))

	c.Close()
	assert.False(t, c.Enqueue(NewEvent(EventPong, struct{}{})))
	assert.False(t, c.IsConnected())

	// Double close is safe.
	c.Close()
}

func TestClientEnqueueDropsWhenFull(t *testing.T) {
	c := NewClient(uuid.New(), &fakeConn{})
	ev := NewEvent(EventPong, struct{}{})
	for i := 0; i < cap(c.Send); i++ {
		require.True(t, c.Enqueue(ev))
	}
	assert.False(t, c.Enqueue(ev), "a full queue drops rather than blocks")
}
