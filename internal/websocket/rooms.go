package websocket

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RoomManager groups live connections into rooms keyed by room id. Membership
// is ephemeral socket subscription, independent of the durable attendance
// record; authorization happens before Join is called (see
// ConsultationService.JoinRoom).
//
// Each room carries its own lock so activity in one room never serializes
// another.
type RoomManager struct {
	mu    sync.RWMutex // guards the room table, not room membership
	rooms map[uuid.UUID]*room
	log   zerolog.Logger
}

type room struct {
	id      uuid.UUID
	mu      sync.RWMutex
	members map[uuid.UUID]*Client
}

func NewRoomManager(log zerolog.Logger) *RoomManager {
	return &RoomManager{
		rooms: make(map[uuid.UUID]*room),
		log:   log.With().Str("component", "rooms").Logger(),
	}
}

func (m *RoomManager) get(roomID uuid.UUID, create bool) *room {
	m.mu.RLock()
	r := m.rooms[roomID]
	m.mu.RUnlock()
	if r != nil || !create {
		return r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r = m.rooms[roomID]; r == nil {
		r = &room{id: roomID, members: make(map[uuid.UUID]*Client)}
		m.rooms[roomID] = r
	}
	return r
}

// Join subscribes c to the room and announces it to the other members. A
// previous connection of the same user in the room is displaced.
func (m *RoomManager) Join(roomID uuid.UUID, c *Client) {
	r := m.get(roomID, true)

	r.mu.Lock()
	r.members[c.UserID] = c
	r.mu.Unlock()

	c.trackRoom(roomID)
	m.log.Debug().
		Str("room_id", roomID.String()).
		Str("user_id", c.UserID.String()).
		Msg("user joined room")

	m.Broadcast(roomID, NewEvent(EventRoomUserJoined, RoomUserPayload{UserID: c.UserID}), c.UserID)
}

// Leave removes c from the room and announces it. Leaving a room the client
// is not in is a no-op. Empty rooms are dropped from the table.
func (m *RoomManager) Leave(roomID uuid.UUID, c *Client) {
	r := m.get(roomID, false)
	if r == nil {
		return
	}

	r.mu.Lock()
	current, ok := r.members[c.UserID]
	if !ok || current.ID != c.ID {
		r.mu.Unlock()
		return
	}
	delete(r.members, c.UserID)
	empty := len(r.members) == 0
	r.mu.Unlock()

	c.forgetRoom(roomID)

	if empty {
		m.mu.Lock()
		if cur := m.rooms[roomID]; cur == r {
			r.mu.RLock()
			if len(r.members) == 0 {
				delete(m.rooms, roomID)
			}
			r.mu.RUnlock()
		}
		m.mu.Unlock()
	}

	m.log.Debug().
		Str("room_id", roomID.String()).
		Str("user_id", c.UserID.String()).
		Msg("user left room")

	m.Broadcast(roomID, NewEvent(EventRoomUserLeft, RoomUserPayload{UserID: c.UserID}), c.UserID)
}

// LeaveAll removes c from every room it subscribed to. Called on disconnect;
// this is the implicit-leave guarantee for abrupt closes.
func (m *RoomManager) LeaveAll(c *Client) {
	for _, roomID := range c.Rooms() {
		m.Leave(roomID, c)
	}
}

// Close tears the room down: every member receives ev, loses its
// subscription, and the room is dropped from the table. After Close the
// relay refuses traffic for the room since nobody is a member anymore.
func (m *RoomManager) Close(roomID uuid.UUID, ev Event) {
	m.mu.Lock()
	r := m.rooms[roomID]
	delete(m.rooms, roomID)
	m.mu.Unlock()
	if r == nil {
		return
	}

	r.mu.Lock()
	members := make([]*Client, 0, len(r.members))
	for _, c := range r.members {
		members = append(members, c)
	}
	r.members = make(map[uuid.UUID]*Client)
	r.mu.Unlock()

	for _, c := range members {
		c.forgetRoom(roomID)
		c.Enqueue(ev)
	}

	m.log.Debug().Str("room_id", roomID.String()).Msg("room closed")
}

// Broadcast delivers ev to every currently connected member except exclude
// (uuid.Nil excludes no one). Delivery is best-effort against the membership
// snapshot taken here; absent users are silently skipped.
func (m *RoomManager) Broadcast(roomID uuid.UUID, ev Event, exclude uuid.UUID) {
	r := m.get(roomID, false)
	if r == nil {
		return
	}

	r.mu.RLock()
	targets := make([]*Client, 0, len(r.members))
	for id, c := range r.members {
		if exclude != uuid.Nil && id == exclude {
			continue
		}
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	for _, c := range targets {
		c.Enqueue(ev)
	}
}

// Members returns the users currently subscribed to the room.
func (m *RoomManager) Members(roomID uuid.UUID) []uuid.UUID {
	r := m.get(roomID, false)
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	return out
}

// IsMember reports whether userID is subscribed to the room.
func (m *RoomManager) IsMember(roomID, userID uuid.UUID) bool {
	r := m.get(roomID, false)
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[userID]
	return ok
}
