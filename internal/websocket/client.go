package websocket

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is the minimal surface of *websocket.Conn the registry needs; tests
// substitute a fake.
type Conn interface {
	Close() error
}

// Client represents one authenticated WebSocket connection.
type Client struct {
	ID     uuid.UUID // connection id, unique per socket
	UserID uuid.UUID
	Conn   Conn
	Send   chan Event
	Done   chan struct{}

	mu        sync.Mutex
	rooms     map[uuid.UUID]struct{}
	closeOnce sync.Once
}

// NewClient wraps an accepted connection. conn may be nil in tests.
func NewClient(userID uuid.UUID, conn Conn) *Client {
	return &Client{
		ID:     uuid.New(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan Event, 256),
		Done:   make(chan struct{}),
		rooms:  make(map[uuid.UUID]struct{}),
	}
}

// Enqueue delivers ev to the client's send queue without blocking. A full
// queue or a closed client drops the event; this relay never queues for slow
// or dead consumers.
func (c *Client) Enqueue(ev Event) bool {
	select {
	case <-c.Done:
		return false
	default:
	}
	select {
	case c.Send <- ev:
		return true
	default:
		return false
	}
}

// Close shuts the client down exactly once. The write pump drains Done and
// closes the underlying socket.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.Done)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// IsConnected reports whether the client has not been closed.
func (c *Client) IsConnected() bool {
	select {
	case <-c.Done:
		return false
	default:
		return true
	}
}

func (c *Client) trackRoom(roomID uuid.UUID) {
	c.mu.Lock()
	c.rooms[roomID] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) forgetRoom(roomID uuid.UUID) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
}

// Rooms returns the rooms this connection is currently subscribed to.
func (c *Client) Rooms() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uuid.UUID, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	return out
}

var _ Conn = (*websocket.Conn)(nil)
