package websocket

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	closed int
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeConn) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func drainEvents(c *Client) []Event {
	var out []Event
	for len(c.Send) > 0 {
		out = append(out, <-c.Send)
	}
	return out
}

func TestPresenceRegisterAndLookup(t *testing.T) {
	p := NewPresence(zerolog.Nop())
	c := NewClient(uuid.New(), &fakeConn{})

	_, ok := p.Lookup(c.UserID)
	assert.False(t, ok)

	p.Register(c)
	got, ok := p.Lookup(c.UserID)
	require.True(t, ok)
	assert.Same(t, c, got)
}

func TestPresenceSecondConnectionSupersedesFirst(t *testing.T) {
	p := NewPresence(zerolog.Nop())
	userID := uuid.New()
	oldConn := &fakeConn{}
	old := NewClient(userID, oldConn)
	p.Register(old)

	replacement := NewClient(userID, &fakeConn{})
	p.Register(replacement)

	got, ok := p.Lookup(userID)
	require.True(t, ok)
	assert.Same(t, replacement, got)

	assert.False(t, old.IsConnected())
	assert.Equal(t, 1, oldConn.closeCount())

	evs := drainEvents(old)
	require.NotEmpty(t, evs)
	var sawSuperseded bool
	for _, ev := range evs {
		if ev.Type == EventSuperseded {
			sawSuperseded = true
		}
	}
	assert.True(t, sawSuperseded, "evicted connection must learn it was superseded")
}

func TestPresenceUnregisterIgnoresStaleConnection(t *testing.T) {
	p := NewPresence(zerolog.Nop())
	userID := uuid.New()
	old := NewClient(userID, &fakeConn{})
	p.Register(old)
	replacement := NewClient(userID, &fakeConn{})
	p.Register(replacement)

	// The evicted connection's teardown runs after the replacement
	// registered; it must not remove the newer entry.
	p.Unregister(old)

	got, ok := p.Lookup(userID)
	require.True(t, ok)
	assert.Same(t, replacement, got)
}

func TestPresenceOnlineOfflineAdvisories(t *testing.T) {
	p := NewPresence(zerolog.Nop())
	watcher := NewClient(uuid.New(), &fakeConn{})
	p.Register(watcher)
	drainEvents(watcher)

	other := NewClient(uuid.New(), &fakeConn{})
	p.Register(other)
	evs := drainEvents(watcher)
	require.Len(t, evs, 1)
	assert.Equal(t, EventUserOnline, evs[0].Type)
	assert.Empty(t, drainEvents(other), "a client never hears about itself")

	p.Unregister(other)
	evs = drainEvents(watcher)
	require.Len(t, evs, 1)
	assert.Equal(t, EventUserOffline, evs[0].Type)
}

func TestPresenceSnapshot(t *testing.T) {
	p := NewPresence(zerolog.Nop())
	a := NewClient(uuid.New(), &fakeConn{})
	b := NewClient(uuid.New(), &fakeConn{})
	p.Register(a)
	p.Register(b)

	online := p.Snapshot()
	assert.ElementsMatch(t, []uuid.UUID{a.UserID, b.UserID}, online)

	p.Unregister(a)
	assert.ElementsMatch(t, []uuid.UUID{b.UserID}, p.Snapshot())
}

func TestPresenceConcurrentRegisterUnregister(t *testing.T) {
	p := NewPresence(zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := NewClient(uuid.New(), &fakeConn{})
			p.Register(c)
			p.Unregister(c)
		}()
	}
	wg.Wait()
	assert.Empty(t, p.Snapshot())
}
