package websocket

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const presenceShardCount = 32

// Presence is the process-wide registry of live connections, keyed by user.
// Policy is single active session per user: registering a second connection
// evicts the first with an explicit session:superseded event.
//
// The registry is sharded so unrelated users never contend on one lock.
type Presence struct {
	shards [presenceShardCount]presenceShard
	log    zerolog.Logger
}

type presenceShard struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
}

func NewPresence(log zerolog.Logger) *Presence {
	p := &Presence{log: log.With().Str("component", "presence").Logger()}
	for i := range p.shards {
		p.shards[i].clients = make(map[uuid.UUID]*Client)
	}
	return p
}

func (p *Presence) shardFor(userID uuid.UUID) *presenceShard {
	// uuid bytes are uniformly distributed; the first byte is shard enough.
	return &p.shards[int(userID[0])%presenceShardCount]
}

// Register records c as the live connection for its user. Any prior
// connection for the same user is told it was superseded and closed.
// All other live connections receive a user:online advisory.
func (p *Presence) Register(c *Client) {
	shard := p.shardFor(c.UserID)
	shard.mu.Lock()
	old := shard.clients[c.UserID]
	shard.clients[c.UserID] = c
	shard.mu.Unlock()

	if old != nil && old.ID != c.ID {
		old.Enqueue(NewEvent(EventSuperseded, struct{}{}))
		old.Close()
		p.log.Info().
			Str("user_id", c.UserID.String()).
			Msg("evicted superseded connection")
	}

	p.log.Debug().Str("user_id", c.UserID.String()).Msg("connection registered")
	p.broadcast(NewEvent(EventUserOnline, PresencePayload{UserID: c.UserID}), c)
}

// Unregister removes c's entry only if it is still the current one, so a
// stale connection's teardown cannot clobber a newer registration.
// Other connections receive a user:offline advisory when the entry is
// actually removed.
func (p *Presence) Unregister(c *Client) {
	shard := p.shardFor(c.UserID)
	shard.mu.Lock()
	current, ok := shard.clients[c.UserID]
	if !ok || current.ID != c.ID {
		shard.mu.Unlock()
		return
	}
	delete(shard.clients, c.UserID)
	shard.mu.Unlock()

	p.log.Debug().Str("user_id", c.UserID.String()).Msg("connection unregistered")
	p.broadcast(NewEvent(EventUserOffline, PresencePayload{UserID: c.UserID}), c)
}

// Lookup returns the live connection for userID, if any.
func (p *Presence) Lookup(userID uuid.UUID) (*Client, bool) {
	shard := p.shardFor(userID)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	c, ok := shard.clients[userID]
	return c, ok
}

// Snapshot returns the set of currently online users.
func (p *Presence) Snapshot() []uuid.UUID {
	var out []uuid.UUID
	for i := range p.shards {
		shard := &p.shards[i]
		shard.mu.RLock()
		for id := range shard.clients {
			out = append(out, id)
		}
		shard.mu.RUnlock()
	}
	return out
}

// broadcast enqueues ev to every live connection except the origin. The
// client list is snapshotted per shard so no lock is held while delivering.
func (p *Presence) broadcast(ev Event, except *Client) {
	for i := range p.shards {
		shard := &p.shards[i]
		shard.mu.RLock()
		targets := make([]*Client, 0, len(shard.clients))
		for _, c := range shard.clients {
			if except == nil || c.ID != except.ID {
				targets = append(targets, c)
			}
		}
		shard.mu.RUnlock()

		for _, c := range targets {
			c.Enqueue(ev)
		}
	}
}
