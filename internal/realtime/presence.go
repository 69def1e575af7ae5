package realtime

import (
	"sort"
	"sync"
)

// PresenceRegistry maps each authenticated user id to their single
// active connection. A fresh connection for the same user overwrites
// the old entry (last connection wins); removal is conditional on the
// handle so a stale disconnect cannot evict a newer session.
//
// One instance is constructed per process and injected into the
// gateway.
type PresenceRegistry struct {
	mu     sync.RWMutex
	byUser map[string]*Client
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{byUser: make(map[string]*Client)}
}

// Connect registers the connection as the user's current one,
// returning the handle it displaced, if any.
func (p *PresenceRegistry) Connect(userID string, client *Client) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	previous := p.byUser[userID]
	p.byUser[userID] = client
	if previous == client {
		return nil
	}
	return previous
}

// Disconnect removes the user's entry only when it still points at the
// disconnecting client. Reports whether an entry was removed.
func (p *PresenceRegistry) Disconnect(userID string, client *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	current, ok := p.byUser[userID]
	if !ok || current != client {
		return false
	}
	delete(p.byUser, userID)
	return true
}

// ClientFor returns the user's live connection, if any.
func (p *PresenceRegistry) ClientFor(userID string) (*Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	client, ok := p.byUser[userID]
	return client, ok
}

// OnlineUserIDs returns the sorted set of user ids with an open
// connection.
func (p *PresenceRegistry) OnlineUserIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.byUser))
	for id := range p.byUser {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clients snapshots every live connection, for global fan-outs.
func (p *PresenceRegistry) Clients() []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Client, 0, len(p.byUser))
	for _, client := range p.byUser {
		out = append(out, client)
	}
	return out
}
