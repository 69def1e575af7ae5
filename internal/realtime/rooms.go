package realtime

import (
	"sync"

	domainchat "paperhub/internal/domain/chat"
)

// RoomRegistry tracks which connections joined which conversation
// room. Room ids are conversation ids; membership is per connection,
// not per user, and carries no server-side cap.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[domainchat.ConversationID]map[string]*Client
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[domainchat.ConversationID]map[string]*Client)}
}

func (r *RoomRegistry) Join(id domainchat.ConversationID, client *Client) {
	if client == nil || client.SessionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	room := r.rooms[id]
	if room == nil {
		room = make(map[string]*Client)
		r.rooms[id] = room
	}
	room[client.SessionID] = client
}

func (r *RoomRegistry) Leave(id domainchat.ConversationID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(r.rooms, id)
	}
}

// LeaveAll removes the session from every room and returns the ids of
// the rooms it was in, so the caller can send leave notices.
func (r *RoomRegistry) LeaveAll(sessionID string) []domainchat.ConversationID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var left []domainchat.ConversationID
	for id, room := range r.rooms {
		if _, ok := room[sessionID]; !ok {
			continue
		}
		delete(room, sessionID)
		left = append(left, id)
		if len(room) == 0 {
			delete(r.rooms, id)
		}
	}
	return left
}

// Contains reports whether the session is currently in the room.
func (r *RoomRegistry) Contains(id domainchat.ConversationID, sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[id][sessionID]
	return ok
}

// Broadcast fans an envelope out to every room member. A non-empty
// excludeSession skips that connection (used for join/typing notices).
// Delivery is non-blocking per member.
func (r *RoomRegistry) Broadcast(id domainchat.ConversationID, env Envelope, excludeSession string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for sessionID, member := range r.rooms[id] {
		if excludeSession != "" && sessionID == excludeSession {
			continue
		}
		member.Enqueue(env)
	}
}
