package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainchat "paperhub/internal/domain/chat"
)

// MessageStore keeps chat messages in memory. Used by tests and as the
// dev fallback when Mongo is not configured.
type MessageStore struct {
	mu   sync.RWMutex
	byID map[string]*domainchat.Message
	// insertion order per conversation, oldest first
	byConversation map[domainchat.ConversationID][]string
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		byID:           make(map[string]*domainchat.Message),
		byConversation: make(map[domainchat.ConversationID][]string),
	}
}

func (s *MessageStore) Create(ctx context.Context, msg *domainchat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cloneMessage(msg)
	if stored.SentAt.IsZero() {
		stored.SentAt = time.Now().UTC()
	}
	s.byID[stored.ID] = stored
	s.byConversation[stored.ConversationID] = append(s.byConversation[stored.ConversationID], stored.ID)
	msg.SentAt = stored.SentAt
	return nil
}

func (s *MessageStore) ListByConversation(ctx context.Context, id domainchat.ConversationID, limit, offset int) ([]domainchat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byConversation[id]
	// newest first
	out := make([]domainchat.Message, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if msg, ok := s.byID[ids[i]]; ok {
			out = append(out, *cloneMessage(msg))
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MessageStore) MarkRead(ctx context.Context, id domainchat.ConversationID, recipientID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for _, msgID := range s.byConversation[id] {
		msg, ok := s.byID[msgID]
		if !ok {
			continue
		}
		if msg.RecipientID == recipientID && !msg.Read {
			msg.Read = true
			updated++
		}
	}
	return updated, nil
}

func (s *MessageStore) CountByConversation(ctx context.Context, id domainchat.ConversationID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byConversation[id])), nil
}

func (s *MessageStore) CountUnreadForUser(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, msg := range s.byID {
		if msg.RecipientID == userID && !msg.Read {
			total++
		}
	}
	return total, nil
}

func (s *MessageStore) ByID(ctx context.Context, messageID string) (*domainchat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.byID[messageID]
	if !ok {
		return nil, domainchat.ErrMessageNotFound
	}
	return cloneMessage(msg), nil
}

func (s *MessageStore) DeleteByID(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.byID[messageID]
	if !ok {
		return domainchat.ErrMessageNotFound
	}
	delete(s.byID, messageID)
	ids := s.byConversation[msg.ConversationID]
	for i, id := range ids {
		if id == messageID {
			s.byConversation[msg.ConversationID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MessageStore) DeleteAllByConversation(ctx context.Context, id domainchat.ConversationID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.byConversation[id]
	for _, msgID := range ids {
		delete(s.byID, msgID)
	}
	delete(s.byConversation, id)
	return int64(len(ids)), nil
}

func cloneMessage(m *domainchat.Message) *domainchat.Message {
	if m == nil {
		return nil
	}
	copied := *m
	if m.ReplyTo != nil {
		ref := *m.ReplyTo
		copied.ReplyTo = &ref
	}
	return &copied
}

// ConversationStore keeps conversation summaries in memory. UpsertOnSend
// is serialized under the store mutex and deduplicated on the
// last-message id, mirroring the atomicity contract of the Mongo
// implementation.
type ConversationStore struct {
	mu    sync.RWMutex
	byID  map[domainchat.ConversationID]*domainchat.Conversation
	seen  map[domainchat.ConversationID]map[string]struct{}
	clock func() time.Time
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		byID:  make(map[domainchat.ConversationID]*domainchat.Conversation),
		seen:  make(map[domainchat.ConversationID]map[string]struct{}),
		clock: func() time.Time { return time.Now().UTC() },
	}
}

func (s *ConversationStore) ByID(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.byID[id]
	if !ok {
		return nil, domainchat.ErrConversationNotFound
	}
	return cloneConversation(conv), nil
}

func (s *ConversationStore) UpsertOnSend(ctx context.Context, id domainchat.ConversationID, sender, recipient domainchat.Participant, last domainchat.LastMessage) (*domainchat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := s.seen[id]
	if applied == nil {
		applied = make(map[string]struct{})
		s.seen[id] = applied
	}
	if _, dup := applied[last.MessageID]; dup {
		return cloneConversation(s.byID[id]), nil
	}
	applied[last.MessageID] = struct{}{}

	now := s.clock()
	conv, ok := s.byID[id]
	if !ok {
		conv = &domainchat.Conversation{
			ID:           id,
			Participants: [2]domainchat.Participant{sender, recipient},
			Last:         last,
			Unread:       map[string]int{recipient.UserID: 1},
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		s.byID[id] = conv
		return cloneConversation(conv), nil
	}
	conv.Last = last
	conv.Unread[recipient.UserID]++
	conv.UpdatedAt = now
	return cloneConversation(conv), nil
}

func (s *ConversationStore) ResetUnread(ctx context.Context, id domainchat.ConversationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.byID[id]
	if !ok {
		return nil
	}
	conv.Unread[userID] = 0
	return nil
}

func (s *ConversationStore) ListForUser(ctx context.Context, userID string) ([]domainchat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domainchat.Conversation, 0)
	for _, conv := range s.byID {
		if conv.Active && conv.HasParticipant(userID) {
			out = append(out, *cloneConversation(conv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func cloneConversation(c *domainchat.Conversation) *domainchat.Conversation {
	if c == nil {
		return nil
	}
	copied := *c
	copied.Unread = make(map[string]int, len(c.Unread))
	for k, v := range c.Unread {
		copied.Unread[k] = v
	}
	return &copied
}
