package chat

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEmptyMessage         = errors.New("chat: message text is required")
	ErrRecipientRequired    = errors.New("chat: recipient is required")
	ErrQueryTooShort        = errors.New("chat: query must be at least 2 characters")
	ErrInvalidKind          = errors.New("chat: unsupported message type")
	ErrMessageNotFound      = errors.New("chat: message not found")
	ErrConversationNotFound = errors.New("chat: conversation not found")
	ErrNotParticipant       = errors.New("chat: not a conversation participant")
	ErrNotSender            = errors.New("chat: only the sender may delete a message")
)

// MessageKind distinguishes plain text from attachment-bearing messages.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
)

// ValidKind reports whether k is one of the supported message kinds.
func ValidKind(k MessageKind) bool {
	switch k {
	case KindText, KindImage, KindFile:
		return true
	}
	return false
}

// ReplyRef is a by-value snapshot of a quoted message. It is captured at
// send time and never refreshed, so the quote survives deletion of the
// original.
type ReplyRef struct {
	MessageID  string
	Snippet    string
	SenderName string
}

// Message is one chat utterance. Sender and recipient display data are
// denormalized snapshots captured at send time. Immutable after
// creation except for the read flag.
type Message struct {
	ID             string
	ConversationID ConversationID
	SenderID       string
	SenderName     string
	SenderAvatar   string
	RecipientID    string
	RecipientName  string
	Body           string
	Kind           MessageKind
	FileURL        string
	FileName       string
	ReplyTo        *ReplyRef
	Read           bool
	SentAt         time.Time
}

// Participant is the display snapshot of one conversation member,
// captured when the conversation is created.
type Participant struct {
	UserID string
	Name   string
	Avatar string
}

// LastMessage is the denormalized preview of the most recent message.
type LastMessage struct {
	MessageID string
	Content   string
	SenderID  string
	SentAt    time.Time
}

// Conversation is the denormalized two-party summary keyed by the
// derived conversation id. Unread maps each participant's user id to
// their count of messages not yet marked read.
type Conversation struct {
	ID           ConversationID
	Participants [2]Participant
	Last         LastMessage
	Unread       map[string]int
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasParticipant reports whether userID is one of the two stored
// participant snapshots.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participants[0].UserID == userID || c.Participants[1].UserID == userID
}

// MessageStore persists individual chat messages.
type MessageStore interface {
	Create(ctx context.Context, msg *Message) error
	// ListByConversation returns messages newest-first.
	ListByConversation(ctx context.Context, id ConversationID, limit, offset int) ([]Message, error)
	// MarkRead flips every unread message addressed to recipientID in
	// the conversation and returns how many were updated.
	MarkRead(ctx context.Context, id ConversationID, recipientID string) (int64, error)
	CountByConversation(ctx context.Context, id ConversationID) (int64, error)
	CountUnreadForUser(ctx context.Context, userID string) (int64, error)
	ByID(ctx context.Context, messageID string) (*Message, error)
	DeleteByID(ctx context.Context, messageID string) error
	// DeleteAllByConversation removes every message and returns the count.
	DeleteAllByConversation(ctx context.Context, id ConversationID) (int64, error)
}

// ConversationStore persists conversation summaries.
type ConversationStore interface {
	ByID(ctx context.Context, id ConversationID) (*Conversation, error)
	// UpsertOnSend creates the summary on first contact (recipient
	// unread = 1) or replaces the last-message snapshot and increments
	// the recipient's unread counter. The mutation must be atomic per
	// conversation and idempotent per last.MessageID, so a retried
	// upsert cannot double-count.
	UpsertOnSend(ctx context.Context, id ConversationID, sender, recipient Participant, last LastMessage) (*Conversation, error)
	ResetUnread(ctx context.Context, id ConversationID, userID string) error
	// ListForUser returns the user's active conversations, most
	// recently updated first.
	ListForUser(ctx context.Context, userID string) ([]Conversation, error)
}
