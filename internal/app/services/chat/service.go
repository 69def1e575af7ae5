package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domainchat "paperhub/internal/domain/chat"
	domainuser "paperhub/internal/domain/user"
)

const (
	defaultHistoryLimit = 50
	searchResultCap     = 10
	userListCap         = 100
	replySnippetMax     = 120
)

// EventPublisher receives best-effort notifications about persisted
// messages. Implementations must not block the send path for long.
type EventPublisher interface {
	MessageSent(ctx context.Context, msg *domainchat.Message)
}

// Service orchestrates the message and conversation stores. It is the
// single write path shared by the REST handlers and the realtime
// gateway, so both converge on the same conversation identity and the
// same unread bookkeeping.
type Service struct {
	Messages      domainchat.MessageStore
	Conversations domainchat.ConversationStore
	Users         domainuser.Repository
	Events        EventPublisher
	Logger        *slog.Logger
}

type SendParams struct {
	SenderID    string
	RecipientID string
	Body        string
	Kind        domainchat.MessageKind
	FileURL     string
	FileName    string
	ReplyTo     *domainchat.ReplyRef
}

// Send persists a message and updates the conversation summary.
// The two writes are ordered (message first); if the summary update
// fails the message still stands and the inconsistency is logged.
// The upsert is idempotent on the message id, so a later retry cannot
// double-count.
func (s *Service) Send(ctx context.Context, params SendParams) (*domainchat.Message, error) {
	body := strings.TrimSpace(params.Body)
	if body == "" {
		return nil, domainchat.ErrEmptyMessage
	}
	recipientID := strings.TrimSpace(params.RecipientID)
	if recipientID == "" {
		return nil, domainchat.ErrRecipientRequired
	}
	kind := params.Kind
	if kind == "" {
		kind = domainchat.KindText
	}
	if !domainchat.ValidKind(kind) {
		return nil, domainchat.ErrInvalidKind
	}

	sender, err := s.Users.ByID(ctx, domainuser.ID(params.SenderID))
	if err != nil {
		return nil, err
	}
	recipient, err := s.Users.ByID(ctx, domainuser.ID(recipientID))
	if err != nil {
		return nil, err
	}

	conversationID, err := domainchat.DeriveConversationID(params.SenderID, recipientID)
	if err != nil {
		return nil, err
	}

	msg := &domainchat.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       string(sender.ID),
		SenderName:     sender.Name,
		SenderAvatar:   sender.Avatar,
		RecipientID:    string(recipient.ID),
		RecipientName:  recipient.Name,
		Body:           body,
		Kind:           kind,
		FileURL:        strings.TrimSpace(params.FileURL),
		FileName:       strings.TrimSpace(params.FileName),
		ReplyTo:        sanitizeReply(params.ReplyTo),
		SentAt:         time.Now().UTC(),
	}
	if err := s.Messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	senderSnap := domainchat.Participant{UserID: string(sender.ID), Name: sender.Name, Avatar: sender.Avatar}
	recipientSnap := domainchat.Participant{UserID: string(recipient.ID), Name: recipient.Name, Avatar: recipient.Avatar}
	last := domainchat.LastMessage{
		MessageID: msg.ID,
		Content:   msg.Body,
		SenderID:  msg.SenderID,
		SentAt:    msg.SentAt,
	}
	if _, err := s.Conversations.UpsertOnSend(ctx, conversationID, senderSnap, recipientSnap, last); err != nil {
		s.log().Error("conversation upsert failed after message create",
			"conversation_id", conversationID, "message_id", msg.ID, "error", err)
	}

	if s.Events != nil {
		s.Events.MessageSent(ctx, msg)
	}
	return msg, nil
}

type HistoryResult struct {
	Messages []domainchat.Message
	Total    int64
	IsNew    bool
}

// History returns a page of messages oldest-first and, as a side
// effect, marks every unread message addressed to the requester as
// read. A conversation with no stored summary is treated as
// provisional: access is granted only to the ids encoded in the
// conversation id itself.
func (s *Service) History(ctx context.Context, id domainchat.ConversationID, requesterID string, limit, offset int) (HistoryResult, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	conv, err := s.Conversations.ByID(ctx, id)
	switch {
	case errors.Is(err, domainchat.ErrConversationNotFound):
		if !domainchat.IsEncodedParticipant(id, requesterID) {
			return HistoryResult{}, domainchat.ErrNotParticipant
		}
		return HistoryResult{Messages: []domainchat.Message{}, IsNew: true}, nil
	case err != nil:
		return HistoryResult{}, err
	}
	if !conv.HasParticipant(requesterID) {
		return HistoryResult{}, domainchat.ErrNotParticipant
	}

	messages, err := s.Messages.ListByConversation(ctx, id, limit, offset)
	if err != nil {
		return HistoryResult{}, err
	}
	reverse(messages)

	if err := s.markRead(ctx, id, requesterID); err != nil {
		s.log().Error("history read-marking failed", "conversation_id", id, "user_id", requesterID, "error", err)
	}

	total, err := s.Messages.CountByConversation(ctx, id)
	if err != nil {
		return HistoryResult{}, err
	}
	return HistoryResult{Messages: messages, Total: total}, nil
}

// QuickHistory derives the conversation id for the requester/recipient
// pair and returns the latest messages oldest-first. Used when opening
// a chat window before any conversation summary exists.
func (s *Service) QuickHistory(ctx context.Context, requesterID, recipientID string) ([]domainchat.Message, error) {
	id, err := domainchat.DeriveConversationID(requesterID, recipientID)
	if err != nil {
		return nil, err
	}
	messages, err := s.Messages.ListByConversation(ctx, id, defaultHistoryLimit, 0)
	if err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

// MarkRead flips unread messages addressed to userID and zeroes the
// user's unread counter. Idempotent.
func (s *Service) MarkRead(ctx context.Context, id domainchat.ConversationID, userID string) error {
	return s.markRead(ctx, id, userID)
}

func (s *Service) markRead(ctx context.Context, id domainchat.ConversationID, userID string) error {
	if _, err := s.Messages.MarkRead(ctx, id, userID); err != nil {
		return err
	}
	return s.Conversations.ResetUnread(ctx, id, userID)
}

func (s *Service) ListConversations(ctx context.Context, userID string) ([]domainchat.Conversation, error) {
	return s.Conversations.ListForUser(ctx, userID)
}

// DeleteMessage removes a message. Only the sender may delete it;
// there is no admin override here.
func (s *Service) DeleteMessage(ctx context.Context, messageID, requesterID string) error {
	msg, err := s.Messages.ByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != requesterID {
		return domainchat.ErrNotSender
	}
	return s.Messages.DeleteByID(ctx, messageID)
}

// ClearConversation deletes every message but keeps the conversation
// summary, so the thread reappears empty rather than vanishing. The
// last-message snapshot goes stale on purpose.
func (s *Service) ClearConversation(ctx context.Context, id domainchat.ConversationID, requesterID string) (int64, error) {
	conv, err := s.Conversations.ByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if !conv.HasParticipant(requesterID) {
		return 0, domainchat.ErrNotParticipant
	}
	return s.Messages.DeleteAllByConversation(ctx, id)
}

// VerifyParticipant authorizes access to a conversation for the
// realtime path: a stored summary wins, a provisional id falls back to
// the ids encoded in it.
func (s *Service) VerifyParticipant(ctx context.Context, id domainchat.ConversationID, userID string) error {
	conv, err := s.Conversations.ByID(ctx, id)
	switch {
	case errors.Is(err, domainchat.ErrConversationNotFound):
		if !domainchat.IsEncodedParticipant(id, userID) {
			return domainchat.ErrNotParticipant
		}
		return nil
	case err != nil:
		return err
	}
	if !conv.HasParticipant(userID) {
		return domainchat.ErrNotParticipant
	}
	return nil
}

func (s *Service) SearchUsers(ctx context.Context, requesterID, query string) ([]domainuser.User, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return nil, domainchat.ErrQueryTooShort
	}
	return s.Users.Search(ctx, domainuser.ID(requesterID), query, searchResultCap)
}

func (s *Service) ListUsers(ctx context.Context, requesterID string) ([]domainuser.User, error) {
	return s.Users.List(ctx, domainuser.ID(requesterID), userListCap)
}

// UnreadCount totals unread messages for the user across all
// conversations.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.Messages.CountUnreadForUser(ctx, userID)
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func sanitizeReply(ref *domainchat.ReplyRef) *domainchat.ReplyRef {
	if ref == nil || strings.TrimSpace(ref.MessageID) == "" {
		return nil
	}
	out := &domainchat.ReplyRef{
		MessageID:  strings.TrimSpace(ref.MessageID),
		Snippet:    strings.TrimSpace(ref.Snippet),
		SenderName: strings.TrimSpace(ref.SenderName),
	}
	if len(out.Snippet) > replySnippetMax {
		cut := replySnippetMax
		// Back up to a rune boundary so the snippet stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(out.Snippet[cut]) {
			cut--
		}
		out.Snippet = out.Snippet[:cut]
	}
	return out
}

func reverse(messages []domainchat.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
