package realtime

import (
	"encoding/json"
	"errors"
	"strings"
)

// Client-issued event names.
const (
	EventJoinConversation  = "joinConversation"
	EventSendMessage       = "sendMessage"
	EventTyping            = "typing"
	EventStopTyping        = "stopTyping"
	EventMarkAsRead        = "markAsRead"
	EventLeaveConversation = "leaveConversation"
)

// Server-issued event names.
const (
	EventNewMessage          = "newMessage"
	EventMessageNotification = "messageNotification"
	EventMessageError        = "messageError"
	EventUserJoined          = "userJoined"
	EventUserLeft            = "userLeft"
	EventUserTyping          = "userTyping"
	EventUserStoppedTyping   = "userStoppedTyping"
	EventMessagesRead        = "messagesRead"
	EventOnlineUsers         = "onlineUsers"
)

var ErrUnknownEvent = errors.New("realtime: unknown event")

// Envelope is the single frame format on the wire, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data into an outbound envelope. Marshal failures
// are programming errors; they produce an empty payload rather than a
// panic mid-broadcast.
func NewEnvelope(event string, data any) Envelope {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = nil
	}
	return Envelope{Event: event, Data: raw}
}

type JoinPayload struct {
	ConversationID string `json:"conversationId"`
}

func (p *JoinPayload) Validate() error {
	p.ConversationID = strings.TrimSpace(p.ConversationID)
	if p.ConversationID == "" {
		return errors.New("conversationId is required")
	}
	return nil
}

type SendPayload struct {
	RecipientID string        `json:"recipientId"`
	Message     string        `json:"message"`
	MessageType string        `json:"messageType,omitempty"`
	FileURL     string        `json:"fileUrl,omitempty"`
	FileName    string        `json:"fileName,omitempty"`
	ReplyTo     *ReplyPayload `json:"replyTo,omitempty"`
}

type ReplyPayload struct {
	MessageID  string `json:"messageId"`
	Message    string `json:"message"`
	SenderName string `json:"senderName"`
}

func (p *SendPayload) Validate() error {
	p.RecipientID = strings.TrimSpace(p.RecipientID)
	if p.RecipientID == "" {
		return errors.New("recipientId is required")
	}
	if strings.TrimSpace(p.Message) == "" {
		return errors.New("message is required")
	}
	return nil
}

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	Name           string `json:"name,omitempty"`
}

func (p *TypingPayload) Validate() error {
	p.ConversationID = strings.TrimSpace(p.ConversationID)
	if p.ConversationID == "" {
		return errors.New("conversationId is required")
	}
	return nil
}

type MarkReadPayload struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds,omitempty"`
}

func (p *MarkReadPayload) Validate() error {
	p.ConversationID = strings.TrimSpace(p.ConversationID)
	if p.ConversationID == "" {
		return errors.New("conversationId is required")
	}
	return nil
}

// ErrorPayload is delivered only to the connection that caused the
// failure, never broadcast to a room.
type ErrorPayload struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type RoomNoticePayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Name           string `json:"name,omitempty"`
}

type ReadReceiptPayload struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds,omitempty"`
	ReaderID       string   `json:"readerId"`
}

type OnlineUsersPayload struct {
	UserIDs []string `json:"userIds"`
}
