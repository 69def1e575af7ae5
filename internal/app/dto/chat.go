package dto

import (
	"time"

	domainchat "paperhub/internal/domain/chat"
)

// ChatMessage is the wire shape of one message, shared by the REST
// responses and the realtime newMessage event.
type ChatMessage struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	SenderID       string      `json:"senderId"`
	SenderName     string      `json:"senderName"`
	SenderImage    string      `json:"senderImage,omitempty"`
	RecipientID    string      `json:"recipientId"`
	RecipientName  string      `json:"recipientName"`
	Message        string      `json:"message"`
	MessageType    string      `json:"messageType"`
	FileURL        string      `json:"fileUrl,omitempty"`
	FileName       string      `json:"fileName,omitempty"`
	ReplyTo        *ReplyRef   `json:"replyTo,omitempty"`
	IsRead         bool        `json:"isRead"`
	Timestamp      time.Time   `json:"timestamp"`
}

type ReplyRef struct {
	MessageID  string `json:"messageId"`
	Message    string `json:"message"`
	SenderName string `json:"senderName"`
}

func MapChatMessage(m *domainchat.Message) ChatMessage {
	out := ChatMessage{
		ID:             m.ID,
		ConversationID: string(m.ConversationID),
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		SenderImage:    m.SenderAvatar,
		RecipientID:    m.RecipientID,
		RecipientName:  m.RecipientName,
		Message:        m.Body,
		MessageType:    string(m.Kind),
		FileURL:        m.FileURL,
		FileName:       m.FileName,
		IsRead:         m.Read,
		Timestamp:      m.SentAt,
	}
	if m.ReplyTo != nil {
		out.ReplyTo = &ReplyRef{
			MessageID:  m.ReplyTo.MessageID,
			Message:    m.ReplyTo.Snippet,
			SenderName: m.ReplyTo.SenderName,
		}
	}
	return out
}

func MapChatMessages(messages []domainchat.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for i := range messages {
		out = append(out, MapChatMessage(&messages[i]))
	}
	return out
}

// Conversation is the wire shape of a conversation summary.
type Conversation struct {
	ConversationID string         `json:"conversationId"`
	Participants   []Participant  `json:"participants"`
	LastMessage    LastMessage    `json:"lastMessage"`
	UnreadCount    map[string]int `json:"unreadCount"`
	IsActive       bool           `json:"isActive"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

type Participant struct {
	UserID       string `json:"userId"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage,omitempty"`
}

type LastMessage struct {
	Content   string    `json:"content"`
	SenderID  string    `json:"senderId"`
	Timestamp time.Time `json:"timestamp"`
}

func MapConversation(c *domainchat.Conversation) Conversation {
	out := Conversation{
		ConversationID: string(c.ID),
		Participants:   make([]Participant, 0, 2),
		LastMessage: LastMessage{
			Content:   c.Last.Content,
			SenderID:  c.Last.SenderID,
			Timestamp: c.Last.SentAt,
		},
		UnreadCount: c.Unread,
		IsActive:    c.Active,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	for _, p := range c.Participants {
		out.Participants = append(out.Participants, Participant{
			UserID:       p.UserID,
			Name:         p.Name,
			ProfileImage: p.Avatar,
		})
	}
	return out
}

func MapConversations(conversations []domainchat.Conversation) []Conversation {
	out := make([]Conversation, 0, len(conversations))
	for i := range conversations {
		out = append(out, MapConversation(&conversations[i]))
	}
	return out
}
