package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	domainchat "paperhub/internal/domain/chat"
)

const messageSentTopic = "chat.message.sent"

// ChatEvents publishes persisted-message notifications for downstream
// consumers (push notifications, analytics). Publishing is best effort;
// a broker outage never fails a send.
type ChatEvents struct {
	Producer    *Producer
	TopicPrefix string
	Logger      *slog.Logger
}

type messageSentEvent struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	RecipientID    string `json:"recipient_id"`
	Kind           string `json:"kind"`
	SentAt         int64  `json:"sent_at"`
}

func (e *ChatEvents) MessageSent(ctx context.Context, msg *domainchat.Message) {
	if e.Producer == nil || msg == nil {
		return
	}
	payload, err := json.Marshal(messageSentEvent{
		MessageID:      msg.ID,
		ConversationID: string(msg.ConversationID),
		SenderID:       msg.SenderID,
		RecipientID:    msg.RecipientID,
		Kind:           string(msg.Kind),
		SentAt:         msg.SentAt.UnixMilli(),
	})
	if err != nil {
		return
	}
	topic := e.TopicPrefix + messageSentTopic
	// Keyed by conversation so consumers see each thread in order.
	if err := e.Producer.Publish(ctx, topic, string(msg.ConversationID), payload, nil); err != nil {
		if e.Logger != nil {
			e.Logger.Warn("event publish failed", "topic", topic, "message_id", msg.ID, "error", err)
		}
	}
}
