package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "paperhub/internal/domain/chat"
)

// MessageRepository persists chat messages in the chat_messages
// collection.
type MessageRepository struct {
	col *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{col: db.Collection("chat_messages")}
}

// EnsureIndexes creates the lookup indexes the hot paths rely on.
func (r *MessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "sent_at", Value: -1}}},
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "read", Value: 1}}},
	})
	return err
}

func (r *MessageRepository) Create(ctx context.Context, msg *domainchat.Message) error {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, newMessageDocument(msg))
	return err
}

func (r *MessageRepository) ListByConversation(ctx context.Context, id domainchat.ConversationID, limit, offset int) ([]domainchat.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "sent_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.col.Find(ctx, bson.M{"conversation_id": string(id)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []domainchat.Message
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toMessage())
	}
	return out, cursor.Err()
}

func (r *MessageRepository) MarkRead(ctx context.Context, id domainchat.ConversationID, recipientID string) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{"conversation_id": string(id), "recipient_id": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MessageRepository) CountByConversation(ctx context.Context, id domainchat.ConversationID) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"conversation_id": string(id)})
}

func (r *MessageRepository) CountUnreadForUser(ctx context.Context, userID string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"recipient_id": userID, "read": false})
}

func (r *MessageRepository) ByID(ctx context.Context, messageID string) (*domainchat.Message, error) {
	var doc messageDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": messageID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrMessageNotFound
		}
		return nil, err
	}
	msg := doc.toMessage()
	return &msg, nil
}

func (r *MessageRepository) DeleteByID(ctx context.Context, messageID string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": messageID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainchat.ErrMessageNotFound
	}
	return nil
}

func (r *MessageRepository) DeleteAllByConversation(ctx context.Context, id domainchat.ConversationID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"conversation_id": string(id)})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

type messageDocument struct {
	ID             string         `bson:"_id"`
	ConversationID string         `bson:"conversation_id"`
	SenderID       string         `bson:"sender_id"`
	SenderName     string         `bson:"sender_name"`
	SenderAvatar   string         `bson:"sender_avatar"`
	RecipientID    string         `bson:"recipient_id"`
	RecipientName  string         `bson:"recipient_name"`
	Body           string         `bson:"body"`
	Kind           string         `bson:"kind"`
	FileURL        string         `bson:"file_url,omitempty"`
	FileName       string         `bson:"file_name,omitempty"`
	ReplyTo        *replyDocument `bson:"reply_to,omitempty"`
	Read           bool           `bson:"read"`
	SentAt         int64          `bson:"sent_at"`
}

type replyDocument struct {
	MessageID  string `bson:"message_id"`
	Snippet    string `bson:"snippet"`
	SenderName string `bson:"sender_name"`
}

func newMessageDocument(m *domainchat.Message) messageDocument {
	doc := messageDocument{
		ID:             m.ID,
		ConversationID: string(m.ConversationID),
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		SenderAvatar:   m.SenderAvatar,
		RecipientID:    m.RecipientID,
		RecipientName:  m.RecipientName,
		Body:           m.Body,
		Kind:           string(m.Kind),
		FileURL:        m.FileURL,
		FileName:       m.FileName,
		Read:           m.Read,
		SentAt:         m.SentAt.UnixMilli(),
	}
	if m.ReplyTo != nil {
		doc.ReplyTo = &replyDocument{
			MessageID:  m.ReplyTo.MessageID,
			Snippet:    m.ReplyTo.Snippet,
			SenderName: m.ReplyTo.SenderName,
		}
	}
	return doc
}

func (d messageDocument) toMessage() domainchat.Message {
	msg := domainchat.Message{
		ID:             d.ID,
		ConversationID: domainchat.ConversationID(d.ConversationID),
		SenderID:       d.SenderID,
		SenderName:     d.SenderName,
		SenderAvatar:   d.SenderAvatar,
		RecipientID:    d.RecipientID,
		RecipientName:  d.RecipientName,
		Body:           d.Body,
		Kind:           domainchat.MessageKind(d.Kind),
		FileURL:        d.FileURL,
		FileName:       d.FileName,
		Read:           d.Read,
		SentAt:         timestampToTime(d.SentAt),
	}
	if d.ReplyTo != nil {
		msg.ReplyTo = &domainchat.ReplyRef{
			MessageID:  d.ReplyTo.MessageID,
			Snippet:    d.ReplyTo.Snippet,
			SenderName: d.ReplyTo.SenderName,
		}
	}
	return msg
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
