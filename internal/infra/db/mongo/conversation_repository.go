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

// ConversationRepository persists conversation summaries in the
// conversations collection, keyed by the derived conversation id.
type ConversationRepository struct {
	col *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	return &ConversationRepository{col: db.Collection("conversations")}
}

func (r *ConversationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "participants.user_id", Value: 1}}},
		{Keys: bson.D{{Key: "updated_at", Value: -1}}},
	})
	return err
}

func (r *ConversationRepository) ByID(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	var doc conversationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrConversationNotFound
		}
		return nil, err
	}
	return doc.toConversation(), nil
}

// UpsertOnSend applies the whole summary mutation as one conditional
// update. The filter excludes documents that already carry this
// last-message id, so the unread increment is applied at most once per
// message even if the caller retries: a retry against an existing
// document falls through to an upsert attempt, collides with the _id
// and surfaces as a duplicate-key error. A duplicate key can also mean
// this attempt lost a concurrent-creation race on a server that does
// not retry the upsert internally, so the update runs once more before
// the error is treated as already-applied.
func (r *ConversationRepository) UpsertOnSend(ctx context.Context, id domainchat.ConversationID, sender, recipient domainchat.Participant, last domainchat.LastMessage) (*domainchat.Conversation, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":                     string(id),
		"last_message.message_id": bson.M{"$ne": last.MessageID},
	}
	update := bson.M{
		"$set": bson.M{
			"last_message": lastMessageDocument{
				MessageID: last.MessageID,
				Content:   last.Content,
				SenderID:  last.SenderID,
				SentAt:    last.SentAt.UnixMilli(),
			},
			"updated_at": now.UnixMilli(),
		},
		"$inc": bson.M{"unread." + recipient.UserID: 1},
		"$setOnInsert": bson.M{
			"participants": []participantDocument{
				{UserID: sender.UserID, Name: sender.Name, Avatar: sender.Avatar},
				{UserID: recipient.UserID, Name: recipient.Name, Avatar: recipient.Avatar},
			},
			"unread." + sender.UserID: 0,
			"active":                  true,
			"created_at":              now.UnixMilli(),
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc conversationDocument
	err := withDuplicateKeyRetry(func() error {
		doc = conversationDocument{}
		return r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Increment was already applied for this message id.
			return r.ByID(ctx, id)
		}
		return nil, err
	}
	return doc.toConversation(), nil
}

// withDuplicateKeyRetry runs fn and repeats it once when it reports a
// duplicate-key error, covering servers that surface a lost upsert race
// instead of retrying it internally.
func withDuplicateKeyRetry(fn func() error) error {
	err := fn()
	if err != nil && mongo.IsDuplicateKeyError(err) {
		err = fn()
	}
	return err
}

func (r *ConversationRepository) ResetUnread(ctx context.Context, id domainchat.ConversationID, userID string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": string(id)},
		bson.M{"$set": bson.M{"unread." + userID: 0}},
	)
	return err
}

func (r *ConversationRepository) ListForUser(ctx context.Context, userID string) ([]domainchat.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"participants.user_id": userID, "active": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []domainchat.Conversation
	for cursor.Next(ctx) {
		var doc conversationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *doc.toConversation())
	}
	return out, cursor.Err()
}

type conversationDocument struct {
	ID           string                `bson:"_id"`
	Participants []participantDocument `bson:"participants"`
	LastMessage  lastMessageDocument   `bson:"last_message"`
	Unread       map[string]int        `bson:"unread"`
	Active       bool                  `bson:"active"`
	CreatedAt    int64                 `bson:"created_at"`
	UpdatedAt    int64                 `bson:"updated_at"`
}

type participantDocument struct {
	UserID string `bson:"user_id"`
	Name   string `bson:"name"`
	Avatar string `bson:"avatar"`
}

type lastMessageDocument struct {
	MessageID string `bson:"message_id"`
	Content   string `bson:"content"`
	SenderID  string `bson:"sender_id"`
	SentAt    int64  `bson:"sent_at"`
}

func (d conversationDocument) toConversation() *domainchat.Conversation {
	conv := &domainchat.Conversation{
		ID: domainchat.ConversationID(d.ID),
		Last: domainchat.LastMessage{
			MessageID: d.LastMessage.MessageID,
			Content:   d.LastMessage.Content,
			SenderID:  d.LastMessage.SenderID,
			SentAt:    timestampToTime(d.LastMessage.SentAt),
		},
		Unread:    d.Unread,
		Active:    d.Active,
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
	}
	if conv.Unread == nil {
		conv.Unread = make(map[string]int)
	}
	for i, p := range d.Participants {
		if i > 1 {
			break
		}
		conv.Participants[i] = domainchat.Participant{UserID: p.UserID, Name: p.Name, Avatar: p.Avatar}
	}
	return conv
}
