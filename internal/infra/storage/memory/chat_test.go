package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domainchat "paperhub/internal/domain/chat"
)

func seedMessages(t *testing.T, store *MessageStore, conversation domainchat.ConversationID, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("m%d", i)
		err := store.Create(context.Background(), &domainchat.Message{
			ID:             id,
			ConversationID: conversation,
			SenderID:       "u1",
			RecipientID:    "u2",
			Body:           fmt.Sprintf("msg %d", i),
			SentAt:         time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestMessageStoreListNewestFirstWithPaging(t *testing.T) {
	t.Parallel()
	store := NewMessageStore()
	ids := seedMessages(t, store, "u1-u2", 5)

	page, err := store.ListByConversation(context.Background(), "u1-u2", 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].ID != ids[4] || page[1].ID != ids[3] {
		t.Fatalf("first page = %v", messageIDs(page))
	}

	page, err = store.ListByConversation(context.Background(), "u1-u2", 2, 2)
	if err != nil {
		t.Fatalf("list offset: %v", err)
	}
	if len(page) != 2 || page[0].ID != ids[2] || page[1].ID != ids[1] {
		t.Fatalf("second page = %v", messageIDs(page))
	}

	page, err = store.ListByConversation(context.Background(), "u1-u2", 10, 10)
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("past-end page = %v", messageIDs(page))
	}
}

func TestMessageStoreMarkReadScopedToRecipient(t *testing.T) {
	t.Parallel()
	store := NewMessageStore()
	ctx := context.Background()

	seedMessages(t, store, "u1-u2", 2)
	err := store.Create(ctx, &domainchat.Message{
		ID:             "reply",
		ConversationID: "u1-u2",
		SenderID:       "u2",
		RecipientID:    "u1",
		Body:           "reply",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := store.MarkRead(ctx, "u1-u2", "u2")
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if updated != 2 {
		t.Fatalf("updated = %d, want 2", updated)
	}
	// Second call finds nothing left to flip.
	updated, err = store.MarkRead(ctx, "u1-u2", "u2")
	if err != nil {
		t.Fatalf("mark read again: %v", err)
	}
	if updated != 0 {
		t.Fatalf("updated on repeat = %d, want 0", updated)
	}

	unread, err := store.CountUnreadForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if unread != 1 {
		t.Fatalf("u1 unread = %d, want 1", unread)
	}
}

func TestMessageStoreDelete(t *testing.T) {
	t.Parallel()
	store := NewMessageStore()
	ctx := context.Background()
	ids := seedMessages(t, store, "u1-u2", 3)

	if err := store.DeleteByID(ctx, ids[1]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.ByID(ctx, ids[1]); !errors.Is(err, domainchat.ErrMessageNotFound) {
		t.Fatalf("lookup after delete: %v", err)
	}
	if err := store.DeleteByID(ctx, "nope"); !errors.Is(err, domainchat.ErrMessageNotFound) {
		t.Fatalf("delete missing: %v", err)
	}

	deleted, err := store.DeleteAllByConversation(ctx, "u1-u2")
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}
}

func TestConversationStoreUpsertDeduplicatesMessageID(t *testing.T) {
	t.Parallel()
	store := NewConversationStore()
	ctx := context.Background()
	sender := domainchat.Participant{UserID: "u1", Name: "User u1"}
	recipient := domainchat.Participant{UserID: "u2", Name: "User u2"}
	last := domainchat.LastMessage{MessageID: "m1", Content: "hello", SenderID: "u1"}

	conv, err := store.UpsertOnSend(ctx, "u1-u2", sender, recipient, last)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if conv.Unread["u2"] != 1 {
		t.Fatalf("unread = %d, want 1", conv.Unread["u2"])
	}

	// Retried upsert with the same message id must not double-count.
	conv, err = store.UpsertOnSend(ctx, "u1-u2", sender, recipient, last)
	if err != nil {
		t.Fatalf("retry upsert: %v", err)
	}
	if conv.Unread["u2"] != 1 {
		t.Fatalf("unread after retry = %d, want 1", conv.Unread["u2"])
	}

	last2 := domainchat.LastMessage{MessageID: "m2", Content: "again", SenderID: "u1"}
	conv, err = store.UpsertOnSend(ctx, "u1-u2", sender, recipient, last2)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if conv.Unread["u2"] != 2 {
		t.Fatalf("unread after second message = %d, want 2", conv.Unread["u2"])
	}
	if conv.Last.MessageID != "m2" {
		t.Fatalf("last message id = %q, want m2", conv.Last.MessageID)
	}
}

func TestConversationStoreResetUnread(t *testing.T) {
	t.Parallel()
	store := NewConversationStore()
	ctx := context.Background()

	// Resetting an unknown conversation is a no-op.
	if err := store.ResetUnread(ctx, "u1-u2", "u2"); err != nil {
		t.Fatalf("reset missing: %v", err)
	}

	_, err := store.UpsertOnSend(ctx, "u1-u2",
		domainchat.Participant{UserID: "u1"},
		domainchat.Participant{UserID: "u2"},
		domainchat.LastMessage{MessageID: "m1"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.ResetUnread(ctx, "u1-u2", "u2"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	conv, err := store.ByID(ctx, "u1-u2")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if conv.Unread["u2"] != 0 {
		t.Fatalf("unread = %d, want 0", conv.Unread["u2"])
	}
}

func TestConversationStoreListForUser(t *testing.T) {
	t.Parallel()
	store := NewConversationStore()
	ctx := context.Background()

	for i, id := range []domainchat.ConversationID{"u1-u2", "u1-u3"} {
		_, err := store.UpsertOnSend(ctx, id,
			domainchat.Participant{UserID: "u1"},
			domainchat.Participant{UserID: fmt.Sprintf("u%d", i+2)},
			domainchat.LastMessage{MessageID: fmt.Sprintf("m%d", i)})
		if err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	convs, err := store.ListForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("u1 conversations = %d, want 2", len(convs))
	}
	convs, err = store.ListForUser(ctx, "u3")
	if err != nil {
		t.Fatalf("list u3: %v", err)
	}
	if len(convs) != 1 || convs[0].ID != "u1-u3" {
		t.Fatalf("u3 conversations = %+v", convs)
	}
}

func messageIDs(messages []domainchat.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.ID)
	}
	return out
}
