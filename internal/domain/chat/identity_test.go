package chat

import (
	"errors"
	"testing"
)

func TestDeriveConversationIDSymmetry(t *testing.T) {
	t.Parallel()
	a, err := DeriveConversationID("user1", "user2")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b, err := DeriveConversationID("user2", "user1")
	if err != nil {
		t.Fatalf("derive reversed: %v", err)
	}
	if a != b {
		t.Fatalf("expected symmetric ids, got %q and %q", a, b)
	}
	if a != "user1-user2" {
		t.Fatalf("expected sorted join, got %q", a)
	}
}

func TestDeriveConversationIDTrimsWhitespace(t *testing.T) {
	t.Parallel()
	id, err := DeriveConversationID("  user1 ", "user2")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if id != "user1-user2" {
		t.Fatalf("got %q", id)
	}
}

func TestDeriveConversationIDRejectsSelf(t *testing.T) {
	t.Parallel()
	if _, err := DeriveConversationID("user1", "user1"); !errors.Is(err, ErrSelfConversation) {
		t.Fatalf("expected ErrSelfConversation, got %v", err)
	}
}

func TestDeriveConversationIDRejectsEmpty(t *testing.T) {
	t.Parallel()
	cases := [][2]string{{"", "user2"}, {"user1", ""}, {"  ", "user2"}}
	for _, tc := range cases {
		if _, err := DeriveConversationID(tc[0], tc[1]); !errors.Is(err, ErrMalformedConversationID) {
			t.Fatalf("derive(%q, %q): expected ErrMalformedConversationID, got %v", tc[0], tc[1], err)
		}
	}
}

func TestSplitConversationID(t *testing.T) {
	t.Parallel()
	a, b, err := SplitConversationID("user1-user2")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if a != "user1" || b != "user2" {
		t.Fatalf("got %q, %q", a, b)
	}
}

func TestSplitConversationIDMalformed(t *testing.T) {
	t.Parallel()
	for _, raw := range []ConversationID{"", "user1", "-user2", "user1-", "a-b-c"} {
		if _, _, err := SplitConversationID(raw); !errors.Is(err, ErrMalformedConversationID) {
			t.Fatalf("split(%q): expected ErrMalformedConversationID, got %v", raw, err)
		}
	}
}

func TestIsEncodedParticipant(t *testing.T) {
	t.Parallel()
	id := ConversationID("user1-user2")
	if !IsEncodedParticipant(id, "user1") || !IsEncodedParticipant(id, "user2") {
		t.Fatal("expected both encoded ids to be participants")
	}
	if IsEncodedParticipant(id, "user3") {
		t.Fatal("user3 must not be a participant")
	}
	if IsEncodedParticipant("garbage", "user1") {
		t.Fatal("malformed id must not match")
	}
}
