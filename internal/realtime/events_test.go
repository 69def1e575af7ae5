package realtime

import (
	"encoding/json"
	"testing"
)

func TestSendPayloadValidate(t *testing.T) {
	t.Parallel()
	p := &SendPayload{RecipientID: " u2 ", Message: "hi"}
	if err := p.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if p.RecipientID != "u2" {
		t.Fatalf("recipient not trimmed: %q", p.RecipientID)
	}

	if err := (&SendPayload{Message: "hi"}).Validate(); err == nil {
		t.Fatal("expected error for missing recipient")
	}
	if err := (&SendPayload{RecipientID: "u2", Message: "  "}).Validate(); err == nil {
		t.Fatal("expected error for blank message")
	}
}

func TestJoinAndTypingPayloadValidate(t *testing.T) {
	t.Parallel()
	if err := (&JoinPayload{ConversationID: "u1-u2"}).Validate(); err != nil {
		t.Fatalf("join validate: %v", err)
	}
	if err := (&JoinPayload{}).Validate(); err == nil {
		t.Fatal("expected error for missing conversation id")
	}
	if err := (&TypingPayload{ConversationID: " "}).Validate(); err == nil {
		t.Fatal("expected error for blank conversation id")
	}
	if err := (&MarkReadPayload{ConversationID: "u1-u2"}).Validate(); err != nil {
		t.Fatalf("mark-read validate: %v", err)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	t.Parallel()
	env := NewEnvelope(EventUserTyping, RoomNoticePayload{ConversationID: "u1-u2", UserID: "u1"})

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Envelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Event != EventUserTyping {
		t.Fatalf("event = %q", decoded.Event)
	}
	var notice RoomNoticePayload
	if err := json.Unmarshal(decoded.Data, &notice); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if notice.ConversationID != "u1-u2" || notice.UserID != "u1" {
		t.Fatalf("notice = %+v", notice)
	}
}
