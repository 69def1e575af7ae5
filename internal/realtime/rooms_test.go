package realtime

import (
	"testing"
)

func drain(c *Client) []Envelope {
	var out []Envelope
	for {
		select {
		case env := <-c.send:
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestRoomBroadcastExcludesSession(t *testing.T) {
	t.Parallel()
	rooms := NewRoomRegistry()
	alice := newTestClient("s1", "u1")
	bob := newTestClient("s2", "u2")
	rooms.Join("u1-u2", alice)
	rooms.Join("u1-u2", bob)

	rooms.Broadcast("u1-u2", NewEnvelope(EventUserTyping, nil), alice.SessionID)

	if got := drain(alice); len(got) != 0 {
		t.Fatalf("excluded session received %d envelopes", len(got))
	}
	got := drain(bob)
	if len(got) != 1 || got[0].Event != EventUserTyping {
		t.Fatalf("bob received %v", got)
	}
}

func TestRoomBroadcastToAll(t *testing.T) {
	t.Parallel()
	rooms := NewRoomRegistry()
	alice := newTestClient("s1", "u1")
	bob := newTestClient("s2", "u2")
	rooms.Join("u1-u2", alice)
	rooms.Join("u1-u2", bob)

	rooms.Broadcast("u1-u2", NewEnvelope(EventNewMessage, nil), "")

	for _, c := range []*Client{alice, bob} {
		if got := drain(c); len(got) != 1 {
			t.Fatalf("%s received %d envelopes, want 1", c.SessionID, len(got))
		}
	}
}

func TestRoomLeaveAll(t *testing.T) {
	t.Parallel()
	rooms := NewRoomRegistry()
	client := newTestClient("s1", "u1")
	rooms.Join("u1-u2", client)
	rooms.Join("u1-u3", client)

	left := rooms.LeaveAll(client.SessionID)
	if len(left) != 2 {
		t.Fatalf("left %d rooms, want 2", len(left))
	}
	for _, id := range left {
		if rooms.Contains(id, client.SessionID) {
			t.Fatalf("still in room %s", id)
		}
	}
	if len(rooms.LeaveAll(client.SessionID)) != 0 {
		t.Fatal("second leave-all should find nothing")
	}
}

func TestRoomLeaveRemovesEmptyRoom(t *testing.T) {
	t.Parallel()
	rooms := NewRoomRegistry()
	client := newTestClient("s1", "u1")
	rooms.Join("u1-u2", client)
	rooms.Leave("u1-u2", client.SessionID)
	if rooms.Contains("u1-u2", client.SessionID) {
		t.Fatal("session still in room")
	}
	// Leaving a room that no longer exists is a no-op.
	rooms.Leave("u1-u2", client.SessionID)
}

func TestClientEnqueueAfterCloseDropped(t *testing.T) {
	t.Parallel()
	client := newTestClient("s1", "u1")
	client.Close()
	client.Enqueue(NewEnvelope(EventNewMessage, nil))
	if got := drain(client); len(got) != 0 {
		t.Fatalf("closed client buffered %d envelopes", len(got))
	}
	// Close is idempotent.
	client.Close()
}

func TestClientEnqueueDropsWhenFull(t *testing.T) {
	t.Parallel()
	client := newTestClient("s1", "u1")
	for i := 0; i < sendQueueSize+10; i++ {
		client.Enqueue(NewEnvelope(EventNewMessage, nil))
	}
	if got := drain(client); len(got) != sendQueueSize {
		t.Fatalf("buffered %d envelopes, want %d", len(got), sendQueueSize)
	}
}
