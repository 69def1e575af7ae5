package realtime

import (
	"reflect"
	"testing"
)

func newTestClient(session, user string) *Client {
	return NewClient(session, user, "User "+user, nil)
}

func TestPresenceLastConnectionWins(t *testing.T) {
	t.Parallel()
	presence := NewPresenceRegistry()
	first := newTestClient("s1", "u1")
	second := newTestClient("s2", "u1")

	if displaced := presence.Connect("u1", first); displaced != nil {
		t.Fatalf("first connect displaced %v", displaced)
	}
	if displaced := presence.Connect("u1", second); displaced != first {
		t.Fatalf("second connect displaced %v, want first", displaced)
	}

	current, ok := presence.ClientFor("u1")
	if !ok || current != second {
		t.Fatal("newest connection should be registered")
	}
}

func TestPresenceStaleDisconnectIgnored(t *testing.T) {
	t.Parallel()
	presence := NewPresenceRegistry()
	first := newTestClient("s1", "u1")
	second := newTestClient("s2", "u1")

	presence.Connect("u1", first)
	presence.Connect("u1", second)

	// The displaced session disconnects late; the newer one must stay.
	if presence.Disconnect("u1", first) {
		t.Fatal("stale disconnect should not remove the entry")
	}
	if _, ok := presence.ClientFor("u1"); !ok {
		t.Fatal("user should still be online")
	}

	if !presence.Disconnect("u1", second) {
		t.Fatal("current session disconnect should remove the entry")
	}
	if _, ok := presence.ClientFor("u1"); ok {
		t.Fatal("user should be offline")
	}
}

func TestPresenceOnlineUserIDsSorted(t *testing.T) {
	t.Parallel()
	presence := NewPresenceRegistry()
	presence.Connect("u3", newTestClient("s3", "u3"))
	presence.Connect("u1", newTestClient("s1", "u1"))
	presence.Connect("u2", newTestClient("s2", "u2"))

	got := presence.OnlineUserIDs()
	if !reflect.DeepEqual(got, []string{"u1", "u2", "u3"}) {
		t.Fatalf("online ids = %v", got)
	}
}

func TestPresenceReconnectSameClient(t *testing.T) {
	t.Parallel()
	presence := NewPresenceRegistry()
	client := newTestClient("s1", "u1")
	presence.Connect("u1", client)
	if displaced := presence.Connect("u1", client); displaced != nil {
		t.Fatalf("re-registering the same client displaced %v", displaced)
	}
}
