package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	chatservice "paperhub/internal/app/services/chat"
	domainuser "paperhub/internal/domain/user"
	"paperhub/internal/infra/storage/memory"
)

type staticTokens map[string]string

func (s staticTokens) Verify(token string) (string, string, error) {
	userID, ok := s[token]
	if !ok {
		return "", "", errors.New("unknown token")
	}
	return userID, "User " + userID, nil
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	users := memory.NewUserRepository()
	for _, id := range []string{"u1", "u2"} {
		if err := users.Save(context.Background(), &domainuser.User{
			ID: domainuser.ID(id), Name: "User " + id, Email: id + "@example.com",
			PasswordHash: "x", Role: domainuser.RoleUser,
		}); err != nil {
			t.Fatalf("seed user %s: %v", id, err)
		}
	}
	return &Gateway{
		Chat: &chatservice.Service{
			Messages:      memory.NewMessageStore(),
			Conversations: memory.NewConversationStore(),
			Users:         users,
		},
		Presence:           NewPresenceRegistry(),
		Rooms:              NewRoomRegistry(),
		Tokens:             staticTokens{"tok-u1": "u1", "tok-u2": "u2"},
		InsecureSkipVerify: true,
	}
}

func dialGateway(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := strings.Replace(server.URL, "http", "ws", 1) + "?token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	return conn
}

func TestGatewayRejectsMissingOrInvalidToken(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(newTestGateway(t))
	defer server.Close()

	for _, url := range []string{server.URL, server.URL + "?token=bogus"} {
		resp, err := http.Get(url)
		if err != nil {
			t.Fatalf("get %s: %v", url, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want %d", url, resp.StatusCode, http.StatusUnauthorized)
		}
	}
}

// A second connection for the same user displaces the first. The
// displaced socket must receive a close frame so its read loop ends;
// it must not linger half-open after being dropped from presence.
func TestGatewaySecondConnectionClosesFirst(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(newTestGateway(t))
	defer server.Close()

	first := dialGateway(t, server, "tok-u1")
	defer first.CloseNow()
	second := dialGateway(t, server, "tok-u1")
	defer second.CloseNow()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var closeErr error
	for {
		var env Envelope
		if err := wsjson.Read(ctx, first, &env); err != nil {
			closeErr = err
			break
		}
		// Drain onlineUsers broadcasts until the close arrives.
	}
	if status := websocket.CloseStatus(closeErr); status != websocket.StatusPolicyViolation {
		t.Fatalf("displaced connection close status = %v (err %v), want %v",
			status, closeErr, websocket.StatusPolicyViolation)
	}
}
