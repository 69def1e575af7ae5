package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"paperhub/internal/app/dto"
	chatservice "paperhub/internal/app/services/chat"
	domainchat "paperhub/internal/domain/chat"
	domainuser "paperhub/internal/domain/user"
)

// TokenVerifier validates a session token and returns the user id and
// display name it carries.
type TokenVerifier interface {
	Verify(token string) (userID, name string, err error)
}

// Gateway upgrades authenticated HTTP requests to realtime sessions and
// routes their events. Persistence goes through the same ChatService as
// the REST path, so both paths agree on conversation identity and
// unread bookkeeping.
type Gateway struct {
	Chat     *chatservice.Service
	Presence *PresenceRegistry
	Rooms    *RoomRegistry
	Tokens   TokenVerifier
	Logger   *slog.Logger

	// InsecureSkipVerify disables the websocket origin check for dev
	// setups where the frontend runs on another port.
	InsecureSkipVerify bool
	OriginPatterns     []string
}

// ServeHTTP authenticates and runs one connection. The session is
// Connecting until the token verifies, Authenticated while the read
// loop runs, and Closed once the loop exits.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
		return
	}
	userID, name, err := g.Tokens.Verify(token)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     g.OriginPatterns,
		InsecureSkipVerify: g.InsecureSkipVerify,
	})
	if err != nil {
		return
	}

	client := NewClient(uuid.NewString(), userID, name, conn)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go client.writeLoop(ctx)
	go client.keepAliveLoop(ctx)

	if previous := g.Presence.Connect(userID, client); previous != nil {
		// Last connection wins; the displaced session stops receiving.
		previous.Close()
	}
	g.broadcastOnlineUsers()
	g.log().Info("realtime connected", "user_id", userID, "session_id", client.SessionID)

	g.readLoop(ctx, client)

	// Closed: tear down room membership and presence, then tell the
	// rest of the world.
	for _, roomID := range g.Rooms.LeaveAll(client.SessionID) {
		g.Rooms.Broadcast(roomID, NewEnvelope(EventUserLeft, RoomNoticePayload{
			ConversationID: string(roomID),
			UserID:         client.UserID,
			Name:           client.Name,
		}), "")
	}
	removed := g.Presence.Disconnect(userID, client)
	client.Close()
	if removed {
		g.broadcastOnlineUsers()
	}
	g.log().Info("realtime disconnected", "user_id", userID, "session_id", client.SessionID)
}

func (g *Gateway) readLoop(ctx context.Context, client *Client) {
	for {
		var env Envelope
		if err := wsjson.Read(ctx, client.conn, &env); err != nil {
			return
		}
		select {
		case <-client.Done():
			return
		default:
		}
		if err := g.dispatch(ctx, client, env); err != nil {
			g.sendError(client, err)
		}
	}
}

func (g *Gateway) dispatch(ctx context.Context, client *Client, env Envelope) error {
	switch env.Event {
	case EventJoinConversation:
		return g.onJoin(client, env.Data)
	case EventSendMessage:
		return g.onSend(ctx, client, env.Data)
	case EventTyping:
		return g.onTyping(client, env.Data, true)
	case EventStopTyping:
		return g.onTyping(client, env.Data, false)
	case EventMarkAsRead:
		return g.onMarkAsRead(ctx, client, env.Data)
	case EventLeaveConversation:
		return g.onLeave(client, env.Data)
	default:
		return ErrUnknownEvent
	}
}

func (g *Gateway) onJoin(client *Client, data json.RawMessage) error {
	var payload JoinPayload
	if err := decodePayload(data, &payload); err != nil {
		return err
	}
	roomID := domainchat.ConversationID(payload.ConversationID)
	g.Rooms.Join(roomID, client)
	g.Rooms.Broadcast(roomID, NewEnvelope(EventUserJoined, RoomNoticePayload{
		ConversationID: payload.ConversationID,
		UserID:         client.UserID,
		Name:           client.Name,
	}), client.SessionID)
	return nil
}

func (g *Gateway) onLeave(client *Client, data json.RawMessage) error {
	var payload JoinPayload
	if err := decodePayload(data, &payload); err != nil {
		return err
	}
	roomID := domainchat.ConversationID(payload.ConversationID)
	g.Rooms.Leave(roomID, client.SessionID)
	g.Rooms.Broadcast(roomID, NewEnvelope(EventUserLeft, RoomNoticePayload{
		ConversationID: payload.ConversationID,
		UserID:         client.UserID,
		Name:           client.Name,
	}), client.SessionID)
	return nil
}

// onSend persists through ChatService and fans the stored message out:
// the full room sees newMessage (sender included, confirming delivery)
// and a recipient with a live connection gets a direct notification
// regardless of room membership. Failures go only to the sender.
func (g *Gateway) onSend(ctx context.Context, client *Client, data json.RawMessage) error {
	var payload SendPayload
	if err := decodePayload(data, &payload); err != nil {
		return err
	}

	params := chatservice.SendParams{
		SenderID:    client.UserID,
		RecipientID: payload.RecipientID,
		Body:        payload.Message,
		Kind:        domainchat.MessageKind(payload.MessageType),
		FileURL:     payload.FileURL,
		FileName:    payload.FileName,
	}
	if payload.ReplyTo != nil {
		params.ReplyTo = &domainchat.ReplyRef{
			MessageID:  payload.ReplyTo.MessageID,
			Snippet:    payload.ReplyTo.Message,
			SenderName: payload.ReplyTo.SenderName,
		}
	}
	msg, err := g.Chat.Send(ctx, params)
	if err != nil {
		return err
	}

	env := NewEnvelope(EventNewMessage, dto.MapChatMessage(msg))
	g.Rooms.Broadcast(msg.ConversationID, env, "")
	if !g.Rooms.Contains(msg.ConversationID, client.SessionID) {
		client.Enqueue(env)
	}

	if recipient, ok := g.Presence.ClientFor(msg.RecipientID); ok {
		recipient.Enqueue(NewEnvelope(EventMessageNotification, dto.MapChatMessage(msg)))
	}
	return nil
}

func (g *Gateway) onTyping(client *Client, data json.RawMessage, start bool) error {
	var payload TypingPayload
	if err := decodePayload(data, &payload); err != nil {
		return err
	}
	event := EventUserTyping
	if !start {
		event = EventUserStoppedTyping
	}
	name := payload.Name
	if name == "" {
		name = client.Name
	}
	g.Rooms.Broadcast(domainchat.ConversationID(payload.ConversationID), NewEnvelope(event, RoomNoticePayload{
		ConversationID: payload.ConversationID,
		UserID:         client.UserID,
		Name:           name,
	}), client.SessionID)
	return nil
}

// onMarkAsRead verifies the caller's membership in the conversation
// before flipping anything, and only flips messages addressed to the
// caller. The receipt is then broadcast to the room.
func (g *Gateway) onMarkAsRead(ctx context.Context, client *Client, data json.RawMessage) error {
	var payload MarkReadPayload
	if err := decodePayload(data, &payload); err != nil {
		return err
	}
	roomID := domainchat.ConversationID(payload.ConversationID)
	if err := g.Chat.VerifyParticipant(ctx, roomID, client.UserID); err != nil {
		return err
	}
	if err := g.Chat.MarkRead(ctx, roomID, client.UserID); err != nil {
		return err
	}
	g.Rooms.Broadcast(roomID, NewEnvelope(EventMessagesRead, ReadReceiptPayload{
		ConversationID: payload.ConversationID,
		MessageIDs:     payload.MessageIDs,
		ReaderID:       client.UserID,
	}), "")
	return nil
}

// broadcastOnlineUsers fans the full online set out to every live
// connection. O(total users), acceptable for the single-process
// deployment shape.
func (g *Gateway) broadcastOnlineUsers() {
	env := NewEnvelope(EventOnlineUsers, OnlineUsersPayload{UserIDs: g.Presence.OnlineUserIDs()})
	for _, client := range g.Presence.Clients() {
		client.Enqueue(env)
	}
}

// sendError delivers a failure only to the originating connection; the
// room never sees it and the connection stays open.
func (g *Gateway) sendError(client *Client, err error) {
	payload := ErrorPayload{Error: "message failed"}
	switch {
	case errors.Is(err, domainchat.ErrEmptyMessage),
		errors.Is(err, domainchat.ErrRecipientRequired),
		errors.Is(err, domainchat.ErrInvalidKind),
		errors.Is(err, domainchat.ErrSelfConversation),
		errors.Is(err, domainchat.ErrMalformedConversationID):
		payload = ErrorPayload{Error: "invalid payload", Details: err.Error()}
	case errors.Is(err, domainuser.ErrNotFound):
		payload = ErrorPayload{Error: "user not found"}
	case errors.Is(err, domainchat.ErrNotParticipant):
		payload = ErrorPayload{Error: "not a conversation participant"}
	case errors.Is(err, ErrUnknownEvent):
		payload = ErrorPayload{Error: "unknown event"}
	default:
		g.log().Error("realtime event failed", "user_id", client.UserID, "error", err)
	}
	client.Enqueue(NewEnvelope(EventMessageError, payload))
}

func (g *Gateway) log() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

func decodePayload(data json.RawMessage, dst interface{ Validate() error }) error {
	if len(data) == 0 {
		return errors.New("missing payload")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.New("malformed payload")
	}
	return dst.Validate()
}
