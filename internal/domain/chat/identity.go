package chat

import (
	"errors"
	"strings"
)

// ErrSelfConversation is returned when both participant ids are the same user.
var ErrSelfConversation = errors.New("chat: conversation requires two distinct users")

// ErrMalformedConversationID is returned when an id does not encode two participants.
var ErrMalformedConversationID = errors.New("chat: malformed conversation id")

// ConversationID is the stable key for a two-party conversation. It is
// derived from the unordered pair of participant ids, so both the REST
// path and the realtime path converge on the same value.
type ConversationID string

const conversationIDSeparator = "-"

// DeriveConversationID builds the canonical id for a pair of users:
// the two ids sorted lexicographically and joined with "-".
// Symmetric: DeriveConversationID(a, b) == DeriveConversationID(b, a).
func DeriveConversationID(userA, userB string) (ConversationID, error) {
	a := strings.TrimSpace(userA)
	b := strings.TrimSpace(userB)
	if a == "" || b == "" {
		return "", ErrMalformedConversationID
	}
	if a == b {
		return "", ErrSelfConversation
	}
	if a > b {
		a, b = b, a
	}
	return ConversationID(a + conversationIDSeparator + b), nil
}

// SplitConversationID decodes the two participant ids embedded in a
// conversation id. Used to authorize access to conversations that have
// no stored summary yet.
func SplitConversationID(id ConversationID) (string, string, error) {
	raw := strings.TrimSpace(string(id))
	parts := strings.Split(raw, conversationIDSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrMalformedConversationID
	}
	return parts[0], parts[1], nil
}

// IsEncodedParticipant reports whether userID is one of the two ids
// encoded in the conversation id.
func IsEncodedParticipant(id ConversationID, userID string) bool {
	a, b, err := SplitConversationID(id)
	if err != nil {
		return false
	}
	return userID == a || userID == b
}
