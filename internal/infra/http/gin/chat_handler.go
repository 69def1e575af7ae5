package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"paperhub/internal/app/dto"
	chatservice "paperhub/internal/app/services/chat"
	domainchat "paperhub/internal/domain/chat"
	domainuser "paperhub/internal/domain/user"
)

// ChatHTTP exposes the chat REST endpoints.
type ChatHTTP interface {
	ListUsers(c *gin.Context)
	SearchUsers(c *gin.Context)
	ListConversations(c *gin.Context)
	History(c *gin.Context)
	QuickChat(c *gin.Context)
	Send(c *gin.Context)
	MarkRead(c *gin.Context)
	UnreadCount(c *gin.Context)
	DeleteMessage(c *gin.Context)
	ClearConversation(c *gin.Context)
}

// ChatHandler bridges HTTP with the chat service.
type ChatHandler struct {
	Chat   *chatservice.Service
	Logger *slog.Logger
}

// ListUsers returns up to 100 users excluding the requester.
func (h ChatHandler) ListUsers(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	users, err := h.Chat.ListUsers(c.Request.Context(), p.ID)
	if err != nil {
		h.respondError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": dto.MapUserSummaries(users)})
}

// SearchUsers matches name or email, case-insensitive, min 2 chars.
func (h ChatHandler) SearchUsers(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	users, err := h.Chat.SearchUsers(c.Request.Context(), p.ID, c.Query("query"))
	if err != nil {
		h.respondError(c, err, "search users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": dto.MapUserSummaries(users)})
}

// ListConversations returns the requester's active conversations,
// most recently updated first.
func (h ChatHandler) ListConversations(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	conversations, err := h.Chat.ListConversations(c.Request.Context(), p.ID)
	if err != nil {
		h.respondError(c, err, "list conversations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "conversations": dto.MapConversations(conversations)})
}

// History returns paginated messages oldest-first and marks the
// requester's inbound messages as read.
func (h ChatHandler) History(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	conversationID := strings.TrimSpace(c.Param("conversationId"))
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "conversationId is required"})
		return
	}
	limit := parsePositiveIntStrict(c.Query("limit"), 50)
	skip := parseNonNegativeInt(c.Query("skip"), 0)

	result, err := h.Chat.History(c.Request.Context(), domainchat.ConversationID(conversationID), p.ID, limit, skip)
	if err != nil {
		h.respondError(c, err, "chat history", "conversation_id", conversationID, "user_id", p.ID)
		return
	}
	if result.IsNew {
		c.JSON(http.StatusOK, gin.H{
			"success":           true,
			"messages":          []dto.ChatMessage{},
			"total":             0,
			"isNewConversation": true,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"messages": dto.MapChatMessages(result.Messages),
		"total":    result.Total,
	})
}

// QuickChat derives the conversation id for the requester and the
// recipient in the path and returns the latest messages.
func (h ChatHandler) QuickChat(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	recipientID := strings.TrimSpace(c.Param("recipientId"))
	messages, err := h.Chat.QuickHistory(c.Request.Context(), p.ID, recipientID)
	if err != nil {
		h.respondError(c, err, "quick chat", "recipient_id", recipientID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": dto.MapChatMessages(messages)})
}

type sendRequest struct {
	RecipientID string        `json:"recipientId"`
	Message     string        `json:"message"`
	MessageType string        `json:"messageType"`
	FileURL     string        `json:"fileUrl"`
	FileName    string        `json:"fileName"`
	ReplyTo     *dto.ReplyRef `json:"replyTo"`
}

// Send persists a message and updates the conversation summary.
func (h ChatHandler) Send(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid payload"})
		return
	}
	params := chatservice.SendParams{
		SenderID:    p.ID,
		RecipientID: req.RecipientID,
		Body:        req.Message,
		Kind:        domainchat.MessageKind(req.MessageType),
		FileURL:     req.FileURL,
		FileName:    req.FileName,
	}
	if req.ReplyTo != nil {
		params.ReplyTo = &domainchat.ReplyRef{
			MessageID:  req.ReplyTo.MessageID,
			Snippet:    req.ReplyTo.Message,
			SenderName: req.ReplyTo.SenderName,
		}
	}
	msg, err := h.Chat.Send(c.Request.Context(), params)
	if err != nil {
		h.respondError(c, err, "send message", "recipient_id", req.RecipientID, "user_id", p.ID)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Message sent successfully",
		"chat":    dto.MapChatMessage(msg),
	})
}

type markReadRequest struct {
	ConversationID string `json:"conversationId"`
}

// MarkRead flips the requester's inbound unread messages and zeroes
// their unread counter. Idempotent.
func (h ChatHandler) MarkRead(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ConversationID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "conversationId is required"})
		return
	}
	if err := h.Chat.MarkRead(c.Request.Context(), domainchat.ConversationID(req.ConversationID), p.ID); err != nil {
		h.respondError(c, err, "mark read", "conversation_id", req.ConversationID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Messages marked as read"})
}

// UnreadCount totals unread messages for the requester across all
// conversations.
func (h ChatHandler) UnreadCount(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	count, err := h.Chat.UnreadCount(c.Request.Context(), p.ID)
	if err != nil {
		h.respondError(c, err, "unread count")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "unreadCount": count})
}

// DeleteMessage removes a single message; sender only.
func (h ChatHandler) DeleteMessage(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	messageID := strings.TrimSpace(c.Param("messageId"))
	if err := h.Chat.DeleteMessage(c.Request.Context(), messageID, p.ID); err != nil {
		h.respondError(c, err, "delete message", "message_id", messageID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Message deleted successfully"})
}

// ClearConversation deletes every message but keeps the summary.
func (h ChatHandler) ClearConversation(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	conversationID := strings.TrimSpace(c.Param("conversationId"))
	deleted, err := h.Chat.ClearConversation(c.Request.Context(), domainchat.ConversationID(conversationID), p.ID)
	if err != nil {
		h.respondError(c, err, "clear conversation", "conversation_id", conversationID)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "All messages cleared successfully",
		"deletedCount": deleted,
	})
}

func (h ChatHandler) respondError(c *gin.Context, err error, action string, attrs ...any) {
	switch {
	case errors.Is(err, domainchat.ErrEmptyMessage),
		errors.Is(err, domainchat.ErrRecipientRequired),
		errors.Is(err, domainchat.ErrInvalidKind),
		errors.Is(err, domainchat.ErrQueryTooShort),
		errors.Is(err, domainchat.ErrSelfConversation),
		errors.Is(err, domainchat.ErrMalformedConversationID):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, domainuser.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
	case errors.Is(err, domainchat.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Message not found"})
	case errors.Is(err, domainchat.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Conversation not found"})
	case errors.Is(err, domainchat.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Unauthorized access to conversation"})
	case errors.Is(err, domainchat.ErrNotSender):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Unauthorized to delete this message"})
	default:
		if h.Logger != nil {
			h.Logger.Error("chat request failed", append([]any{"action", action, "error", err}, attrs...)...)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server Error"})
	}
}

func parsePositiveIntStrict(raw string, def int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return def
	}
	return value
}

func parseNonNegativeInt(raw string, def int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return def
	}
	return value
}

var _ ChatHTTP = (*ChatHandler)(nil)
