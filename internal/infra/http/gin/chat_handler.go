package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"hostelmarket/internal/app/dto"
	chatsvc "hostelmarket/internal/app/services/chat"
	domainchat "hostelmarket/internal/domain/chat"
	domainlisting "hostelmarket/internal/domain/listing"
	domainuser "hostelmarket/internal/domain/user"
)

type ChatHTTP interface {
	StartConversation(c *gin.Context)
	ListConversations(c *gin.Context)
	GetConversation(c *gin.Context)
	ListMessages(c *gin.Context)
	SendMessage(c *gin.Context)
	MarkRead(c *gin.Context)
	UnreadCount(c *gin.Context)
}

type ChatHandler struct {
	Service *chatsvc.Service
	Logger  *slog.Logger
}

// StartConversation finds or creates the thread between the caller and the
// listing owner. Both outcomes return the same representation, so the
// client needs no find/create distinction.
func (h ChatHandler) StartConversation(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req struct {
		ListingID string `json:"listing_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	req.ListingID = strings.TrimSpace(req.ListingID)
	if req.ListingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listing_id is required"})
		return
	}
	conversation, err := h.Service.StartConversation(c.Request.Context(), domainuser.ID(p.ID), domainlisting.ID(req.ListingID))
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         string(conversation.ID),
		"listing_id": string(conversation.ListingID),
		"buyer_id":   string(conversation.BuyerID),
		"seller_id":  string(conversation.SellerID),
		"created_at": conversation.CreatedAt,
		"updated_at": conversation.UpdatedAt,
	})
}

func (h ChatHandler) ListConversations(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	previews, err := h.Service.ListConversations(c.Request.Context(), domainuser.ID(p.ID))
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	items := make([]dto.Conversation, 0, len(previews))
	for _, preview := range previews {
		items = append(items, dto.NewConversation(preview))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h ChatHandler) GetConversation(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	detail, err := h.Service.Conversation(c.Request.Context(), domainchat.ConversationID(c.Param("id")), domainuser.ID(p.ID))
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":            detail.ID,
		"listing_id":    detail.ListingID,
		"listing_title": detail.ListingTitle,
		"other_user_id": detail.OtherUserID,
		"other_name":    detail.OtherName,
		"other_block":   detail.OtherBlock,
		"other_phone":   detail.OtherPhone,
		"other_rating":  detail.OtherRating,
	})
}

func (h ChatHandler) ListMessages(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	views, err := h.Service.ListMessages(c.Request.Context(), domainchat.ConversationID(c.Param("id")), domainuser.ID(p.ID))
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	items := make([]dto.ChatMessage, 0, len(views))
	for _, view := range views {
		items = append(items, dto.NewChatMessage(view))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// SendMessage appends a message. Whitespace-only content is accepted and
// dropped; the client treats it as if nothing was typed.
func (h ChatHandler) SendMessage(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	view, err := h.Service.SendMessage(c.Request.Context(), domainchat.ConversationID(c.Param("id")), domainuser.ID(p.ID), req.Content)
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	if view == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusCreated, dto.NewChatMessage(*view))
}

func (h ChatHandler) MarkRead(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if err := h.Service.MarkRead(c.Request.Context(), domainchat.ConversationID(c.Param("id")), domainuser.ID(p.ID)); err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h ChatHandler) UnreadCount(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	count, err := h.Service.UnreadCount(c.Request.Context(), domainchat.ConversationID(c.Param("id")), domainuser.ID(p.ID))
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (h ChatHandler) respondChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainchat.ErrNotFound), errors.Is(err, domainlisting.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domainchat.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat participant"})
	case errors.Is(err, domainchat.ErrSelfConversation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start chat with yourself"})
	case errors.Is(err, chatsvc.ErrBlocked):
		c.JSON(http.StatusForbidden, gin.H{"error": "messaging unavailable"})
	default:
		if h.Logger != nil {
			h.Logger.Error("chat operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ ChatHTTP = (*ChatHandler)(nil)
