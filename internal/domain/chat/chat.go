package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"hostelmarket/internal/domain/listing"
	"hostelmarket/internal/domain/user"
)

var (
	ErrIDRequired           = errors.New("chat: id is required")
	ErrListingRequired      = errors.New("chat: listing is required")
	ErrParticipantsRequired = errors.New("chat: buyer and seller are required")
	ErrSelfConversation     = errors.New("chat: cannot start a conversation with yourself")
	ErrSenderRequired       = errors.New("chat: sender is required")
	ErrNotParticipant       = errors.New("chat: not a conversation participant")
	ErrConversationExists   = errors.New("chat: conversation already exists")
	ErrNotFound             = errors.New("chat: conversation not found")
)

type ConversationID string
type MessageID string

// Conversation is a buyer/seller thread scoped to a single listing. At most
// one conversation exists per (listing, buyer, seller) triple; the store
// enforces that with a unique index.
type Conversation struct {
	ID        ConversationID
	ListingID listing.ID
	BuyerID   user.ID
	SellerID  user.ID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message content and sender are immutable after creation; only ReadAt may
// change, set once by the other party viewing the thread.
type Message struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       user.ID
	Content        string
	CreatedAt      time.Time
	ReadAt         *time.Time
}

func (c *Conversation) Involves(id user.ID) bool {
	return c.BuyerID == id || c.SellerID == id
}

// OtherParty returns the participant that is not the given user.
func (c *Conversation) OtherParty(id user.ID) user.ID {
	if c.BuyerID == id {
		return c.SellerID
	}
	return c.BuyerID
}

func (c *Conversation) Touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	c.UpdatedAt = now.UTC()
}

type NewConversationParams struct {
	ID        ConversationID
	ListingID listing.ID
	BuyerID   user.ID
	SellerID  user.ID
	Now       time.Time
}

func NewConversation(params NewConversationParams) (*Conversation, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.ListingID)) == "" {
		return nil, ErrListingRequired
	}
	buyer := strings.TrimSpace(string(params.BuyerID))
	seller := strings.TrimSpace(string(params.SellerID))
	if buyer == "" || seller == "" {
		return nil, ErrParticipantsRequired
	}
	if buyer == seller {
		return nil, ErrSelfConversation
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Conversation{
		ID:        params.ID,
		ListingID: params.ListingID,
		BuyerID:   user.ID(buyer),
		SellerID:  user.ID(seller),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

type NewMessageParams struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       user.ID
	Content        string
	Now            time.Time
}

func NewMessage(params NewMessageParams) (*Message, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.ConversationID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.SenderID)) == "" {
		return nil, ErrSenderRequired
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Message{
		ID:             params.ID,
		ConversationID: params.ConversationID,
		SenderID:       params.SenderID,
		Content:        params.Content,
		CreatedAt:      now.UTC(),
	}, nil
}

// ConversationRepository persists conversation rows. Create must fail with
// ErrConversationExists when the (listing, buyer, seller) unique index is
// violated so callers can re-fetch the winner of a create race.
type ConversationRepository interface {
	ByID(ctx context.Context, id ConversationID) (*Conversation, error)
	ByTriple(ctx context.Context, listingID listing.ID, buyerID, sellerID user.ID) (*Conversation, error)
	Create(ctx context.Context, conversation *Conversation) error
	Touch(ctx context.Context, id ConversationID, at time.Time) error
	ListByUser(ctx context.Context, userID user.ID) ([]Conversation, error)
	DeleteByUser(ctx context.Context, userID user.ID) ([]ConversationID, error)
}

type MessageRepository interface {
	Append(ctx context.Context, message *Message) error
	// ListByConversation returns messages in ascending creation order.
	ListByConversation(ctx context.Context, id ConversationID) ([]Message, error)
	LastByConversation(ctx context.Context, id ConversationID) (*Message, error)
	// MarkRead stamps every unread message not sent by viewer and reports
	// how many rows changed. Calling it again is a no-op.
	MarkRead(ctx context.Context, id ConversationID, viewer user.ID, at time.Time) (int64, error)
	UnreadCount(ctx context.Context, id ConversationID, viewer user.ID) (int64, error)
	DeleteByConversations(ctx context.Context, ids []ConversationID) error
}
