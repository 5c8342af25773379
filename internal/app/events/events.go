package events

import (
	"context"
	"log/slog"
	"time"

	"hostelmarket/internal/domain/chat"
	"hostelmarket/internal/domain/listing"
	"hostelmarket/internal/domain/ratings"
	"hostelmarket/internal/domain/user"
)

// Event is a domain fact published after a successful state change.
// Name feeds topic routing, Key keeps per-aggregate ordering in the broker.
type Event interface {
	Name() string
	Key() string
	Payload() any
}

// Publisher delivers events to interested sinks.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type MessageSent struct {
	Conversation chat.Conversation
	Message      chat.Message
}

func (MessageSent) Name() string  { return "chat.message.sent" }
func (e MessageSent) Key() string { return string(e.Conversation.ID) }

func (e MessageSent) Payload() any {
	return map[string]any{
		"conversation_id": string(e.Conversation.ID),
		"listing_id":      string(e.Conversation.ListingID),
		"buyer_id":        string(e.Conversation.BuyerID),
		"seller_id":       string(e.Conversation.SellerID),
		"message_id":      string(e.Message.ID),
		"sender_id":       string(e.Message.SenderID),
		"content":         e.Message.Content,
		"created_at":      e.Message.CreatedAt.Format(time.RFC3339Nano),
	}
}

type ConversationCreated struct {
	Conversation chat.Conversation
}

func (ConversationCreated) Name() string  { return "chat.conversation.created" }
func (e ConversationCreated) Key() string { return string(e.Conversation.ID) }

func (e ConversationCreated) Payload() any {
	return map[string]any{
		"conversation_id": string(e.Conversation.ID),
		"listing_id":      string(e.Conversation.ListingID),
		"buyer_id":        string(e.Conversation.BuyerID),
		"seller_id":       string(e.Conversation.SellerID),
		"created_at":      e.Conversation.CreatedAt.Format(time.RFC3339Nano),
	}
}

type ListingPublished struct {
	Listing listing.Listing
}

func (ListingPublished) Name() string  { return "listings.listing.published" }
func (e ListingPublished) Key() string { return string(e.Listing.ID) }

func (e ListingPublished) Payload() any {
	return map[string]any{
		"listing_id": string(e.Listing.ID),
		"owner_id":   string(e.Listing.Owner),
		"title":      e.Listing.Title,
		"type":       string(e.Listing.Type),
		"category":   e.Listing.Category,
		"created_at": e.Listing.CreatedAt.Format(time.RFC3339Nano),
	}
}

type ListingDeactivated struct {
	Listing listing.Listing
}

func (ListingDeactivated) Name() string  { return "listings.listing.deactivated" }
func (e ListingDeactivated) Key() string { return string(e.Listing.ID) }

func (e ListingDeactivated) Payload() any {
	return map[string]any{
		"listing_id": string(e.Listing.ID),
		"owner_id":   string(e.Listing.Owner),
	}
}

type RatingSubmitted struct {
	Rating ratings.Rating
}

func (RatingSubmitted) Name() string  { return "ratings.rating.submitted" }
func (e RatingSubmitted) Key() string { return string(e.Rating.RatedID) }

func (e RatingSubmitted) Payload() any {
	return map[string]any{
		"rating_id":  string(e.Rating.ID),
		"rater_id":   string(e.Rating.RaterID),
		"rated_id":   string(e.Rating.RatedID),
		"listing_id": string(e.Rating.ListingID),
		"score":      e.Rating.Score,
	}
}

type AccountDeleted struct {
	UserID user.ID
}

func (AccountDeleted) Name() string  { return "users.account.deleted" }
func (e AccountDeleted) Key() string { return string(e.UserID) }

func (e AccountDeleted) Payload() any {
	return map[string]any{"user_id": string(e.UserID)}
}

// Fanout forwards every event to all sinks. Sink failures are logged and do
// not stop delivery to the remaining sinks; the first error is returned.
type Fanout struct {
	Sinks  []Publisher
	Logger *slog.Logger
}

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var first error
	for _, sink := range f.Sinks {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, event); err != nil {
			if f.Logger != nil {
				f.Logger.Warn("event sink failed", "event", event.Name(), "key", event.Key(), "error", err)
			}
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Discard drops every event. Used when no broker or bridge is configured.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
