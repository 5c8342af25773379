package chat

import (
	"context"
	"time"

	"hostelmarket/internal/app/events"
	domainlisting "hostelmarket/internal/domain/listing"
	domainuser "hostelmarket/internal/domain/user"
)

// notificationBodyLimit caps notification bodies; longer content is cut
// and suffixed with an ellipsis marker.
const notificationBodyLimit = 50

// Notification is the user-visible alert raised for an inbound message
// arriving outside the open conversation view.
type Notification struct {
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	SenderID       string    `json:"sender_id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	ListingTitle   string    `json:"listing_title"`
	SentAt         time.Time `json:"sent_at"`
}

// Notifier turns message events into notifications, resolving the sender's
// display name and the conversation's listing title per event.
type Notifier struct {
	Users    domainuser.Repository
	Listings domainlisting.Repository
}

func (n *Notifier) Describe(ctx context.Context, event events.MessageSent) Notification {
	senderName := UnknownSenderName
	if n.Users != nil {
		if sender, err := n.Users.ByID(ctx, event.Message.SenderID); err == nil {
			senderName = sender.Name
		}
	}
	listingTitle := "Unknown Listing"
	if n.Listings != nil {
		if item, err := n.Listings.ByID(ctx, event.Conversation.ListingID); err == nil {
			listingTitle = item.Title
		}
	}
	return Notification{
		ConversationID: string(event.Conversation.ID),
		MessageID:      string(event.Message.ID),
		SenderID:       string(event.Message.SenderID),
		Title:          senderName,
		Body:           TruncateBody(event.Message.Content, notificationBodyLimit),
		ListingTitle:   listingTitle,
		SentAt:         event.Message.CreatedAt,
	}
}

// TruncateBody cuts content to max runes, marking the cut with "...".
func TruncateBody(content string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}
