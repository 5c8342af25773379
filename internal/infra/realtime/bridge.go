package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"hostelmarket/internal/app/events"
	chatservice "hostelmarket/internal/app/services/chat"
)

// MessageFrame is the wire format pushed to sessions with the conversation
// view open. Ids let clients merge a pushed row with one already loaded
// over HTTP, so a fetch/push race never shows a message twice.
type MessageFrame struct {
	Type           string         `json:"type"`
	ConversationID string         `json:"conversation_id"`
	Message        MessagePayload `json:"message"`
}

type MessagePayload struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	SenderName     string     `json:"sender_name"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

// NotificationFrame alerts a session about an inbound message in a
// conversation it does not have open.
type NotificationFrame struct {
	Type         string                   `json:"type"`
	Notification chatservice.Notification `json:"notification"`
}

// Bridge subscribes to domain events and fans them out over the hub: a
// message goes to its conversation room, and every involved user without
// that room open gets a notification instead. It implements
// events.Publisher so services stay unaware of websockets.
type Bridge struct {
	Hub      *Hub
	Notifier *chatservice.Notifier
	Logger   *slog.Logger
}

func (b *Bridge) Publish(ctx context.Context, event events.Event) error {
	sent, ok := event.(events.MessageSent)
	if !ok {
		return nil
	}
	return b.deliver(ctx, sent)
}

func (b *Bridge) deliver(ctx context.Context, event events.MessageSent) error {
	if b.Hub == nil {
		return nil
	}
	notification := b.Notifier.Describe(ctx, event)

	frame := MessageFrame{
		Type:           "message",
		ConversationID: string(event.Conversation.ID),
		Message: MessagePayload{
			ID:             string(event.Message.ID),
			ConversationID: string(event.Message.ConversationID),
			SenderID:       string(event.Message.SenderID),
			SenderName:     notification.Title,
			Content:        event.Message.Content,
			CreatedAt:      event.Message.CreatedAt,
			ReadAt:         event.Message.ReadAt,
		},
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	delivered := b.Hub.Broadcast(string(event.Conversation.ID), payload)
	if b.Logger != nil && delivered > 0 {
		b.Logger.Debug("message broadcast", "conversation_id", event.Conversation.ID, "delivered", delivered)
	}

	notifyPayload, err := json.Marshal(NotificationFrame{Type: "notification", Notification: notification})
	if err != nil {
		return err
	}
	for _, participant := range []string{string(event.Conversation.BuyerID), string(event.Conversation.SellerID)} {
		if participant == string(event.Message.SenderID) {
			continue
		}
		// The open view already received the message frame; a second alert
		// for the same insert would be a duplicate.
		if b.Hub.InRoom(string(event.Conversation.ID), participant) {
			continue
		}
		b.Hub.NotifyUser(participant, notifyPayload)
	}
	return nil
}
