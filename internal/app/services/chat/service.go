package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"hostelmarket/internal/app/events"
	"hostelmarket/internal/domain/blocks"
	domainchat "hostelmarket/internal/domain/chat"
	domainlisting "hostelmarket/internal/domain/listing"
	domainuser "hostelmarket/internal/domain/user"
)

var ErrBlocked = errors.New("chat: messaging is not available between these users")

// UnknownSenderName is shown when a message's sender profile no longer
// resolves (deleted account).
const UnknownSenderName = "Unknown"

// Service implements conversation lookup/creation, message access and
// read-state bookkeeping over the chat repositories.
type Service struct {
	Conversations domainchat.ConversationRepository
	Messages      domainchat.MessageRepository
	Listings      domainlisting.Repository
	Users         domainuser.Repository
	Blocks        blocks.Repository
	Events        events.Publisher
	Logger        *slog.Logger
}

// MessageView is a message joined with its sender's display name.
type MessageView struct {
	ID             string
	ConversationID string
	SenderID       string
	SenderName     string
	Content        string
	CreatedAt      time.Time
	ReadAt         *time.Time
}

// ConversationPreview is one row of the conversation list screen.
type ConversationPreview struct {
	ID            string
	ListingID     string
	ListingTitle  string
	OtherUserID   string
	OtherUserName string
	OtherBlock    string
	OtherAvatar   string
	LastMessage   string
	LastMessageAt time.Time
	UpdatedAt     time.Time
	UnreadCount   int64
}

// ConversationDetail carries what the open chat view needs about the thread.
type ConversationDetail struct {
	ID           string
	ListingID    string
	ListingTitle string
	OtherUserID  string
	OtherName    string
	OtherBlock   string
	OtherPhone   string
	OtherRating  float64
}

// StartConversation returns the existing conversation for
// (listing, buyer, owner) or creates one. The listing owner is the seller;
// messaging your own listing is rejected. A create race against the unique
// triple index is resolved by re-fetching the winning row.
func (s *Service) StartConversation(ctx context.Context, buyerID domainuser.ID, listingID domainlisting.ID) (*domainchat.Conversation, error) {
	item, err := s.Listings.ByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	sellerID := domainuser.ID(item.Owner)
	if sellerID == buyerID {
		return nil, domainchat.ErrSelfConversation
	}
	if err := s.ensureNotBlocked(ctx, buyerID, sellerID); err != nil {
		return nil, err
	}

	existing, err := s.Conversations.ByTriple(ctx, listingID, buyerID, sellerID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domainchat.ErrNotFound) {
		return nil, err
	}

	conversation, err := domainchat.NewConversation(domainchat.NewConversationParams{
		ID:        domainchat.ConversationID(uuid.NewString()),
		ListingID: listingID,
		BuyerID:   buyerID,
		SellerID:  sellerID,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Conversations.Create(ctx, conversation); err != nil {
		if errors.Is(err, domainchat.ErrConversationExists) {
			return s.Conversations.ByTriple(ctx, listingID, buyerID, sellerID)
		}
		return nil, err
	}
	s.publish(ctx, events.ConversationCreated{Conversation: *conversation})
	if s.Logger != nil {
		s.Logger.Info("conversation created", "conversation_id", conversation.ID, "listing_id", listingID, "buyer_id", buyerID, "seller_id", sellerID)
	}
	return conversation, nil
}

// Conversation loads thread details for a participant, joining the other
// party's profile and the listing title.
func (s *Service) Conversation(ctx context.Context, id domainchat.ConversationID, viewerID domainuser.ID) (*ConversationDetail, error) {
	conversation, err := s.participantConversation(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	detail := &ConversationDetail{
		ID:           string(conversation.ID),
		ListingID:    string(conversation.ListingID),
		ListingTitle: "Unknown Listing",
		OtherUserID:  string(conversation.OtherParty(viewerID)),
		OtherName:    UnknownSenderName,
	}
	if item, err := s.Listings.ByID(ctx, conversation.ListingID); err == nil {
		detail.ListingTitle = item.Title
	}
	if other, err := s.Users.ByID(ctx, conversation.OtherParty(viewerID)); err == nil {
		detail.OtherName = other.Name
		detail.OtherBlock = other.Block
		detail.OtherPhone = other.Phone
		detail.OtherRating = other.Rating
	}
	return detail, nil
}

// ListMessages returns the full thread in ascending creation order with
// sender display names resolved; senders without a profile show as Unknown.
func (s *Service) ListMessages(ctx context.Context, id domainchat.ConversationID, viewerID domainuser.ID) ([]MessageView, error) {
	if _, err := s.participantConversation(ctx, id, viewerID); err != nil {
		return nil, err
	}
	messages, err := s.Messages.ListByConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	names, err := s.senderNames(ctx, messages)
	if err != nil {
		return nil, err
	}
	views := make([]MessageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, toView(msg, names[msg.SenderID]))
	}
	return views, nil
}

// SendMessage appends a message to the thread. Content is trimmed first;
// whitespace-only input is a silent no-op and returns a nil view.
func (s *Service) SendMessage(ctx context.Context, id domainchat.ConversationID, senderID domainuser.ID, content string) (*MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	conversation, err := s.participantConversation(ctx, id, senderID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNotBlocked(ctx, conversation.BuyerID, conversation.SellerID); err != nil {
		return nil, err
	}

	message, err := domainchat.NewMessage(domainchat.NewMessageParams{
		ID:             domainchat.MessageID(uuid.NewString()),
		ConversationID: id,
		SenderID:       senderID,
		Content:        content,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Messages.Append(ctx, message); err != nil {
		return nil, err
	}
	if err := s.Conversations.Touch(ctx, id, message.CreatedAt); err != nil && s.Logger != nil {
		s.Logger.Warn("conversation activity bump failed", "conversation_id", id, "error", err)
	}
	conversation.Touch(message.CreatedAt)
	s.publish(ctx, events.MessageSent{Conversation: *conversation, Message: *message})

	name := UnknownSenderName
	if sender, err := s.Users.ByID(ctx, senderID); err == nil {
		name = sender.Name
	}
	view := toView(*message, name)
	return &view, nil
}

// MarkRead stamps all unread messages from the other party. Re-invoking
// after everything is read changes nothing.
func (s *Service) MarkRead(ctx context.Context, id domainchat.ConversationID, viewerID domainuser.ID) error {
	if _, err := s.participantConversation(ctx, id, viewerID); err != nil {
		return err
	}
	updated, err := s.Messages.MarkRead(ctx, id, viewerID, time.Now().UTC())
	if err != nil {
		return err
	}
	if updated > 0 && s.Logger != nil {
		s.Logger.Debug("messages marked read", "conversation_id", id, "viewer_id", viewerID, "count", updated)
	}
	return nil
}

// UnreadCount counts messages sent by the other party that the viewer has
// not read yet.
func (s *Service) UnreadCount(ctx context.Context, id domainchat.ConversationID, viewerID domainuser.ID) (int64, error) {
	if _, err := s.participantConversation(ctx, id, viewerID); err != nil {
		return 0, err
	}
	return s.Messages.UnreadCount(ctx, id, viewerID)
}

// ListConversations returns the user's threads newest-activity first, each
// annotated with the other party, listing title, last message and unread
// count. One unread-count query per conversation; fine at community scale.
func (s *Service) ListConversations(ctx context.Context, userID domainuser.ID) ([]ConversationPreview, error) {
	conversations, err := s.Conversations.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	previews := make([]ConversationPreview, 0, len(conversations))
	for _, conversation := range conversations {
		preview := ConversationPreview{
			ID:            string(conversation.ID),
			ListingID:     string(conversation.ListingID),
			ListingTitle:  "Unknown Listing",
			OtherUserID:   string(conversation.OtherParty(userID)),
			OtherUserName: UnknownSenderName,
			UpdatedAt:     conversation.UpdatedAt,
		}
		if item, err := s.Listings.ByID(ctx, conversation.ListingID); err == nil {
			preview.ListingTitle = item.Title
		}
		if other, err := s.Users.ByID(ctx, conversation.OtherParty(userID)); err == nil {
			preview.OtherUserName = other.Name
			preview.OtherBlock = other.Block
			preview.OtherAvatar = other.AvatarURL
		}
		if last, err := s.Messages.LastByConversation(ctx, conversation.ID); err == nil && last != nil {
			preview.LastMessage = last.Content
			preview.LastMessageAt = last.CreatedAt
		}
		unread, err := s.Messages.UnreadCount(ctx, conversation.ID, userID)
		if err != nil {
			return nil, err
		}
		preview.UnreadCount = unread
		previews = append(previews, preview)
	}
	return previews, nil
}

// PurgeUser removes the user's conversations and their messages. Used by
// the account deletion cascade.
func (s *Service) PurgeUser(ctx context.Context, userID domainuser.ID) error {
	ids, err := s.Conversations.DeleteByUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.Messages.DeleteByConversations(ctx, ids); err != nil {
		return fmt.Errorf("purge messages: %w", err)
	}
	return nil
}

func (s *Service) participantConversation(ctx context.Context, id domainchat.ConversationID, userID domainuser.ID) (*domainchat.Conversation, error) {
	conversation, err := s.Conversations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conversation.Involves(userID) {
		return nil, domainchat.ErrNotParticipant
	}
	return conversation, nil
}

func (s *Service) ensureNotBlocked(ctx context.Context, a, b domainuser.ID) error {
	if s.Blocks == nil {
		return nil
	}
	blocked, err := s.Blocks.Exists(ctx, a, b)
	if err != nil {
		return err
	}
	if blocked {
		return ErrBlocked
	}
	return nil
}

func (s *Service) senderNames(ctx context.Context, messages []domainchat.Message) (map[domainuser.ID]string, error) {
	seen := make(map[domainuser.ID]struct{}, 2)
	ids := make([]domainuser.ID, 0, 2)
	for _, msg := range messages {
		if _, ok := seen[msg.SenderID]; ok {
			continue
		}
		seen[msg.SenderID] = struct{}{}
		ids = append(ids, msg.SenderID)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	users, err := s.Users.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[domainuser.ID]string, len(users))
	for id, u := range users {
		names[id] = u.Name
	}
	return names, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, event); err != nil && s.Logger != nil {
		s.Logger.Warn("event publish failed", "event", event.Name(), "error", err)
	}
}

func toView(msg domainchat.Message, senderName string) MessageView {
	if senderName == "" {
		senderName = UnknownSenderName
	}
	return MessageView{
		ID:             string(msg.ID),
		ConversationID: string(msg.ConversationID),
		SenderID:       string(msg.SenderID),
		SenderName:     senderName,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
		ReadAt:         msg.ReadAt,
	}
}
