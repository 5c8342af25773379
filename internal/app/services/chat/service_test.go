package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	domainblocks "hostelmarket/internal/domain/blocks"
	domainchat "hostelmarket/internal/domain/chat"
	domainlisting "hostelmarket/internal/domain/listing"
	domainuser "hostelmarket/internal/domain/user"
	"hostelmarket/internal/infra/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memory.UserRepository, *memory.ListingRepository) {
	t.Helper()
	users := memory.NewUserRepository()
	listings := memory.NewListingRepository()
	return &Service{
		Conversations: memory.NewConversationRepository(),
		Messages:      memory.NewMessageRepository(),
		Listings:      listings,
		Users:         users,
		Blocks:        memory.NewBlockRepository(),
	}, users, listings
}

func seedUser(t *testing.T, users *memory.UserRepository, id, name string) domainuser.ID {
	t.Helper()
	u, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(id),
		Email:        id + "@hostel.test",
		Name:         name,
		PasswordHash: "x",
		Hostel:       "North Wing",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := users.Save(context.Background(), u); err != nil {
		t.Fatalf("save user: %v", err)
	}
	return u.ID
}

func seedListing(t *testing.T, listings *memory.ListingRepository, id string, owner domainuser.ID) domainlisting.ID {
	t.Helper()
	price := 100.0
	item, err := domainlisting.New(domainlisting.CreateParams{
		ID:        domainlisting.ID(id),
		Owner:     domainlisting.OwnerID(owner),
		Hostel:    "North Wing",
		Title:     "Desk Lamp",
		Type:      domainlisting.TypeSell,
		Category:  "electronics",
		Condition: domainlisting.ConditionGood,
		Price:     &price,
	})
	if err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	if err := listings.Save(context.Background(), item); err != nil {
		t.Fatalf("save listing: %v", err)
	}
	return item.ID
}

func TestStartConversationIdempotent(t *testing.T) {
	svc, users, listings := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, users, "seller", "Sana")
	buyer := seedUser(t, users, "buyer", "Bree")
	listingID := seedListing(t, listings, "l1", seller)

	first, err := svc.StartConversation(ctx, buyer, listingID)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := svc.StartConversation(ctx, buyer, listingID)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same conversation, got %q and %q", first.ID, second.ID)
	}
	if first.BuyerID != buyer || first.SellerID != seller {
		t.Fatalf("unexpected participants: %+v", first)
	}
}

func TestStartConversationRejectsSelf(t *testing.T) {
	svc, users, listings := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, users, "owner", "Olu")
	listingID := seedListing(t, listings, "l1", owner)

	if _, err := svc.StartConversation(ctx, owner, listingID); !errors.Is(err, domainchat.ErrSelfConversation) {
		t.Fatalf("expected ErrSelfConversation, got %v", err)
	}
	threads, err := svc.Conversations.ListByUser(ctx, owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(threads) != 0 {
		t.Fatalf("self-chat must not create a conversation, found %d", len(threads))
	}
}

func TestStartConversationResolvesCreateRace(t *testing.T) {
	svc, users, listings := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, users, "seller", "Sana")
	buyer := seedUser(t, users, "buyer", "Bree")
	listingID := seedListing(t, listings, "l1", seller)

	// Simulate the race: another request inserted the triple first.
	winner, err := domainchat.NewConversation(domainchat.NewConversationParams{
		ID:        "winner",
		ListingID: listingID,
		BuyerID:   buyer,
		SellerID:  seller,
	})
	if err != nil {
		t.Fatalf("new conversation: %v", err)
	}
	if err := svc.Conversations.Create(ctx, winner); err != nil {
		t.Fatalf("create winner: %v", err)
	}

	got, err := svc.StartConversation(ctx, buyer, listingID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got.ID != winner.ID {
		t.Fatalf("expected the winning row %q, got %q", winner.ID, got.ID)
	}
}

func TestSendMessageTrimsAndSkipsEmpty(t *testing.T) {
	svc, users, listings := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, users, "seller", "Sana")
	buyer := seedUser(t, users, "buyer", "Bree")
	listingID := seedListing(t, listings, "l1", seller)
	conversation, err := svc.StartConversation(ctx, buyer, listingID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	view, err := svc.SendMessage(ctx, conversation.ID, buyer, "   \n\t  ")
	if err != nil {
		t.Fatalf("whitespace send: %v", err)
	}
	if view != nil {
		t.Fatalf("whitespace-only content must be a no-op, got %+v", view)
	}
	messages, err := svc.ListMessages(ctx, conversation.ID, buyer)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("no message should be stored, found %d", len(messages))
	}

	view, err = svc.SendMessage(ctx, conversation.ID, buyer, "  hey there  ")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if view == nil || view.Content != "hey there" {
		t.Fatalf("expected trimmed content, got %+v", view)
	}
	if view.SenderName != "Bree" {
		t.Fatalf("expected sender name Bree, got %q", view.SenderName)
	}
}

func TestSendMessageRejectsOutsider(t *testing.T) {
	svc, users, listings := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, users, "seller", "Sana")
	buyer := seedUser(t, users, "buyer", "Bree")
	outsider := seedUser(t, users, "outsider", "Ngo")
	listingID := seedListing(t, listings, "l1", seller)
	conversation, err := svc.StartConversation(ctx, buyer, listingID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := svc.SendMessage(ctx, conversation.ID, outsider, "let me in"); !errors.Is(err, domainchat.ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := svc.ListMessages(ctx, conversation.ID, outsider); !errors.Is(err, domainchat.ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant on list, got %v", err)
	}
}

func TestMessagesAscendingWithSenderNames(t *testing.T) {
	svc, users, listings := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, users, "seller", "Sana")
	buyer := seedUser(t, users, "buyer", "Bree")
	listingID := seedListing(t, listings, "l1", seller)
	conversation, err := svc.StartConversation(ctx, buyer, listingID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	for _, send := range []struct {
		from    domainuser.ID
		content string
	}{
		{buyer, "is the lamp available?"},
		{seller, "yes, come by block C"},
		{buyer, "great, tonight?"},
	} {
		if _, err := svc.SendMessage(ctx, conversation.ID, send.from, send.content); err != nil {
			t.Fatalf("send %q: %v", send.content, err)
		}
	}

	messages, err := svc.ListMessages(ctx, conversation.ID, seller)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i := 1; i < len(messages); i++ {
		if messages[i].CreatedAt.Before(messages[i-1].CreatedAt) {
			t.Fatalf("messages out of order at %d", i)
		}
	}
	if messages[0].SenderName != "Bree" || messages[1].SenderName != "Sana" {
		t.Fatalf("sender names wrong: %q, %q", messages[0].SenderName, messages[1].SenderName)
	}
}

func TestSenderNameFallsBackToUnknown(t *testing.T) {
	svc, users, listings := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, users, "seller", "Sana")
	buyer := seedUser(t, users, "buyer", "Bree")
	listingID := seedListing(t, listings, "l1", seller)
	conversation, err := svc.StartConversation(ctx, buyer, listingID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.SendMessage(ctx, conversation.ID, buyer, "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := users.Delete(ctx, buyer); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	messages, err := svc.ListMessages(ctx, conversation.ID, seller)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if messages[0].SenderName != UnknownSenderName {
		t.Fatalf("expected %q, got %q", UnknownSenderName, messages[0].SenderName)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	svc, users, listings := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, users, "seller", "Sana")
	buyer := seedUser(t, users, "buyer", "Bree")
	listingID := seedListing(t, listings, "l1", seller)
	conversation, err := svc.StartConversation(ctx, buyer, listingID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.SendMessage(ctx, conversation.ID, buyer, "ping"); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	unread, err := svc.UnreadCount(ctx, conversation.ID, seller)
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if unread != 3 {
		t.Fatalf("expected 3 unread, got %d", unread)
	}
	// The sender's own messages never count against them.
	unread, err = svc.UnreadCount(ctx, conversation.ID, buyer)
	if err != nil {
		t.Fatalf("unread sender: %v", err)
	}
	if unread != 0 {
		t.Fatalf("sender must have 0 unread, got %d", unread)
	}

	if err := svc.MarkRead(ctx, conversation.ID, seller); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	unread, err = svc.UnreadCount(ctx, conversation.ID, seller)
	if err != nil {
		t.Fatalf("unread after read: %v", err)
	}
	if unread != 0 {
		t.Fatalf("expected 0 unread after mark, got %d", unread)
	}
	// Second invocation changes nothing.
	if err := svc.MarkRead(ctx, conversation.ID, seller); err != nil {
		t.Fatalf("repeat mark read: %v", err)
	}

	messages, err := svc.ListMessages(ctx, conversation.ID, seller)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	stamp := messages[0].ReadAt
	if stamp == nil {
		t.Fatal("read_at not set")
	}
	for _, msg := range messages {
		if msg.ReadAt == nil {
			t.Fatal("every inbound message should carry read_at")
		}
	}
}

func TestListConversationsPreviews(t *testing.T) {
	svc, users, listings := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, users, "seller", "Sana")
	buyer := seedUser(t, users, "buyer", "Bree")
	listingID := seedListing(t, listings, "l1", seller)
	conversation, err := svc.StartConversation(ctx, buyer, listingID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.SendMessage(ctx, conversation.ID, buyer, "still available?"); err != nil {
		t.Fatalf("send: %v", err)
	}

	previews, err := svc.ListConversations(ctx, seller)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(previews) != 1 {
		t.Fatalf("expected 1 preview, got %d", len(previews))
	}
	preview := previews[0]
	if preview.OtherUserName != "Bree" {
		t.Fatalf("expected other party Bree, got %q", preview.OtherUserName)
	}
	if preview.ListingTitle != "Desk Lamp" {
		t.Fatalf("expected listing title, got %q", preview.ListingTitle)
	}
	if preview.LastMessage != "still available?" {
		t.Fatalf("expected last message, got %q", preview.LastMessage)
	}
	if preview.UnreadCount != 1 {
		t.Fatalf("expected 1 unread, got %d", preview.UnreadCount)
	}
}

func TestBlockedUsersCannotMessage(t *testing.T) {
	svc, users, listings := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, users, "seller", "Sana")
	buyer := seedUser(t, users, "buyer", "Bree")
	listingID := seedListing(t, listings, "l1", seller)
	conversation, err := svc.StartConversation(ctx, buyer, listingID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	entry := domainblocks.Block{UserID: seller, BlockedID: buyer, CreatedAt: time.Now()}
	if err := svc.Blocks.Add(ctx, entry); err != nil {
		t.Fatalf("add block: %v", err)
	}

	if _, err := svc.SendMessage(ctx, conversation.ID, buyer, "hello?"); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
	// Blocks work in both directions.
	if _, err := svc.SendMessage(ctx, conversation.ID, seller, "go away"); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked for blocker too, got %v", err)
	}
}

func TestPurgeUserRemovesThreads(t *testing.T) {
	svc, users, listings := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, users, "seller", "Sana")
	buyer := seedUser(t, users, "buyer", "Bree")
	listingID := seedListing(t, listings, "l1", seller)
	conversation, err := svc.StartConversation(ctx, buyer, listingID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.SendMessage(ctx, conversation.ID, buyer, "hi"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := svc.PurgeUser(ctx, buyer); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, err := svc.Conversations.ByID(ctx, conversation.ID); !errors.Is(err, domainchat.ErrNotFound) {
		t.Fatalf("conversation should be gone, got %v", err)
	}
	remaining, err := svc.Messages.ListByConversation(ctx, conversation.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("messages should be gone, found %d", len(remaining))
	}
}
