package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainchat "hostelmarket/internal/domain/chat"
	domainlisting "hostelmarket/internal/domain/listing"
	domainuser "hostelmarket/internal/domain/user"
)

type tripleKey struct {
	listingID domainlisting.ID
	buyerID   domainuser.ID
	sellerID  domainuser.ID
}

// ConversationRepository stores conversations in memory. The byTriple map
// plays the role of the unique (listing, buyer, seller) index.
type ConversationRepository struct {
	mu       sync.RWMutex
	byID     map[domainchat.ConversationID]*domainchat.Conversation
	byTriple map[tripleKey]domainchat.ConversationID
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		byID:     make(map[domainchat.ConversationID]*domainchat.Conversation),
		byTriple: make(map[tripleKey]domainchat.ConversationID),
	}
}

func (r *ConversationRepository) ByID(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.byID[id]; ok {
		return cloneConversation(c), nil
	}
	return nil, domainchat.ErrNotFound
}

func (r *ConversationRepository) ByTriple(ctx context.Context, listingID domainlisting.ID, buyerID, sellerID domainuser.ID) (*domainchat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byTriple[tripleKey{listingID, buyerID, sellerID}]
	if !ok {
		return nil, domainchat.ErrNotFound
	}
	return cloneConversation(r.byID[id]), nil
}

func (r *ConversationRepository) Create(ctx context.Context, conversation *domainchat.Conversation) error {
	if conversation == nil {
		return domainchat.ErrIDRequired
	}
	key := tripleKey{conversation.ListingID, conversation.BuyerID, conversation.SellerID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTriple[key]; ok {
		return domainchat.ErrConversationExists
	}
	if _, ok := r.byID[conversation.ID]; ok {
		return domainchat.ErrConversationExists
	}
	r.byTriple[key] = conversation.ID
	r.byID[conversation.ID] = cloneConversation(conversation)
	return nil
}

func (r *ConversationRepository) Touch(ctx context.Context, id domainchat.ConversationID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return domainchat.ErrNotFound
	}
	c.UpdatedAt = at.UTC()
	return nil
}

func (r *ConversationRepository) ListByUser(ctx context.Context, userID domainuser.ID) ([]domainchat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domainchat.Conversation
	for _, c := range r.byID {
		if c.Involves(userID) {
			result = append(result, *cloneConversation(c))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (r *ConversationRepository) DeleteByUser(ctx context.Context, userID domainuser.ID) ([]domainchat.ConversationID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []domainchat.ConversationID
	for id, c := range r.byID {
		if !c.Involves(userID) {
			continue
		}
		removed = append(removed, id)
		delete(r.byTriple, tripleKey{c.ListingID, c.BuyerID, c.SellerID})
		delete(r.byID, id)
	}
	return removed, nil
}

func cloneConversation(c *domainchat.Conversation) *domainchat.Conversation {
	if c == nil {
		return nil
	}
	copyConversation := *c
	return &copyConversation
}

// MessageRepository stores messages in memory, grouped per conversation in
// append order.
type MessageRepository struct {
	mu             sync.RWMutex
	byConversation map[domainchat.ConversationID][]*domainchat.Message
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{
		byConversation: make(map[domainchat.ConversationID][]*domainchat.Message),
	}
}

func (r *MessageRepository) Append(ctx context.Context, message *domainchat.Message) error {
	if message == nil {
		return domainchat.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConversation[message.ConversationID] = append(r.byConversation[message.ConversationID], cloneMessage(message))
	return nil
}

func (r *MessageRepository) ListByConversation(ctx context.Context, id domainchat.ConversationID) ([]domainchat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.byConversation[id]
	result := make([]domainchat.Message, 0, len(stored))
	for _, m := range stored {
		result = append(result, *cloneMessage(m))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MessageRepository) LastByConversation(ctx context.Context, id domainchat.ConversationID) (*domainchat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.byConversation[id]
	if len(stored) == 0 {
		return nil, nil
	}
	last := stored[0]
	for _, m := range stored[1:] {
		if !m.CreatedAt.Before(last.CreatedAt) {
			last = m
		}
	}
	return cloneMessage(last), nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, id domainchat.ConversationID, viewer domainuser.ID, at time.Time) (int64, error) {
	at = at.UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	var changed int64
	for _, m := range r.byConversation[id] {
		if m.SenderID == viewer || m.ReadAt != nil {
			continue
		}
		stamp := at
		m.ReadAt = &stamp
		changed++
	}
	return changed, nil
}

func (r *MessageRepository) UnreadCount(ctx context.Context, id domainchat.ConversationID, viewer domainuser.ID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, m := range r.byConversation[id] {
		if m.SenderID != viewer && m.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *MessageRepository) DeleteByConversations(ctx context.Context, ids []domainchat.ConversationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.byConversation, id)
	}
	return nil
}

func cloneMessage(m *domainchat.Message) *domainchat.Message {
	if m == nil {
		return nil
	}
	copyMessage := *m
	if m.ReadAt != nil {
		readAt := *m.ReadAt
		copyMessage.ReadAt = &readAt
	}
	return &copyMessage
}

var _ domainchat.ConversationRepository = (*ConversationRepository)(nil)
var _ domainchat.MessageRepository = (*MessageRepository)(nil)
