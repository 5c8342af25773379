package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hostelmarket/internal/domain/chat"
	"hostelmarket/internal/domain/listing"
	"hostelmarket/internal/domain/user"
)

type ConversationRepository struct {
	col *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	return &ConversationRepository{col: db.Collection("conversations")}
}

// EnsureIndexes creates the unique (listing, buyer, seller) index that backs
// the find-or-create race: the loser of a concurrent insert gets a duplicate
// key error and re-fetches the winner's row.
func (r *ConversationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "listing_id", Value: 1}, {Key: "buyer_id", Value: 1}, {Key: "seller_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "buyer_id", Value: 1}, {Key: "updated_at", Value: -1}}},
		{Keys: bson.D{{Key: "seller_id", Value: 1}, {Key: "updated_at", Value: -1}}},
	})
	return err
}

func (r *ConversationRepository) ByID(ctx context.Context, id chat.ConversationID) (*chat.Conversation, error) {
	var doc conversationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, chat.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ConversationRepository) ByTriple(ctx context.Context, listingID listing.ID, buyerID, sellerID user.ID) (*chat.Conversation, error) {
	filter := bson.M{
		"listing_id": string(listingID),
		"buyer_id":   string(buyerID),
		"seller_id":  string(sellerID),
	}
	var doc conversationDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, chat.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ConversationRepository) Create(ctx context.Context, conversation *chat.Conversation) error {
	_, err := r.col.InsertOne(ctx, newConversationDocument(conversation))
	if mongo.IsDuplicateKeyError(err) {
		return chat.ErrConversationExists
	}
	return err
}

func (r *ConversationRepository) Touch(ctx context.Context, id chat.ConversationID, at time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": string(id)},
		bson.M{"$set": bson.M{"updated_at": at.UTC().UnixMilli()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return chat.ErrNotFound
	}
	return nil
}

func (r *ConversationRepository) ListByUser(ctx context.Context, userID user.ID) ([]chat.Conversation, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"buyer_id": string(userID)},
		bson.M{"seller_id": string(userID)},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []chat.Conversation
	for cursor.Next(ctx) {
		var doc conversationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, *doc.toAggregate())
	}
	return result, cursor.Err()
}

func (r *ConversationRepository) DeleteByUser(ctx context.Context, userID user.ID) ([]chat.ConversationID, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"buyer_id": string(userID)},
		bson.M{"seller_id": string(userID)},
	}}
	cursor, err := r.col.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []chat.ConversationID
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, chat.ConversationID(doc.ID))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if _, err := r.col.DeleteMany(ctx, filter); err != nil {
		return nil, err
	}
	return ids, nil
}

type conversationDocument struct {
	ID        string `bson:"_id"`
	ListingID string `bson:"listing_id"`
	BuyerID   string `bson:"buyer_id"`
	SellerID  string `bson:"seller_id"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
}

func newConversationDocument(c *chat.Conversation) conversationDocument {
	return conversationDocument{
		ID:        string(c.ID),
		ListingID: string(c.ListingID),
		BuyerID:   string(c.BuyerID),
		SellerID:  string(c.SellerID),
		CreatedAt: c.CreatedAt.UnixMilli(),
		UpdatedAt: c.UpdatedAt.UnixMilli(),
	}
}

func (d conversationDocument) toAggregate() *chat.Conversation {
	return &chat.Conversation{
		ID:        chat.ConversationID(d.ID),
		ListingID: listing.ID(d.ListingID),
		BuyerID:   user.ID(d.BuyerID),
		SellerID:  user.ID(d.SellerID),
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
	}
}

type MessageRepository struct {
	col *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{col: db.Collection("messages")}
}

func (r *MessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "read_at", Value: 1}, {Key: "sender_id", Value: 1}}},
	})
	return err
}

func (r *MessageRepository) Append(ctx context.Context, message *chat.Message) error {
	_, err := r.col.InsertOne(ctx, newMessageDocument(message))
	return err
}

func (r *MessageRepository) ListByConversation(ctx context.Context, id chat.ConversationID) ([]chat.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"conversation_id": string(id)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []chat.Message
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, *doc.toAggregate())
	}
	return result, cursor.Err()
}

func (r *MessageRepository) LastByConversation(ctx context.Context, id chat.ConversationID) (*chat.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var doc messageDocument
	if err := r.col.FindOne(ctx, bson.M{"conversation_id": string(id)}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, id chat.ConversationID, viewer user.ID, at time.Time) (int64, error) {
	filter := bson.M{
		"conversation_id": string(id),
		"sender_id":       bson.M{"$ne": string(viewer)},
		"read_at":         nil,
	}
	res, err := r.col.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read_at": at.UTC().UnixMilli()}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MessageRepository) UnreadCount(ctx context.Context, id chat.ConversationID, viewer user.ID) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{
		"conversation_id": string(id),
		"sender_id":       bson.M{"$ne": string(viewer)},
		"read_at":         nil,
	})
}

func (r *MessageRepository) DeleteByConversations(ctx context.Context, ids []chat.ConversationID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, string(id))
	}
	_, err := r.col.DeleteMany(ctx, bson.M{"conversation_id": bson.M{"$in": raw}})
	return err
}

type messageDocument struct {
	ID             string `bson:"_id"`
	ConversationID string `bson:"conversation_id"`
	SenderID       string `bson:"sender_id"`
	Content        string `bson:"content"`
	CreatedAt      int64  `bson:"created_at"`
	ReadAt         *int64 `bson:"read_at"`
}

func newMessageDocument(m *chat.Message) messageDocument {
	return messageDocument{
		ID:             string(m.ID),
		ConversationID: string(m.ConversationID),
		SenderID:       string(m.SenderID),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt.UnixMilli(),
		ReadAt:         timestampPtr(m.ReadAt),
	}
}

func (d messageDocument) toAggregate() *chat.Message {
	return &chat.Message{
		ID:             chat.MessageID(d.ID),
		ConversationID: chat.ConversationID(d.ConversationID),
		SenderID:       user.ID(d.SenderID),
		Content:        d.Content,
		CreatedAt:      timestampToTime(d.CreatedAt),
		ReadAt:         timePtr(d.ReadAt),
	}
}

var _ chat.ConversationRepository = (*ConversationRepository)(nil)
var _ chat.MessageRepository = (*MessageRepository)(nil)
