package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hostelmarket/internal/domain/blocks"
	"hostelmarket/internal/domain/user"
)

type BlockRepository struct {
	col *mongo.Collection
}

func NewBlockRepository(db *mongo.Database) *BlockRepository {
	return &BlockRepository{col: db.Collection("blocks")}
}

func (r *BlockRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "blocked_id", Value: 1}}},
	})
	return err
}

func (r *BlockRepository) Add(ctx context.Context, block blocks.Block) error {
	doc := blockDocument{
		ID:        blockKey(block.UserID, block.BlockedID),
		UserID:    string(block.UserID),
		BlockedID: string(block.BlockedID),
		CreatedAt: block.CreatedAt.UnixMilli(),
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$setOnInsert": doc}, opts)
	return err
}

func (r *BlockRepository) Remove(ctx context.Context, userID, blockedID user.ID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": blockKey(userID, blockedID)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return blocks.ErrNotFound
	}
	return nil
}

func (r *BlockRepository) ListByUser(ctx context.Context, userID user.ID) ([]blocks.Block, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"user_id": string(userID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []blocks.Block
	for cursor.Next(ctx) {
		var doc blockDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, blocks.Block{
			UserID:    user.ID(doc.UserID),
			BlockedID: user.ID(doc.BlockedID),
			CreatedAt: timestampToTime(doc.CreatedAt),
		})
	}
	return result, cursor.Err()
}

func (r *BlockRepository) Exists(ctx context.Context, a, b user.ID) (bool, error) {
	count, err := r.col.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": bson.A{
		blockKey(a, b),
		blockKey(b, a),
	}}})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *BlockRepository) DeleteByUser(ctx context.Context, id user.ID) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"user_id": string(id)},
		bson.M{"blocked_id": string(id)},
	}})
	return err
}

type blockDocument struct {
	ID        string `bson:"_id"`
	UserID    string `bson:"user_id"`
	BlockedID string `bson:"blocked_id"`
	CreatedAt int64  `bson:"created_at"`
}

func blockKey(userID, blockedID user.ID) string {
	return fmt.Sprintf("%s:%s", userID, blockedID)
}

var _ blocks.Repository = (*BlockRepository)(nil)
