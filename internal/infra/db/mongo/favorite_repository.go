package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hostelmarket/internal/domain/favorites"
	"hostelmarket/internal/domain/listing"
	"hostelmarket/internal/domain/user"
)

type FavoriteRepository struct {
	col *mongo.Collection
}

func NewFavoriteRepository(db *mongo.Database) *FavoriteRepository {
	return &FavoriteRepository{col: db.Collection("favorites")}
}

func (r *FavoriteRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}

func (r *FavoriteRepository) Add(ctx context.Context, favorite favorites.Favorite) error {
	doc := favoriteDocument{
		ID:        favoriteKey(favorite.UserID, favorite.ListingID),
		UserID:    string(favorite.UserID),
		ListingID: string(favorite.ListingID),
		CreatedAt: favorite.CreatedAt.UnixMilli(),
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$setOnInsert": doc}, opts)
	return err
}

func (r *FavoriteRepository) Remove(ctx context.Context, userID user.ID, listingID listing.ID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": favoriteKey(userID, listingID)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return favorites.ErrNotFound
	}
	return nil
}

func (r *FavoriteRepository) ListByUser(ctx context.Context, userID user.ID) ([]favorites.Favorite, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"user_id": string(userID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []favorites.Favorite
	for cursor.Next(ctx) {
		var doc favoriteDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, favorites.Favorite{
			UserID:    user.ID(doc.UserID),
			ListingID: listing.ID(doc.ListingID),
			CreatedAt: timestampToTime(doc.CreatedAt),
		})
	}
	return result, cursor.Err()
}

func (r *FavoriteRepository) DeleteByUser(ctx context.Context, userID user.ID) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"user_id": string(userID)})
	return err
}

func (r *FavoriteRepository) DeleteByListing(ctx context.Context, listingID listing.ID) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"listing_id": string(listingID)})
	return err
}

type favoriteDocument struct {
	ID        string `bson:"_id"`
	UserID    string `bson:"user_id"`
	ListingID string `bson:"listing_id"`
	CreatedAt int64  `bson:"created_at"`
}

func favoriteKey(userID user.ID, listingID listing.ID) string {
	return fmt.Sprintf("%s:%s", userID, listingID)
}

var _ favorites.Repository = (*FavoriteRepository)(nil)
