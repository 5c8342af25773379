package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hostelmarket/internal/domain/listing"
	"hostelmarket/internal/domain/ratings"
	"hostelmarket/internal/domain/user"
)

type RatingRepository struct {
	col *mongo.Collection
}

func NewRatingRepository(db *mongo.Database) *RatingRepository {
	return &RatingRepository{col: db.Collection("ratings")}
}

func (r *RatingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "rater_id", Value: 1}, {Key: "rated_id", Value: 1}, {Key: "listing_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "rated_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

func (r *RatingRepository) Save(ctx context.Context, rating *ratings.Rating) error {
	_, err := r.col.InsertOne(ctx, newRatingDocument(rating))
	if mongo.IsDuplicateKeyError(err) {
		return ratings.ErrDuplicate
	}
	return err
}

func (r *RatingRepository) ListByRated(ctx context.Context, ratedID user.ID) ([]ratings.Rating, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"rated_id": string(ratedID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []ratings.Rating
	for cursor.Next(ctx) {
		var doc ratingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, *doc.toAggregate())
	}
	return result, cursor.Err()
}

func (r *RatingRepository) AggregateForUser(ctx context.Context, ratedID user.ID) (float64, int, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"rated_id": string(ratedID)}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"average": bson.M{"$avg": "$score"},
			"count":   bson.M{"$sum": 1},
		}}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	defer cursor.Close(ctx)

	var row struct {
		Average float64 `bson:"average"`
		Count   int     `bson:"count"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&row); err != nil {
			return 0, 0, err
		}
	} else if err := cursor.Err(); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, 0, err
	}
	return row.Average, row.Count, nil
}

func (r *RatingRepository) DeleteByUser(ctx context.Context, id user.ID) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"rater_id": string(id)},
		bson.M{"rated_id": string(id)},
	}})
	return err
}

type ratingDocument struct {
	ID        string `bson:"_id"`
	RaterID   string `bson:"rater_id"`
	RatedID   string `bson:"rated_id"`
	ListingID string `bson:"listing_id"`
	Score     int    `bson:"score"`
	Review    string `bson:"review"`
	CreatedAt int64  `bson:"created_at"`
}

func newRatingDocument(rating *ratings.Rating) ratingDocument {
	return ratingDocument{
		ID:        string(rating.ID),
		RaterID:   string(rating.RaterID),
		RatedID:   string(rating.RatedID),
		ListingID: string(rating.ListingID),
		Score:     rating.Score,
		Review:    rating.Review,
		CreatedAt: rating.CreatedAt.UnixMilli(),
	}
}

func (d ratingDocument) toAggregate() *ratings.Rating {
	return &ratings.Rating{
		ID:        ratings.ID(d.ID),
		RaterID:   user.ID(d.RaterID),
		RatedID:   user.ID(d.RatedID),
		ListingID: listing.ID(d.ListingID),
		Score:     d.Score,
		Review:    d.Review,
		CreatedAt: timestampToTime(d.CreatedAt),
	}
}

var _ ratings.Repository = (*RatingRepository)(nil)
