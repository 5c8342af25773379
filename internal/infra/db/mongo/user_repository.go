package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hostelmarket/internal/domain/user"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection("users")}
}

// EnsureIndexes creates the unique email index. Safe to call on every start.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *UserRepository) ByID(ctx context.Context, id user.ID) (*user.User, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *UserRepository) ByIDs(ctx context.Context, ids []user.ID) (map[user.ID]*user.User, error) {
	result := make(map[user.ID]*user.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, string(id))
	}
	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": raw}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		u := doc.toAggregate()
		result[u.ID] = u
	}
	return result, cursor.Err()
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*user.User, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, bson.M{"email": user.NormalizeEmail(email)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	doc := newUserDocument(u)
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	if mongo.IsDuplicateKeyError(err) {
		return user.ErrEmailAlreadyUsed
	}
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id user.ID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	return err
}

func (r *UserRepository) CountByHostel(ctx context.Context, hostel string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"hostel": hostel})
}

type userDocument struct {
	ID           string  `bson:"_id"`
	Email        string  `bson:"email"`
	Name         string  `bson:"name"`
	PasswordHash string  `bson:"password_hash"`
	Phone        string  `bson:"phone"`
	Hostel       string  `bson:"hostel"`
	Block        string  `bson:"block"`
	Room         string  `bson:"room"`
	AvatarURL    string  `bson:"avatar_url"`
	Rating       float64 `bson:"rating"`
	RatingCount  int     `bson:"rating_count"`
	CreatedAt    int64   `bson:"created_at"`
	UpdatedAt    int64   `bson:"updated_at"`
}

func newUserDocument(u *user.User) userDocument {
	return userDocument{
		ID:           string(u.ID),
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Phone:        u.Phone,
		Hostel:       u.Hostel,
		Block:        u.Block,
		Room:         u.Room,
		AvatarURL:    u.AvatarURL,
		Rating:       u.Rating,
		RatingCount:  u.RatingCount,
		CreatedAt:    u.CreatedAt.UnixMilli(),
		UpdatedAt:    u.UpdatedAt.UnixMilli(),
	}
}

func (d userDocument) toAggregate() *user.User {
	return &user.User{
		ID:           user.ID(d.ID),
		Email:        d.Email,
		Name:         d.Name,
		PasswordHash: d.PasswordHash,
		Phone:        d.Phone,
		Hostel:       d.Hostel,
		Block:        d.Block,
		Room:         d.Room,
		AvatarURL:    d.AvatarURL,
		Rating:       d.Rating,
		RatingCount:  d.RatingCount,
		CreatedAt:    timestampToTime(d.CreatedAt),
		UpdatedAt:    timestampToTime(d.UpdatedAt),
	}
}

var _ user.Repository = (*UserRepository)(nil)
