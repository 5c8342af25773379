package mongo

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hostelmarket/internal/domain/listing"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection("listings")}
}

func (r *ListingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "hostel", Value: 1}, {Key: "active", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

func (r *ListingRepository) ByID(ctx context.Context, id listing.ID) (*listing.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, listing.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) ByIDs(ctx context.Context, ids []listing.ID) (map[listing.ID]*listing.Listing, error) {
	result := make(map[listing.ID]*listing.Listing, len(ids))
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
		var doc listingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		l := doc.toAggregate()
		result[l.ID] = l
	}
	return result, cursor.Err()
}

func (r *ListingRepository) Save(ctx context.Context, l *listing.Listing) error {
	doc := newListingDocument(l)
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

func (r *ListingRepository) Delete(ctx context.Context, id listing.ID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	return err
}

// DeleteByOwner removes all listings for the owner and returns the removed
// rows so callers can clean up stored images.
func (r *ListingRepository) DeleteByOwner(ctx context.Context, owner listing.OwnerID) ([]listing.Listing, error) {
	cursor, err := r.col.Find(ctx, bson.M{"owner_id": string(owner)})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var removed []listing.Listing
	for cursor.Next(ctx) {
		var doc listingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		removed = append(removed, *doc.toAggregate())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	if _, err := r.col.DeleteMany(ctx, bson.M{"owner_id": string(owner)}); err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *ListingRepository) Search(ctx context.Context, params listing.SearchParams) ([]listing.Listing, error) {
	filter := bson.M{}
	if params.OwnerID != "" {
		filter["owner_id"] = string(params.OwnerID)
	} else {
		filter["active"] = true
	}
	if params.Hostel != "" {
		filter["hostel"] = params.Hostel
	}
	if params.Category != "" {
		filter["category"] = params.Category
	}
	if params.Type != "" {
		filter["type"] = string(params.Type)
	}
	if q := strings.TrimSpace(params.Query); q != "" {
		pattern := primitive.Regex{Pattern: regexEscape(q), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if params.Limit > 0 {
		opts = opts.SetLimit(int64(params.Limit))
	}
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []listing.Listing
	for cursor.Next(ctx) {
		var doc listingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, *doc.toAggregate())
	}
	return result, cursor.Err()
}

func (r *ListingRepository) CountActiveByOwners(ctx context.Context, owners []listing.OwnerID) (int64, error) {
	if len(owners) == 0 {
		return 0, nil
	}
	raw := make([]string, 0, len(owners))
	for _, owner := range owners {
		raw = append(raw, string(owner))
	}
	return r.col.CountDocuments(ctx, bson.M{"owner_id": bson.M{"$in": raw}, "active": true})
}

type listingDocument struct {
	ID            string   `bson:"_id"`
	OwnerID       string   `bson:"owner_id"`
	Hostel        string   `bson:"hostel"`
	Title         string   `bson:"title"`
	Description   string   `bson:"description"`
	Type          string   `bson:"type"`
	Category      string   `bson:"category"`
	Condition     string   `bson:"condition"`
	Price         *float64 `bson:"price"`
	Images        []string `bson:"images"`
	Location      string   `bson:"location"`
	RentPeriod    string   `bson:"rent_period"`
	Deposit       *float64 `bson:"deposit"`
	AvailableFrom int64    `bson:"available_from"`
	AvailableTo   int64    `bson:"available_to"`
	Active        bool     `bson:"active"`
	CreatedAt     int64    `bson:"created_at"`
	UpdatedAt     int64    `bson:"updated_at"`
}

func newListingDocument(l *listing.Listing) listingDocument {
	doc := listingDocument{
		ID:          string(l.ID),
		OwnerID:     string(l.Owner),
		Hostel:      l.Hostel,
		Title:       l.Title,
		Description: l.Description,
		Type:        string(l.Type),
		Category:    l.Category,
		Condition:   string(l.Condition),
		Price:       l.Price,
		Images:      l.Images,
		Location:    l.Location,
		RentPeriod:  l.RentPeriod,
		Deposit:     l.Deposit,
		Active:      l.Active,
		CreatedAt:   l.CreatedAt.UnixMilli(),
		UpdatedAt:   l.UpdatedAt.UnixMilli(),
	}
	if !l.AvailableFrom.IsZero() {
		doc.AvailableFrom = l.AvailableFrom.UnixMilli()
	}
	if !l.AvailableTo.IsZero() {
		doc.AvailableTo = l.AvailableTo.UnixMilli()
	}
	return doc
}

func (d listingDocument) toAggregate() *listing.Listing {
	l := &listing.Listing{
		ID:          listing.ID(d.ID),
		Owner:       listing.OwnerID(d.OwnerID),
		Hostel:      d.Hostel,
		Title:       d.Title,
		Description: d.Description,
		Type:        listing.Type(d.Type),
		Category:    d.Category,
		Condition:   listing.Condition(d.Condition),
		Price:       d.Price,
		Images:      d.Images,
		Location:    d.Location,
		RentPeriod:  d.RentPeriod,
		Deposit:     d.Deposit,
		Active:      d.Active,
		CreatedAt:   timestampToTime(d.CreatedAt),
		UpdatedAt:   timestampToTime(d.UpdatedAt),
	}
	if d.AvailableFrom != 0 {
		l.AvailableFrom = timestampToTime(d.AvailableFrom)
	}
	if d.AvailableTo != 0 {
		l.AvailableTo = timestampToTime(d.AvailableTo)
	}
	return l
}

func regexEscape(s string) string {
	special := `\.+*?()|[]{}^$`
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ listing.Repository = (*ListingRepository)(nil)
