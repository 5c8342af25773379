package favorites

import (
	"context"
	"errors"
	"time"

	"hostelmarket/internal/domain/listing"
	"hostelmarket/internal/domain/user"
)

var ErrNotFound = errors.New("favorites: not found")

// Favorite marks a listing saved by a user. (user, listing) is unique.
type Favorite struct {
	UserID    user.ID
	ListingID listing.ID
	CreatedAt time.Time
}

type Repository interface {
	Add(ctx context.Context, favorite Favorite) error
	Remove(ctx context.Context, userID user.ID, listingID listing.ID) error
	ListByUser(ctx context.Context, userID user.ID) ([]Favorite, error)
	DeleteByUser(ctx context.Context, userID user.ID) error
	DeleteByListing(ctx context.Context, listingID listing.ID) error
}
