package ratings

import (
	"context"
	"errors"
	"strings"
	"time"

	"hostelmarket/internal/domain/listing"
	"hostelmarket/internal/domain/user"
)

var (
	ErrIDRequired      = errors.New("ratings: id is required")
	ErrRaterRequired   = errors.New("ratings: rater is required")
	ErrRatedRequired   = errors.New("ratings: rated user is required")
	ErrListingRequired = errors.New("ratings: listing is required")
	ErrSelfRating      = errors.New("ratings: cannot rate yourself")
	ErrRatingRange     = errors.New("ratings: rating must be between 1 and 5")
	ErrDuplicate       = errors.New("ratings: rating already exists for this listing")
	ErrNotFound        = errors.New("ratings: not found")
)

type ID string

// Rating scores a user for a transaction over one listing. One rating per
// (rater, rated, listing).
type Rating struct {
	ID        ID
	RaterID   user.ID
	RatedID   user.ID
	ListingID listing.ID
	Score     int
	Review    string
	CreatedAt time.Time
}

type SubmitParams struct {
	ID        ID
	RaterID   user.ID
	RatedID   user.ID
	ListingID listing.ID
	Score     int
	Review    string
	Now       time.Time
}

func Submit(params SubmitParams) (*Rating, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	rater := strings.TrimSpace(string(params.RaterID))
	if rater == "" {
		return nil, ErrRaterRequired
	}
	rated := strings.TrimSpace(string(params.RatedID))
	if rated == "" {
		return nil, ErrRatedRequired
	}
	if rater == rated {
		return nil, ErrSelfRating
	}
	if strings.TrimSpace(string(params.ListingID)) == "" {
		return nil, ErrListingRequired
	}
	if params.Score < 1 || params.Score > 5 {
		return nil, ErrRatingRange
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Rating{
		ID:        params.ID,
		RaterID:   user.ID(rater),
		RatedID:   user.ID(rated),
		ListingID: params.ListingID,
		Score:     params.Score,
		Review:    strings.TrimSpace(params.Review),
		CreatedAt: now.UTC(),
	}, nil
}

// Repository persists ratings. Save must fail with ErrDuplicate when a
// rating for the same (rater, rated, listing) triple already exists.
type Repository interface {
	Save(ctx context.Context, rating *Rating) error
	ListByRated(ctx context.Context, ratedID user.ID) ([]Rating, error)
	AggregateForUser(ctx context.Context, ratedID user.ID) (average float64, count int, err error)
	DeleteByUser(ctx context.Context, id user.ID) error
}
