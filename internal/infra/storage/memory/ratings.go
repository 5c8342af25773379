package memory

import (
	"context"
	"sort"
	"sync"

	domainlisting "hostelmarket/internal/domain/listing"
	domainratings "hostelmarket/internal/domain/ratings"
	domainuser "hostelmarket/internal/domain/user"
)

type ratingKey struct {
	raterID   domainuser.ID
	ratedID   domainuser.ID
	listingID domainlisting.ID
}

// RatingRepository stores ratings in memory.
type RatingRepository struct {
	mu       sync.RWMutex
	byID     map[domainratings.ID]*domainratings.Rating
	byTriple map[ratingKey]domainratings.ID
}

func NewRatingRepository() *RatingRepository {
	return &RatingRepository{
		byID:     make(map[domainratings.ID]*domainratings.Rating),
		byTriple: make(map[ratingKey]domainratings.ID),
	}
}

func (r *RatingRepository) Save(ctx context.Context, rating *domainratings.Rating) error {
	if rating == nil {
		return domainratings.ErrIDRequired
	}
	key := ratingKey{rating.RaterID, rating.RatedID, rating.ListingID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTriple[key]; ok {
		return domainratings.ErrDuplicate
	}
	copyRating := *rating
	r.byTriple[key] = rating.ID
	r.byID[rating.ID] = &copyRating
	return nil
}

func (r *RatingRepository) ListByRated(ctx context.Context, ratedID domainuser.ID) ([]domainratings.Rating, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domainratings.Rating
	for _, rating := range r.byID {
		if rating.RatedID == ratedID {
			result = append(result, *rating)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *RatingRepository) AggregateForUser(ctx context.Context, ratedID domainuser.ID) (float64, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum float64
	var count int
	for _, rating := range r.byID {
		if rating.RatedID == ratedID {
			sum += float64(rating.Score)
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return sum / float64(count), count, nil
}

func (r *RatingRepository) DeleteByUser(ctx context.Context, id domainuser.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, ratingID := range r.byTriple {
		if key.raterID == id || key.ratedID == id {
			delete(r.byID, ratingID)
			delete(r.byTriple, key)
		}
	}
	return nil
}

var _ domainratings.Repository = (*RatingRepository)(nil)
