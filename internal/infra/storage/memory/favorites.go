package memory

import (
	"context"
	"sort"
	"sync"

	domainfavorites "hostelmarket/internal/domain/favorites"
	domainlisting "hostelmarket/internal/domain/listing"
	domainuser "hostelmarket/internal/domain/user"
)

type favoriteKey struct {
	userID    domainuser.ID
	listingID domainlisting.ID
}

// FavoriteRepository stores saved listings in memory.
type FavoriteRepository struct {
	mu      sync.RWMutex
	entries map[favoriteKey]domainfavorites.Favorite
}

func NewFavoriteRepository() *FavoriteRepository {
	return &FavoriteRepository{entries: make(map[favoriteKey]domainfavorites.Favorite)}
}

func (r *FavoriteRepository) Add(ctx context.Context, favorite domainfavorites.Favorite) error {
	key := favoriteKey{favorite.UserID, favorite.ListingID}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; !ok {
		r.entries[key] = favorite
	}
	return nil
}

func (r *FavoriteRepository) Remove(ctx context.Context, userID domainuser.ID, listingID domainlisting.ID) error {
	key := favoriteKey{userID, listingID}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; !ok {
		return domainfavorites.ErrNotFound
	}
	delete(r.entries, key)
	return nil
}

func (r *FavoriteRepository) ListByUser(ctx context.Context, userID domainuser.ID) ([]domainfavorites.Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domainfavorites.Favorite
	for key, favorite := range r.entries {
		if key.userID == userID {
			result = append(result, favorite)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *FavoriteRepository) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.entries {
		if key.userID == userID {
			delete(r.entries, key)
		}
	}
	return nil
}

func (r *FavoriteRepository) DeleteByListing(ctx context.Context, listingID domainlisting.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.entries {
		if key.listingID == listingID {
			delete(r.entries, key)
		}
	}
	return nil
}

var _ domainfavorites.Repository = (*FavoriteRepository)(nil)
