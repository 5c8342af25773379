package favorites

import (
	"context"
	"log/slog"
	"time"

	domainfavorites "hostelmarket/internal/domain/favorites"
	domainlisting "hostelmarket/internal/domain/listing"
	domainuser "hostelmarket/internal/domain/user"
)

type Service struct {
	Favorites domainfavorites.Repository
	Listings  domainlisting.Repository
	Logger    *slog.Logger
}

// Add saves a listing for the user. Saving the same listing twice is a no-op.
func (s *Service) Add(ctx context.Context, userID domainuser.ID, listingID domainlisting.ID) error {
	if _, err := s.Listings.ByID(ctx, listingID); err != nil {
		return err
	}
	return s.Favorites.Add(ctx, domainfavorites.Favorite{
		UserID:    userID,
		ListingID: listingID,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Service) Remove(ctx context.Context, userID domainuser.ID, listingID domainlisting.ID) error {
	return s.Favorites.Remove(ctx, userID, listingID)
}

// List returns the user's saved listings, newest first. Favorites whose
// listing has since been deleted are dropped from the result.
func (s *Service) List(ctx context.Context, userID domainuser.ID) ([]domainlisting.Listing, error) {
	saved, err := s.Favorites.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]domainlisting.ID, 0, len(saved))
	for _, favorite := range saved {
		ids = append(ids, favorite.ListingID)
	}
	items, err := s.Listings.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	result := make([]domainlisting.Listing, 0, len(saved))
	for _, favorite := range saved {
		if item, ok := items[favorite.ListingID]; ok {
			result = append(result, *item)
		}
	}
	return result, nil
}
