package listings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"hostelmarket/internal/app/events"
	domainfavorites "hostelmarket/internal/domain/favorites"
	domainlisting "hostelmarket/internal/domain/listing"
	domainuser "hostelmarket/internal/domain/user"
)

// Uploader stores listing images and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
	RemoveByURL(ctx context.Context, publicURL string) error
}

type Service struct {
	Listings  domainlisting.Repository
	Users     domainuser.Repository
	Favorites domainfavorites.Repository
	Images    Uploader
	Events    events.Publisher
	Logger    *slog.Logger
}

type CreateParams struct {
	Owner         domainuser.ID
	Title         string
	Description   string
	Type          domainlisting.Type
	Category      string
	Condition     domainlisting.Condition
	Price         *float64
	Images        []string
	Location      string
	RentPeriod    string
	Deposit       *float64
	AvailableFrom time.Time
	AvailableTo   time.Time
}

// Create publishes a new listing. The owner's hostel is denormalized onto
// the row so the catalog can filter by community without a join.
func (s *Service) Create(ctx context.Context, params CreateParams) (*domainlisting.Listing, error) {
	owner, err := s.Users.ByID(ctx, params.Owner)
	if err != nil {
		return nil, err
	}
	item, err := domainlisting.New(domainlisting.CreateParams{
		ID:            domainlisting.ID(uuid.NewString()),
		Owner:         domainlisting.OwnerID(owner.ID),
		Hostel:        owner.Hostel,
		Title:         params.Title,
		Description:   params.Description,
		Type:          params.Type,
		Category:      params.Category,
		Condition:     params.Condition,
		Price:         params.Price,
		Images:        params.Images,
		Location:      params.Location,
		RentPeriod:    params.RentPeriod,
		Deposit:       params.Deposit,
		AvailableFrom: params.AvailableFrom,
		AvailableTo:   params.AvailableTo,
		Now:           time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Listings.Save(ctx, item); err != nil {
		return nil, err
	}
	s.publish(ctx, events.ListingPublished{Listing: *item})
	if s.Logger != nil {
		s.Logger.Info("listing published", "listing_id", item.ID, "owner_id", item.Owner, "type", item.Type)
	}
	return item, nil
}

func (s *Service) Get(ctx context.Context, id domainlisting.ID) (*domainlisting.Listing, error) {
	return s.Listings.ByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id domainlisting.ID, actor domainuser.ID, update domainlisting.Update) (*domainlisting.Listing, error) {
	item, err := s.ownedListing(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := item.Apply(update, time.Now()); err != nil {
		return nil, err
	}
	if err := s.Listings.Save(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Deactivate takes a listing off the catalog without deleting its history.
func (s *Service) Deactivate(ctx context.Context, id domainlisting.ID, actor domainuser.ID) (*domainlisting.Listing, error) {
	item, err := s.ownedListing(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := item.Deactivate(time.Now()); err != nil {
		return nil, err
	}
	if err := s.Listings.Save(ctx, item); err != nil {
		return nil, err
	}
	s.publish(ctx, events.ListingDeactivated{Listing: *item})
	return item, nil
}

// Delete removes the listing, its favorites and its stored images.
func (s *Service) Delete(ctx context.Context, id domainlisting.ID, actor domainuser.ID) error {
	item, err := s.ownedListing(ctx, id, actor)
	if err != nil {
		return err
	}
	if err := s.Listings.Delete(ctx, id); err != nil {
		return err
	}
	if s.Favorites != nil {
		if err := s.Favorites.DeleteByListing(ctx, id); err != nil {
			return fmt.Errorf("delete favorites: %w", err)
		}
	}
	s.removeImages(ctx, item.Images)
	if s.Logger != nil {
		s.Logger.Info("listing deleted", "listing_id", id, "owner_id", item.Owner)
	}
	return nil
}

// Catalog lists active listings visible to the viewer, scoped to the
// viewer's hostel community.
func (s *Service) Catalog(ctx context.Context, viewer domainuser.ID, params domainlisting.SearchParams) ([]domainlisting.Listing, error) {
	u, err := s.Users.ByID(ctx, viewer)
	if err != nil {
		return nil, err
	}
	params.Hostel = u.Hostel
	params.OwnerID = ""
	return s.Listings.Search(ctx, params)
}

// ByOwner lists everything the owner has posted, active or not.
func (s *Service) ByOwner(ctx context.Context, owner domainuser.ID) ([]domainlisting.Listing, error) {
	return s.Listings.Search(ctx, domainlisting.SearchParams{OwnerID: domainlisting.OwnerID(owner)})
}

// UploadImage stores one listing image under the owner's prefix and returns
// its public URL.
func (s *Service) UploadImage(ctx context.Context, owner domainuser.ID, filename, contentType string, reader io.Reader) (string, error) {
	if s.Images == nil {
		return "", errors.New("listings: image storage is not configured")
	}
	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("listings/%s/%s%s", owner, uuid.NewString(), ext)
	return s.Images.Upload(ctx, key, reader, contentType)
}

func (s *Service) ownedListing(ctx context.Context, id domainlisting.ID, actor domainuser.ID) (*domainlisting.Listing, error) {
	item, err := s.Listings.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Owner != domainlisting.OwnerID(actor) {
		return nil, domainlisting.ErrNotOwner
	}
	return item, nil
}

func (s *Service) removeImages(ctx context.Context, urls []string) {
	if s.Images == nil {
		return
	}
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.Images.RemoveByURL(ctx, url); err != nil && s.Logger != nil {
			s.Logger.Warn("image removal failed", "url", url, "error", err)
		}
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, event); err != nil && s.Logger != nil {
		s.Logger.Warn("event publish failed", "event", event.Name(), "error", err)
	}
}
