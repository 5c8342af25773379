package profiles

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

	domainlisting "hostelmarket/internal/domain/listing"
	domainuser "hostelmarket/internal/domain/user"
)

type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
	RemoveByURL(ctx context.Context, publicURL string) error
}

type Service struct {
	Users    domainuser.Repository
	Listings domainlisting.Repository
	Images   Uploader
	Logger   *slog.Logger
}

func (s *Service) Get(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	return s.Users.ByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id domainuser.ID, update domainuser.ProfileUpdate) (*domainuser.User, error) {
	u, err := s.Users.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := u.ApplyProfile(update, time.Now()); err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SetAvatar stores a new avatar image and removes the previous one.
func (s *Service) SetAvatar(ctx context.Context, id domainuser.ID, filename, contentType string, reader io.Reader) (*domainuser.User, error) {
	if s.Images == nil {
		return nil, errors.New("profiles: image storage is not configured")
	}
	u, err := s.Users.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("avatars/%s/%s%s", id, uuid.NewString(), ext)
	url, err := s.Images.Upload(ctx, key, reader, contentType)
	if err != nil {
		return nil, err
	}
	previous := u.AvatarURL
	u.SetAvatarURL(url, time.Now())
	if err := s.Users.Save(ctx, u); err != nil {
		return nil, err
	}
	if previous != "" {
		if err := s.Images.RemoveByURL(ctx, previous); err != nil && s.Logger != nil {
			s.Logger.Warn("previous avatar removal failed", "url", previous, "error", err)
		}
	}
	return u, nil
}

// CommunityStats summarizes a hostel community for the home screen.
type CommunityStats struct {
	Hostel         string
	Residents      int64
	ActiveListings int64
}

func (s *Service) Stats(ctx context.Context, viewer domainuser.ID) (*CommunityStats, error) {
	u, err := s.Users.ByID(ctx, viewer)
	if err != nil {
		return nil, err
	}
	residents, err := s.Users.CountByHostel(ctx, u.Hostel)
	if err != nil {
		return nil, err
	}
	active, err := s.Listings.Search(ctx, domainlisting.SearchParams{Hostel: u.Hostel})
	if err != nil {
		return nil, err
	}
	return &CommunityStats{Hostel: u.Hostel, Residents: residents, ActiveListings: int64(len(active))}, nil
}

// ProfileView is a user's public profile together with how many listings
// they currently have on the catalog.
type ProfileView struct {
	User           *domainuser.User
	ActiveListings int64
}

func (s *Service) PublicProfile(ctx context.Context, id domainuser.ID) (*ProfileView, error) {
	u, err := s.Users.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	active, err := s.Listings.CountActiveByOwners(ctx, []domainlisting.OwnerID{domainlisting.OwnerID(id)})
	if err != nil {
		return nil, err
	}
	return &ProfileView{User: u, ActiveListings: active}, nil
}
