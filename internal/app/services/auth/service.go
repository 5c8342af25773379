package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"hostelmarket/internal/app/events"
	domainauth "hostelmarket/internal/domain/auth"
	domainblocks "hostelmarket/internal/domain/blocks"
	domainfavorites "hostelmarket/internal/domain/favorites"
	domainlisting "hostelmarket/internal/domain/listing"
	domainratings "hostelmarket/internal/domain/ratings"
	domainuser "hostelmarket/internal/domain/user"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenGenerator interface {
	NewToken() (string, error)
}

// ChatPurger removes a user's conversations and their messages.
type ChatPurger interface {
	PurgeUser(ctx context.Context, userID domainuser.ID) error
}

// ImageRemover deletes stored listing images and avatars by public URL.
type ImageRemover interface {
	RemoveByURL(ctx context.Context, publicURL string) error
}

type Service struct {
	Users      domainuser.Repository
	Sessions   domainauth.SessionStore
	Listings   domainlisting.Repository
	Favorites  domainfavorites.Repository
	Ratings    domainratings.Repository
	Blocks     domainblocks.Repository
	Chat       ChatPurger
	Images     ImageRemover
	Passwords  PasswordHasher
	Tokens     TokenGenerator
	Events     events.Publisher
	SessionTTL time.Duration
	Logger     *slog.Logger
}

type RegisterParams struct {
	Email    string
	Name     string
	Password string
	Phone    string
	Hostel   string
	Block    string
	Room     string
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	User  *domainuser.User
	Token string
}

type ResolveResult struct {
	User    *domainuser.User
	Session *domainauth.Session
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, domainuser.ErrEmailRequired
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, domainuser.ErrNameRequired
	}
	if strings.TrimSpace(params.Hostel) == "" {
		return nil, domainuser.ErrHostelRequired
	}
	if err := s.validatePassword(params.Password); err != nil {
		return nil, err
	}
	if _, err := s.Users.ByEmail(ctx, email); err == nil {
		return nil, domainuser.ErrEmailAlreadyUsed
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	u, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		Name:         params.Name,
		PasswordHash: hash,
		Phone:        params.Phone,
		Hostel:       params.Hostel,
		Block:        params.Block,
		Room:         params.Room,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, u); err != nil {
		return nil, err
	}
	token, err := s.issueSession(ctx, u)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", "user_id", u.ID, "hostel", u.Hostel)
	}
	return &AuthResult{User: u, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(u.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, err := s.issueSession(ctx, u)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user authenticated", "user_id", u.ID)
	}
	return &AuthResult{User: u, Token: token}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if err := s.Sessions.Delete(ctx, domainauth.Token(token)); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("session terminated")
	}
	return nil
}

func (s *Service) ResolveToken(ctx context.Context, token string) (*ResolveResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now()) {
		_ = s.Sessions.Delete(ctx, session.Token)
		return nil, domainauth.ErrSessionNotFound
	}
	u, err := s.Users.ByID(ctx, session.UserID)
	if err != nil {
		_ = s.Sessions.Delete(ctx, session.Token)
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, err
	}
	return &ResolveResult{User: u, Session: session}, nil
}

// DeleteAccount removes the user and everything keyed to them: listings and
// their stored images, favorites in both directions, ratings, blocks,
// conversations with messages, and finally sessions and the profile row.
// Best-effort image removal; a missing object does not abort the cascade.
func (s *Service) DeleteAccount(ctx context.Context, userID domainuser.ID) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	u, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return err
	}

	removed, err := s.Listings.DeleteByOwner(ctx, domainlisting.OwnerID(userID))
	if err != nil {
		return fmt.Errorf("delete listings: %w", err)
	}
	for _, item := range removed {
		if s.Favorites != nil {
			if err := s.Favorites.DeleteByListing(ctx, item.ID); err != nil {
				return fmt.Errorf("delete listing favorites: %w", err)
			}
		}
		s.removeImages(ctx, item.Images)
	}
	if s.Favorites != nil {
		if err := s.Favorites.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("delete favorites: %w", err)
		}
	}
	if s.Ratings != nil {
		if err := s.Ratings.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("delete ratings: %w", err)
		}
	}
	if s.Blocks != nil {
		if err := s.Blocks.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("delete blocks: %w", err)
		}
	}
	if s.Chat != nil {
		if err := s.Chat.PurgeUser(ctx, userID); err != nil {
			return fmt.Errorf("delete conversations: %w", err)
		}
	}
	if u.AvatarURL != "" {
		s.removeImages(ctx, []string{u.AvatarURL})
	}
	if err := s.Sessions.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	if err := s.Users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if s.Events != nil {
		if err := s.Events.Publish(ctx, events.AccountDeleted{UserID: userID}); err != nil && s.Logger != nil {
			s.Logger.Warn("event publish failed", "event", "users.account.deleted", "error", err)
		}
	}
	if s.Logger != nil {
		s.Logger.Info("account deleted", "user_id", userID, "listings_removed", len(removed))
	}
	return nil
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
			s.Logger.Warn("stored image removal failed", "url", url, "error", err)
		}
	}
}

func (s *Service) issueSession(ctx context.Context, u *domainuser.User) (string, error) {
	token, err := s.Tokens.NewToken()
	if err != nil {
		return "", err
	}
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:  domainauth.Token(token),
		UserID: u.ID,
		TTL:    s.sessionTTL(),
		Now:    time.Now(),
	})
	if err != nil {
		return "", err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 30 * 24 * time.Hour
}

func (s *Service) validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Users == nil:
		return errors.New("auth: user repository required")
	case s.Sessions == nil:
		return errors.New("auth: session store required")
	case s.Listings == nil:
		return errors.New("auth: listing repository required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token generator required")
	default:
		return nil
	}
}
