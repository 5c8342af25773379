package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: name is required")
	ErrHostelRequired      = errors.New("user: hostel is required")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

// User is a resident profile together with its credentials. The rating
// fields are aggregates maintained by the ratings service.
type User struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Phone        string
	Hostel       string
	Block        string
	Room         string
	AvatarURL    string
	Rating       float64
	RatingCount  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByIDs(ctx context.Context, ids []ID) (map[ID]*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
	Delete(ctx context.Context, id ID) error
	CountByHostel(ctx context.Context, hostel string) (int64, error)
}

type CreateParams struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Phone        string
	Hostel       string
	Block        string
	Room         string
	CreatedAt    time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	hostel := strings.TrimSpace(params.Hostel)
	if hostel == "" {
		return nil, ErrHostelRequired
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &User{
		ID:           ID(id),
		Email:        email,
		Name:         name,
		PasswordHash: params.PasswordHash,
		Phone:        strings.TrimSpace(params.Phone),
		Hostel:       hostel,
		Block:        strings.TrimSpace(params.Block),
		Room:         strings.TrimSpace(params.Room),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

type ProfileUpdate struct {
	Name  *string
	Phone *string
	Block *string
	Room  *string
}

// ApplyProfile updates the mutable profile fields. Nil fields are left as-is.
func (u *User) ApplyProfile(update ProfileUpdate, now time.Time) error {
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return ErrNameRequired
		}
		u.Name = name
	}
	if update.Phone != nil {
		u.Phone = strings.TrimSpace(*update.Phone)
	}
	if update.Block != nil {
		u.Block = strings.TrimSpace(*update.Block)
	}
	if update.Room != nil {
		u.Room = strings.TrimSpace(*update.Room)
	}
	u.touch(now)
	return nil
}

func (u *User) SetAvatarURL(url string, now time.Time) {
	u.AvatarURL = strings.TrimSpace(url)
	u.touch(now)
}

func (u *User) SetPasswordHash(hash string, now time.Time) error {
	if strings.TrimSpace(hash) == "" {
		return ErrPasswordHashMissing
	}
	u.PasswordHash = hash
	u.touch(now)
	return nil
}

// SetRating replaces the aggregate rating snapshot.
func (u *User) SetRating(average float64, count int, now time.Time) {
	u.Rating = average
	u.RatingCount = count
	u.touch(now)
}

func (u *User) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.UpdatedAt = now.UTC()
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
