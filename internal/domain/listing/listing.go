package listing

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired        = errors.New("listing: id is required")
	ErrOwnerRequired     = errors.New("listing: owner is required")
	ErrTitleRequired     = errors.New("listing: title is required")
	ErrInvalidType       = errors.New("listing: type must be sell, rent or donate")
	ErrInvalidCondition  = errors.New("listing: condition must be new, good or used")
	ErrPriceRequired     = errors.New("listing: price is required for sell and rent listings")
	ErrPriceNegative     = errors.New("listing: price must be non-negative")
	ErrDonationHasPrice  = errors.New("listing: donation listings cannot carry a price")
	ErrCategoryRequired  = errors.New("listing: category is required")
	ErrNotFound          = errors.New("listing: not found")
	ErrNotOwner          = errors.New("listing: not owned by user")
	ErrAlreadyInactive   = errors.New("listing: already inactive")
	ErrAvailabilityRange = errors.New("listing: available_from must precede available_to")
)

type ID string
type OwnerID string

type Type string

const (
	TypeSell   Type = "sell"
	TypeRent   Type = "rent"
	TypeDonate Type = "donate"
)

type Condition string

const (
	ConditionNew  Condition = "new"
	ConditionGood Condition = "good"
	ConditionUsed Condition = "used"
)

// Listing is a single marketplace item posted by a resident. Hostel is
// denormalized from the owner's profile so the catalog can filter without a
// join. Price is nil for donations. Rent-only fields stay zero-valued for
// other types.
type Listing struct {
	ID            ID
	Owner         OwnerID
	Hostel        string
	Title         string
	Description   string
	Type          Type
	Category      string
	Condition     Condition
	Price         *float64
	Images        []string
	Location      string
	RentPeriod    string
	Deposit       *float64
	AvailableFrom time.Time
	AvailableTo   time.Time
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type SearchParams struct {
	Hostel   string
	Category string
	Type     Type
	Query    string
	OwnerID  OwnerID
	Limit    int
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Listing, error)
	ByIDs(ctx context.Context, ids []ID) (map[ID]*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id ID) error
	DeleteByOwner(ctx context.Context, owner OwnerID) ([]Listing, error)
	Search(ctx context.Context, params SearchParams) ([]Listing, error)
	CountActiveByOwners(ctx context.Context, owners []OwnerID) (int64, error)
}

type CreateParams struct {
	ID            ID
	Owner         OwnerID
	Hostel        string
	Title         string
	Description   string
	Type          Type
	Category      string
	Condition     Condition
	Price         *float64
	Images        []string
	Location      string
	RentPeriod    string
	Deposit       *float64
	AvailableFrom time.Time
	AvailableTo   time.Time
	Now           time.Time
}

func New(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Owner)) == "" {
		return nil, ErrOwnerRequired
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(params.Category) == "" {
		return nil, ErrCategoryRequired
	}
	if !validType(params.Type) {
		return nil, ErrInvalidType
	}
	if !validCondition(params.Condition) {
		return nil, ErrInvalidCondition
	}
	price, err := normalizePrice(params.Type, params.Price)
	if err != nil {
		return nil, err
	}
	if !params.AvailableFrom.IsZero() && !params.AvailableTo.IsZero() && params.AvailableTo.Before(params.AvailableFrom) {
		return nil, ErrAvailabilityRange
	}

	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &Listing{
		ID:            params.ID,
		Owner:         params.Owner,
		Hostel:        strings.TrimSpace(params.Hostel),
		Title:         title,
		Description:   strings.TrimSpace(params.Description),
		Type:          params.Type,
		Category:      strings.TrimSpace(params.Category),
		Condition:     params.Condition,
		Price:         price,
		Images:        append([]string(nil), params.Images...),
		Location:      strings.TrimSpace(params.Location),
		RentPeriod:    strings.TrimSpace(params.RentPeriod),
		Deposit:       params.Deposit,
		AvailableFrom: params.AvailableFrom,
		AvailableTo:   params.AvailableTo,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

type Update struct {
	Title       *string
	Description *string
	Category    *string
	Condition   *Condition
	Price       *float64
	PriceSet    bool
	Images      []string
	ImagesSet   bool
	Location    *string
}

func (l *Listing) Apply(update Update, now time.Time) error {
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return ErrTitleRequired
		}
		l.Title = title
	}
	if update.Description != nil {
		l.Description = strings.TrimSpace(*update.Description)
	}
	if update.Category != nil {
		category := strings.TrimSpace(*update.Category)
		if category == "" {
			return ErrCategoryRequired
		}
		l.Category = category
	}
	if update.Condition != nil {
		if !validCondition(*update.Condition) {
			return ErrInvalidCondition
		}
		l.Condition = *update.Condition
	}
	if update.PriceSet {
		price, err := normalizePrice(l.Type, update.Price)
		if err != nil {
			return err
		}
		l.Price = price
	}
	if update.ImagesSet {
		l.Images = append([]string(nil), update.Images...)
	}
	if update.Location != nil {
		l.Location = strings.TrimSpace(*update.Location)
	}
	l.touch(now)
	return nil
}

func (l *Listing) Deactivate(now time.Time) error {
	if !l.Active {
		return ErrAlreadyInactive
	}
	l.Active = false
	l.touch(now)
	return nil
}

func (l *Listing) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	l.UpdatedAt = now.UTC()
}

func validType(t Type) bool {
	switch t {
	case TypeSell, TypeRent, TypeDonate:
		return true
	}
	return false
}

func validCondition(c Condition) bool {
	switch c {
	case ConditionNew, ConditionGood, ConditionUsed:
		return true
	}
	return false
}

func normalizePrice(t Type, price *float64) (*float64, error) {
	if t == TypeDonate {
		if price != nil {
			return nil, ErrDonationHasPrice
		}
		return nil, nil
	}
	if price == nil {
		return nil, ErrPriceRequired
	}
	if *price < 0 {
		return nil, ErrPriceNegative
	}
	value := *price
	return &value, nil
}
