package ratings

import (
	"context"
	"errors"
	"math"
	"testing"

	domainlisting "hostelmarket/internal/domain/listing"
	domainratings "hostelmarket/internal/domain/ratings"
	domainuser "hostelmarket/internal/domain/user"
	"hostelmarket/internal/infra/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memory.UserRepository, *memory.ListingRepository) {
	t.Helper()
	users := memory.NewUserRepository()
	listings := memory.NewListingRepository()
	return &Service{
		Ratings:  memory.NewRatingRepository(),
		Users:    users,
		Listings: listings,
	}, users, listings
}

func seedUser(t *testing.T, users *memory.UserRepository, id, name string) domainuser.ID {
	t.Helper()
	u, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(id),
		Email:        id + "@hostel.test",
		Name:         name,
		PasswordHash: "x",
		Hostel:       "North Wing",
	})
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	if err := users.Save(context.Background(), u); err != nil {
		t.Fatalf("save user: %v", err)
	}
	return u.ID
}

func seedListing(t *testing.T, listings *memory.ListingRepository, id string, owner domainuser.ID) domainlisting.ID {
	t.Helper()
	price := 15.0
	item, err := domainlisting.New(domainlisting.CreateParams{
		ID:        domainlisting.ID(id),
		Owner:     domainlisting.OwnerID(owner),
		Hostel:    "North Wing",
		Title:     "Rice Cooker",
		Type:      domainlisting.TypeSell,
		Category:  "kitchen",
		Condition: domainlisting.ConditionGood,
		Price:     &price,
	})
	if err != nil {
		t.Fatalf("new listing: %v", err)
	}
	if err := listings.Save(context.Background(), item); err != nil {
		t.Fatalf("save listing: %v", err)
	}
	return item.ID
}

func TestSubmitRefreshesAggregate(t *testing.T) {
	svc, users, listings := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, users, "seller", "Sana")
	first := seedUser(t, users, "first", "Fio")
	second := seedUser(t, users, "second", "Syd")
	l1 := seedListing(t, listings, "l1", seller)
	l2 := seedListing(t, listings, "l2", seller)

	if _, err := svc.Submit(ctx, SubmitParams{RaterID: first, RatedID: seller, ListingID: l1, Score: 5}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := svc.Submit(ctx, SubmitParams{RaterID: second, RatedID: seller, ListingID: l2, Score: 4, Review: "quick handover"}); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	rated, err := users.ByID(ctx, seller)
	if err != nil {
		t.Fatalf("load rated: %v", err)
	}
	if rated.RatingCount != 2 {
		t.Fatalf("expected rating count 2, got %d", rated.RatingCount)
	}
	if math.Abs(rated.Rating-4.5) > 1e-9 {
		t.Fatalf("expected average 4.5, got %v", rated.Rating)
	}
}

func TestSubmitRejectsDuplicate(t *testing.T) {
	svc, users, listings := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, users, "seller", "Sana")
	rater := seedUser(t, users, "rater", "Rio")
	l1 := seedListing(t, listings, "l1", seller)

	if _, err := svc.Submit(ctx, SubmitParams{RaterID: rater, RatedID: seller, ListingID: l1, Score: 3}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.Submit(ctx, SubmitParams{RaterID: rater, RatedID: seller, ListingID: l1, Score: 5}); !errors.Is(err, domainratings.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, users, listings := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, users, "seller", "Sana")
	l1 := seedListing(t, listings, "l1", seller)

	if _, err := svc.Submit(ctx, SubmitParams{RaterID: seller, RatedID: seller, ListingID: l1, Score: 5}); !errors.Is(err, domainratings.ErrSelfRating) {
		t.Fatalf("expected ErrSelfRating, got %v", err)
	}
	rater := seedUser(t, users, "rater", "Rio")
	if _, err := svc.Submit(ctx, SubmitParams{RaterID: rater, RatedID: seller, ListingID: l1, Score: 6}); !errors.Is(err, domainratings.ErrRatingRange) {
		t.Fatalf("expected ErrRatingRange, got %v", err)
	}
	if _, err := svc.Submit(ctx, SubmitParams{RaterID: rater, RatedID: seller, ListingID: "missing", Score: 4}); !errors.Is(err, domainlisting.ErrNotFound) {
		t.Fatalf("expected listing ErrNotFound, got %v", err)
	}
	if _, err := svc.Submit(ctx, SubmitParams{RaterID: rater, RatedID: "ghost", ListingID: l1, Score: 4}); !errors.Is(err, domainuser.ErrNotFound) {
		t.Fatalf("expected user ErrNotFound, got %v", err)
	}
}

func TestForUserResolvesRaterNames(t *testing.T) {
	svc, users, listings := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, users, "seller", "Sana")
	rater := seedUser(t, users, "rater", "Rio")
	l1 := seedListing(t, listings, "l1", seller)

	if _, err := svc.Submit(ctx, SubmitParams{RaterID: rater, RatedID: seller, ListingID: l1, Score: 4, Review: "all good"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	views, err := svc.ForUser(ctx, seller)
	if err != nil {
		t.Fatalf("for user: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 rating, got %d", len(views))
	}
	if views[0].RaterName != "Rio" || views[0].Review != "all good" {
		t.Fatalf("view wrong: %+v", views[0])
	}

	if err := users.Delete(ctx, rater); err != nil {
		t.Fatalf("delete rater: %v", err)
	}
	views, err = svc.ForUser(ctx, seller)
	if err != nil {
		t.Fatalf("for user after delete: %v", err)
	}
	if views[0].RaterName != "Unknown" {
		t.Fatalf("expected Unknown fallback, got %q", views[0].RaterName)
	}
}
