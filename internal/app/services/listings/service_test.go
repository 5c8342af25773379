package listings

import (
	"context"
	"errors"
	"testing"

	domainlisting "hostelmarket/internal/domain/listing"
	domainuser "hostelmarket/internal/domain/user"
	"hostelmarket/internal/infra/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memory.UserRepository) {
	t.Helper()
	users := memory.NewUserRepository()
	return &Service{
		Listings:  memory.NewListingRepository(),
		Users:     users,
		Favorites: memory.NewFavoriteRepository(),
	}, users
}

func seedUser(t *testing.T, users *memory.UserRepository, id, hostel string) domainuser.ID {
	t.Helper()
	u, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(id),
		Email:        id + "@hostel.test",
		Name:         "Resident " + id,
		PasswordHash: "x",
		Hostel:       hostel,
	})
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	if err := users.Save(context.Background(), u); err != nil {
		t.Fatalf("save user: %v", err)
	}
	return u.ID
}

func TestCreateDenormalizesHostel(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, users, "owner", "East Block")

	price := 25.0
	item, err := svc.Create(ctx, CreateParams{
		Owner:     owner,
		Title:     "Study Chair",
		Type:      domainlisting.TypeSell,
		Category:  "furniture",
		Condition: domainlisting.ConditionGood,
		Price:     &price,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.Hostel != "East Block" {
		t.Fatalf("hostel should come from the owner's profile, got %q", item.Hostel)
	}
	if !item.Active {
		t.Fatal("new listings start active")
	}
}

func TestCreateDonationPriceRules(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, users, "owner", "East Block")

	price := 10.0
	_, err := svc.Create(ctx, CreateParams{
		Owner:     owner,
		Title:     "Old Textbooks",
		Type:      domainlisting.TypeDonate,
		Category:  "books",
		Condition: domainlisting.ConditionUsed,
		Price:     &price,
	})
	if !errors.Is(err, domainlisting.ErrDonationHasPrice) {
		t.Fatalf("donations cannot carry a price, got %v", err)
	}

	item, err := svc.Create(ctx, CreateParams{
		Owner:     owner,
		Title:     "Old Textbooks",
		Type:      domainlisting.TypeDonate,
		Category:  "books",
		Condition: domainlisting.ConditionUsed,
	})
	if err != nil {
		t.Fatalf("create donation: %v", err)
	}
	if item.Price != nil {
		t.Fatalf("donation price must be nil, got %v", *item.Price)
	}

	_, err = svc.Create(ctx, CreateParams{
		Owner:     owner,
		Title:     "Fan",
		Type:      domainlisting.TypeSell,
		Category:  "electronics",
		Condition: domainlisting.ConditionGood,
	})
	if !errors.Is(err, domainlisting.ErrPriceRequired) {
		t.Fatalf("sell listings need a price, got %v", err)
	}
}

func TestCatalogScopedToViewerHostel(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()
	east := seedUser(t, users, "east", "East Block")
	west := seedUser(t, users, "west", "West Block")

	price := 5.0
	for _, owner := range []domainuser.ID{east, west} {
		if _, err := svc.Create(ctx, CreateParams{
			Owner:     owner,
			Title:     "Extension Cord",
			Type:      domainlisting.TypeSell,
			Category:  "electronics",
			Condition: domainlisting.ConditionGood,
			Price:     &price,
		}); err != nil {
			t.Fatalf("create for %s: %v", owner, err)
		}
	}

	results, err := svc.Catalog(ctx, east, domainlisting.SearchParams{})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("viewer should only see their hostel, got %d listings", len(results))
	}
	if results[0].Owner != domainlisting.OwnerID(east) {
		t.Fatalf("wrong listing surfaced: %+v", results[0])
	}
}

func TestCatalogIgnoresCallerOwnerFilter(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()
	east := seedUser(t, users, "east", "East Block")
	neighbor := seedUser(t, users, "neighbor", "East Block")

	price := 5.0
	if _, err := svc.Create(ctx, CreateParams{
		Owner:     neighbor,
		Title:     "Iron",
		Type:      domainlisting.TypeSell,
		Category:  "appliances",
		Condition: domainlisting.ConditionGood,
		Price:     &price,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// OwnerID in caller-supplied params must not leak into the query.
	results, err := svc.Catalog(ctx, east, domainlisting.SearchParams{OwnerID: "east"})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected the neighbor's listing, got %d", len(results))
	}
}

func TestUpdateRequiresOwnership(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, users, "owner", "East Block")
	outsider := seedUser(t, users, "outsider", "East Block")

	price := 30.0
	item, err := svc.Create(ctx, CreateParams{
		Owner:     owner,
		Title:     "Mirror",
		Type:      domainlisting.TypeSell,
		Category:  "furniture",
		Condition: domainlisting.ConditionNew,
		Price:     &price,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	title := "Wall Mirror"
	if _, err := svc.Update(ctx, item.ID, outsider, domainlisting.Update{Title: &title}); !errors.Is(err, domainlisting.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	updated, err := svc.Update(ctx, item.ID, owner, domainlisting.Update{Title: &title})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Title != "Wall Mirror" {
		t.Fatalf("title not updated: %q", updated.Title)
	}
}

func TestDeactivateHidesFromCatalog(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, users, "owner", "East Block")

	price := 12.0
	item, err := svc.Create(ctx, CreateParams{
		Owner:     owner,
		Title:     "Blanket",
		Type:      domainlisting.TypeSell,
		Category:  "bedding",
		Condition: domainlisting.ConditionGood,
		Price:     &price,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Deactivate(ctx, item.ID, owner); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Deactivate(ctx, item.ID, owner); !errors.Is(err, domainlisting.ErrAlreadyInactive) {
		t.Fatalf("second deactivate should fail, got %v", err)
	}

	catalog, err := svc.Catalog(ctx, owner, domainlisting.SearchParams{})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(catalog) != 0 {
		t.Fatalf("inactive listing must leave the catalog, got %d", len(catalog))
	}
	// The owner still sees it on their own shelf.
	mine, err := svc.ByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("by owner: %v", err)
	}
	if len(mine) != 1 || mine[0].Active {
		t.Fatalf("owner view should keep the inactive listing, got %+v", mine)
	}
}
