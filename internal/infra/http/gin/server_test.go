package ginserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	authsvc "hostelmarket/internal/app/services/auth"
	blocksvc "hostelmarket/internal/app/services/blocks"
	chatsvc "hostelmarket/internal/app/services/chat"
	favoritesvc "hostelmarket/internal/app/services/favorites"
	listingsvc "hostelmarket/internal/app/services/listings"
	profilesvc "hostelmarket/internal/app/services/profiles"
	ratingsvc "hostelmarket/internal/app/services/ratings"
	"hostelmarket/internal/infra/config"
	"hostelmarket/internal/infra/obs"
	"hostelmarket/internal/infra/security"
	"hostelmarket/internal/infra/storage/memory"
)

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()

	users := memory.NewUserRepository()
	sessions := memory.NewSessionStore()
	listings := memory.NewListingRepository()
	favorites := memory.NewFavoriteRepository()
	ratings := memory.NewRatingRepository()
	blocks := memory.NewBlockRepository()

	chatService := &chatsvc.Service{
		Conversations: memory.NewConversationRepository(),
		Messages:      memory.NewMessageRepository(),
		Listings:      listings,
		Users:         users,
		Blocks:        blocks,
	}
	authService := &authsvc.Service{
		Users:     users,
		Sessions:  sessions,
		Listings:  listings,
		Favorites: favorites,
		Ratings:   ratings,
		Blocks:    blocks,
		Chat:      chatService,
		Passwords: security.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:    security.RandomTokenGenerator{},
	}
	listingService := &listingsvc.Service{Listings: listings, Users: users, Favorites: favorites}
	profileService := &profilesvc.Service{Users: users, Listings: listings}
	favoriteService := &favoritesvc.Service{Favorites: favorites, Listings: listings}
	ratingService := &ratingsvc.Service{Ratings: ratings, Users: users, Listings: listings}
	blockService := &blocksvc.Service{Blocks: blocks, Users: users}

	server := NewServer(config.Config{Env: "test", HTTPAddr: ":0"}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Auth:           AuthHandler{Service: authService},
		Profile:        ProfileHandler{Service: profileService},
		Listing:        ListingHandler{Service: listingService},
		Favorite:       FavoriteHandler{Service: favoriteService},
		Rating:         RatingHandler{Service: ratingService},
		Block:          BlockHandler{Service: blockService},
		Chat:           ChatHandler{Service: chatService},
		AuthMiddleware: AuthMiddleware{Service: authService}.Handle,
	})
	return server.Handler
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func registerUser(t *testing.T, handler http.Handler, email, name string) (token, userID string) {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"name":     name,
		"password": "sup3r-secret",
		"hostel":   "North Wing",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", email, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decode(t, rec, &resp)
	if resp.Token == "" || resp.User.ID == "" {
		t.Fatalf("register response incomplete: %s", rec.Body.String())
	}
	return resp.Token, resp.User.ID
}

func createListing(t *testing.T, handler http.Handler, token string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/listings", token, map[string]any{
		"title":     "Mini Fridge",
		"type":      "sell",
		"category":  "appliances",
		"condition": "good",
		"price":     80,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create listing: status %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	decode(t, rec, &resp)
	return resp.ID
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)

	token, userID := registerUser(t, api, "flow@hostel.test", "Flo")

	rec := doJSON(t, api, http.MethodGet, "/api/v1/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status %d: %s", rec.Code, rec.Body.String())
	}
	var me struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	decode(t, rec, &me)
	if me.ID != userID || me.Email != "flow@hostel.test" {
		t.Fatalf("me mismatch: %+v", me)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/auth/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous me should be 401, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "flow@hostel.test",
		"password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login should be 401, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/auth/logout", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: status %d", rec.Code)
	}
	rec = doJSON(t, api, http.MethodGet, "/api/v1/auth/me", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("token should be dead after logout, got %d", rec.Code)
	}
}

func TestRegisterConflicts(t *testing.T) {
	api := newTestAPI(t)
	registerUser(t, api, "dup@hostel.test", "Dup")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "dup@hostel.test",
		"name":     "Again",
		"password": "sup3r-secret",
		"hostel":   "North Wing",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate email should be 409, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "short@hostel.test",
		"name":     "Sho",
		"password": "short",
		"hostel":   "North Wing",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("short password should be 400, got %d", rec.Code)
	}
}

func TestListingLifecycle(t *testing.T) {
	api := newTestAPI(t)
	ownerToken, _ := registerUser(t, api, "owner@hostel.test", "Own")
	otherToken, _ := registerUser(t, api, "other@hostel.test", "Oth")

	listingID := createListing(t, api, ownerToken)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/listings", otherToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("catalog: status %d", rec.Code)
	}
	var catalog struct {
		Items []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"items"`
	}
	decode(t, rec, &catalog)
	if len(catalog.Items) != 1 || catalog.Items[0].ID != listingID {
		t.Fatalf("catalog should show the listing: %s", rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodPatch, "/api/v1/listings/"+listingID, otherToken, map[string]any{"title": "Hijack"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-owner update should be 403, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/listings/"+listingID+"/deactivate", ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate: status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/listings", otherToken, nil)
	decode(t, rec, &catalog)
	if len(catalog.Items) != 0 {
		t.Fatalf("inactive listing must leave the catalog: %s", rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/listings/mine", ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mine: status %d", rec.Code)
	}
	decode(t, rec, &catalog)
	if len(catalog.Items) != 1 {
		t.Fatalf("owner should still see their listing: %s", rec.Body.String())
	}
}

func TestConversationFlow(t *testing.T) {
	api := newTestAPI(t)
	sellerToken, sellerID := registerUser(t, api, "seller@hostel.test", "Sel")
	buyerToken, buyerID := registerUser(t, api, "buyer@hostel.test", "Buy")
	listingID := createListing(t, api, sellerToken)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/conversations", buyerToken, map[string]string{"listing_id": listingID})
	if rec.Code != http.StatusOK {
		t.Fatalf("start conversation: status %d: %s", rec.Code, rec.Body.String())
	}
	var conversation struct {
		ID       string `json:"id"`
		BuyerID  string `json:"buyer_id"`
		SellerID string `json:"seller_id"`
	}
	decode(t, rec, &conversation)
	if conversation.BuyerID != buyerID || conversation.SellerID != sellerID {
		t.Fatalf("participants wrong: %+v", conversation)
	}

	// Starting again returns the same thread.
	rec = doJSON(t, api, http.MethodPost, "/api/v1/conversations", buyerToken, map[string]string{"listing_id": listingID})
	var again struct {
		ID string `json:"id"`
	}
	decode(t, rec, &again)
	if again.ID != conversation.ID {
		t.Fatalf("find-or-create must be stable: %q vs %q", again.ID, conversation.ID)
	}

	// Messaging your own listing is rejected.
	rec = doJSON(t, api, http.MethodPost, "/api/v1/conversations", sellerToken, map[string]string{"listing_id": listingID})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("self conversation should be 400, got %d", rec.Code)
	}

	base := "/api/v1/conversations/" + conversation.ID
	rec = doJSON(t, api, http.MethodPost, base+"/messages", buyerToken, map[string]string{"content": "  hello!  "})
	if rec.Code != http.StatusCreated {
		t.Fatalf("send: status %d: %s", rec.Code, rec.Body.String())
	}
	var sent struct {
		Content    string `json:"content"`
		SenderName string `json:"sender_name"`
	}
	decode(t, rec, &sent)
	if sent.Content != "hello!" || sent.SenderName != "Buy" {
		t.Fatalf("sent view wrong: %+v", sent)
	}

	rec = doJSON(t, api, http.MethodPost, base+"/messages", buyerToken, map[string]string{"content": "   "})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("whitespace send should be 204, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, base+"/unread", sellerToken, nil)
	var unread struct {
		UnreadCount int64 `json:"unread_count"`
	}
	decode(t, rec, &unread)
	if unread.UnreadCount != 1 {
		t.Fatalf("expected 1 unread, got %d", unread.UnreadCount)
	}

	rec = doJSON(t, api, http.MethodPost, base+"/read", sellerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read: status %d", rec.Code)
	}
	rec = doJSON(t, api, http.MethodGet, base+"/unread", sellerToken, nil)
	decode(t, rec, &unread)
	if unread.UnreadCount != 0 {
		t.Fatalf("expected 0 unread after read, got %d", unread.UnreadCount)
	}

	rec = doJSON(t, api, http.MethodGet, base+"/messages", buyerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list messages: status %d", rec.Code)
	}
	var messages struct {
		Items []struct {
			Content string  `json:"content"`
			ReadAt  *string `json:"read_at"`
		} `json:"items"`
	}
	decode(t, rec, &messages)
	if len(messages.Items) != 1 || messages.Items[0].ReadAt == nil {
		t.Fatalf("message should carry read_at: %s", rec.Body.String())
	}

	// Outsiders get 403.
	outsiderToken, _ := registerUser(t, api, "outsider@hostel.test", "Out")
	rec = doJSON(t, api, http.MethodGet, base+"/messages", outsiderToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("outsider should get 403, got %d", rec.Code)
	}
}

func TestBlockStopsMessaging(t *testing.T) {
	api := newTestAPI(t)
	sellerToken, _ := registerUser(t, api, "seller@hostel.test", "Sel")
	buyerToken, buyerID := registerUser(t, api, "buyer@hostel.test", "Buy")
	listingID := createListing(t, api, sellerToken)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/conversations", buyerToken, map[string]string{"listing_id": listingID})
	var conversation struct {
		ID string `json:"id"`
	}
	decode(t, rec, &conversation)

	rec = doJSON(t, api, http.MethodPut, "/api/v1/blocks/"+buyerID, sellerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("block: status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/conversations/"+conversation.ID+"/messages", buyerToken, map[string]string{"content": "hello?"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("blocked messaging should be 403, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodDelete, "/api/v1/blocks/"+buyerID, sellerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unblock: status %d", rec.Code)
	}
	rec = doJSON(t, api, http.MethodPost, "/api/v1/conversations/"+conversation.ID+"/messages", buyerToken, map[string]string{"content": "hello again"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("messaging should resume after unblock, got %d", rec.Code)
	}
}

func TestFavorites(t *testing.T) {
	api := newTestAPI(t)
	sellerToken, _ := registerUser(t, api, "seller@hostel.test", "Sel")
	buyerToken, _ := registerUser(t, api, "buyer@hostel.test", "Buy")
	listingID := createListing(t, api, sellerToken)

	for i := 0; i < 2; i++ {
		rec := doJSON(t, api, http.MethodPut, "/api/v1/favorites/"+listingID, buyerToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("favorite attempt %d: status %d: %s", i, rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, api, http.MethodGet, "/api/v1/favorites", buyerToken, nil)
	var favorites struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	decode(t, rec, &favorites)
	if len(favorites.Items) != 1 {
		t.Fatalf("favoriting twice must stay one entry, got %d", len(favorites.Items))
	}

	rec = doJSON(t, api, http.MethodDelete, "/api/v1/favorites/"+listingID, buyerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unfavorite: status %d", rec.Code)
	}
	rec = doJSON(t, api, http.MethodDelete, "/api/v1/favorites/"+listingID, buyerToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("removing a missing favorite should be 404, got %d", rec.Code)
	}
}

func TestRatingsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	sellerToken, sellerID := registerUser(t, api, "seller@hostel.test", "Sel")
	buyerToken, _ := registerUser(t, api, "buyer@hostel.test", "Buy")
	listingID := createListing(t, api, sellerToken)

	payload := map[string]any{"rated_id": sellerID, "listing_id": listingID, "score": 5, "review": "smooth"}
	rec := doJSON(t, api, http.MethodPost, "/api/v1/ratings", buyerToken, payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit rating: status %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, api, http.MethodPost, "/api/v1/ratings", buyerToken, payload)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate rating should be 409, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, fmt.Sprintf("/api/v1/users/%s/ratings", sellerID), buyerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list ratings: status %d", rec.Code)
	}
	var ratings struct {
		Items []struct {
			RaterName string `json:"rater_name"`
			Score     int    `json:"score"`
		} `json:"items"`
	}
	decode(t, rec, &ratings)
	if len(ratings.Items) != 1 || ratings.Items[0].RaterName != "Buy" || ratings.Items[0].Score != 5 {
		t.Fatalf("ratings view wrong: %s", rec.Body.String())
	}
}

func TestDeleteAccountEnvelope(t *testing.T) {
	api := newTestAPI(t)
	token, _ := registerUser(t, api, "leaver@hostel.test", "Lev")

	rec := doJSON(t, api, http.MethodDelete, "/api/v1/auth/account", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete account: status %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success bool `json:"success"`
	}
	decode(t, rec, &resp)
	if !resp.Success {
		t.Fatalf("expected success envelope, got %s", rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/auth/me", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deleted account token must be dead, got %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/livez", "/readyz"} {
		rec := doJSON(t, api, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
	}
}
