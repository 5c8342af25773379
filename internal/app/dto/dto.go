package dto

import (
	"time"

	chatservice "hostelmarket/internal/app/services/chat"
	domainlisting "hostelmarket/internal/domain/listing"
	domainuser "hostelmarket/internal/domain/user"
)

// UserProfile is the JSON shape of a user profile.
type UserProfile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email,omitempty"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone,omitempty"`
	Hostel      string    `json:"hostel"`
	Block       string    `json:"block,omitempty"`
	Room        string    `json:"room,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Rating      float64   `json:"rating"`
	RatingCount int       `json:"rating_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewUserProfile(u *domainuser.User) UserProfile {
	return UserProfile{
		ID:          string(u.ID),
		Email:       u.Email,
		Name:        u.Name,
		Phone:       u.Phone,
		Hostel:      u.Hostel,
		Block:       u.Block,
		Room:        u.Room,
		AvatarURL:   u.AvatarURL,
		Rating:      u.Rating,
		RatingCount: u.RatingCount,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// PublicProfile hides contact details from users outside a conversation.
func NewPublicProfile(u *domainuser.User) UserProfile {
	profile := NewUserProfile(u)
	profile.Email = ""
	profile.Phone = ""
	profile.Room = ""
	return profile
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  UserProfile `json:"user"`
}

func NewAuthResponse(u *domainuser.User, token string) AuthResponse {
	return AuthResponse{Token: token, User: NewUserProfile(u)}
}

// Listing is the JSON shape of a marketplace listing.
type Listing struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	Hostel        string     `json:"hostel"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Type          string     `json:"type"`
	Category      string     `json:"category"`
	Condition     string     `json:"condition"`
	Price         *float64   `json:"price,omitempty"`
	Images        []string   `json:"images"`
	Location      string     `json:"location,omitempty"`
	RentPeriod    string     `json:"rent_period,omitempty"`
	Deposit       *float64   `json:"deposit,omitempty"`
	AvailableFrom *time.Time `json:"available_from,omitempty"`
	AvailableTo   *time.Time `json:"available_to,omitempty"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func NewListing(l *domainlisting.Listing) Listing {
	item := Listing{
		ID:          string(l.ID),
		OwnerID:     string(l.Owner),
		Hostel:      l.Hostel,
		Title:       l.Title,
		Description: l.Description,
		Type:        string(l.Type),
		Category:    l.Category,
		Condition:   string(l.Condition),
		Price:       l.Price,
		Images:      l.Images,
		Location:    l.Location,
		RentPeriod:  l.RentPeriod,
		Deposit:     l.Deposit,
		Active:      l.Active,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if item.Images == nil {
		item.Images = []string{}
	}
	if !l.AvailableFrom.IsZero() {
		from := l.AvailableFrom
		item.AvailableFrom = &from
	}
	if !l.AvailableTo.IsZero() {
		to := l.AvailableTo
		item.AvailableTo = &to
	}
	return item
}

func NewListingCollection(items []domainlisting.Listing) []Listing {
	result := make([]Listing, 0, len(items))
	for i := range items {
		result = append(result, NewListing(&items[i]))
	}
	return result
}

// ChatMessage is the JSON shape of one message row.
type ChatMessage struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	SenderName     string     `json:"sender_name"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

func NewChatMessage(view chatservice.MessageView) ChatMessage {
	return ChatMessage{
		ID:             view.ID,
		ConversationID: view.ConversationID,
		SenderID:       view.SenderID,
		SenderName:     view.SenderName,
		Content:        view.Content,
		CreatedAt:      view.CreatedAt,
		ReadAt:         view.ReadAt,
	}
}

// Conversation is one row of the conversation list.
type Conversation struct {
	ID            string     `json:"id"`
	ListingID     string     `json:"listing_id"`
	ListingTitle  string     `json:"listing_title"`
	OtherUserID   string     `json:"other_user_id"`
	OtherUserName string     `json:"other_user_name"`
	OtherBlock    string     `json:"other_block,omitempty"`
	OtherAvatar   string     `json:"other_avatar,omitempty"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
	UnreadCount   int64      `json:"unread_count"`
}

func NewConversation(preview chatservice.ConversationPreview) Conversation {
	conversation := Conversation{
		ID:            preview.ID,
		ListingID:     preview.ListingID,
		ListingTitle:  preview.ListingTitle,
		OtherUserID:   preview.OtherUserID,
		OtherUserName: preview.OtherUserName,
		OtherBlock:    preview.OtherBlock,
		OtherAvatar:   preview.OtherAvatar,
		LastMessage:   preview.LastMessage,
		UpdatedAt:     preview.UpdatedAt,
		UnreadCount:   preview.UnreadCount,
	}
	if !preview.LastMessageAt.IsZero() {
		at := preview.LastMessageAt
		conversation.LastMessageAt = &at
	}
	return conversation
}
