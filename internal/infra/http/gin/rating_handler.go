package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	ratingsvc "hostelmarket/internal/app/services/ratings"
	domainlisting "hostelmarket/internal/domain/listing"
	domainratings "hostelmarket/internal/domain/ratings"
	domainuser "hostelmarket/internal/domain/user"
)

type RatingHTTP interface {
	Submit(c *gin.Context)
	ForUser(c *gin.Context)
}

type RatingHandler struct {
	Service *ratingsvc.Service
	Logger  *slog.Logger
}

type submitRatingRequest struct {
	RatedID   string `json:"rated_id"`
	ListingID string `json:"listing_id"`
	Score     int    `json:"score"`
	Review    string `json:"review"`
}

type ratingResponse struct {
	ID        string    `json:"id"`
	RaterID   string    `json:"rater_id"`
	RaterName string    `json:"rater_name,omitempty"`
	ListingID string    `json:"listing_id"`
	Score     int       `json:"score"`
	Review    string    `json:"review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (h RatingHandler) Submit(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req submitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	rating, err := h.Service.Submit(c.Request.Context(), ratingsvc.SubmitParams{
		RaterID:   domainuser.ID(p.ID),
		RatedID:   domainuser.ID(req.RatedID),
		ListingID: domainlisting.ID(req.ListingID),
		Score:     req.Score,
		Review:    req.Review,
	})
	if err != nil {
		h.respondRatingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ratingResponse{
		ID:        string(rating.ID),
		RaterID:   string(rating.RaterID),
		ListingID: string(rating.ListingID),
		Score:     rating.Score,
		Review:    rating.Review,
		CreatedAt: rating.CreatedAt,
	})
}

func (h RatingHandler) ForUser(c *gin.Context) {
	if _, ok := requireAuth(c); !ok {
		return
	}
	views, err := h.Service.ForUser(c.Request.Context(), domainuser.ID(c.Param("id")))
	if err != nil {
		h.respondRatingError(c, err)
		return
	}
	items := make([]ratingResponse, 0, len(views))
	for _, view := range views {
		items = append(items, ratingResponse{
			ID:        view.ID,
			RaterID:   view.RaterID,
			RaterName: view.RaterName,
			ListingID: view.ListingID,
			Score:     view.Score,
			Review:    view.Review,
			CreatedAt: view.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h RatingHandler) respondRatingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainuser.ErrNotFound), errors.Is(err, domainlisting.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domainratings.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "already rated for this listing"})
	case errors.Is(err, domainratings.ErrSelfRating),
		errors.Is(err, domainratings.ErrRatingRange),
		errors.Is(err, domainratings.ErrRatedRequired),
		errors.Is(err, domainratings.ErrListingRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("rating operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ RatingHTTP = (*RatingHandler)(nil)
