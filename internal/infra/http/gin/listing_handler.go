package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"hostelmarket/internal/app/dto"
	listingsvc "hostelmarket/internal/app/services/listings"
	domainlisting "hostelmarket/internal/domain/listing"
	domainuser "hostelmarket/internal/domain/user"
)

type ListingHTTP interface {
	Catalog(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Deactivate(c *gin.Context)
	Delete(c *gin.Context)
	Mine(c *gin.Context)
	UploadImage(c *gin.Context)
}

type ListingHandler struct {
	Service *listingsvc.Service
	Logger  *slog.Logger
}

type listingRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Type          string   `json:"type"`
	Category      string   `json:"category"`
	Condition     string   `json:"condition"`
	Price         *float64 `json:"price"`
	Images        []string `json:"images"`
	Location      string   `json:"location"`
	RentPeriod    string   `json:"rent_period"`
	Deposit       *float64 `json:"deposit"`
	AvailableFrom string   `json:"available_from"`
	AvailableTo   string   `json:"available_to"`
}

type listingUpdateRequest struct {
	Title       *string                  `json:"title"`
	Description *string                  `json:"description"`
	Category    *string                  `json:"category"`
	Condition   *domainlisting.Condition `json:"condition"`
	Price       *float64                 `json:"price"`
	Images      []string                 `json:"images"`
	Location    *string                  `json:"location"`
}

// Catalog lists the active listings in the viewer's hostel community.
func (h ListingHandler) Catalog(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	params := domainlisting.SearchParams{
		Category: strings.TrimSpace(c.Query("category")),
		Type:     domainlisting.Type(strings.TrimSpace(c.Query("type"))),
		Query:    strings.TrimSpace(c.Query("q")),
		Limit:    parsePositiveInt(c.Query("limit"), 0),
	}
	items, err := h.Service.Catalog(c.Request.Context(), domainuser.ID(p.ID), params)
	if err != nil {
		h.respondListingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": dto.NewListingCollection(items)})
}

func (h ListingHandler) Get(c *gin.Context) {
	if _, ok := requireAuth(c); !ok {
		return
	}
	item, err := h.Service.Get(c.Request.Context(), domainlisting.ID(c.Param("id")))
	if err != nil {
		h.respondListingError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListing(item))
}

func (h ListingHandler) Create(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	params := listingsvc.CreateParams{
		Owner:       domainuser.ID(p.ID),
		Title:       req.Title,
		Description: req.Description,
		Type:        domainlisting.Type(req.Type),
		Category:    req.Category,
		Condition:   domainlisting.Condition(req.Condition),
		Price:       req.Price,
		Images:      req.Images,
		Location:    req.Location,
		RentPeriod:  req.RentPeriod,
		Deposit:     req.Deposit,
	}
	var err error
	if params.AvailableFrom, err = parseDate(req.AvailableFrom); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid available_from"})
		return
	}
	if params.AvailableTo, err = parseDate(req.AvailableTo); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid available_to"})
		return
	}
	item, err := h.Service.Create(c.Request.Context(), params)
	if err != nil {
		h.respondListingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewListing(item))
}

func (h ListingHandler) Update(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req listingUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	update := domainlisting.Update{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		Location:    req.Location,
	}
	if req.Price != nil {
		update.Price = req.Price
		update.PriceSet = true
	}
	if req.Images != nil {
		update.Images = req.Images
		update.ImagesSet = true
	}
	item, err := h.Service.Update(c.Request.Context(), domainlisting.ID(c.Param("id")), domainuser.ID(p.ID), update)
	if err != nil {
		h.respondListingError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListing(item))
}

func (h ListingHandler) Deactivate(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	item, err := h.Service.Deactivate(c.Request.Context(), domainlisting.ID(c.Param("id")), domainuser.ID(p.ID))
	if err != nil {
		h.respondListingError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListing(item))
}

func (h ListingHandler) Delete(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if err := h.Service.Delete(c.Request.Context(), domainlisting.ID(c.Param("id")), domainuser.ID(p.ID)); err != nil {
		h.respondListingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h ListingHandler) Mine(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	items, err := h.Service.ByOwner(c.Request.Context(), domainuser.ID(p.ID))
	if err != nil {
		h.respondListingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": dto.NewListingCollection(items)})
}

// UploadImage accepts one multipart file under "image" and returns the
// public URL to embed in a listing payload.
func (h ListingHandler) UploadImage(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read image"})
		return
	}
	defer file.Close()

	url, err := h.Service.UploadImage(c.Request.Context(), domainuser.ID(p.ID), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("image upload failed", "user_id", p.ID, "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func (h ListingHandler) respondListingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainlisting.ErrNotFound), errors.Is(err, domainuser.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domainlisting.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "not your listing"})
	case errors.Is(err, domainlisting.ErrTitleRequired),
		errors.Is(err, domainlisting.ErrCategoryRequired),
		errors.Is(err, domainlisting.ErrInvalidType),
		errors.Is(err, domainlisting.ErrInvalidCondition),
		errors.Is(err, domainlisting.ErrPriceRequired),
		errors.Is(err, domainlisting.ErrPriceNegative),
		errors.Is(err, domainlisting.ErrDonationHasPrice),
		errors.Is(err, domainlisting.ErrAlreadyInactive),
		errors.Is(err, domainlisting.ErrAvailabilityRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("listing operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func parsePositiveInt(raw string, def int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return def
	}
	return value
}

var _ ListingHTTP = (*ListingHandler)(nil)
