package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"hostelmarket/internal/app/dto"
	profilesvc "hostelmarket/internal/app/services/profiles"
	domainuser "hostelmarket/internal/domain/user"
)

type ProfileHTTP interface {
	Get(c *gin.Context)
	Update(c *gin.Context)
	SetAvatar(c *gin.Context)
	Public(c *gin.Context)
	Stats(c *gin.Context)
}

type ProfileHandler struct {
	Service *profilesvc.Service
	Logger  *slog.Logger
}

func (h ProfileHandler) Get(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	u, err := h.Service.Get(c.Request.Context(), domainuser.ID(p.ID))
	if err != nil {
		h.respondProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserProfile(u))
}

func (h ProfileHandler) Update(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req struct {
		Name  *string `json:"name"`
		Phone *string `json:"phone"`
		Block *string `json:"block"`
		Room  *string `json:"room"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	u, err := h.Service.Update(c.Request.Context(), domainuser.ID(p.ID), domainuser.ProfileUpdate{
		Name:  req.Name,
		Phone: req.Phone,
		Block: req.Block,
		Room:  req.Room,
	})
	if err != nil {
		h.respondProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserProfile(u))
}

func (h ProfileHandler) SetAvatar(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	header, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read avatar"})
		return
	}
	defer file.Close()

	u, err := h.Service.SetAvatar(c.Request.Context(), domainuser.ID(p.ID), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("avatar upload failed", "user_id", p.ID, "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusOK, dto.NewUserProfile(u))
}

// Public exposes another resident's profile without contact details.
func (h ProfileHandler) Public(c *gin.Context) {
	if _, ok := requireAuth(c); !ok {
		return
	}
	view, err := h.Service.PublicProfile(c.Request.Context(), domainuser.ID(c.Param("id")))
	if err != nil {
		h.respondProfileError(c, err)
		return
	}
	profile := dto.NewPublicProfile(view.User)
	c.JSON(http.StatusOK, gin.H{
		"profile":         profile,
		"active_listings": view.ActiveListings,
	})
}

func (h ProfileHandler) Stats(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	stats, err := h.Service.Stats(c.Request.Context(), domainuser.ID(p.ID))
	if err != nil {
		h.respondProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"hostel":          stats.Hostel,
		"residents":       stats.Residents,
		"active_listings": stats.ActiveListings,
	})
}

func (h ProfileHandler) respondProfileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainuser.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domainuser.ErrNameRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("profile operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ ProfileHTTP = (*ProfileHandler)(nil)
