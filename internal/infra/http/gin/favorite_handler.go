package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"hostelmarket/internal/app/dto"
	favoritesvc "hostelmarket/internal/app/services/favorites"
	domainfavorites "hostelmarket/internal/domain/favorites"
	domainlisting "hostelmarket/internal/domain/listing"
	domainuser "hostelmarket/internal/domain/user"
)

type FavoriteHTTP interface {
	Add(c *gin.Context)
	Remove(c *gin.Context)
	List(c *gin.Context)
}

type FavoriteHandler struct {
	Service *favoritesvc.Service
	Logger  *slog.Logger
}

func (h FavoriteHandler) Add(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if err := h.Service.Add(c.Request.Context(), domainuser.ID(p.ID), domainlisting.ID(c.Param("id"))); err != nil {
		h.respondFavoriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h FavoriteHandler) Remove(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if err := h.Service.Remove(c.Request.Context(), domainuser.ID(p.ID), domainlisting.ID(c.Param("id"))); err != nil {
		h.respondFavoriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h FavoriteHandler) List(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	items, err := h.Service.List(c.Request.Context(), domainuser.ID(p.ID))
	if err != nil {
		h.respondFavoriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": dto.NewListingCollection(items)})
}

func (h FavoriteHandler) respondFavoriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainlisting.ErrNotFound), errors.Is(err, domainfavorites.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		if h.Logger != nil {
			h.Logger.Error("favorite operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ FavoriteHTTP = (*FavoriteHandler)(nil)
