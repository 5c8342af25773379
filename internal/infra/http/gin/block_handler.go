package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	blocksvc "hostelmarket/internal/app/services/blocks"
	domainblocks "hostelmarket/internal/domain/blocks"
	domainuser "hostelmarket/internal/domain/user"
)

type BlockHTTP interface {
	Block(c *gin.Context)
	Unblock(c *gin.Context)
	List(c *gin.Context)
}

type BlockHandler struct {
	Service *blocksvc.Service
	Logger  *slog.Logger
}

func (h BlockHandler) Block(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if err := h.Service.Block(c.Request.Context(), domainuser.ID(p.ID), domainuser.ID(c.Param("id"))); err != nil {
		h.respondBlockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h BlockHandler) Unblock(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if err := h.Service.Unblock(c.Request.Context(), domainuser.ID(p.ID), domainuser.ID(c.Param("id"))); err != nil {
		h.respondBlockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h BlockHandler) List(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	rows, err := h.Service.List(c.Request.Context(), domainuser.ID(p.ID))
	if err != nil {
		h.respondBlockError(c, err)
		return
	}
	type blockedUser struct {
		UserID    string    `json:"user_id"`
		Name      string    `json:"name"`
		AvatarURL string    `json:"avatar_url,omitempty"`
		BlockedAt time.Time `json:"blocked_at"`
	}
	items := make([]blockedUser, 0, len(rows))
	for _, row := range rows {
		items = append(items, blockedUser{
			UserID:    row.UserID,
			Name:      row.Name,
			AvatarURL: row.AvatarURL,
			BlockedAt: row.BlockedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h BlockHandler) respondBlockError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainuser.ErrNotFound), errors.Is(err, domainblocks.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domainblocks.ErrSelfBlock):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot block yourself"})
	default:
		if h.Logger != nil {
			h.Logger.Error("block operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ BlockHTTP = (*BlockHandler)(nil)
