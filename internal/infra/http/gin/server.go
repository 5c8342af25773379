package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"hostelmarket/internal/infra/config"
	"hostelmarket/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	Profile        ProfileHTTP
	Listing        ListingHTTP
	Favorite       FavoriteHTTP
	Rating         RatingHTTP
	Block          BlockHTTP
	Chat           ChatHTTP
	WS             *WSHandler
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
		api.DELETE("/auth/account", h.Auth.DeleteAccount)
	}
	if h.Profile != nil {
		api.GET("/profile", h.Profile.Get)
		api.PATCH("/profile", h.Profile.Update)
		api.PUT("/profile/avatar", h.Profile.SetAvatar)
		api.GET("/users/:id", h.Profile.Public)
		api.GET("/community/stats", h.Profile.Stats)
	}
	if h.Listing != nil {
		api.GET("/listings", h.Listing.Catalog)
		api.POST("/listings", h.Listing.Create)
		api.GET("/listings/mine", h.Listing.Mine)
		api.GET("/listings/:id", h.Listing.Get)
		api.PATCH("/listings/:id", h.Listing.Update)
		api.POST("/listings/:id/deactivate", h.Listing.Deactivate)
		api.DELETE("/listings/:id", h.Listing.Delete)
		api.POST("/listings/images", h.Listing.UploadImage)
	}
	if h.Favorite != nil {
		api.GET("/favorites", h.Favorite.List)
		api.PUT("/favorites/:id", h.Favorite.Add)
		api.DELETE("/favorites/:id", h.Favorite.Remove)
	}
	if h.Rating != nil {
		api.POST("/ratings", h.Rating.Submit)
		api.GET("/users/:id/ratings", h.Rating.ForUser)
	}
	if h.Block != nil {
		api.GET("/blocks", h.Block.List)
		api.PUT("/blocks/:id", h.Block.Block)
		api.DELETE("/blocks/:id", h.Block.Unblock)
	}
	if h.Chat != nil {
		api.POST("/conversations", h.Chat.StartConversation)
		api.GET("/conversations", h.Chat.ListConversations)
		api.GET("/conversations/:id", h.Chat.GetConversation)
		api.GET("/conversations/:id/messages", h.Chat.ListMessages)
		api.POST("/conversations/:id/messages", h.Chat.SendMessage)
		api.POST("/conversations/:id/read", h.Chat.MarkRead)
		api.GET("/conversations/:id/unread", h.Chat.UnreadCount)
	}
	if h.WS != nil {
		api.GET("/ws", h.WS.Serve)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
