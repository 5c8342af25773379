package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hostelmarket/internal/app/events"
	authsvc "hostelmarket/internal/app/services/auth"
	blocksvc "hostelmarket/internal/app/services/blocks"
	chatsvc "hostelmarket/internal/app/services/chat"
	favoritesvc "hostelmarket/internal/app/services/favorites"
	listingsvc "hostelmarket/internal/app/services/listings"
	profilesvc "hostelmarket/internal/app/services/profiles"
	ratingsvc "hostelmarket/internal/app/services/ratings"
	domainauth "hostelmarket/internal/domain/auth"
	domainblocks "hostelmarket/internal/domain/blocks"
	domainchat "hostelmarket/internal/domain/chat"
	domainfavorites "hostelmarket/internal/domain/favorites"
	domainlisting "hostelmarket/internal/domain/listing"
	domainratings "hostelmarket/internal/domain/ratings"
	domainuser "hostelmarket/internal/domain/user"
	"hostelmarket/internal/infra/broker/kafka"
	"hostelmarket/internal/infra/config"
	mongodb "hostelmarket/internal/infra/db/mongo"
	ginserver "hostelmarket/internal/infra/http/gin"
	"hostelmarket/internal/infra/obs"
	"hostelmarket/internal/infra/realtime"
	"hostelmarket/internal/infra/security"
	"hostelmarket/internal/infra/storage/memory"
	"hostelmarket/internal/infra/storage/s3"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	repos, readiness, cleanup, err := buildRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage init failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	uploader := buildUploader(cfg, logger)
	hub := realtime.NewHub()
	defer hub.Close()

	publisher, closeProducer := buildPublisher(cfg, hub, repos, logger)
	defer closeProducer()

	chatService := &chatsvc.Service{
		Conversations: repos.conversations,
		Messages:      repos.messages,
		Listings:      repos.listings,
		Users:         repos.users,
		Blocks:        repos.blocks,
		Events:        publisher,
		Logger:        logger,
	}
	authService := &authsvc.Service{
		Users:      repos.users,
		Sessions:   repos.sessions,
		Listings:   repos.listings,
		Favorites:  repos.favorites,
		Ratings:    repos.ratings,
		Blocks:     repos.blocks,
		Chat:       chatService,
		Images:     uploader,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		Events:     publisher,
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}
	listingService := &listingsvc.Service{
		Listings:  repos.listings,
		Users:     repos.users,
		Favorites: repos.favorites,
		Images:    uploader,
		Events:    publisher,
		Logger:    logger,
	}
	profileService := &profilesvc.Service{
		Users:    repos.users,
		Listings: repos.listings,
		Images:   uploader,
		Logger:   logger,
	}
	ratingService := &ratingsvc.Service{
		Ratings:  repos.ratings,
		Users:    repos.users,
		Listings: repos.listings,
		Events:   publisher,
		Logger:   logger,
	}
	favoriteService := &favoritesvc.Service{
		Favorites: repos.favorites,
		Listings:  repos.listings,
		Logger:    logger,
	}
	blockService := &blocksvc.Service{
		Blocks: repos.blocks,
		Users:  repos.users,
		Logger: logger,
	}

	handlers := ginserver.Handlers{
		Auth:     ginserver.AuthHandler{Service: authService, Logger: logger},
		Profile:  ginserver.ProfileHandler{Service: profileService, Logger: logger},
		Listing:  ginserver.ListingHandler{Service: listingService, Logger: logger},
		Favorite: ginserver.FavoriteHandler{Service: favoriteService, Logger: logger},
		Rating:   ginserver.RatingHandler{Service: ratingService, Logger: logger},
		Block:    ginserver.BlockHandler{Service: blockService, Logger: logger},
		Chat:     ginserver.ChatHandler{Service: chatService, Logger: logger},
		WS:       &ginserver.WSHandler{Hub: hub, Chat: chatService, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{
			Service: authService,
			Logger:  logger,
		}.Handle,
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: readiness}, handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type repositories struct {
	users         domainuser.Repository
	sessions      domainauth.SessionStore
	listings      domainlisting.Repository
	conversations domainchat.ConversationRepository
	messages      domainchat.MessageRepository
	favorites     domainfavorites.Repository
	ratings       domainratings.Repository
	blocks        domainblocks.Repository
}

func buildRepositories(ctx context.Context, cfg config.Config, logger *slog.Logger) (repositories, func() error, func(), error) {
	if cfg.StorageMode == "mongo" {
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return repositories{}, nil, nil, err
		}
		repos := repositories{
			users:         mongodb.NewUserRepository(client.DB),
			sessions:      mongodb.NewSessionStore(client.DB),
			listings:      mongodb.NewListingRepository(client.DB),
			conversations: mongodb.NewConversationRepository(client.DB),
			messages:      mongodb.NewMessageRepository(client.DB),
			favorites:     mongodb.NewFavoriteRepository(client.DB),
			ratings:       mongodb.NewRatingRepository(client.DB),
			blocks:        mongodb.NewBlockRepository(client.DB),
		}
		if err := ensureIndexes(ctx, client); err != nil {
			return repositories{}, nil, nil, err
		}
		readiness := func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		cleanup := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Close(closeCtx); err != nil {
				logger.Warn("mongo disconnect failed", "error", err)
			}
		}
		logger.Info("storage ready", "mode", "mongo", "database", cfg.MongoDB)
		return repos, readiness, cleanup, nil
	}

	repos := repositories{
		users:         memory.NewUserRepository(),
		sessions:      memory.NewSessionStore(),
		listings:      memory.NewListingRepository(),
		conversations: memory.NewConversationRepository(),
		messages:      memory.NewMessageRepository(),
		favorites:     memory.NewFavoriteRepository(),
		ratings:       memory.NewRatingRepository(),
		blocks:        memory.NewBlockRepository(),
	}
	logger.Info("storage ready", "mode", "memory")
	return repos, func() error { return nil }, func() {}, nil
}

func ensureIndexes(ctx context.Context, client *mongodb.Client) error {
	indexCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	steps := []func(context.Context) error{
		mongodb.NewUserRepository(client.DB).EnsureIndexes,
		mongodb.NewSessionStore(client.DB).EnsureIndexes,
		mongodb.NewListingRepository(client.DB).EnsureIndexes,
		mongodb.NewConversationRepository(client.DB).EnsureIndexes,
		mongodb.NewMessageRepository(client.DB).EnsureIndexes,
		mongodb.NewFavoriteRepository(client.DB).EnsureIndexes,
		mongodb.NewRatingRepository(client.DB).EnsureIndexes,
		mongodb.NewBlockRepository(client.DB).EnsureIndexes,
	}
	for _, step := range steps {
		if err := step(indexCtx); err != nil {
			return err
		}
	}
	return nil
}

func buildUploader(cfg config.Config, logger *slog.Logger) s3.Uploader {
	client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
	if err != nil {
		logger.Warn("object storage unavailable, uploads disabled", "error", err)
		return s3.NoopUploader{}
	}
	return client
}

// buildPublisher assembles the event fanout: the realtime bridge always
// runs, Kafka joins it when brokers are configured.
func buildPublisher(cfg config.Config, hub *realtime.Hub, repos repositories, logger *slog.Logger) (events.Publisher, func()) {
	bridge := &realtime.Bridge{
		Hub: hub,
		Notifier: &chatsvc.Notifier{
			Users:    repos.users,
			Listings: repos.listings,
		},
		Logger: logger,
	}
	sinks := []events.Publisher{bridge}
	closeProducer := func() {}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			logger.Warn("kafka unavailable, events stay local", "error", err)
		} else {
			sinks = append(sinks, &kafka.EventPublisher{
				Producer:    producer,
				TopicPrefix: cfg.KafkaTopicPrefix,
			})
			closeProducer = func() {
				if err := producer.Close(); err != nil {
					logger.Warn("kafka producer close failed", "error", err)
				}
			}
			logger.Info("kafka producer ready", "brokers", cfg.KafkaBrokers)
		}
	}

	return events.Fanout{Sinks: sinks, Logger: logger}, closeProducer
}
