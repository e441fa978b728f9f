package container

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gdugdh24/soundmatch-backend/internal/config"
	"github.com/gdugdh24/soundmatch-backend/internal/delivery/http"
	"github.com/gdugdh24/soundmatch-backend/internal/delivery/http/handler"
	"github.com/gdugdh24/soundmatch-backend/internal/delivery/http/middleware"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/database"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/gemini"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/server"
	"github.com/gdugdh24/soundmatch-backend/internal/jobs/reconcile"
	"github.com/gdugdh24/soundmatch-backend/internal/realtime"
	"github.com/gdugdh24/soundmatch-backend/internal/repository/postgres"
	"github.com/gdugdh24/soundmatch-backend/internal/usecase/feed"
	"github.com/gdugdh24/soundmatch-backend/internal/usecase/messaging"
	"github.com/gdugdh24/soundmatch-backend/internal/usecase/profile"
	"github.com/gdugdh24/soundmatch-backend/internal/usecase/swipe"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	DB         *sqlx.DB
	Redis      *redis.Client
	Server     *server.Server
	Hub        *realtime.Hub
	Reconciler *reconcile.Job
	Gemini     *gemini.GeminiClient

	log *zap.Logger
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, log: log}

	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	c.DB = db

	var presence realtime.Presence
	switch cfg.Realtime.PresenceBackend {
	case config.PresenceRedis:
		redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		c.Redis = redisClient
		presence = realtime.NewRedisPresence(redisClient, "", cfg.Realtime.PresenceTTL)
	default:
		presence = realtime.NewMemoryPresence()
	}

	// Wingman stays a nil interface when AI features are off.
	var wingman swipe.Wingman
	if cfg.GeminiAPIKey != "" {
		geminiClient, err := gemini.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			log.Warn("gemini client unavailable, icebreakers disabled", zap.Error(err))
		} else {
			c.Gemini = geminiClient
			wingman = geminiClient
		}
	}

	// Initialize repositories
	tx := postgres.NewTransactor(db)
	profileRepo := postgres.NewProfileRepository(db)
	decisionRepo := postgres.NewDecisionRepository(db)
	matchRepo := postgres.NewMatchRepository(db)
	messageRepo := postgres.NewMessageRepository(db)

	hub := realtime.NewHub(presence, log)
	c.Hub = hub

	// Initialize use cases
	profileUseCase := profile.NewProfileUseCase(profileRepo, log)
	feedUseCase := feed.NewFeedUseCase(profileRepo, cfg.Feed.PageSize, log)
	swipeUseCase := swipe.NewSwipeUseCase(tx, profileRepo, decisionRepo, matchRepo, hub, wingman, log)
	messagingUseCase := messaging.NewMessagingUseCase(messageRepo, matchRepo, hub.Presence(), hub, messaging.Config{
		DefaultFetchLimit: cfg.Messaging.DefaultFetchLimit,
		MaxFetchLimit:     cfg.Messaging.MaxFetchLimit,
		MaxContentLength:  cfg.Messaging.MaxContentLength,
	}, log)

	if cfg.Reconcile.Enabled {
		c.Reconciler = reconcile.NewJob(tx, profileRepo, matchRepo, decisionRepo, cfg.Reconcile.BatchSize, log)
	}

	// Initialize handlers
	router := http.NewRouter(
		handler.NewProfileHandler(profileUseCase, log),
		handler.NewFeedHandler(feedUseCase, log),
		handler.NewSwipeHandler(swipeUseCase, log),
		handler.NewMessageHandler(messagingUseCase, log),
		handler.NewWSHandler(hub, messagingUseCase, cfg.CORS.AllowedOrigins, log),
		middleware.NewAuthMiddleware(cfg.JWT.AccessSecret, cfg.JWT.Issuer),
		cfg.CORS.AllowedOrigins,
		log,
	)

	c.Server = server.NewServer(&cfg.Server, router.Setup(), log)
	return c, nil
}

// Run serves HTTP, the live hub and the reconciler until ctx is cancelled
// or one of them fails, then shuts the server down.
func (c *Container) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Hub.RunWithContext(gctx)
	})

	g.Go(func() error {
		return c.Server.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		return c.Server.Shutdown(context.Background())
	})

	if c.Reconciler != nil {
		g.Go(func() error {
			return c.Reconciler.Loop(gctx, c.Config.Reconcile.Interval)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close closes all connections
func (c *Container) Close() error {
	if c.Gemini != nil {
		c.Gemini.Close()
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.log.Warn("error closing redis", zap.Error(err))
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	return nil
}
