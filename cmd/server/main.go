package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cattube/internal/config"
	"cattube/internal/database"
	"cattube/internal/events"
	"cattube/internal/handlers"
	"cattube/internal/logger"
	"cattube/internal/metrics"
	"cattube/internal/middleware"
	"cattube/internal/repository"
	"cattube/internal/router"
	"cattube/internal/services"
	"cattube/internal/web"
	"cattube/internal/websocket"
)

func main() {
	logger.Info("🚀 Starting CatTube...")

	// ──── Step 1: Load Environment Variables ────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	logger.Info("✓ Environment variables loaded")

	// ──── Step 2: Open the Video Store ────
	videos, users, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Fatalf("✗ Store initialization failed: %v", err)
	}
	defer closeStore()
	logger.Infof("✓ %s store ready", cfg.StoreDriver)

	// ──── Step 3: Event Publishers ────
	var publishers events.Multi
	var wsHub *websocket.Hub
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)

	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			logger.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClients.Close()
		publishers = append(publishers, events.NewRedisPublisher(redisClients.Publisher))
		wsHub = websocket.NewHub(redisClients.Subscriber, jwtAuth, cfg.TrustedOrigins())
		logger.Info("✓ Redis connected")
	} else {
		wsHub = websocket.NewHub(nil, jwtAuth, cfg.TrustedOrigins())
		publishers = append(publishers, events.NewLocalPublisher(wsHub))
		logger.Warnf("REDIS_URL not set, live video updates only reach sockets on this instance")
	}

	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Fatalf("✗ AMQP connection failed: %v", err)
		}
		defer amqpPublisher.Close()
		publishers = append(publishers, amqpPublisher)
		logger.Infof("✓ AMQP exchange %q declared", cfg.AMQPExchange)
	}

	var publisher events.Publisher
	if len(publishers) > 0 {
		publisher = publishers
	}

	// ──── Initialize Services ────
	m := metrics.New()
	videoService := services.NewVideoService(videos, cfg, publisher, m)
	authService := services.NewAuthService(users, jwtAuth)

	staticURL := "/static/"
	if cfg.IsProduction() {
		staticURL = cfg.StaticURL()
	}
	pages, err := web.NewRenderer(staticURL)
	if err != nil {
		logger.Fatalf("✗ Template parsing failed: %v", err)
	}
	sessions := middleware.NewSessions(cfg.SessionSecret, cfg.IsProduction())

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService, sessions, pages)
	videoHandler := handlers.NewVideoHandler(videoService, sessions, pages, cfg.PublicBaseURL)
	notificationHandler := handlers.NewNotificationHandler(videoService)

	// ──── Step 4: Start HTTP Server ────
	r := router.New(cfg, m, sessions, jwtAuth, authHandler, videoHandler, notificationHandler, wsHub)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	logger.Infof("✓ CatTube ready on http://localhost:%s", cfg.Port)
	logger.Infof("  Notifications: %s", notifyTarget(cfg))

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server error: %v", err)
	}
}

// openStore wires the configured backend. Postgres runs its migrations
// before serving; pebble needs none.
func openStore(cfg *config.Config) (repository.VideoStore, repository.UserStore, func(), error) {
	switch cfg.StoreDriver {
	case "pebble":
		db, err := database.NewPebbleDB(cfg.DataDir, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		store := repository.NewPebbleStore(db)
		return store.Videos(), store.Users(), func() { db.Close() }, nil

	default:
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.RunMigrations(pool); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("database migration failed: %w", err)
		}
		return repository.NewVideoRepo(pool), repository.NewUserRepo(pool), pool.Close, nil
	}
}

func notifyTarget(cfg *config.Config) string {
	if cfg.PublicBaseURL != "" {
		return cfg.PublicBaseURL + "/notification"
	}
	return "derived from each request's host"
}
