package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"admin-service/cache"
	"admin-service/config"
	"admin-service/events"
	"admin-service/export"
	"admin-service/fetcher"
	"admin-service/handler"
	"admin-service/logger"
	"admin-service/meme"
	"admin-service/metrics"
	"admin-service/repository"
	"admin-service/router"
	"admin-service/service"
	"admin-service/worker"

	"github.com/gin-gonic/gin"
)

const (
	serviceName    = "admin-service"
	serviceVersion = "1.0.0"
	statsKeyPrefix = "admin:stats:"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	appLog, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.Development()})
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer func() { _ = appLog.Sync() }()

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Init(serviceName, serviceVersion, cfg.AppEnv)

	// Connect to MongoDB
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := repository.Connect(connectCtx, cfg.MongoURI, cfg.MongoDB)
	cancelConnect()
	if err != nil {
		appLog.Error("Failed to connect to MongoDB", logger.Error(err))
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(ctx)
	}()
	appLog.Info("Connected to MongoDB", logger.String("database", cfg.MongoDB))

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.EnsureIndexes(indexCtx); err != nil {
		appLog.Warn("Failed to ensure indexes", logger.Error(err))
	}
	cancelIndex()

	statsCache := newCache(cfg, appLog)
	publisher, subscriber := newEvents(cfg, appLog)
	defer publisher.Close()

	fonts, err := meme.NewFontSet()
	if err != nil {
		appLog.Error("Failed to load fonts", logger.Error(err))
		os.Exit(1)
	}
	if cfg.Export.FontDir != "" {
		n, err := fonts.LoadDir(cfg.Export.FontDir)
		if err != nil {
			appLog.Warn("Failed to load font directory", logger.String("dir", cfg.Export.FontDir), logger.Error(err))
		} else {
			appLog.Info("Loaded fonts", logger.String("dir", cfg.Export.FontDir), logger.Int("count", n))
		}
	}

	exporter := export.NewExporter(
		store.Posts,
		fetcher.NewFetcher(cfg.Export.FetchTimeout),
		meme.NewCompositor(fonts, meme.WithMaxPixels(int64(cfg.Export.MaxImagePixels))),
		export.Options{
			Concurrency: cfg.Export.Concurrency,
			StagingDir:  cfg.Export.StagingDir,
			ZipLevel:    cfg.Export.ZipLevel,
		},
		appLog.With(logger.String("component", "export")),
	)

	var usage service.UsageClient
	if cfg.Cloudinary.Configured() {
		client, err := service.NewCloudinaryClient(cfg.Cloudinary)
		if err != nil {
			appLog.Error("Failed to create Cloudinary client", logger.Error(err))
			os.Exit(1)
		}
		usage = client
	} else {
		appLog.Warn("Cloudinary credentials not set, storage usage disabled")
	}

	jwtManager := service.NewJWTManager(cfg.JWTSecret, cfg.JWTExpire)
	authService := service.NewAuthService(store.Users, jwtManager, cfg.AdminRegistrationToken, appLog)
	storageService := service.NewStorageService(usage, store.Snapshots, appLog)

	done := make(chan struct{})
	r := router.Setup(router.Deps{
		Auth: authService,
		Handler: router.Handlers{
			Auth: handler.NewAuthHandler(authService),
			Admin: handler.NewAdminHandler(
				service.NewStatsService(store.Stats, statsCache, cfg.StatsCacheTTL, appLog),
				storageService,
				service.NewUserService(store.Users, store.Posts, publisher, appLog),
				service.NewPostService(store.Posts, publisher, appLog),
			),
			Appeals: handler.NewAppealHandler(service.NewAppealService(store.Appeals, store.Users, publisher, appLog)),
			Export:  handler.NewExportHandler(exporter, publisher, appLog),
			Health:  handler.NewHealthHandler(serviceName, store),
		},
		Log:            appLog,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Done:           done,
	})

	// Start worker in background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var snapshotWorker *worker.SnapshotWorker
	if storageService.Configured() {
		var sub worker.Subscriber
		if subscriber != nil {
			sub = subscriber
		}
		snapshotWorker = worker.NewSnapshotWorker(storageService, cfg.SnapshotInterval, sub, appLog)
		if err := snapshotWorker.Start(ctx); err != nil {
			appLog.Error("Failed to start snapshot worker", logger.Error(err))
			os.Exit(1)
		}
	}

	// Setup HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info("Admin service starting", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("Failed to start server", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down admin service")

	// Graceful shutdown
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if snapshotWorker != nil {
		snapshotWorker.Stop()
	}
	close(done)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", logger.Error(err))
	}

	appLog.Info("Admin service stopped")
}

// newCache returns a Redis cache, or a no-op cache when Redis is not
// configured or unreachable.
func newCache(cfg *config.Config, log logger.Logger) cache.Cache {
	client, err := cache.NewClient(cfg.RedisAddr)
	if err != nil {
		if !errors.Is(err, cache.ErrEmptyAddress) {
			log.Warn("Redis unavailable, stats cache disabled", logger.Error(err))
		}
		return cache.Nop{}
	}
	log.Info("Connected to Redis", logger.String("addr", cfg.RedisAddr))
	return cache.NewRedisCache(client, statsKeyPrefix)
}

// newEvents connects to NATS when configured. The subscriber is nil when
// events are disabled.
func newEvents(cfg *config.Config, log logger.Logger) (events.Publisher, *events.NATSPublisher) {
	if cfg.NATSUrl == "" {
		log.Info("NATS_URL not set, events disabled")
		return events.NopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSUrl, serviceName, log)
	if err != nil {
		log.Warn("NATS unavailable, events disabled", logger.Error(err))
		return events.NopPublisher{}, nil
	}
	log.Info("Connected to NATS", logger.String("url", cfg.NATSUrl))
	return pub, pub
}
