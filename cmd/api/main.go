package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listing-portal/internal/account"
	"listing-portal/internal/auth"
	"listing-portal/internal/breaker"
	"listing-portal/internal/cleanup"
	"listing-portal/internal/config"
	"listing-portal/internal/database"
	"listing-portal/internal/enquiry"
	"listing-portal/internal/handlers"
	"listing-portal/internal/history"
	"listing-portal/internal/listing"
	"listing-portal/internal/logging"
	"listing-portal/internal/page"
	"listing-portal/internal/scheduler"
	"listing-portal/internal/search"
	"listing-portal/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to read .env: %v", err)
	}

	configPath := getEnv("CONFIG_PATH", "config/config.yaml")
	appConfig, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", configPath, err)
	}
	appConfig.ApplyEnvironment()
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.New(os.Stdout, appConfig.Logging.Format, appConfig.Logging.Level)
	if err := run(appConfig, logger); err != nil {
		logger.Error(context.Background(), "server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx := context.Background()
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		// Validate only lets this through in dev mode.
		secret = "dev-secret-change-me"
		logger.Warn(ctx, "using built-in JWT secret; set JWT_SECRET outside development")
	}

	db, gormDB, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	logger.Info(ctx, "store ready", "type", cfg.Database.Type)

	hist := history.NewService(db, logger)
	accounts := account.NewService(db,
		auth.NewTokenIssuer(secret, cfg.Auth.GetTokenTTL()),
		auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		cfg.Auth.MinPasswordLength,
		logger,
	)

	var (
		breakers    []*breaker.CircuitBreaker
		listingOpts []listing.Option
		reindexer   scheduler.Reindexer
		worker      *scheduler.QueueWorker
	)

	if cfg.Search.Enabled {
		searchBreaker := breaker.NewCircuitBreaker("search", 5, 30*time.Second)
		searchBreaker.OnStateChange(func(name string, open bool) {
			logger.Warn(ctx, "circuit breaker state changed", "breaker", name, "open", open)
		})
		breakers = append(breakers, searchBreaker)

		mc := cfg.Search.Meilisearch
		searchClient := search.NewSearchClient(mc.Host, mc.APIKey, mc.Index, searchBreaker)
		if err := searchClient.InitIndex(); err != nil {
			logger.Warn(ctx, "failed to initialize search index", "error", err)
		}
		reindexer = searchClient
		listingOpts = append(listingOpts, listing.WithSearcher(searchClient))

		// With a SQL store index changes go through the durable queue;
		// the memory store talks to the engine directly.
		if gormDB != nil {
			listingOpts = append(listingOpts, listing.WithIndexer(scheduler.NewQueuedIndexer(gormDB)))
			worker = scheduler.NewQueueWorker(gormDB, gormDB, searchClient, cfg.Scheduler.GetSyncPollInterval(), logger)
		} else {
			listingOpts = append(listingOpts, listing.WithIndexer(searchClient))
		}
	}

	var uploader handlers.Uploader
	if cfg.Storage.Enabled {
		storageBreaker := breaker.NewCircuitBreaker("storage", 5, 30*time.Second)
		breakers = append(breakers, storageBreaker)
		s3Uploader, err := storage.NewS3Uploader(ctx, storage.Options{
			Endpoint:      cfg.Storage.Endpoint,
			Region:        cfg.Storage.Region,
			Bucket:        cfg.Storage.Bucket,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
			Prefix:        cfg.Storage.Prefix,
			MaxFileBytes:  cfg.Storage.MaxFileBytes,
			MaxFiles:      cfg.Storage.MaxFiles,
			AllowedTypes:  cfg.Storage.AllowedTypes,
		}, storageBreaker)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		uploader = s3Uploader
		listingOpts = append(listingOpts, listing.WithImageRemover(s3Uploader))
		logger.Info(ctx, "uploads enabled", "bucket", cfg.Storage.Bucket)
	}

	listings := listing.NewService(db, hist, logger, listingOpts...)
	cleanupService := cleanup.NewService(db, logger)

	appScheduler := scheduler.NewScheduler(cfg.Scheduler, cleanupService, db, reindexer, logger)
	if err := appScheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer appScheduler.Stop()

	if worker != nil {
		worker.Start()
		defer worker.Stop()
		logger.Info(ctx, "search sync worker started")
	}

	router := handlers.NewRouter(handlers.Deps{
		Config:    cfg,
		Log:       logger,
		Store:     db,
		Accounts:  accounts,
		Listings:  listings,
		Enquiries: enquiry.NewService(db, logger),
		Pages:     page.NewService(db, logger),
		Cleanup:   cleanupService,
		Uploader:  uploader,
		Scheduler: appScheduler,
		Worker:    worker,
		Breakers:  breakers,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-sigCtx.Done():
	}

	logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
