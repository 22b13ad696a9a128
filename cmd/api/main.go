// Package main is the entry point for the PermitPro API.
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

	"github.com/gin-gonic/gin"
	_ "github.com/naciremadream81/permitpro-v1/docs"
	"github.com/naciremadream81/permitpro-v1/internal/config"
	"github.com/naciremadream81/permitpro-v1/internal/database"
	"github.com/naciremadream81/permitpro-v1/internal/handlers"
	"github.com/naciremadream81/permitpro-v1/internal/logger"
	"github.com/naciremadream81/permitpro-v1/internal/metrics"
	"github.com/naciremadream81/permitpro-v1/internal/models"
	"github.com/naciremadream81/permitpro-v1/internal/repository"
	"github.com/naciremadream81/permitpro-v1/internal/routes"
	"github.com/naciremadream81/permitpro-v1/internal/service"
	"github.com/naciremadream81/permitpro-v1/internal/storage"
	"github.com/naciremadream81/permitpro-v1/internal/validation"
	"github.com/naciremadream81/permitpro-v1/pkg/redis"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type repositories struct {
	users       repository.UserRepository
	contractors repository.ContractorRepository
	packages    repository.PermitRepository
}

// @title PermitPro API
// @version 1.0
// @description Permit package management for Florida residential permits
// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	log := logger.New(os.Getenv("LOG_LEVEL"))
	if err := run(log); err != nil {
		log.WithError(err).Fatal("permitpro stopped")
	}
}

func run(log *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log = logger.New(cfg.LogLevel)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := validation.RegisterBinding(); err != nil {
		return err
	}

	ctx := context.Background()
	health := handlers.NewHealthHandler()

	repos, err := openRepositories(cfg, health)
	if err != nil {
		return err
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer blobs.Close()

	tokens := service.NewMemoryTokenStore()
	if cfg.RedisEnabled() {
		redisClient, err := redis.NewClient(cfg)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		tokens = service.NewRedisTokenStore(redisClient)
		health.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	} else {
		log.Warn("REDIS_HOST not set, refresh tokens are kept in memory")
	}

	metricsCollector := metrics.New()

	jwtService, err := service.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	if err != nil {
		return err
	}
	authService := service.NewAuthService(repos.users, jwtService, tokens)
	permitService := service.NewPermitService(repos.packages, repos.contractors, blobs,
		service.WithObserver(metricsCollector))
	contractorService := service.NewContractorService(repos.contractors)

	if cfg.SeedAdminEmail != "" {
		created, err := authService.EnsureUser(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword, cfg.SeedAdminName, models.RoleAdmin)
		if err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
		if created {
			log.WithField("email", service.NormalizeEmail(cfg.SeedAdminEmail)).Info("seeded admin user")
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	routes.Setup(router, routes.Handlers{
		Auth:        handlers.NewAuthHandler(authService, handlers.NewCookieHelper(cfg.Cookie), jwtService, log),
		Permits:     handlers.NewPermitHandler(permitService, cfg.MaxUploadBytes, log),
		Contractors: handlers.NewContractorHandler(contractorService, log),
		Catalog:     handlers.NewCatalogHandler(),
		Health:      health,
	}, authService, cfg, metricsCollector, log)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"port":    cfg.Port,
			"store":   cfg.StoreDriver,
			"storage": cfg.StorageProvider,
		}).Info("starting permitpro")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func openRepositories(cfg *config.Config, health *handlers.HealthHandler) (*repositories, error) {
	if cfg.StoreDriver == config.StoreMemory {
		return &repositories{
			users:       repository.NewMemoryUserRepository(),
			contractors: repository.NewMemoryContractorRepository(),
			packages:    repository.NewMemoryPermitRepository(),
		}, nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	health.Register("database", func(ctx context.Context) error {
		return database.Ping(ctx, db)
	})

	return &repositories{
		users:       repository.NewUserRepository(db),
		contractors: repository.NewContractorRepository(db),
		packages:    repository.NewPermitRepository(db),
	}, nil
}

func openBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	if cfg.StorageProvider == config.StorageGCS {
		return storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON)
	}
	return storage.NewLocalStore(cfg.StorageLocalDir)
}
