package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/captainspark/backend/docs"
	"github.com/captainspark/backend/internal/assets"
	"github.com/captainspark/backend/internal/handlers"
	"github.com/captainspark/backend/internal/player"
	"github.com/captainspark/backend/internal/repositories"
	"github.com/captainspark/backend/internal/resolver"
	"github.com/captainspark/backend/internal/services"
	"github.com/captainspark/backend/internal/storage"
	"github.com/captainspark/backend/internal/tasks"
	"github.com/captainspark/backend/internal/tts"
	"github.com/captainspark/backend/libs/auth/middleware"
	"github.com/captainspark/backend/libs/auth/service"
	"github.com/captainspark/backend/libs/config"
	"github.com/captainspark/backend/libs/logger"
	loggerMiddleware "github.com/captainspark/backend/libs/logger/middleware"
	sharedMiddleware "github.com/captainspark/backend/libs/middlewares"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

// @title Captain Spark API
// @version 1.0
// @description Lesson player, progress and content authoring API for the Captain Spark kids app

// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for CMS automation
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting Captain Spark API")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Create Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Progress writes go through the queue unless configured inline
	var progressQueue tasks.Enqueuer
	if cfg.Queue.ProgressSync == "queue" {
		progressQueue = asynqClient
	}

	// Initialize JWT token generator
	tokenGenerator := service.NewTokenGenerator(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.EditorTokenExpiry,
	)

	// Initialize object storage
	objects, err := newStorage(ctx, cfg, tokenGenerator)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	if closer, ok := objects.(io.Closer); ok {
		defer closer.Close()
	}

	passwordHash, err := cmsPasswordHash(cfg.CMS)
	if err != nil {
		logger.Logger.Fatal("Failed to prepare CMS password", zap.Error(err))
	}

	// Initialize repositories
	courseRepo := repositories.NewCourseRepository(db)
	lessonRepo := repositories.NewLessonRepository(db)
	slideRepo := repositories.NewSlideRepository(db)
	learnerRepo := repositories.NewLearnerRepository(db)
	magicLinkRepo := repositories.NewMagicLinkRepository(db)
	progressRepo := repositories.NewProgressRepository(db)
	xpRepo := repositories.NewXPRepository(db)
	feedbackRepo := repositories.NewFeedbackRepository(db)

	// Initialize services
	lessonResolver := resolver.NewResolver(
		lessonRepo,
		slideRepo,
		objects,
		cfg.Storage.SignedURLTTL,
		cfg.Storage.ResolverWorkers,
		logger.Logger,
	)
	progressService := services.NewProgressService(
		progressRepo,
		xpRepo,
		learnerRepo,
		feedbackRepo,
		progressQueue,
		services.ProgressSettings{
			XPReward:    cfg.Player.XPReward,
			XPAnimation: cfg.Player.XPAnimation,
			MaxRetry:    cfg.Queue.ProgressMaxRetry,
		},
		logger.Logger,
	)
	accountService := services.NewAccountService(
		learnerRepo,
		magicLinkRepo,
		tts.NewClient(cfg.TTS.BaseURL, cfg.TTS.APIKey, cfg.TTS.VoiceID, cfg.TTS.Timeout),
		objects,
		tokenGenerator,
		asynqClient,
		services.AccountSettings{
			PublicURL:       cfg.Server.PublicURL,
			MagicLinkExpiry: cfg.JWT.MagicLinkExpiry,
			DefaultRedirect: cfg.Player.DefaultRedirect,
			TTSTimeout:      cfg.TTS.Timeout,
			SignedURLTTL:    cfg.Storage.SignedURLTTL,
		},
		logger.Logger,
	)
	trackService := services.NewCourseTrackService(progressRepo, lessonRepo, courseRepo, learnerRepo, logger.Logger)
	cmsService := services.NewCMSService(courseRepo, lessonRepo, slideRepo, objects, tokenGenerator, passwordHash, logger.Logger)
	playerService := services.NewPlayerService(
		lessonResolver,
		progressService,
		player.NewRedisStore(rdb, cfg.Player.SessionTTL),
		assets.NewCache(assets.NewHTTPLoader(cfg.Player.PreloadTimeout)),
		services.PlayerSettings{
			FadeDuration:   cfg.Player.FadeDuration,
			ReadinessWait:  cfg.Player.ReadinessWait,
			PreloadTimeout: cfg.Player.PreloadTimeout,
			SignedURLTTL:   cfg.Storage.SignedURLTTL,
			SessionTTL:     cfg.Player.SessionTTL,
		},
		logger.Logger,
	)

	// Initialize auth middleware
	learnerMiddleware := middleware.AuthMiddleware(tokenGenerator)
	editorMiddleware := middleware.EditorMiddleware(tokenGenerator, cfg.APIKey)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(
		accountService,
		cfg.JWT.AccessTokenExpiry,
		cfg.Server.SecureCookies,
		httprate.LimitByIP(5, time.Minute),
		logger.Logger,
	)
	playerHandler := handlers.NewPlayerHandler(playerService, logger.Logger)
	progressHandler := handlers.NewProgressHandler(progressService, logger.Logger)
	trackHandler := handlers.NewCourseTrackHandler(trackService, logger.Logger)
	cmsHandler := handlers.NewCMSHandler(cmsService, editorMiddleware, cfg.Server.MaxUploadSize, logger.Logger)
	healthHandler := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"database": db,
		"redis": handlers.PingerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}),
	}, logger.Logger)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(sharedMiddleware.RequestIDMiddleware)
	r.Use(loggerMiddleware.LoggerMiddleware(logger.Logger))
	r.Use(sharedMiddleware.RecoveryMiddleware(logger.Logger))
	r.Use(sharedMiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(sharedMiddleware.RequestSizeLimitMiddleware(10<<20, apiPrefix+"/cms/uploads")) // 10MB

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	// Scope router to /api/v1
	r.Route(apiPrefix, func(r chi.Router) {
		// Public endpoints
		healthHandler.RegisterRoutes(r)
		authHandler.RegisterRoutes(r)
		if files, ok := objects.(handlers.FileOpener); ok {
			handlers.NewMediaHandler(tokenGenerator, files, logger.Logger).RegisterRoutes(r)
		}

		// CMS endpoints (editor token or API key, login is public)
		cmsHandler.RegisterRoutes(r)

		// Learner endpoints (JWT protected)
		r.Group(func(r chi.Router) {
			r.Use(learnerMiddleware)
			authHandler.RegisterLearnerRoutes(r)
			playerHandler.RegisterRoutes(r)
			progressHandler.RegisterRoutes(r)
			trackHandler.RegisterRoutes(r)
		})
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// newStorage builds the object storage selected by STORAGE_DRIVER
func newStorage(ctx context.Context, cfg *config.Config, signer storage.TokenSigner) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case "local":
		if err := os.MkdirAll(cfg.Storage.MediaBasePath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create media directory: %w", err)
		}
		return storage.NewLocalStorage(cfg.Storage.MediaBasePath, cfg.Storage.MediaBaseURL, signer), nil
	case "gcs":
		gcs, err := storage.NewGCSStorage(ctx, cfg.Storage.GCSBucket, cfg.Storage.GCSCredentials)
		if err != nil {
			return nil, err
		}
		return gcs, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}

// cmsPasswordHash prefers the configured bcrypt hash and hashes a plaintext password otherwise
func cmsPasswordHash(cfg config.CMSConfig) ([]byte, error) {
	if cfg.PasswordHash != "" {
		return []byte(cfg.PasswordHash), nil
	}
	return services.HashPassword(cfg.Password)
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Get the working directory or use migrations folder relative to the binary
	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		// Try parent directories if running from cmd/api
		if _, err := os.Stat("../../migrations"); err == nil {
			migrationPath = "file://../../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationPath,
		"mysql",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
