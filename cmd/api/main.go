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

	"go-profile-backend/config"
	_ "go-profile-backend/docs" // Important for Swagger
	v1 "go-profile-backend/internal/delivery/http/v1"
	"go-profile-backend/internal/domain"
	"go-profile-backend/internal/repository/cache"
	"go-profile-backend/internal/repository/postgres"
	"go-profile-backend/internal/usecase"
	"go-profile-backend/pkg/auth"
	"go-profile-backend/pkg/database"
	"go-profile-backend/pkg/email"
	"go-profile-backend/pkg/logger"
	"go-profile-backend/pkg/otp"
	redisclient "go-profile-backend/pkg/redis"
	"go-profile-backend/pkg/storage"
	"go-profile-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title           Profile Backend API
// @version         1.0
// @description     Email OTP sign-up, professional profiles and skill endorsements.
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	zlog, err := logger.New(logger.Config{Level: cfg.LogLevel, Dev: cfg.LogDev})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	zlog.Info("Starting profile backend", zap.String("port", cfg.Port), zap.Bool("production", cfg.Production))

	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// 3. Setup Database
	dbPool, err := database.NewPostgresConnection(ctx, cfg.DBUrl, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	if err := database.Migrate(ctx, dbPool); err != nil {
		zlog.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 4. Setup Repositories
	userRepo := postgres.NewUserRepository(dbPool)
	otpRepo := postgres.NewOTPRepository(dbPool)
	profileRepo := postgres.NewProfileRepository(dbPool)
	endorsementRepo := postgres.NewEndorsementRepository(dbPool)

	// 5. Optional endorsement count cache
	var countCache domain.EndorsementCountCache
	redisClient, err := redisclient.New(ctx, redisclient.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword})
	switch {
	case err == nil:
		defer redisClient.Close()
		countCache = cache.NewEndorsementCountCache(redisClient)
		zlog.Info("Endorsement count cache enabled")
	case errors.Is(err, redisclient.ErrNotConfigured):
		zlog.Info("REDIS_URL not set, endorsement counts are not cached")
	default:
		zlog.Warn("Redis unavailable, endorsement counts are not cached", zap.Error(err))
	}

	// 6. Upload storage
	var assets domain.AssetStore
	var uploadDir string
	switch cfg.StorageDriver {
	case "s3":
		s3Store, err := storage.NewS3Storage(ctx, storage.S3Config{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			PublicURL:       cfg.S3PublicURL,
		})
		if err != nil {
			zlog.Fatal("Failed to configure S3 storage", zap.Error(err))
		}
		assets = s3Store
	default:
		local, err := storage.NewLocalStorage(cfg.UploadDir, cfg.PublicAPIURL)
		if err != nil {
			zlog.Fatal("Failed to prepare upload directory", zap.Error(err))
		}
		assets = local
		uploadDir = local.Dir()
	}
	zlog.Info("Upload storage ready", zap.String("driver", cfg.StorageDriver))

	// 7. Setup Email Service
	emailService := email.NewEmailService(cfg, zlog.Named("email"))
	if !emailService.IsConfigured() && !cfg.DisableOTPVerification {
		zlog.Warn("SMTP not configured - OTP codes go to disposable test inboxes")
	}
	if cfg.DisableOTPVerification {
		zlog.Warn("OTP verification is disabled for this environment")
	}

	// 8. Setup UseCases
	tokens := auth.NewTokenIssuer(cfg.JWTSecret)
	authUC := usecase.NewAuthUsecase(usecase.AuthDeps{
		Users:     userRepo,
		Profiles:  profileRepo,
		Codes:     otpRepo,
		Sender:    emailService,
		Tokens:    tokens,
		Passwords: auth.NewPasswordHasher(),
		Codec:     otp.NewCodec(cfg.JWTSecret),
		BypassOTP: cfg.DisableOTPVerification,
		Log:       zlog.Named("auth"),
	})
	profileUC := usecase.NewProfileUsecase(userRepo, profileRepo, assets, countCache, validation.New(), zlog.Named("profile"))
	endorsementUC := usecase.NewEndorsementUsecase(endorsementRepo, countCache, zlog.Named("endorsement"))
	healthUC := usecase.NewHealthUsecase()

	// 9. Demo seed
	if cfg.DemoUserEmail != "" {
		if err := authUC.EnsureDemoUser(ctx, cfg.DemoUserEmail); err != nil {
			zlog.Warn("Failed to seed demo user", zap.String("email", cfg.DemoUserEmail), zap.Error(err))
		}
	}

	// 10. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		AuthUC:        authUC,
		ProfileUC:     profileUC,
		EndorsementUC: endorsementUC,
		HealthUC:      healthUC,
		Tokens:        tokens,
		Config:        cfg,
		Log:           zlog.Named("http"),
		UploadDir:     uploadDir,
	})

	// 11. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("Listen failed", zap.Error(err))
		}
	}()
	zlog.Info("Server listening", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}

	zlog.Info("Server exiting")
}
