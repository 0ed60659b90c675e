package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"familyvault/mediahub/internal/config"
	"familyvault/mediahub/internal/handler"
	"familyvault/mediahub/internal/model"
	"familyvault/mediahub/internal/repository"
	"familyvault/mediahub/internal/service"
	"familyvault/mediahub/internal/storage"
	jwtpkg "familyvault/mediahub/pkg/jwt"
)

const mediaToolTimeout = 2 * time.Minute

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	// 3. Connect to the metadata database
	db, err := config.OpenDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("failed to open database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}

	// 4. Auto-migrate if enabled
	if cfg.Database.AutoMigrateEnabled() {
		if err := model.AutoMigrate(db); err != nil {
			logger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		logger.Info("database migration completed")
	}

	// 5. Initialize refresh-session store (Redis or in-memory)
	var sessions repository.SessionStore
	switch cfg.Sessions.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		sessions = repository.NewRedisSessionStore(redisClient, cfg.Sessions.Prefix)
		logger.Info("using Redis session store")
	case "memory":
		sessions = repository.NewMemorySessionStore()
		logger.Info("using in-memory session store")
	default:
		logger.Fatal("unknown sessions backend", zap.String("backend", cfg.Sessions.Backend))
	}

	// 6. Initialize repositories
	userRepo := repository.NewGormUserRepository(db)
	inviteRepo := repository.NewGormInvitationRepository(db)
	categoryRepo := repository.NewGormCategoryRepository(db)
	mediaRepo := repository.NewGormMediaRepository(db)
	permRepo := repository.NewGormPermissionRepository(db)
	transactor := repository.NewGormTransactor(db)

	// 7. Initialize JWT manager
	jwtManager := jwtpkg.NewManager(
		cfg.JWT.SigningKey,
		cfg.JWT.Issuer,
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
	)

	// 8. Mail
	var mailSender service.MailSender
	if cfg.SMTP.Enabled {
		mailSender, err = service.NewSMTPSender(cfg.SMTP)
		if err != nil {
			logger.Fatal("failed to init smtp sender", zap.Error(err))
		}
	} else {
		mailSender = service.NewLogMailSender(logger)
	}
	notifier := service.NewNotifier(mailSender, logger, cfg.Invite.SiteName)

	// 9. Initialize services
	ffmpeg := storage.NewFFmpeg(cfg.Media.FFmpegPath, cfg.Media.FFprobePath, mediaToolTimeout)
	invitationService := service.NewInvitationService(inviteRepo, notifier, cfg.PublicBaseURL, cfg.Invite.SendEmail)
	categoryService := service.NewCategoryService(categoryRepo)
	mediaService := service.NewMediaService(mediaRepo, categoryRepo, ffmpeg, ffmpeg, cfg.Media, logger)
	permissionService := service.NewPermissionService(permRepo, categoryRepo, userRepo, invitationService, mediaService)
	registrationService := service.NewRegistrationService(invitationService, userRepo, transactor, notifier, logger)
	authService := service.NewAuthService(userRepo, sessions, jwtManager, logger)

	// 10. Seed defaults
	if err := prepareDirs(cfg.Media); err != nil {
		logger.Fatal("failed to create media directories", zap.Error(err))
	}
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := categoryService.EnsureDefault(seedCtx); err != nil {
		logger.Fatal("failed to seed default category", zap.Error(err))
	}
	if err := authService.EnsureAdmin(seedCtx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}
	cancelSeed()

	// 11. Initialize handlers and router
	handlers := handler.Handlers{
		Auth: handler.NewAuthHandler(authService, registrationService, invitationService, handler.SessionCookie{
			Name:   cfg.Server.SessionCookie,
			Secure: cfg.Server.SecureCookie,
		}, logger),
		Admin:   handler.NewAdminHandler(invitationService, permissionService, categoryService, logger),
		Media:   handler.NewMediaHandler(mediaService, categoryService, permissionService, cfg.Media.MaxUploadBytes, logger),
		Gateway: handler.NewGatewayHandler(mediaService, permissionService, logger),
	}
	router := handler.SetupRouter(cfg, logger, authService, permissionService, handlers)

	// 12. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	// 13. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("media_root", cfg.Media.RootDir))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 14. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	notifier.Wait()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server exited gracefully")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}
	return zc.Build()
}

func prepareDirs(cfg config.MediaConfig) error {
	for _, dir := range []string{cfg.RootDir, cfg.ThumbnailDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
