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

	"botdesk/internal/analytics"
	"botdesk/internal/config"
	"botdesk/internal/database"
	"botdesk/internal/handlers"
	"botdesk/internal/logger"
	"botdesk/internal/migrations"
	"botdesk/internal/redis"
	"botdesk/internal/repository"
	"botdesk/internal/services"
	"botdesk/pkg/whatsapp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	// Load configuration
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	zapLogger, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer zapLogger.Sync()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL, cfg.DBLogLevel, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	err = migrations.RunMigrations(db, migrations.Options{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Initialize Redis
	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Initialize WhatsApp client
	whatsappClient := whatsapp.NewClient(
		cfg.WhatsAppGraphURL,
		cfg.WhatsAppAPIVersion,
		cfg.MetaAppID,
		cfg.MetaAppSecret,
		cfg.MetaRedirectURI,
	)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	businessRepo := repository.NewBusinessRepository(db)
	botRepo := repository.NewBotRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	integrationRepo := repository.NewIntegrationRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	systemSettingsRepo := repository.NewSystemSettingsRepository(db)
	backupRepo := repository.NewBackupRepository(db)
	healthRepo := repository.NewHealthRepository(db)

	// Initialize services
	agg := analytics.New(cfg.Location())
	authService := services.NewAuthService(userRepo, sessionRepo, cfg.JWTSecret, cfg.TokenTTL())
	botService := services.NewBotService(botRepo, businessRepo)
	businessService := services.NewBusinessService(businessRepo)
	settingsService := services.NewSettingsService(settingsRepo, sessionRepo)
	conversationService := services.NewConversationService(conversationRepo, businessRepo, botRepo, agg, cfg.AnalyticsMonths)
	dashboardService := services.NewDashboardService(conversationRepo, businessRepo, botRepo, integrationRepo, agg)
	integrationService := services.NewIntegrationService(
		integrationRepo,
		businessRepo,
		whatsappClient,
		redisClient,
		cfg.StateDuration(),
		zapLogger,
	)
	replies := services.NewAIProcessor(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.DefaultReply, zapLogger)
	webhookService := services.NewWebhookService(
		integrationRepo,
		businessRepo,
		conversationRepo,
		whatsappClient,
		replies,
		cfg.WhatsAppVerifyToken,
		services.SenderDefaults{
			AccessToken:   cfg.WhatsAppAccessToken,
			PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		},
		zapLogger,
	)
	adminService := services.NewAdminService(services.AdminDeps{
		Users:          userRepo,
		Businesses:     businessRepo,
		Bots:           botRepo,
		Conversations:  conversationRepo,
		Integrations:   integrationRepo,
		Sessions:       sessionRepo,
		SystemSettings: systemSettingsRepo,
		Backups:        backupRepo,
		Probes:         healthRepo,
		Cache:          redisClient,
		Redis:          redisClient,
		Aggregator:     agg,
		CacheTTL:       cfg.CacheDuration(),
		Logger:         zapLogger,
	})

	// Initialize handlers
	router := handlers.NewRouter(handlers.RouterDeps{
		Middleware: handlers.NewMiddleware(authService),
		Auth:       handlers.NewAuthHandler(authService, cfg.TokenTTL(), cfg.CookieSecure, zapLogger),
		WhatsApp:   handlers.NewWhatsAppHandler(webhookService, integrationService, zapLogger),
		API: handlers.NewAPIHandler(
			botService,
			businessService,
			settingsService,
			conversationService,
			dashboardService,
			handlers.APIHandlerConfig{MetaAppID: cfg.MetaAppID, MetaRedirectURI: cfg.MetaRedirectURI},
			zapLogger,
		),
		Admin:      handlers.NewAdminHandler(adminService, zapLogger),
		CORSOrigin: cfg.CORSOrigin,
		RateLimit:  rate.Limit(cfg.RateLimitRPS),
		RateBurst:  cfg.RateLimitBurst,
		Logger:     zapLogger,
	})

	if cfg.WebhookCallbackURL != "" {
		zapLogger.Info("Webhook callback URL", zap.String("url", cfg.WebhookCallbackURL))
	}

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		zapLogger.Info("Server starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
}
