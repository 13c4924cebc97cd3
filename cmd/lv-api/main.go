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

	"github.com/livingvectors/lv-api/internal/cache"
	"github.com/livingvectors/lv-api/internal/config"
	"github.com/livingvectors/lv-api/internal/database"
	"github.com/livingvectors/lv-api/internal/handlers"
	"github.com/livingvectors/lv-api/internal/logging"
	"github.com/livingvectors/lv-api/internal/metrics"
	authmw "github.com/livingvectors/lv-api/internal/middleware"
	"github.com/livingvectors/lv-api/internal/services"
	"github.com/livingvectors/lv-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"go.uber.org/zap"
)

const sessionCacheTTL = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL, database.NewAuditTracer(logger))
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	jwtService := services.NewJWTService(cfg.SessionSecret, cfg.SessionMaxAge)
	userService := services.NewUserService(db)
	linker := services.NewAccountLinker(db, logger, cfg.AccountLinkAttempts)
	sessionService := services.NewSessionService(db, jwtService, logger)
	verificationService := services.NewVerificationService(db)
	emailService := services.NewEmailService(cfg.SMTP, logger)
	pyapiClient := services.NewPyAPIClient(cfg.PyAPI)

	if cfg.RedisURL != "" {
		sessionCache, err := cache.NewSessionCache(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("session cache disabled", zap.Error(err))
		} else {
			defer func() { _ = sessionCache.Close() }()
			sessionService.WithCache(sessionCache, sessionCacheTTL)
		}
	}

	authHandler := handlers.NewAuthHandler(cfg, linker, userService, sessionService, verificationService, emailService, logger)
	profileHandler := handlers.NewProfileHandler(userService, logger)
	chatHandler := handlers.NewChatHandler(pyapiClient, logger)
	pyapiHandler := handlers.NewPyAPIHandler(pyapiClient, logger)

	chatLimiter := authmw.NewRateLimiter(cfg.ChatRateLimitRPS, cfg.ChatRateLimitBurst)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.BaseURL},
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())
	app.Use(authmw.Session(sessionService))

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Get("/providers", authHandler.Providers)
	auth.Get("/csrf", authHandler.CSRF)
	auth.Get("/session", authHandler.Session)
	auth.Get("/logout", authHandler.Logout)
	auth.Get("/signin/:provider", authHandler.SignIn)
	auth.Post("/signin/email", authHandler.EmailSignIn)
	auth.Get("/callback/:provider", authHandler.Callback)

	api.Get("/profile", profileHandler.Get)
	api.Put("/profile", profileHandler.Update)

	interview := api.Group("/interview")
	interview.Use(chatLimiter.Middleware())
	interview.Post("/chat", chatHandler.Chat)

	api.Get("/pyapi/status", pyapiHandler.Status)

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, dto.HealthResponse{Status: "ok"})
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", app)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           logging.AccessLog(logger, metrics.Instrument(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		for range ticker.C {
			cleanup(context.Background(), logger, sessionService, verificationService)
		}
	}()

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		for range ticker.C {
			chatLimiter.Cleanup()
		}
	}()

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env), zap.String("pyapi_url", pyapiClient.BaseURL()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func cleanup(ctx context.Context, logger *zap.Logger, sessions *services.SessionService, verification *services.VerificationService) {
	removed, err := sessions.CleanupExpired(ctx)
	if err != nil {
		logger.Error("session cleanup failed", zap.Error(err))
	} else if removed > 0 {
		logger.Info("expired sessions removed", zap.Int64("count", removed))
	}

	removed, err = verification.CleanupExpired(ctx)
	if err != nil {
		logger.Error("verification token cleanup failed", zap.Error(err))
	} else if removed > 0 {
		logger.Info("expired verification tokens removed", zap.Int64("count", removed))
	}
}
