package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dafedescribe/wey/internal/config"
	"github.com/dafedescribe/wey/internal/handler"
	"github.com/dafedescribe/wey/internal/messaging"
	"github.com/dafedescribe/wey/internal/middleware"
	"github.com/dafedescribe/wey/internal/repository"
	"github.com/dafedescribe/wey/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	redis, err := repository.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	linkRepo := repository.NewLinkRepository(db)
	userRepo := repository.NewUserRepository(db)
	clickRepo := repository.NewClickRepository(db)
	securityRepo := repository.NewSecurityRepository(db)
	rateRepo := repository.NewRateLimitRepository(redis)
	sourceRepo := repository.NewClickSourceRepository(redis)
	cacheRepo, err := repository.NewCacheRepository(redis)
	if err != nil {
		logger.Fatal("Failed to create cache", zap.Error(err))
	}

	location, err := time.LoadLocation(cfg.Stats.Timezone)
	if err != nil {
		logger.Warn("Invalid STATS_TIMEZONE, falling back to UTC", zap.String("tz", cfg.Stats.Timezone))
		location = time.UTC
	}

	gate := service.NewSecurityGate(cfg.Security, rateRepo, securityRepo, logger)
	allocator := service.NewCodeAllocator(linkRepo)
	linkService := service.NewLinkService(gate, allocator, linkRepo, userRepo, cacheRepo, cfg.App.BaseDomain, logger)
	statsService := service.NewStatsService(linkRepo, clickRepo, cfg.App.BaseDomain, location)

	tracker := service.NewClickTracker(linkRepo, clickRepo, sourceRepo, logger)
	clickProcessor := service.NewClickProcessor(tracker, logger)
	clickProcessor.Start()
	defer clickProcessor.Stop()

	sender := messaging.NewLogSender(logger)
	gateway := messaging.NewGateway(linkService, statsService, sender, logger)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})

	var apiKeyMiddleware gin.HandlerFunc
	if len(cfg.Auth.APIKeys) > 0 {
		apiKeyMiddleware = middleware.RequireAPIKey(cfg.Auth.APIKeys)
		logger.Info("API key authentication enabled", zap.Int("keys_count", len(cfg.Auth.APIKeys)))
	}

	linkHandler := handler.NewLinkHandler(linkService, statsService, clickProcessor, logger)
	webhookHandler := handler.NewWebhookHandler(gateway, logger)
	router := handler.NewRouter(linkHandler, webhookHandler, rateLimiter, apiKeyMiddleware, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
