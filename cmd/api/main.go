package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/urban-indicators/docs"
	"github.com/urban-indicators/internal/app"
	"github.com/urban-indicators/internal/config"
	httpDelivery "github.com/urban-indicators/internal/delivery/http"
	"github.com/urban-indicators/internal/delivery/http/handler"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/pkg/logger"
	"github.com/urban-indicators/internal/repository/cache"
	"github.com/urban-indicators/internal/repository/postgres"
	redisRepo "github.com/urban-indicators/internal/repository/redis"
	"github.com/urban-indicators/internal/usecase"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting urban indicators API")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
	)

	// 3. Connect to PostgreSQL
	db, err := postgres.New(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}

	// 4. Connect to Redis (optional)
	redisClient, err := app.Redis(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// 5. Health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Health(ctx); err != nil {
		log.Fatal("PostgreSQL health check failed", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Health(ctx); err != nil {
			log.Fatal("Redis health check failed", zap.Error(err))
		}
	}

	log.Info("All connections healthy")

	// 6. Initialize repositories
	statsRepo := postgres.NewStatsRepository(db, log)
	var (
		cacheRepo  repository.CacheRepository
		streamRepo repository.StreamRepository
	)
	if redisClient != nil {
		cacheRepo = cache.NewCacheRepository(redisClient)
		streamRepo = redisRepo.NewStreamRepository(redisClient.Client(), log)
	}

	// 7. Initialize use cases
	statsUC := usecase.NewStatsUseCase(statsRepo, cacheRepo, cfg.Areas, log)

	// 8. Initialize HTTP handlers and server
	server := httpDelivery.NewServer(
		cfg,
		log,
		handler.NewStatsHandler(statsUC, log),
		handler.NewMaterializeHandler(streamRepo, log),
	)

	// 9. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 10. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	if err := db.Close(); err != nil {
		log.Error("Failed to close PostgreSQL connection", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis", zap.Error(err))
		}
	}

	log.Info("Server stopped successfully")
}
