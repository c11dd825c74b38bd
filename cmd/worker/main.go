package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/urban-indicators/internal/app"
	"github.com/urban-indicators/internal/config"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/pkg/logger"
	"github.com/urban-indicators/internal/repository/cache"
	"github.com/urban-indicators/internal/repository/postgres"
	redisRepo "github.com/urban-indicators/internal/repository/redis"
	"github.com/urban-indicators/internal/worker"
	"github.com/urban-indicators/internal/worker/materialize"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Check if worker is enabled
	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting materialize worker")
	log.Info("Configuration loaded",
		zap.String("schedule", cfg.Worker.Schedule),
		zap.Bool("run_on_start", cfg.Worker.RunOnStart),
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.Int("areas", len(cfg.Areas)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect to PostgreSQL
	db, err := postgres.New(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}()
	if err := db.EnsurePostGIS(ctx); err != nil {
		log.Warn("PostGIS extension not ensured", zap.Error(err))
	}

	// 4. Connect to Redis (optional)
	redisClient, err := app.Redis(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	var (
		streamRepo repository.StreamRepository
		cacheRepo  repository.CacheRepository
	)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Failed to close Redis connection", zap.Error(err))
			}
		}()
		streamRepo = redisRepo.NewStreamRepositoryWithBlock(redisClient.Client(), log, cfg.Worker.StreamReadTimeout)
		cacheRepo = cache.NewCacheRepository(redisClient)
	}

	// 5. Build pipeline
	pipeline, err := app.NewPipeline(ctx, cfg, db, redisClient, log)
	if err != nil {
		log.Fatal("Failed to build pipeline", zap.Error(err))
	}

	// 6. Initialize workers
	materializeWorker := materialize.NewMaterializeWorker(
		pipeline,
		streamRepo,
		cacheRepo,
		cfg.Worker.ConsumerGroup,
		materialize.Options{
			Schedule:   cfg.Worker.Schedule,
			RunOnStart: cfg.Worker.RunOnStart,
		},
		log,
	)

	// 7. Create worker manager and register workers
	workerManager := worker.NewWorkerManager(log)
	workerManager.Register(materializeWorker)

	if err := workerManager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// 8. Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Received shutdown signal")

	cancel()

	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}

	log.Info("Worker shutdown complete")
}
