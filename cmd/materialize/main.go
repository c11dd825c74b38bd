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
	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/pkg/logger"
	"github.com/urban-indicators/internal/repository/postgres"
	"github.com/urban-indicators/internal/worker/materialize"
)

// materialize runs the pipeline once and exits non-zero when any stage failed.
func main() {
	os.Exit(run())
}

func run() int {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 2
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 2
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect to PostgreSQL
	db, err := postgres.New(&cfg.Database, log)
	if err != nil {
		log.Error("Failed to connect to PostgreSQL", zap.Error(err))
		return 1
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
		log.Error("Failed to connect to Redis", zap.Error(err))
		return 1
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Failed to close Redis connection", zap.Error(err))
			}
		}()
	}

	// 5. Build pipeline
	pipeline, err := app.NewPipeline(ctx, cfg, db, redisClient, log)
	if err != nil {
		log.Error("Failed to build pipeline", zap.Error(err))
		return 1
	}

	// 6. Run
	summary, err := pipeline.Run(ctx, materialize.TriggerManual, nil)
	logSummary(log, summary)
	if err != nil {
		log.Error("Pipeline run failed", zap.Error(err))
		return 1
	}
	return 0
}

func logSummary(log *zap.Logger, summary *domain.RunSummary) {
	if summary == nil {
		return
	}
	log.Info("Run summary",
		zap.String("run_id", summary.RunID.String()),
		zap.Int("built", summary.Count(domain.OutcomeBuilt)),
		zap.Int("skipped", summary.Count(domain.OutcomeSkipped)),
		zap.Int("failed", summary.Count(domain.OutcomeFailed)),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	for area, url := range summary.FlowSheets {
		log.Info("Flow sheet", zap.String("area", area), zap.String("url", url))
	}
}
