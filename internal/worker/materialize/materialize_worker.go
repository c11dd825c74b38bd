package materialize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/usecase"
	"github.com/urban-indicators/internal/worker"
)

// Triggers recorded in run summaries
const (
	TriggerSchedule = "schedule"
	TriggerStartup  = "startup"
	TriggerStream   = "stream"
	TriggerManual   = "manual"
)

// ErrRunInProgress is reported for a request arriving while a run is active
var ErrRunInProgress = errors.New("pipeline run already in progress")

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context, trigger string, requestID *uuid.UUID) (*domain.RunSummary, error)
}

// Options configure when the worker runs the pipeline
type Options struct {
	// Schedule is a five-field cron expression; empty disables scheduled runs
	Schedule   string
	RunOnStart bool
}

// MaterializeWorker runs the pipeline on a cron schedule and on requests
// read from a Redis stream. Runs never overlap.
type MaterializeWorker struct {
	*worker.BaseWorker
	runner       Runner
	streamRepo   repository.StreamRepository
	cacheRepo    repository.CacheRepository
	opts         Options
	cron         *cron.Cron
	consumerName string
}

// NewMaterializeWorker creates the worker. streamRepo and cacheRepo may be
// nil when Redis is not configured.
func NewMaterializeWorker(
	runner Runner,
	streamRepo repository.StreamRepository,
	cacheRepo repository.CacheRepository,
	consumerGroup string,
	opts Options,
	logger *zap.Logger,
) *MaterializeWorker {
	hostname, _ := os.Hostname()

	return &MaterializeWorker{
		BaseWorker:   worker.NewBaseWorker("materialize", consumerGroup, logger),
		runner:       runner,
		streamRepo:   streamRepo,
		cacheRepo:    cacheRepo,
		opts:         opts,
		cron:         cron.New(),
		consumerName: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
	}
}

// Start blocks until Stop is called or ctx is done. A scheduled or startup
// run still in progress at that point is waited for.
func (w *MaterializeWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting MaterializeWorker",
		zap.String("schedule", w.opts.Schedule),
		zap.Bool("run_on_start", w.opts.RunOnStart),
		zap.Bool("stream_triggers", w.streamRepo != nil))

	if w.opts.Schedule != "" {
		if _, err := w.cron.AddFunc(w.opts.Schedule, func() {
			w.Trigger(ctx, TriggerSchedule, nil)
		}); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", w.opts.Schedule, err)
		}
		w.cron.Start()
		defer func() {
			<-w.cron.Stop().Done()
		}()
	}

	defer w.Wait()
	if w.opts.RunOnStart {
		w.Go(func() {
			w.Trigger(ctx, TriggerStartup, nil)
		})
	}

	var messages <-chan domain.StreamMessage
	if w.streamRepo != nil {
		if err := w.streamRepo.CreateConsumerGroup(ctx, domain.StreamMaterializeRequest, w.ConsumerGroup()); err != nil {
			return fmt.Errorf("failed to create consumer group: %w", err)
		}
		var err error
		messages, err = w.streamRepo.ConsumeStream(ctx, domain.StreamMaterializeRequest, w.ConsumerGroup(), w.consumerName)
		if err != nil {
			return fmt.Errorf("failed to consume stream: %w", err)
		}
	}

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil

		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()

		case msg, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			w.handleMessage(ctx, msg)
		}
	}
}

// handleMessage runs the pipeline for one request and always acknowledges
// it; a malformed request is dropped.
func (w *MaterializeWorker) handleMessage(ctx context.Context, msg domain.StreamMessage) {
	logger := w.Logger()
	defer func() {
		_ = w.streamRepo.AckMessage(ctx, domain.StreamMaterializeRequest, w.ConsumerGroup(), msg.ID)
	}()

	var req domain.MaterializeRequest
	if err := json.Unmarshal([]byte(msg.Data), &req); err != nil {
		logger.Warn("Failed to parse message, skipping",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return
	}
	if req.RequestID == uuid.Nil {
		req.RequestID = uuid.New()
	}

	logger.Info("Materialize requested",
		zap.String("message_id", msg.ID),
		zap.String("request_id", req.RequestID.String()),
		zap.String("requested_by", req.RequestedBy),
		zap.String("reason", req.Reason))

	if _, ran := w.Trigger(ctx, TriggerStream, &req.RequestID); !ran {
		now := time.Now().UTC()
		w.publish(ctx, &domain.RunSummary{
			RequestID:  &req.RequestID,
			Trigger:    TriggerStream,
			StartedAt:  now,
			FinishedAt: now,
			Error:      ErrRunInProgress.Error(),
		})
	}
}

// Trigger runs the pipeline unless a run is in progress. It reports whether
// the run happened.
func (w *MaterializeWorker) Trigger(ctx context.Context, trigger string, requestID *uuid.UUID) (*domain.RunSummary, bool) {
	logger := w.Logger()
	if !w.TryAcquire() {
		logger.Warn("Pipeline run already in progress, skipping", zap.String("trigger", trigger))
		return nil, false
	}
	defer w.Release()

	summary, err := w.runner.Run(ctx, trigger, requestID)
	if err != nil {
		logger.Error("Pipeline run failed", zap.String("trigger", trigger), zap.Error(err))
	}

	if w.cacheRepo != nil {
		if err := w.cacheRepo.Delete(ctx, usecase.StatusCacheKey); err != nil {
			logger.Warn("Failed to invalidate status cache", zap.Error(err))
		}
	}
	if summary != nil {
		w.publish(ctx, summary)
	}
	return summary, true
}

func (w *MaterializeWorker) publish(ctx context.Context, summary *domain.RunSummary) {
	if w.streamRepo == nil {
		return
	}
	if err := w.streamRepo.PublishToStream(ctx, domain.StreamMaterializeDone, summary); err != nil {
		w.Logger().Error("Failed to publish run summary",
			zap.String("run_id", summary.RunID.String()),
			zap.Error(err))
	}
}
