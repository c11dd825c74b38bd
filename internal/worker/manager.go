package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// defaultShutdownTimeout bounds how long Stop waits for workers to return
	defaultShutdownTimeout = 2 * time.Minute
)

// WorkerManager starts and stops a set of workers
type WorkerManager struct {
	workers         []Worker
	logger          *zap.Logger
	shutdownTimeout time.Duration
	wg              sync.WaitGroup
	mu              sync.Mutex
	failures        error
}

// NewWorkerManager creates a new WorkerManager
func NewWorkerManager(logger *zap.Logger) *WorkerManager {
	return &WorkerManager{
		workers:         make([]Worker, 0),
		logger:          logger,
		shutdownTimeout: defaultShutdownTimeout,
	}
}

// WithShutdownTimeout overrides how long Stop waits
func (m *WorkerManager) WithShutdownTimeout(d time.Duration) *WorkerManager {
	m.shutdownTimeout = d
	return m
}

func (m *WorkerManager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, w)
	m.logger.Info("Worker registered", zap.String("name", w.Name()))
}

func (m *WorkerManager) snapshot() []Worker {
	m.mu.Lock()
	defer m.mu.Unlock()
	workers := make([]Worker, len(m.workers))
	copy(workers, m.workers)
	return workers
}

// Start runs every registered worker in its own goroutine
func (m *WorkerManager) Start(ctx context.Context) error {
	workers := m.snapshot()
	if len(workers) == 0 {
		return fmt.Errorf("no workers registered")
	}

	m.logger.Info("Starting workers", zap.Int("count", len(workers)))

	for _, worker := range workers {
		m.wg.Add(1)
		go func(w Worker) {
			defer m.wg.Done()

			m.logger.Info("Starting worker", zap.String("name", w.Name()))
			if err := w.Start(ctx); err != nil && ctx.Err() == nil {
				m.logger.Error("Worker failed",
					zap.String("name", w.Name()),
					zap.Error(err))
				m.mu.Lock()
				m.failures = multierr.Append(m.failures, fmt.Errorf("%s: %w", w.Name(), err))
				m.mu.Unlock()
			}
		}(worker)
	}

	return nil
}

// Failures returns the errors of workers that returned on their own
func (m *WorkerManager) Failures() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

// Stop signals all workers and waits up to the shutdown timeout
func (m *WorkerManager) Stop() error {
	workers := m.snapshot()
	m.logger.Info("Stopping workers", zap.Int("count", len(workers)))

	var errs error
	for _, worker := range workers {
		if err := worker.Stop(); err != nil {
			m.logger.Error("Failed to stop worker",
				zap.String("name", worker.Name()),
				zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All workers stopped gracefully")
	case <-time.After(m.shutdownTimeout):
		m.logger.Warn("Workers shutdown timed out, a pipeline run may have been cut short",
			zap.Duration("timeout", m.shutdownTimeout))
		errs = multierr.Append(errs, fmt.Errorf("workers shutdown timed out after %v", m.shutdownTimeout))
	}

	return errs
}
