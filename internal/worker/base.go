package worker

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// BaseWorker holds the stop signalling and run exclusion shared by workers
type BaseWorker struct {
	name          string
	logger        *zap.Logger
	stopChan      chan struct{}
	stopped       bool
	mu            sync.Mutex
	consumerGroup string
	busy          atomic.Bool
	jobs          sync.WaitGroup
}

// NewBaseWorker creates a new BaseWorker
func NewBaseWorker(name, consumerGroup string, logger *zap.Logger) *BaseWorker {
	return &BaseWorker{
		name:          name,
		logger:        logger.With(zap.String("worker", name)),
		stopChan:      make(chan struct{}),
		consumerGroup: consumerGroup,
	}
}

func (w *BaseWorker) Name() string {
	return w.name
}

// Stop closes the stop channel; repeated calls are no-ops
func (w *BaseWorker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}

	w.logger.Info("Stopping worker")
	close(w.stopChan)
	w.stopped = true

	return nil
}

// IsStopped reports whether Stop was called
func (w *BaseWorker) IsStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

// StopChan is closed by Stop
func (w *BaseWorker) StopChan() <-chan struct{} {
	return w.stopChan
}

// ConsumerGroup is the Redis consumer group of stream-driven workers
func (w *BaseWorker) ConsumerGroup() string {
	return w.consumerGroup
}

func (w *BaseWorker) Logger() *zap.Logger {
	return w.logger
}

// TryAcquire marks the worker busy. It returns false when a job is already
// running, in which case Release must not be called.
func (w *BaseWorker) TryAcquire() bool {
	return w.busy.CompareAndSwap(false, true)
}

// Release ends the job started by a successful TryAcquire
func (w *BaseWorker) Release() {
	w.busy.Store(false)
}

// Busy reports whether a job is running
func (w *BaseWorker) Busy() bool {
	return w.busy.Load()
}

// Go runs f in a goroutine tracked by Wait
func (w *BaseWorker) Go(f func()) {
	w.jobs.Add(1)
	go func() {
		defer w.jobs.Done()
		f()
	}()
}

// Wait blocks until every goroutine started by Go has returned
func (w *BaseWorker) Wait() {
	w.jobs.Wait()
}
