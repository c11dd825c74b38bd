package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/worker"
)

type blockingWorker struct {
	*worker.BaseWorker
	startErr error
}

func (w *blockingWorker) Start(ctx context.Context) error {
	if w.startErr != nil {
		return w.startErr
	}
	select {
	case <-w.StopChan():
	case <-ctx.Done():
	}
	return nil
}

func TestWorkerManager_StartStop(t *testing.T) {
	m := worker.NewWorkerManager(zap.NewNop())
	w := &blockingWorker{BaseWorker: worker.NewBaseWorker("blocking", "", zap.NewNop())}
	m.Register(w)

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop())
	assert.True(t, w.IsStopped())
	assert.NoError(t, m.Failures())
}

func TestWorkerManager_NoWorkers(t *testing.T) {
	assert.Error(t, worker.NewWorkerManager(zap.NewNop()).Start(context.Background()))
}

func TestWorkerManager_FailedWorker(t *testing.T) {
	m := worker.NewWorkerManager(zap.NewNop())
	m.Register(&blockingWorker{
		BaseWorker: worker.NewBaseWorker("broken", "", zap.NewNop()),
		startErr:   errors.New("invalid schedule"),
	})

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop())
	require.Error(t, m.Failures())
	assert.Contains(t, m.Failures().Error(), "broken")
}

func TestWorkerManager_ShutdownTimeout(t *testing.T) {
	m := worker.NewWorkerManager(zap.NewNop()).WithShutdownTimeout(10 * time.Millisecond)
	stuck := &stuckWorker{BaseWorker: worker.NewBaseWorker("stuck", "", zap.NewNop()), release: make(chan struct{})}
	defer close(stuck.release)
	m.Register(stuck)

	require.NoError(t, m.Start(context.Background()))
	err := m.Stop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

type stuckWorker struct {
	*worker.BaseWorker
	release chan struct{}
}

func (w *stuckWorker) Start(context.Context) error {
	<-w.release
	return nil
}

func TestBaseWorker_TryAcquire(t *testing.T) {
	w := worker.NewBaseWorker("x", "", zap.NewNop())
	require.True(t, w.TryAcquire())
	assert.False(t, w.TryAcquire())
	assert.True(t, w.Busy())
	w.Release()
	assert.True(t, w.TryAcquire())
}

func TestBaseWorker_WaitJoinsGo(t *testing.T) {
	w := worker.NewBaseWorker("x", "", zap.NewNop())
	release := make(chan struct{})
	finished := make(chan struct{})
	w.Go(func() {
		<-release
		close(finished)
	})

	waited := make(chan struct{})
	go func() {
		w.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while a job was running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return")
	}
	<-finished
}
