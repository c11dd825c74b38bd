package worker

import (
	"context"
)

// Worker is a long-running background process
type Worker interface {
	// Start blocks until the worker is stopped or ctx is done
	Start(ctx context.Context) error

	// Stop signals the worker to finish
	Stop() error

	// Name identifies the worker in logs
	Name() string
}
