package messaging

import (
	"context"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/feral-file/varus-ledger/internal/domain"
	"github.com/feral-file/varus-ledger/internal/logger"
)

const (
	defaultWorkerPoolSize  = 4
	defaultWorkerQueueSize = 1024
	defaultPublishTimeout  = 10 * time.Second
)

// DispatcherConfig holds the worker pool configuration for event dispatch
type DispatcherConfig struct {
	WorkerPoolSize  int
	WorkerQueueSize int
	PublishTimeout  time.Duration
}

// Dispatcher forwards committed ledger events to a Publisher on a worker
// pool. Emit never blocks ledger operations and never reports failure
// upstream; publish errors are logged and dropped.
type Dispatcher struct {
	publisher Publisher
	pool      pond.Pool
	timeout   time.Duration
}

// NewDispatcher creates a dispatcher backed by the given publisher
func NewDispatcher(publisher Publisher, cfg DispatcherConfig) *Dispatcher {
	workerPoolSize := cfg.WorkerPoolSize
	if workerPoolSize == 0 {
		workerPoolSize = defaultWorkerPoolSize
	}
	workerQueueSize := cfg.WorkerQueueSize
	if workerQueueSize == 0 {
		workerQueueSize = defaultWorkerQueueSize
	}
	timeout := cfg.PublishTimeout
	if timeout == 0 {
		timeout = defaultPublishTimeout
	}

	return &Dispatcher{
		publisher: publisher,
		pool: pond.NewPool(
			workerPoolSize,
			pond.WithQueueSize(workerQueueSize),
		),
		timeout: timeout,
	}
}

// Emit schedules the event for publishing
func (d *Dispatcher) Emit(event *domain.LedgerEvent) {
	d.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.publisher.PublishEvent(ctx, event); err != nil {
			logger.ErrorCtx(ctx, err,
				zap.String("message", "Failed to publish ledger event"),
				zap.String("event_id", event.ID),
				zap.String("kind", string(event.Kind)))
		}
	})
}

// Stop drains the queue and waits for in-flight publishes to finish
func (d *Dispatcher) Stop() {
	logger.Info("Shutting down event dispatcher",
		zap.Uint64("submitted", d.pool.SubmittedTasks()),
		zap.Uint64("waiting", d.pool.WaitingTasks()),
		zap.Uint64("failed", d.pool.FailedTasks()))

	d.pool.StopAndWait()
	d.publisher.Close()
}
