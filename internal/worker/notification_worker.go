package worker

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

type delivery struct {
	name string
	fn   func(ctx context.Context)
}

// NotificationRunner executes notification deliveries on background workers so the request that
// triggered them never waits on gateway I/O.
type NotificationRunner struct {
	jobs    chan delivery
	workers int
	timeout time.Duration
	logger  *zap.Logger

	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopping bool
}

// NewNotificationRunner builds a runner with a bounded backlog.
func NewNotificationRunner(workers, backlog int, timeout time.Duration, logger *zap.Logger) *NotificationRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 2
	}
	if backlog <= 0 {
		backlog = 256
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NotificationRunner{
		jobs:    make(chan delivery, backlog),
		workers: workers,
		timeout: timeout,
		logger:  logger,
	}
}

// Start launches the workers.
func (r *NotificationRunner) Start() {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.run()
	}
}

// Submit queues fn without blocking. A full backlog drops the delivery with a log line.
func (r *NotificationRunner) Submit(name string, fn func(ctx context.Context)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopping {
		r.logger.Warn("notification runner stopped; delivery dropped", zap.String("delivery", name))
		return
	}
	select {
	case r.jobs <- delivery{name: name, fn: fn}:
	default:
		r.logger.Warn("notification backlog full; delivery dropped", zap.String("delivery", name))
	}
}

// Stop drains queued deliveries and waits for the workers, or gives up when ctx is done.
func (r *NotificationRunner) Stop(ctx context.Context) {
	r.mu.Lock()
	if !r.stopping {
		r.stopping = true
		close(r.jobs)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("notification runner stop timed out")
	}
}

func (r *NotificationRunner) run() {
	defer r.wg.Done()
	for job := range r.jobs {
		r.execute(job)
	}
}

func (r *NotificationRunner) execute(job delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("notification delivery panicked",
				zap.String("delivery", job.name),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	job.fn(ctx)
}
