package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ticket-wallet/internal/common"
	"github.com/joseph-ayodele/ticket-wallet/internal/core"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// FileProcessor is the part of core.Processor the queue drives.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string, opts core.ProcessOptions) (core.Outcome, error)
}

// ResultFunc observes every finished job. It runs on the worker goroutine.
type ResultFunc func(job Job, out core.Outcome, err error)

type ProcessorQueue struct {
	proc     FileProcessor
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult ResultFunc

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}
func WithResultFunc(fn ResultFunc) Option {
	return func(q *ProcessorQueue) { q.onResult = fn }
}

func NewProcessorQueue(proc FileProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}

	out, err := q.process(ctx, job)
	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "req_id", job.TraceID, "error", err)
	} else {
		q.logger.Info("processed file successfully", "worker_id", workerID, "path", job.Path,
			"req_id", job.TraceID, "passes", len(out.Result.Passes))
	}
	if q.onResult != nil {
		q.onResult(job, out, err)
	}
}

func (q *ProcessorQueue) process(ctx context.Context, job Job) (out core.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("processor panic", "path", job.Path, "panic", r)
			err = common.NewAppError("INTERNAL", "processor panicked", common.ErrInternal)
		}
	}()
	return q.proc.ProcessFile(ctx, job.Path, job.Options)
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.TraceID == "" {
		job.TraceID = uuid.NewString()
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued file for processing", "path", job.Path, "req_id", job.TraceID)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
