// Package async runs claim processing in the background so the upload
// endpoint can return immediately after persisting the claim.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/klaimcare/cyberclaim/constants"
	"github.com/klaimcare/cyberclaim/internal/common"
	"github.com/klaimcare/cyberclaim/internal/metrics"
)

// Job is one scheduled pipeline run.
type Job struct {
	ClaimID     uuid.UUID
	PDFPaths    []string
	TraceID     string
	SubmittedAt time.Time
}

// ClaimProcessor is the slice of the pipeline the queue drives. Satisfied by
// *pipeline.Processor.
type ClaimProcessor interface {
	Process(ctx context.Context, claimID uuid.UUID, pdfPaths []string) (constants.ClaimStatus, error)
}

// Queue accepts jobs for background processing.
type Queue interface {
	Enqueue(job Job) error
	Shutdown(ctx context.Context) error
}

var (
	ErrQueueFull   = errors.New("processing queue is full")
	ErrQueueClosed = errors.New("processing queue is shut down")
)

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
			q.queueSize = n
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.processTimeout = d
		}
	}
}

// WithStartRate bounds how many pipeline runs may start per second. OCR is
// the expensive part; the limiter keeps a burst of uploads from saturating
// the host.
func WithStartRate(perSecond float64, burst int) Option {
	return func(q *ProcessorQueue) {
		if perSecond > 0 && burst > 0 {
			q.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// ProcessorQueue is a bounded channel-backed worker pool.
type ProcessorQueue struct {
	processor ClaimProcessor
	log       *slog.Logger

	workers        int
	queueSize      int
	processTimeout time.Duration
	limiter        *rate.Limiter

	jobs   chan Job
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func NewProcessorQueue(processor ClaimProcessor, log *slog.Logger, opts ...Option) *ProcessorQueue {
	if log == nil {
		log = slog.Default()
	}
	q := &ProcessorQueue{
		processor:      processor,
		log:            log,
		workers:        4,
		queueSize:      256,
		processTimeout: 3 * time.Minute,
		limiter:        rate.NewLimiter(rate.Limit(8), 16),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.queueSize)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.log.Info("processing queue started", "workers", q.workers, "queue_size", q.queueSize)
	return q
}

// Enqueue schedules a job without blocking. A full queue is reported to the
// caller so the upload endpoint can answer with backpressure.
func (q *ProcessorQueue) Enqueue(job Job) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		metrics.QueueDepth.Inc()
		q.log.Info("claim queued for processing", "claim_id", job.ClaimID, "files", len(job.PDFPaths))
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for in-flight ones, bounded by ctx.
func (q *ProcessorQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.log.Info("processing queue drained")
		return nil
	case <-ctx.Done():
		q.log.Warn("processing queue shutdown timed out")
		return ctx.Err()
	}
}

func (q *ProcessorQueue) worker(id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		metrics.QueueDepth.Dec()
		if err := q.limiter.Wait(context.Background()); err != nil {
			q.log.Error("rate limiter wait failed", "worker", id, "error", err)
		}
		q.run(id, job)
	}
}

func (q *ProcessorQueue) run(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("panic while processing claim", "worker", id, "claim_id", job.ClaimID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), q.processTimeout)
	defer cancel()
	ctx = common.WithClaimID(ctx, job.ClaimID.String())
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}

	log := q.log.With("worker", id, "claim_id", job.ClaimID, "trace_id", job.TraceID)
	log.Info("processing claim", "queued_for", time.Since(job.SubmittedAt).Round(time.Millisecond))

	status, err := q.processor.Process(ctx, job.ClaimID, job.PDFPaths)
	if err != nil {
		log.Error("claim processing failed", "error", err)
		return
	}
	log.Info("claim processed", "status", status)
}
