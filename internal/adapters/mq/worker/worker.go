// Package worker defines worker contracts for asynchronous analysis.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/stockscore/internal/adapters/mq/queue"
	"github.com/okian/stockscore/internal/domain/model"
	"github.com/okian/stockscore/internal/domain/scoring"
	"github.com/okian/stockscore/pkg/logger"
	"github.com/okian/stockscore/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
)

// Failure reasons used for metrics and stored failures.
const (
	ReasonInvalidScore   = "invalid_score"
	ReasonMissingMetric  = "missing_metric"
	ReasonInvalidRequest = "invalid_request"
	ReasonCancelled      = "cancelled"
	ReasonStore          = "store"
	ReasonInternal       = "internal"
)

// Analyzer scores one entity.
type Analyzer interface {
	Analyze(ctx context.Context, req scoring.Request) (model.AnalysisResult, error)
}

// Store keeps the latest outcome per ticker.
type Store interface {
	Put(ctx context.Context, res model.AnalysisResult) error
	RecordFailure(ctx context.Context, ticker, reason string, err error) error
}

// Sink receives stored results. Sink errors are logged, never fatal.
type Sink interface {
	Write(ctx context.Context, res model.AnalysisResult) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs and stores the outcome.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// Counters is shared by the workers of one pool.
type Counters struct {
	Processed atomic.Int64
	Failed    atomic.Int64
	Active    atomic.Int64
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	analyzer Analyzer
	store    Store
	sinks    []Sink
	name     string
	counters *Counters

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, analyzer Analyzer, store Store, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		analyzer: analyzer,
		store:    store,
		name:     "worker",
		counters: &Counters{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			// Failures are contained per job; the loop keeps going.
			_ = w.process(ctx, job)
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// process analyzes a single job.
func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) error { //nolint:gocritic // hugeParam: Job is received by value from the channel
	w.counters.Active.Add(1)
	defer w.counters.Active.Add(-1)

	ticker := job.Request.Ticker
	log := w.logger.With(logger.String("ticker", ticker), logger.String("job_id", job.ID))

	start := time.Now()
	res, err := w.analyzer.Analyze(ctx, job.Request)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)

	if err != nil {
		reason := Reason(err)
		w.counters.Failed.Add(1)
		metrics.RecordAnalysisFailure(reason)
		log.Error(ctx, "analysis failed", logger.String("reason", reason), logger.Error(err))
		if serr := w.store.RecordFailure(ctx, ticker, reason, err); serr != nil {
			log.Error(ctx, "recording failure", logger.Error(serr))
		}
		return fmt.Errorf("analyze %s: %w", ticker, err)
	}

	if err := w.store.Put(ctx, res); err != nil {
		w.counters.Failed.Add(1)
		metrics.RecordAnalysisFailure(ReasonStore)
		log.Error(ctx, "storing result failed", logger.Error(err))
		return fmt.Errorf("store %s: %w", ticker, err)
	}

	w.counters.Processed.Add(1)
	metrics.RecordAnalysis(res.Recommendation().String(), res.OverallScore(), res.CategoryScores(), len(res.MissingMetrics()))
	log.Debug(ctx, "analysis stored",
		logger.Float64("overall", res.OverallScore()),
		logger.String("recommendation", res.Recommendation().String()),
		logger.Int("missing_metrics", len(res.MissingMetrics())),
		logger.Duration("queued_for", start.Sub(job.EnqueuedAt)),
	)

	for _, s := range w.sinks {
		if err := s.Write(ctx, res); err != nil {
			log.Warn(ctx, "sink write failed", logger.Error(err))
		}
	}
	return nil
}

// Reason classifies an analysis error for metrics and stored failures.
func Reason(err error) string {
	switch {
	case errors.Is(err, scoring.ErrInvalidScore):
		return ReasonInvalidScore
	case errors.Is(err, scoring.ErrMissingMetric):
		return ReasonMissingMetric
	case errors.Is(err, scoring.ErrInvalidRequest):
		return ReasonInvalidRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCancelled
	default:
		return ReasonInternal
	}
}

// Stats is a point-in-time view of a pool.
type Stats struct {
	Workers   int   `json:"workers"`
	Active    int64 `json:"active"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Pool manages multiple workers.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	counters *Counters

	logger logger.Logger
}

// NewPool creates a new worker pool. Options apply to every worker.
func NewPool(workerCount int, q Queue, analyzer Analyzer, store Store, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		counters: &Counters{},
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, analyzer, store, wopts...)
		w.counters = pool.counters
		pool.workers[i] = w
	}

	metrics.UpdateWorkerActiveCount(0)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Stats returns current pool counters and refreshes the active-worker gauge.
func (p *Pool) Stats() Stats {
	active := p.counters.Active.Load()
	metrics.UpdateWorkerActiveCount(int(active))
	return Stats{
		Workers:   len(p.workers),
		Active:    active,
		Processed: p.counters.Processed.Load(),
		Failed:    p.counters.Failed.Load(),
	}
}

// Stop stops all workers immediately, leaving queued jobs unprocessed.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
	defer cancel()
	for _, w := range p.workers {
		_ = w.Shutdown(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it. When ctx
// expires first the remaining workers are stopped and ctx's error is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			p.Stop()
			return fmt.Errorf("drain workers: %w", ctx.Err())
		}
	}
	s := p.Stats()
	p.logger.Info(ctx, "worker pool stopped",
		logger.Int("processed", int(s.Processed)),
		logger.Int("failed", int(s.Failed)),
	)
	return nil
}
