// Package service wires the scoring engine, queue, worker pool, result store
// and report writer into the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/stockscore/internal/adapters/mq/queue"
	"github.com/okian/stockscore/internal/adapters/mq/worker"
	"github.com/okian/stockscore/internal/adapters/report"
	"github.com/okian/stockscore/internal/adapters/repository"
	"github.com/okian/stockscore/internal/domain/model"
	"github.com/okian/stockscore/internal/domain/scoring"
	"github.com/okian/stockscore/internal/domain/types"
	"github.com/okian/stockscore/internal/domain/weights"
	"github.com/okian/stockscore/internal/scheduler"
	"github.com/okian/stockscore/pkg/logger"
	"github.com/okian/stockscore/pkg/metrics"
)

// SourceAPI tags jobs submitted through Submit.
const SourceAPI = "api"

// Service implements the API dependencies for the analysis system.
type Service struct {
	mu sync.RWMutex

	// Core components
	engine    *scoring.Engine
	store     *repository.MemoryStore
	queue     *queue.InMemoryQueue
	pool      *worker.Pool
	reports   *report.Writer
	scheduler *scheduler.Scheduler

	// Configuration
	workerCount   int
	queueSize     int
	reportDir     string
	schedule      string
	watchlistPath string

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending analyses.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithReportDir writes a YAML report for every successful analysis into dir.
func WithReportDir(dir string) Option {
	return func(s *Service) { s.reportDir = dir }
}

// WithSchedule re-enqueues the watchlist at path on the given cron spec. An
// empty spec only sets the path used by RunWatchlist.
func WithSchedule(spec, watchlistPath string) Option {
	return func(s *Service) {
		s.schedule = spec
		s.watchlistPath = watchlistPath
	}
}

// WithStore replaces the default in-memory store.
func WithStore(store *repository.MemoryStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// New constructs a Service around engine. Results survive Stop/Start cycles.
func New(engine *scoring.Engine, opts ...Option) *Service {
	s := &Service{
		engine:      engine,
		workerCount: runtime.NumCPU() * 2,
		queueSize:   10_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start builds the queue and worker pool and starts the scheduler if one is configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting analysis service...")

	var opts []worker.Option
	if s.reportDir != "" && s.reports == nil {
		w, err := report.NewWriter(s.reportDir)
		if err != nil {
			return fmt.Errorf("start service: %w", err)
		}
		s.reports = w
	}
	if s.reports != nil {
		opts = append(opts, worker.WithSink(s.reports))
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.engine, s.store, opts...)

	if s.schedule != "" {
		sch := scheduler.New(ctx, s.queue, scheduler.FromFile(s.watchlistPath))
		if err := sch.Register(s.schedule); err != nil {
			_ = s.queue.Close()
			return fmt.Errorf("start service: %w", err)
		}
		s.scheduler = sch
	}

	s.pool.Start(ctx)
	if s.scheduler != nil {
		s.scheduler.Start()
	}

	s.started = true
	s.logger.Info(ctx, "analysis service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("policy", s.engine.Policy().String()),
		logger.Bool("reports", s.reports != nil),
		logger.Bool("scheduled", s.scheduler != nil),
	)
	return nil
}

// Stop stops the scheduler, closes the queue and waits for queued analyses to
// finish until ctx expires.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping analysis service...")

	if s.scheduler != nil {
		s.scheduler.Stop()
		s.scheduler = nil
	}
	err := s.pool.Shutdown(ctx)

	s.started = false
	s.logger.Info(ctx, "analysis service stopped")
	if err != nil {
		return fmt.Errorf("stop service: %w", err)
	}
	return nil
}

// Submit enqueues req for asynchronous analysis.
func (s *Service) Submit(ctx context.Context, req scoring.Request) (queue.Job, error) {
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return queue.Job{}, ErrNotStarted
	}

	job, err := q.Enqueue(ctx, queue.Job{Source: SourceAPI, Request: req})
	if err != nil {
		return queue.Job{}, fmt.Errorf("submit %s: %w", req.Ticker, err)
	}
	s.logger.Debug(ctx, "analysis enqueued",
		logger.String("id", job.ID),
		logger.String("ticker", job.Request.Ticker),
	)
	return job, nil
}

// SubmitAll enqueues every request and returns how many were accepted.
func (s *Service) SubmitAll(ctx context.Context, reqs []scoring.Request) (int, error) {
	for i, r := range reqs {
		if _, err := s.Submit(ctx, r); err != nil {
			return i, err
		}
	}
	return len(reqs), nil
}

// RunWatchlist enqueues the configured watchlist once.
func (s *Service) RunWatchlist(ctx context.Context) (int, error) {
	s.mu.RLock()
	q, started, path := s.queue, s.started, s.watchlistPath
	s.mu.RUnlock()
	if !started {
		return 0, ErrNotStarted
	}
	if path == "" {
		return 0, fmt.Errorf("run watchlist: %w", ErrNoWatchlist)
	}
	n, err := scheduler.New(ctx, q, scheduler.FromFile(path)).RunNow(ctx)
	if err != nil {
		return n, fmt.Errorf("run watchlist: %w", err)
	}
	return n, nil
}

// Analyze scores req synchronously and stores the result.
func (s *Service) Analyze(ctx context.Context, req scoring.Request) (model.AnalysisResult, error) {
	res, err := s.engine.Analyze(ctx, req)
	if err != nil {
		_ = s.store.RecordFailure(ctx, req.Ticker, worker.Reason(err), err)
		metrics.RecordAnalysisFailure(worker.Reason(err))
		return model.AnalysisResult{}, err
	}
	if err := s.store.Put(ctx, res); err != nil {
		return model.AnalysisResult{}, fmt.Errorf("store %s: %w", res.Ticker(), err)
	}
	metrics.RecordAnalysis(string(res.Recommendation()), res.OverallScore(), res.CategoryScores(), len(res.MissingMetrics()))
	return res, nil
}

// Get returns the latest result for ticker.
func (s *Service) Get(ctx context.Context, ticker string) (model.AnalysisResult, error) {
	return s.store.Get(ctx, ticker)
}

// Failure returns the failure recorded for the latest run of ticker, if any.
func (s *Service) Failure(ctx context.Context, ticker string) (repository.Failure, bool) {
	return s.store.Failure(ctx, ticker)
}

// TopN returns the top n leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	return s.store.TopN(ctx, n)
}

// Rank returns the leaderboard entry for ticker.
func (s *Service) Rank(ctx context.Context, ticker string) (types.Entry, error) {
	return s.store.Rank(ctx, ticker)
}

// Results returns every stored result in rank order.
func (s *Service) Results(ctx context.Context) []model.AnalysisResult {
	return s.store.Results(ctx)
}

// Weights returns the active weight tree.
func (s *Service) Weights() *weights.Tree {
	return s.engine.Tree()
}

// Stats is a point-in-time view of the service.
type Stats struct {
	Started       bool               `json:"started"`
	Policy        string             `json:"missing_metric_policy"`
	QueueLength   int                `json:"queue_length"`
	QueueCapacity int                `json:"queue_capacity"`
	Workers       worker.Stats       `json:"workers"`
	Stored        int                `json:"stored_tickers"`
	Thresholds    map[string]float64 `json:"thresholds"`
	NextRun       *time.Time         `json:"next_run,omitempty"`
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	th := s.engine.Thresholds()
	st := Stats{
		Started:       s.started,
		Policy:        s.engine.Policy().String(),
		QueueCapacity: s.queueSize,
		Stored:        s.store.Count(ctx),
		Thresholds:    make(map[string]float64, len(model.Recommendations())),
	}
	for _, rec := range model.Recommendations() {
		if lower, ok := th.Lower(rec); ok {
			st.Thresholds[string(rec)] = lower
		}
	}
	if s.scheduler != nil {
		if e, ok := s.scheduler.Next(); ok && !e.Next.IsZero() {
			next := e.Next
			st.NextRun = &next
		}
	}
	if s.pool != nil {
		st.Workers = s.pool.Stats()
	}
	if s.started {
		st.QueueLength = s.queue.Len(ctx)
		metrics.UpdateQueueSize(st.QueueLength)
	}
	return st
}
