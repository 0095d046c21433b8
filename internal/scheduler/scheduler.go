// Package scheduler re-analyzes the watchlist on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/stockscore/internal/adapters/mq/queue"
	"github.com/okian/stockscore/internal/adapters/watchlist"
	"github.com/okian/stockscore/internal/domain/model"
	"github.com/okian/stockscore/pkg/logger"
	"github.com/okian/stockscore/pkg/metrics"
	"github.com/robfig/cron/v3"
)

// Run outcomes reported to metrics.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// SourceSchedule tags jobs enqueued by the scheduler.
const SourceSchedule = "schedule"

// Enqueuer accepts analysis jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.Job) (queue.Job, error)
}

// LoadFunc returns the current watchlist. It is called on every run so edits
// to the file are picked up without a restart.
type LoadFunc func() ([]model.Profile, error)

// FromFile loads the watchlist at path.
func FromFile(path string) LoadFunc {
	return func() ([]model.Profile, error) { return watchlist.Load(path) }
}

// Scheduler manages the watchlist cron task.
type Scheduler struct {
	cron  *cron.Cron
	queue Enqueuer
	load  LoadFunc
	ctx   context.Context

	mu      sync.Mutex
	entryID cron.EntryID

	logger logger.Logger
}

// New creates a scheduler. ctx bounds every run started by cron.
func New(ctx context.Context, q Enqueuer, load LoadFunc) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		queue:  q,
		load:   load,
		ctx:    ctx,
		logger: logger.Get().Named("scheduler"),
	}
}

// Register adds the watchlist task with a six-field cron spec (seconds first).
func (s *Scheduler) Register(spec string) error {
	id, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunNow(s.ctx); err != nil {
			s.logger.Error(s.ctx, "scheduled run failed", logger.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("register watchlist task %q: %w", spec, err)
	}
	s.mu.Lock()
	s.entryID = id
	s.mu.Unlock()
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info(s.ctx, "scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info(s.ctx, "scheduler stopped")
}

// Next returns the next scheduled run, or the zero time if nothing is registered.
func (s *Scheduler) Next() (next cron.Entry, ok bool) {
	s.mu.Lock()
	id := s.entryID
	s.mu.Unlock()
	if id == 0 {
		return cron.Entry{}, false
	}
	e := s.cron.Entry(id)
	return e, e.Valid()
}

// RunNow loads the watchlist and enqueues every company. It returns how many
// jobs were accepted. Rejected jobs are logged and reported as a partial run.
func (s *Scheduler) RunNow(ctx context.Context) (int, error) {
	profiles, err := s.load()
	if err != nil {
		metrics.RecordScheduledRun(OutcomeFailed)
		return 0, fmt.Errorf("load watchlist: %w", err)
	}

	var (
		accepted int
		errs     []error
	)
	for _, p := range profiles {
		_, err := s.queue.Enqueue(ctx, queue.Job{Source: SourceSchedule, Request: watchlist.Request(p)})
		if err != nil {
			s.logger.Warn(ctx, "enqueue failed", logger.String("ticker", p.Stock.Ticker), logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", p.Stock.Ticker, err))
			continue
		}
		accepted++
	}

	switch {
	case len(errs) == 0:
		metrics.RecordScheduledRun(OutcomeOK)
	case accepted > 0:
		metrics.RecordScheduledRun(OutcomePartial)
	default:
		metrics.RecordScheduledRun(OutcomeFailed)
	}
	s.logger.Info(ctx, "watchlist enqueued",
		logger.Int("accepted", accepted),
		logger.Int("rejected", len(errs)),
	)
	return accepted, errors.Join(errs...)
}
