// Package loadgen drives a running stockscore service with synthetic
// companies and checks that the leaderboard it serves is consistent.
package loadgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/stockscore/internal/domain/weights"
	"github.com/okian/stockscore/pkg/logger"
)

const pollInterval = 50 * time.Millisecond

// ErrUnhealthy is returned when the service does not answer its health check.
var ErrUnhealthy = errors.New("service unhealthy")

// Run executes a complete load run against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("loadgen")
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.Timeout)

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("companies", cfg.NumCompanies),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	// Step 1: check service health
	if status, err := client.Get(ctx, cfg.BaseURL+"/healthz", nil); err != nil || status != http.StatusOK {
		return stats, fmt.Errorf("%w: status %d: %v", ErrUnhealthy, status, err)
	}

	// Step 2: score against the tree the service actually uses
	var raw map[string]any
	if _, err := client.Get(ctx, cfg.BaseURL+"/weights", &raw); err != nil {
		return stats, fmt.Errorf("fetch weights: %w", err)
	}
	tree, err := weights.Parse(raw)
	if err != nil {
		return stats, fmt.Errorf("parse weights: %w", err)
	}

	// Step 3: generate and submit
	subs := Generate(tree, cfg.NumCompanies, cfg.Prefix, cfg.Seed)
	stats.Generated = len(subs)
	submitAll(ctx, cfg, subs, stats)

	// Step 4: wait for the pipeline to drain
	if err := waitSettled(ctx, client, cfg); err != nil {
		return stats, err
	}

	// Step 5: ranks and leaderboard
	ranks := retrieveRanks(ctx, client, cfg, subs)
	stats.RanksRetrieved = len(ranks)

	var board []Entry
	if _, err := client.Get(ctx, cfg.BaseURL+"/leaderboard?limit="+strconv.Itoa(cfg.TopN), &board); err != nil {
		return stats, fmt.Errorf("fetch leaderboard: %w", err)
	}
	stats.LeaderboardEntries = len(board)

	// Step 6: verify
	if err := Verify(ranks, board); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logFinalStats(ctx, log, stats)
	return stats, nil
}

type serviceStats struct {
	QueueLength int `json:"queue_length"`
	Workers     struct {
		Active int64 `json:"active"`
	} `json:"workers"`
}

// waitSettled polls /stats until the queue is empty and no worker is busy on
// two consecutive reads.
func waitSettled(ctx context.Context, client *HTTPClient, cfg *Config) error {
	deadline := time.Now().Add(cfg.Settle)
	quiet := 0
	for quiet < 2 {
		if time.Now().After(deadline) {
			return fmt.Errorf("service did not settle within %s", cfg.Settle)
		}
		var s serviceStats
		if _, err := client.Get(ctx, cfg.BaseURL+"/stats", &s); err != nil {
			return fmt.Errorf("fetch stats: %w", err)
		}
		if s.QueueLength == 0 && s.Workers.Active == 0 {
			quiet++
		} else {
			quiet = 0
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return nil
}

func logFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("ranksRetrieved", stats.RanksRetrieved),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("submissionsPerSecond", perSecond),
	)
}
