// Package repository keeps the latest analysis outcome per ticker and ranks
// tickers by overall score.
package repository

import (
	"context"
	"time"

	"github.com/okian/stockscore/internal/domain/model"
	"github.com/okian/stockscore/internal/domain/types"
)

// Failure records why the most recent analysis of a ticker did not produce a result.
type Failure struct {
	Ticker  string    `json:"ticker"`
	Reason  string    `json:"reason"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Store provides read/write access to analysis outcomes.
type Store interface {
	// Put stores res as the latest result for its ticker and clears any
	// recorded failure. A result older than the stored one is ignored.
	Put(ctx context.Context, res model.AnalysisResult) error

	// RecordFailure marks the latest run for ticker as failed.
	RecordFailure(ctx context.Context, ticker, reason string, err error) error

	// Get returns the latest result. Returns ErrNotFound if there is none.
	Get(ctx context.Context, ticker string) (model.AnalysisResult, error)

	// Failure returns the recorded failure for ticker, if the latest run failed.
	Failure(ctx context.Context, ticker string) (Failure, bool)

	// Rank returns the leaderboard entry for ticker.
	Rank(ctx context.Context, ticker string) (types.Entry, error)

	// TopN returns the top-N entries ordered by overall score desc, ticker asc.
	TopN(ctx context.Context, n int) ([]types.Entry, error)

	// Results returns every stored result in rank order.
	Results(ctx context.Context) []model.AnalysisResult

	// Count returns the number of tickers with a stored result.
	Count(ctx context.Context) int
}
