package loadgen

import (
	"errors"
	"fmt"
)

// ErrInconsistent marks a leaderboard that contradicts itself or the per-ticker ranks.
var ErrInconsistent = errors.New("inconsistent leaderboard")

// Verify checks that board is ordered by score descending then ticker
// ascending with consecutive ranks, and that every rank fetched per ticker
// agrees with the board.
func Verify(ranks, board []Entry) error {
	if len(board) == 0 {
		return fmt.Errorf("%w: empty leaderboard", ErrInconsistent)
	}

	for i, e := range board {
		if e.Rank != i+1 {
			return fmt.Errorf("%w: entry %d has rank %d", ErrInconsistent, i, e.Rank)
		}
		if i == 0 {
			continue
		}
		prev := board[i-1]
		if e.OverallScore > prev.OverallScore ||
			(e.OverallScore == prev.OverallScore && e.Ticker < prev.Ticker) {
			return fmt.Errorf("%w: %s (%.4f) ranked below %s (%.4f)",
				ErrInconsistent, e.Ticker, e.OverallScore, prev.Ticker, prev.OverallScore)
		}
	}

	byTicker := make(map[string]Entry, len(board))
	for _, e := range board {
		byTicker[e.Ticker] = e
	}
	for _, r := range ranks {
		if r.OverallScore > board[0].OverallScore {
			return fmt.Errorf("%w: %s scores %.4f above the leader %s",
				ErrInconsistent, r.Ticker, r.OverallScore, board[0].Ticker)
		}
		b, ok := byTicker[r.Ticker]
		if !ok {
			if r.Rank <= len(board) {
				return fmt.Errorf("%w: %s has rank %d but is missing from the board", ErrInconsistent, r.Ticker, r.Rank)
			}
			continue
		}
		if b.Rank != r.Rank || b.OverallScore != r.OverallScore {
			return fmt.Errorf("%w: %s is rank %d on the board but %d alone", ErrInconsistent, r.Ticker, b.Rank, r.Rank)
		}
	}
	return nil
}
