// Package types contains common types used across the application
package types

import (
	"time"

	"github.com/okian/stockscore/internal/domain/model"
)

// Entry represents a leaderboard entry
type Entry struct {
	Rank           int                  `json:"rank"`
	Ticker         string               `json:"ticker"`
	OverallScore   float64              `json:"overall_score"`
	Recommendation model.Recommendation `json:"recommendation"`
	AnalyzedAt     time.Time            `json:"analyzed_at"`
}

// NewEntry builds the leaderboard row for r at the given 1-based rank.
func NewEntry(rank int, r model.AnalysisResult) Entry {
	return Entry{
		Rank:           rank,
		Ticker:         r.Ticker(),
		OverallScore:   r.OverallScore(),
		Recommendation: r.Recommendation(),
		AnalyzedAt:     r.AnalyzedAt(),
	}
}

// Before orders leaderboard positions: higher overall score first, ties by ticker.
func Before(aScore float64, aTicker string, bScore float64, bTicker string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aTicker < bTicker
}
