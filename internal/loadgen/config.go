package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	NumCompanies int           // Number of synthetic companies to submit
	TopN         int           // Number of leaderboard entries to fetch
	Workers      int           // Number of concurrent HTTP workers
	Timeout      time.Duration // HTTP request timeout
	Settle       time.Duration // Maximum wait for the service to finish scoring
	Seed         uint64        // Seed for the synthetic score generator
	Prefix       string        // Ticker prefix of generated companies
	Verbose      bool          // Log every failed request
}

// Submission is the body of POST /analyses.
type Submission struct {
	Ticker string             `json:"ticker"`
	Scores map[string]float64 `json:"scores"`
}

// Entry mirrors a leaderboard entry.
type Entry struct {
	Rank           int     `json:"rank"`
	Ticker         string  `json:"ticker"`
	OverallScore   float64 `json:"overall_score"`
	Recommendation string  `json:"recommendation"`
}

// Stats holds run statistics.
type Stats struct {
	Generated          int
	Submitted          int
	Accepted           int
	Rejected           int
	Failed             int
	RanksRetrieved     int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
