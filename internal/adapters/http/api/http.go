// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/stockscore/internal/adapters/mq/queue"
	"github.com/okian/stockscore/internal/adapters/repository"
	"github.com/okian/stockscore/internal/domain/model"
	"github.com/okian/stockscore/internal/domain/scoring"
	"github.com/okian/stockscore/internal/domain/types"
	"github.com/okian/stockscore/internal/domain/weights"
)

const defaultMaxLimit = 100

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit enqueues an analysis. It fails with queue.ErrFull on backpressure.
	Submit(ctx context.Context, req scoring.Request) (queue.Job, error)

	// Read operations expose stored results.
	Get(ctx context.Context, ticker string) (model.AnalysisResult, error)
	Failure(ctx context.Context, ticker string) (repository.Failure, bool)
	TopN(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, ticker string) (Entry, error)

	Weights() *weights.Tree
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	analysesHandler    *AnalysesHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	weightsHandler     *WeightsHandler
}

// Option configures a Server.
type Option func(*config)

type config struct {
	maxLimit int
}

// WithMaxLimit bounds the leaderboard limit parameter.
func WithMaxLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, stats StatsFunc, opts ...Option) *Server {
	cfg := config{maxLimit: defaultMaxLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(stats),
		analysesHandler:    NewAnalysesHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.maxLimit),
		rankHandler:        NewRankHandler(deps),
		weightsHandler:     NewWeightsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /analyses", MetricsMiddleware(s.analysesHandler.HandlePostAnalysis, "analyses"))
	mux.HandleFunc("GET /analyses/{ticker}", MetricsMiddleware(s.analysesHandler.HandleGetAnalysis, "analysis"))
	mux.HandleFunc("GET /analyses/{ticker}/rank", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /weights", MetricsMiddleware(s.weightsHandler.HandleGetWeights, "weights"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
