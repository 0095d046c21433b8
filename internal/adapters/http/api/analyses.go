package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/okian/stockscore/internal/adapters/mq/queue"
	"github.com/okian/stockscore/internal/adapters/repository"
	"github.com/okian/stockscore/internal/adapters/watchlist"
	"github.com/okian/stockscore/internal/domain/model"
	"github.com/okian/stockscore/internal/domain/scoring"
	"github.com/okian/stockscore/internal/domain/weights"
)

const maxBodyBytes = 1 << 20

// AnalysesHandler accepts analysis submissions and serves stored results.
type AnalysesHandler struct {
	deps Dependencies
}

// NewAnalysesHandler creates a new analyses handler.
func NewAnalysesHandler(deps Dependencies) *AnalysesHandler {
	return &AnalysesHandler{deps: deps}
}

// analysisRequest is the body of POST /analyses. Scores are normalized values
// keyed by metric path; a profile is normalized first and scores override it.
// Every resulting key must be a metric of the active tree.
type analysisRequest struct {
	Ticker     string             `json:"ticker"`
	Scores     map[string]float64 `json:"scores,omitempty"`
	Profile    *model.Profile     `json:"profile,omitempty"`
	Summary    string             `json:"summary,omitempty"`
	Strengths  []string           `json:"strengths,omitempty"`
	Weaknesses []string           `json:"weaknesses,omitempty"`
}

func (a analysisRequest) toRequest(tree *weights.Tree) (scoring.Request, error) {
	ticker := strings.TrimSpace(a.Ticker)
	if ticker == "" && a.Profile != nil {
		ticker = strings.TrimSpace(a.Profile.Stock.Ticker)
	}
	if ticker == "" {
		return scoring.Request{}, errors.New("missing ticker")
	}
	if len(a.Scores) == 0 && a.Profile == nil {
		return scoring.Request{}, errors.New("missing scores or profile")
	}
	for path, v := range a.Scores {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return scoring.Request{}, fmt.Errorf("score %s=%v outside [0,1]", path, v)
		}
	}

	var req scoring.Request
	if a.Profile != nil {
		p := *a.Profile
		p.Stock.Ticker = ticker
		merged := make(map[string]float64, len(p.Scores)+len(a.Scores))
		for k, v := range p.Scores {
			merged[k] = v
		}
		for k, v := range a.Scores {
			merged[k] = v
		}
		p.Scores = merged
		req = watchlist.Request(p)
	} else {
		req = scoring.Request{Ticker: ticker, Values: scoring.Values(a.Scores)}
	}
	if tree != nil {
		if unknown := tree.UnknownMetrics(slices.Collect(maps.Keys(req.Values))); len(unknown) > 0 {
			return scoring.Request{}, fmt.Errorf("unknown metrics %s", strings.Join(unknown, ", "))
		}
	}

	if a.Summary != "" {
		req.Summary = a.Summary
	}
	if len(a.Strengths) > 0 || len(a.Weaknesses) > 0 {
		req.Strengths, req.Weaknesses = a.Strengths, a.Weaknesses
	}
	return req, nil
}

type acceptedResponse struct {
	ID         string    `json:"id"`
	Ticker     string    `json:"ticker"`
	Status     string    `json:"status"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type failureResponse struct {
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Ticker   string    `json:"ticker"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// HandlePostAnalysis handles POST /analyses requests.
func (h *AnalysesHandler) HandlePostAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_analysis"

	var body analysisRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, fmt.Errorf("%w: %w", ErrBadRequest, err)))
		return
	}
	req, err := body.toRequest(h.deps.Weights())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, fmt.Errorf("%w: %w", ErrBadRequest, err)))
		return
	}

	job, err := h.deps.Submit(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", Wrap(op, ErrBackpressure))
		return
	default:
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, fmt.Errorf("%w: %w", ErrUnavailable, err)))
		return
	}

	writeJSON(w, http.StatusAccepted, acceptedResponse{
		ID:         job.ID,
		Ticker:     job.Request.Ticker,
		Status:     "queued",
		EnqueuedAt: job.EnqueuedAt,
	})
}

// HandleGetAnalysis handles GET /analyses/{ticker} requests. A failed latest
// run is reported as 422 with the recorded failure.
func (h *AnalysesHandler) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_analysis"
	ticker := strings.TrimSpace(r.PathValue("ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, ErrBadRequest))
		return
	}

	if f, ok := h.deps.Failure(r.Context(), ticker); ok {
		writeJSON(w, http.StatusUnprocessableEntity, failureResponse{
			Code:     "analysis_failed",
			Message:  f.Message,
			Ticker:   f.Ticker,
			Reason:   f.Reason,
			FailedAt: f.At,
		})
		return
	}

	res, err := h.deps.Get(r.Context(), ticker)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
