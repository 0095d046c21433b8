package api

import (
	"fmt"
	"net/http"

	"github.com/okian/stockscore/internal/domain/weights"
)

// WeightsDependencies exposes the active weight tree.
type WeightsDependencies interface {
	Weights() *weights.Tree
}

// WeightsHandler serves the weight tree.
type WeightsHandler struct {
	deps WeightsDependencies
}

// NewWeightsHandler creates a new weights handler.
func NewWeightsHandler(deps WeightsDependencies) *WeightsHandler {
	return &WeightsHandler{deps: deps}
}

// HandleGetWeights handles GET /weights requests with the tree in its
// configuration layout. With view=effective it returns each metric's share of
// the overall score instead.
func (h *WeightsHandler) HandleGetWeights(w http.ResponseWriter, r *http.Request) {
	tree := h.deps.Weights()
	switch view := r.URL.Query().Get("view"); view {
	case "", "tree":
		writeJSON(w, http.StatusOK, tree)
	case "effective":
		out := make(map[string]float64, len(tree.Metrics()))
		for _, path := range tree.Metrics() {
			if ew, ok := tree.EffectiveWeight(path); ok {
				out[path] = ew
			}
		}
		writeJSON(w, http.StatusOK, out)
	default:
		writeError(w, http.StatusBadRequest, "bad_request",
			Wrap("api.get_weights", fmt.Errorf("%w: unknown view %q", ErrBadRequest, view)))
	}
}
