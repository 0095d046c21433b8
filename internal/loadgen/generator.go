package loadgen

import (
	"fmt"
	"math/rand/v2"

	"github.com/okian/stockscore/internal/domain/weights"
)

// Score ranges per company profile. Each company draws every metric from the
// same range so the overall score clusters around the range's middle.
var profiles = []struct {
	min, span float64
}{
	{0.30, 0.40}, // average, most common
	{0.30, 0.40},
	{0.60, 0.30}, // strong
	{0.05, 0.35}, // weak
	{0.85, 0.15}, // exceptional, rare
	{0.00, 1.00}, // anything
}

// Generate creates n synthetic companies scored on every metric of tree.
// The same seed yields the same companies.
func Generate(tree *weights.Tree, n int, prefix string, seed uint64) []Submission {
	rng := rand.New(rand.NewPCG(seed, seed^0x5bd1e995))
	metrics := tree.Metrics()

	out := make([]Submission, n)
	for i := range out {
		p := profiles[rng.IntN(len(profiles))]
		scores := make(map[string]float64, len(metrics))
		for _, m := range metrics {
			scores[m] = p.min + rng.Float64()*p.span
		}
		out[i] = Submission{
			Ticker: fmt.Sprintf("%s%05d", prefix, i),
			Scores: scores,
		}
	}
	return out
}
