// Package scoring combines normalized metric scores through a weight tree into
// category scores, an overall score and a recommendation.
//
// The engine is a pure function pipeline: it holds no mutable state, so one
// Engine may score many entities concurrently.
package scoring

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/okian/stockscore/internal/domain/model"
	"github.com/okian/stockscore/internal/domain/weights"
)

// Values maps metric paths (e.g. "financial_health.liquidity.current_ratio")
// to normalized scores in [0,1].
type Values map[string]float64

// Engine scores entities against a weight tree.
type Engine struct {
	tree       *weights.Tree
	thresholds Thresholds
	policy     MissingPolicy
	now        func() time.Time
	newID      func() string
}

// NewEngine creates an engine for tree. Invalid thresholds fail with
// weights.ErrConfiguration.
func NewEngine(tree *weights.Tree, opts ...Option) (*Engine, error) {
	if tree == nil {
		return nil, fmt.Errorf("%w: nil weight tree", weights.ErrConfiguration)
	}
	e := &Engine{
		tree:       tree,
		thresholds: DefaultThresholds(),
		policy:     MissingAsZero,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.thresholds.Validate(); err != nil {
		return nil, err
	}
	if e.policy != MissingAsZero && e.policy != MissingRenormalize {
		return nil, fmt.Errorf("%w: unknown missing metric policy %v", weights.ErrConfiguration, e.policy)
	}
	return e, nil
}

// Tree returns the weight tree the engine scores against.
func (e *Engine) Tree() *weights.Tree { return e.tree }

// Thresholds returns the recommendation bands.
func (e *Engine) Thresholds() Thresholds { return e.thresholds }

// Policy returns the missing metric policy.
func (e *Engine) Policy() MissingPolicy { return e.policy }

// trace collects per-run detail. It is local to one call.
type trace struct {
	missing  []string
	detailed map[string]float64
}

func (tr *trace) addMissing(path string) {
	if tr != nil {
		tr.missing = append(tr.missing, path)
	}
}

func (tr *trace) record(path string, score float64) {
	if tr != nil && tr.detailed != nil {
		tr.detailed[path] = score
	}
}

// ScoreComponent returns the weighted score of node for the given values.
// Leaf: sum of weight * value over its metrics. Composite: sum of weight *
// ScoreComponent(child). Children are visited in lexical order so identical
// inputs always give bit-identical output.
//
// Values outside [0,1] fail with ErrInvalidScore. Under MissingRenormalize a
// component with no present metrics fails with ErrMissingMetric.
func (e *Engine) ScoreComponent(node weights.Node, values Values) (float64, error) {
	score, ok, err := e.score(node, values, nil)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: no values for %q", ErrMissingMetric, node.Path())
	}
	return score, nil
}

// score returns the component score and whether any data contributed to it.
func (e *Engine) score(node weights.Node, values Values, tr *trace) (float64, bool, error) {
	var sum, weightSum float64
	for _, c := range weights.Children(node) {
		var (
			v       float64
			present bool
			err     error
		)
		if c.Node != nil {
			v, present, err = e.score(c.Node, values, tr)
			if err != nil {
				return 0, false, err
			}
		} else {
			v, present = values[c.Path]
			if present {
				if err := checkRange(fmt.Sprintf("metric %q", c.Path), v); err != nil {
					return 0, false, err
				}
			} else {
				tr.addMissing(c.Path)
			}
		}

		if !present {
			if e.policy == MissingRenormalize {
				continue
			}
			v = 0
		}
		sum += c.Weight * v
		weightSum += c.Weight
	}

	if weightSum == 0 {
		return 0, false, nil
	}
	// Normalized by the contributing weight: equal to the plain weighted sum
	// when siblings sum to exactly 1, and within [0,1] when they sum to 1 +/- tolerance.
	result := sum / weightSum
	if err := checkRange(fmt.Sprintf("component %q", node.Path()), result); err != nil {
		return 0, false, err
	}
	tr.record(node.Path(), result)
	return result, true, nil
}

// ScoreCategories scores every top-level category. Under MissingRenormalize a
// category without any data is left out of the returned map. The second
// return value lists absent metric paths in lexical order.
func (e *Engine) ScoreCategories(values Values) (map[string]float64, []string, error) {
	tr := &trace{}
	scores, err := e.scoreCategories(values, tr)
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(tr.missing)
	return scores, tr.missing, nil
}

func (e *Engine) scoreCategories(values Values, tr *trace) (map[string]float64, error) {
	out := make(map[string]float64, len(e.tree.Categories()))
	for _, cat := range e.tree.Categories() {
		s, ok, err := e.score(cat, values, tr)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out[cat.Name()] = s
	}
	return out, nil
}

// OverallScore is the weighted sum of category scores using the top-level
// weights. Categories absent from the map follow the missing metric policy;
// names that are not top-level categories are ignored.
func (e *Engine) OverallScore(categoryScores map[string]float64) (float64, error) {
	var sum, weightSum float64
	for _, cat := range e.tree.Categories() {
		v, ok := categoryScores[cat.Name()]
		if ok {
			if err := checkRange(fmt.Sprintf("category %q", cat.Name()), v); err != nil {
				return 0, err
			}
		} else {
			if e.policy == MissingRenormalize {
				continue
			}
			v = 0
		}
		sum += cat.Weight() * v
		weightSum += cat.Weight()
	}
	if weightSum == 0 {
		return 0, fmt.Errorf("%w: no category scores", ErrMissingMetric)
	}
	// Normalized the same way as component scores.
	overall := sum / weightSum
	if err := checkRange("overall", overall); err != nil {
		return 0, err
	}
	return overall, nil
}

// Recommend maps an overall score to a recommendation band.
func (e *Engine) Recommend(score float64) (model.Recommendation, error) {
	return e.thresholds.Recommend(score)
}
