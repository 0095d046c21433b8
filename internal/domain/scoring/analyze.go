package scoring

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/okian/stockscore/internal/domain/model"
	"github.com/okian/stockscore/internal/domain/weights"
)

// Components at or above strengthCutoff are listed as strengths, those below
// weaknessCutoff as weaknesses, when the caller supplies none.
const (
	strengthCutoff = 0.70
	weaknessCutoff = 0.40
	maxHighlights  = 5
)

// Request is the input for one entity.
type Request struct {
	Ticker string
	Values Values

	// Optional context supplied by upstream collaborators.
	Stock      *model.Stock
	Summary    string
	Strengths  []string
	Weaknesses []string
}

// Analyze runs the full pipeline for one entity and returns an immutable result.
func (e *Engine) Analyze(ctx context.Context, req Request) (model.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return model.AnalysisResult{}, fmt.Errorf("analyze %s: %w", req.Ticker, err)
	}
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		return model.AnalysisResult{}, fmt.Errorf("%w: missing ticker", ErrInvalidRequest)
	}
	if unknown := e.tree.UnknownMetrics(slices.Collect(maps.Keys(req.Values))); len(unknown) > 0 {
		return model.AnalysisResult{}, fmt.Errorf("%w: %s: unknown metrics %s",
			ErrInvalidRequest, ticker, strings.Join(unknown, ", "))
	}

	tr := &trace{detailed: make(map[string]float64)}
	categories, err := e.scoreCategories(req.Values, tr)
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("analyze %s: %w", ticker, err)
	}
	sort.Strings(tr.missing)

	overall, err := e.OverallScore(categories)
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("analyze %s: %w", ticker, err)
	}
	rec, err := e.Recommend(overall)
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("analyze %s: %w", ticker, err)
	}

	strengths, weaknesses := req.Strengths, req.Weaknesses
	if len(strengths) == 0 && len(weaknesses) == 0 {
		strengths, weaknesses = e.highlights(tr.detailed)
	}
	summary := req.Summary
	if summary == "" {
		summary = e.summarize(ticker, overall, rec, categories)
	}

	return model.NewAnalysisResult(model.AnalysisRecord{
		ID:             e.newID(),
		Ticker:         ticker,
		Stock:          req.Stock,
		CategoryScores: categories,
		OverallScore:   overall,
		Recommendation: rec,
		Summary:        summary,
		Strengths:      strengths,
		Weaknesses:     weaknesses,
		MissingMetrics: tr.missing,
		DetailedScores: tr.detailed,
		AnalyzedAt:     e.now().UTC(),
	}), nil
}

type scored struct {
	path  string
	score float64
}

// highlights picks categories and their direct sub-components that stand out.
func (e *Engine) highlights(detailed map[string]float64) (strengths, weaknesses []string) {
	var items []scored
	for path, s := range detailed {
		if strings.Count(path, weights.PathSeparator) <= 1 {
			items = append(items, scored{path, s})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].path < items[j].path
	})

	strengths = []string{}
	weaknesses = []string{}
	for _, it := range items {
		if it.score >= strengthCutoff && len(strengths) < maxHighlights {
			strengths = append(strengths, fmt.Sprintf("%s (%.2f)", label(it.path), it.score))
		}
	}
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		if it.score < weaknessCutoff && len(weaknesses) < maxHighlights {
			weaknesses = append(weaknesses, fmt.Sprintf("%s (%.2f)", label(it.path), it.score))
		}
	}
	return strengths, weaknesses
}

func (e *Engine) summarize(ticker string, overall float64, rec model.Recommendation, categories map[string]float64) string {
	names := make([]string, 0, len(categories))
	for n := range categories {
		names = append(names, n)
	}
	if len(names) == 0 {
		return fmt.Sprintf("%s scores %.2f overall: %s.", ticker, overall, rec.Formatted())
	}
	sort.Slice(names, func(i, j int) bool {
		if categories[names[i]] != categories[names[j]] {
			return categories[names[i]] > categories[names[j]]
		}
		return names[i] < names[j]
	})
	best, worst := names[0], names[len(names)-1]
	return fmt.Sprintf("%s scores %.2f overall: %s. Strongest area is %s (%.2f), weakest is %s (%.2f).",
		ticker, overall, rec.Formatted(),
		label(best), categories[best], label(worst), categories[worst])
}

// label turns "financial_health.liquidity" into "financial health / liquidity".
func label(path string) string {
	parts := strings.Split(path, weights.PathSeparator)
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, "_", " ")
	}
	return strings.Join(parts, " / ")
}
