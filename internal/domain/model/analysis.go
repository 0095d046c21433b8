package model

import (
	"encoding/json"
	"maps"
	"slices"
	"time"
)

// Top-level category names of the investment weight tree.
const (
	CategoryFinancialHealth = "financial_health"
	CategoryGrowth          = "growth_metrics"
	CategoryValuation       = "valuation_metrics"
	CategoryDividend        = "dividend_analysis"
	CategoryQualitative     = "qualitative_factors"
)

// AnalysisResult is an immutable snapshot of one completed analysis. It is
// never updated; re-running an analysis produces a new result that supersedes it.
type AnalysisResult struct {
	id             string
	ticker         string
	stock          *Stock
	categories     map[string]float64
	overall        float64
	recommendation Recommendation
	summary        string
	strengths      []string
	weaknesses     []string
	missing        []string
	detailed       map[string]float64
	analyzedAt     time.Time
}

// AnalysisRecord is the exported, serializable form of an AnalysisResult.
type AnalysisRecord struct {
	ID                   string             `json:"id" yaml:"id"`
	Ticker               string             `json:"ticker" yaml:"ticker"`
	Stock                *Stock             `json:"stock,omitempty" yaml:"stock,omitempty"`
	FinancialHealthScore float64            `json:"financial_health_score" yaml:"financial_health_score"`
	GrowthScore          float64            `json:"growth_score" yaml:"growth_score"`
	ValuationScore       float64            `json:"valuation_score" yaml:"valuation_score"`
	DividendScore        float64            `json:"dividend_score" yaml:"dividend_score"`
	QualitativeScore     float64            `json:"qualitative_score" yaml:"qualitative_score"`
	CategoryScores       map[string]float64 `json:"category_scores" yaml:"category_scores"`
	OverallScore         float64            `json:"overall_score" yaml:"overall_score"`
	Recommendation       Recommendation     `json:"recommendation" yaml:"recommendation"`
	RecommendationLabel  string             `json:"recommendation_label" yaml:"recommendation_label"`
	Summary              string             `json:"summary" yaml:"summary"`
	Strengths            []string           `json:"strengths" yaml:"strengths"`
	Weaknesses           []string           `json:"weaknesses" yaml:"weaknesses"`
	MissingMetrics       []string           `json:"missing_metrics,omitempty" yaml:"missing_metrics,omitempty"`
	DetailedScores       map[string]float64 `json:"detailed_scores,omitempty" yaml:"detailed_scores,omitempty"`
	AnalyzedAt           time.Time          `json:"analyzed_at" yaml:"analyzed_at"`
}

// NewAnalysisResult freezes rec into an AnalysisResult. Maps and slices are copied.
func NewAnalysisResult(rec AnalysisRecord) AnalysisResult {
	r := AnalysisResult{
		id:             rec.ID,
		ticker:         rec.Ticker,
		categories:     maps.Clone(rec.CategoryScores),
		overall:        rec.OverallScore,
		recommendation: rec.Recommendation,
		summary:        rec.Summary,
		strengths:      slices.Clone(rec.Strengths),
		weaknesses:     slices.Clone(rec.Weaknesses),
		missing:        slices.Clone(rec.MissingMetrics),
		detailed:       maps.Clone(rec.DetailedScores),
		analyzedAt:     rec.AnalyzedAt,
	}
	if r.categories == nil {
		r.categories = map[string]float64{
			CategoryFinancialHealth: rec.FinancialHealthScore,
			CategoryGrowth:          rec.GrowthScore,
			CategoryValuation:       rec.ValuationScore,
			CategoryDividend:        rec.DividendScore,
			CategoryQualitative:     rec.QualitativeScore,
		}
	}
	if rec.Stock != nil {
		s := *rec.Stock
		s.Metadata = maps.Clone(rec.Stock.Metadata)
		r.stock = &s
	}
	return r
}

func (r AnalysisResult) ID() string                     { return r.id }
func (r AnalysisResult) Ticker() string                 { return r.ticker }
func (r AnalysisResult) OverallScore() float64          { return r.overall }
func (r AnalysisResult) Recommendation() Recommendation { return r.recommendation }
func (r AnalysisResult) Summary() string                { return r.summary }
func (r AnalysisResult) AnalyzedAt() time.Time          { return r.analyzedAt }
func (r AnalysisResult) Strengths() []string            { return slices.Clone(r.strengths) }
func (r AnalysisResult) Weaknesses() []string           { return slices.Clone(r.weaknesses) }
func (r AnalysisResult) MissingMetrics() []string       { return slices.Clone(r.missing) }

// IsZero reports whether r was never populated.
func (r AnalysisResult) IsZero() bool { return r.id == "" && r.ticker == "" }

// Stock returns a copy of the company metadata, if any.
func (r AnalysisResult) Stock() (Stock, bool) {
	if r.stock == nil {
		return Stock{}, false
	}
	s := *r.stock
	s.Metadata = maps.Clone(r.stock.Metadata)
	return s, true
}

// CategoryScore returns the score of a top-level category.
func (r AnalysisResult) CategoryScore(name string) (float64, bool) {
	v, ok := r.categories[name]
	return v, ok
}

// CategoryScores returns a copy of all category scores.
func (r AnalysisResult) CategoryScores() map[string]float64 { return maps.Clone(r.categories) }

// DetailedScores returns a copy of the per-component scores keyed by path.
func (r AnalysisResult) DetailedScores() map[string]float64 { return maps.Clone(r.detailed) }

func (r AnalysisResult) FinancialHealthScore() float64 { return r.categories[CategoryFinancialHealth] }
func (r AnalysisResult) GrowthScore() float64          { return r.categories[CategoryGrowth] }
func (r AnalysisResult) ValuationScore() float64       { return r.categories[CategoryValuation] }
func (r AnalysisResult) DividendScore() float64        { return r.categories[CategoryDividend] }
func (r AnalysisResult) QualitativeScore() float64     { return r.categories[CategoryQualitative] }

// Record returns a serializable copy of r.
func (r AnalysisResult) Record() AnalysisRecord {
	rec := AnalysisRecord{
		ID:                   r.id,
		Ticker:               r.ticker,
		FinancialHealthScore: r.FinancialHealthScore(),
		GrowthScore:          r.GrowthScore(),
		ValuationScore:       r.ValuationScore(),
		DividendScore:        r.DividendScore(),
		QualitativeScore:     r.QualitativeScore(),
		CategoryScores:       maps.Clone(r.categories),
		OverallScore:         r.overall,
		Recommendation:       r.recommendation,
		RecommendationLabel:  r.recommendation.Formatted(),
		Summary:              r.summary,
		Strengths:            r.Strengths(),
		Weaknesses:           r.Weaknesses(),
		MissingMetrics:       r.MissingMetrics(),
		DetailedScores:       maps.Clone(r.detailed),
		AnalyzedAt:           r.analyzedAt,
	}
	if s, ok := r.Stock(); ok {
		rec.Stock = &s
	}
	return rec
}

// MarshalJSON encodes the record form.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Record())
}

// MarshalYAML encodes the record form.
func (r AnalysisResult) MarshalYAML() (any, error) {
	return r.Record(), nil
}
