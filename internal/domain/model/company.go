package model

import "time"

// largeCapThreshold is expressed in millions, like MarketCap.
const largeCapThreshold = 10_000

// Stock describes a listed company. Pointer fields are unknown when nil.
type Stock struct {
	Ticker           string            `yaml:"ticker" json:"ticker"`
	Name             string            `yaml:"name" json:"name"`
	Exchange         string            `yaml:"exchange" json:"exchange"`
	Sector           *string           `yaml:"sector,omitempty" json:"sector,omitempty"`
	Industry         *string           `yaml:"industry,omitempty" json:"industry,omitempty"`
	MarketCap        *float64          `yaml:"market_cap,omitempty" json:"market_cap,omitempty"` // millions
	Price            *float64          `yaml:"price,omitempty" json:"price,omitempty"`
	Currency         string            `yaml:"currency,omitempty" json:"currency,omitempty"`
	DailyChange      *float64          `yaml:"daily_change,omitempty" json:"daily_change,omitempty"` // percent
	DailyChangeValue *float64          `yaml:"daily_change_value,omitempty" json:"daily_change_value,omitempty"`
	Volume           *int64            `yaml:"volume,omitempty" json:"volume,omitempty"`
	AvgVolume        *int64            `yaml:"avg_volume,omitempty" json:"avg_volume,omitempty"`
	Metadata         map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// IsLargeCap reports whether the market cap is above $10B. Unknown caps are not large.
func (s Stock) IsLargeCap() bool {
	return s.MarketCap != nil && *s.MarketCap > largeCapThreshold
}

// CurrencyOrDefault returns the currency, defaulting to USD.
func (s Stock) CurrencyOrDefault() string {
	if s.Currency == "" {
		return "USD"
	}
	return s.Currency
}

// FinancialRatios holds the ratios the normalizer understands.
type FinancialRatios struct {
	AsOf time.Time `yaml:"as_of,omitempty" json:"as_of,omitempty"`

	CurrentRatio     *float64 `yaml:"current_ratio,omitempty" json:"current_ratio,omitempty"`
	QuickRatio       *float64 `yaml:"quick_ratio,omitempty" json:"quick_ratio,omitempty"`
	DebtToEquity     *float64 `yaml:"debt_to_equity,omitempty" json:"debt_to_equity,omitempty"`
	InterestCoverage *float64 `yaml:"interest_coverage,omitempty" json:"interest_coverage,omitempty"`
	NetMargin        *float64 `yaml:"net_margin,omitempty" json:"net_margin,omitempty"`
	ReturnOnEquity   *float64 `yaml:"return_on_equity,omitempty" json:"return_on_equity,omitempty"`
	ReturnOnAssets   *float64 `yaml:"return_on_assets,omitempty" json:"return_on_assets,omitempty"`

	PERatio  *float64 `yaml:"pe_ratio,omitempty" json:"pe_ratio,omitempty"`
	PBRatio  *float64 `yaml:"pb_ratio,omitempty" json:"pb_ratio,omitempty"`
	PSRatio  *float64 `yaml:"ps_ratio,omitempty" json:"ps_ratio,omitempty"`
	EVEBITDA *float64 `yaml:"ev_ebitda,omitempty" json:"ev_ebitda,omitempty"`
}

// GrowthMetrics holds growth rates as fractions (0.12 = 12%).
type GrowthMetrics struct {
	RevenueYoY  *float64 `yaml:"revenue_growth_yoy,omitempty" json:"revenue_growth_yoy,omitempty"`
	Revenue3yr  *float64 `yaml:"revenue_growth_3yr,omitempty" json:"revenue_growth_3yr,omitempty"`
	Revenue5yr  *float64 `yaml:"revenue_growth_5yr,omitempty" json:"revenue_growth_5yr,omitempty"`
	EarningsYoY *float64 `yaml:"earnings_growth_yoy,omitempty" json:"earnings_growth_yoy,omitempty"`
	Earnings3yr *float64 `yaml:"earnings_growth_3yr,omitempty" json:"earnings_growth_3yr,omitempty"`
	Earnings5yr *float64 `yaml:"earnings_growth_5yr,omitempty" json:"earnings_growth_5yr,omitempty"`

	OperatingCFYoY *float64 `yaml:"operating_cf_growth_yoy,omitempty" json:"operating_cf_growth_yoy,omitempty"`
	FreeCFYoY      *float64 `yaml:"free_cf_growth_yoy,omitempty" json:"free_cf_growth_yoy,omitempty"`
}

// DividendInfo describes a company's dividend.
type DividendInfo struct {
	HasDividend bool     `yaml:"has_dividend" json:"has_dividend"`
	Yield       *float64 `yaml:"dividend_yield,omitempty" json:"dividend_yield,omitempty"`
	PayoutRatio *float64 `yaml:"payout_ratio,omitempty" json:"payout_ratio,omitempty"`
	// GrowthRates is keyed by horizon: "1y", "3y", "5y", "10y".
	GrowthRates map[string]float64 `yaml:"growth_rates,omitempty" json:"growth_rates,omitempty"`
}

// Industry trend labels.
const (
	TrendPositive = "positive"
	TrendNeutral  = "neutral"
	TrendNegative = "negative"
)

// QualitativeAnalysis carries analyst or LLM judgements. Ratings use a 1-10 scale.
type QualitativeAnalysis struct {
	ManagementQuality   *int   `yaml:"management_quality,omitempty" json:"management_quality,omitempty"`
	ManagementNotes     string `yaml:"management_notes,omitempty" json:"management_notes,omitempty"`
	CompetitivePosition *int   `yaml:"competitive_position,omitempty" json:"competitive_position,omitempty"`
	CompetitiveNotes    string `yaml:"competitive_notes,omitempty" json:"competitive_notes,omitempty"`
	IndustryTrend       string `yaml:"industry_trend,omitempty" json:"industry_trend,omitempty"`
	IndustryNotes       string `yaml:"industry_notes,omitempty" json:"industry_notes,omitempty"`

	// SWOT is keyed by strengths, weaknesses, opportunities, threats.
	SWOT map[string][]string `yaml:"swot,omitempty" json:"swot,omitempty"`
}

// Profile bundles everything known about one company ahead of scoring.
type Profile struct {
	Stock       Stock                `yaml:"stock" json:"stock"`
	Ratios      *FinancialRatios     `yaml:"ratios,omitempty" json:"ratios,omitempty"`
	Growth      *GrowthMetrics       `yaml:"growth,omitempty" json:"growth,omitempty"`
	Dividend    *DividendInfo        `yaml:"dividend,omitempty" json:"dividend,omitempty"`
	Qualitative *QualitativeAnalysis `yaml:"qualitative,omitempty" json:"qualitative,omitempty"`

	// Scores holds already-normalized values keyed by metric path. They take
	// precedence over values derived from the raw sections.
	Scores map[string]float64 `yaml:"scores,omitempty" json:"scores,omitempty"`

	Summary string `yaml:"summary,omitempty" json:"summary,omitempty"`
}
