// Package normalize turns raw company figures into scores in [0,1] keyed by
// the metric paths of the default weight tree.
package normalize

import (
	"math"
	"strings"

	"github.com/okian/stockscore/internal/domain/model"
	"github.com/okian/stockscore/internal/domain/scoring"
)

// Band maps a raw value linearly onto [0,1]. Worst scores 0 and Best scores 1;
// Best may be below Worst for lower-is-better metrics. Values past either end clamp.
type Band struct {
	Worst float64
	Best  float64
}

// Score returns the normalized value of x. NaN scores 0.
func (b Band) Score(x float64) float64 {
	if math.IsNaN(x) || b.Best == b.Worst {
		return 0
	}
	s := (x - b.Worst) / (b.Best - b.Worst)
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}

// Metric paths in the default tree.
const (
	CurrentRatio     = "financial_health.liquidity.current_ratio"
	QuickRatio       = "financial_health.liquidity.quick_ratio"
	DebtToEquity     = "financial_health.solvency.debt_to_equity"
	InterestCoverage = "financial_health.solvency.interest_coverage"
	NetMargin        = "financial_health.profitability.net_margin"
	ReturnOnEquity   = "financial_health.profitability.return_on_equity"
	ReturnOnAssets   = "financial_health.profitability.return_on_assets"

	RevenueYoY     = "growth_metrics.revenue_growth.yoy_growth"
	Revenue3yr     = "growth_metrics.revenue_growth.three_year_cagr"
	Revenue5yr     = "growth_metrics.revenue_growth.five_year_cagr"
	EarningsYoY    = "growth_metrics.earnings_growth.yoy_growth"
	Earnings3yr    = "growth_metrics.earnings_growth.three_year_cagr"
	Earnings5yr    = "growth_metrics.earnings_growth.five_year_cagr"
	OperatingCFYoY = "growth_metrics.cash_flow_growth.operating_cf_growth"
	FreeCFYoY      = "growth_metrics.cash_flow_growth.free_cf_growth"

	PERatio  = "valuation_metrics.pe_ratio"
	PSRatio  = "valuation_metrics.ps_ratio"
	PBRatio  = "valuation_metrics.pb_ratio"
	EVEBITDA = "valuation_metrics.ev_ebitda"

	DividendYield      = "dividend_analysis.dividend_yield"
	DividendGrowthRate = "dividend_analysis.dividend_growth_rate"
	PayoutRatio        = "dividend_analysis.payout_ratio"

	ManagementQuality      = "qualitative_factors.management_quality"
	CompetitivePositioning = "qualitative_factors.competitive_positioning"
	IndustryTrends         = "qualitative_factors.industry_trends"
)

// Bands used by Profile.
var (
	CurrentRatioBand     = Band{Worst: 0.5, Best: 2.5}
	QuickRatioBand       = Band{Worst: 0.3, Best: 1.5}
	DebtToEquityBand     = Band{Worst: 3.0, Best: 0}
	InterestCoverageBand = Band{Worst: 1, Best: 15}
	NetMarginBand        = Band{Worst: 0, Best: 0.25}
	ReturnOnEquityBand   = Band{Worst: 0, Best: 0.30}
	ReturnOnAssetsBand   = Band{Worst: 0, Best: 0.15}
	GrowthBand           = Band{Worst: -0.10, Best: 0.25}
	PERatioBand          = Band{Worst: 40, Best: 8}
	PSRatioBand          = Band{Worst: 10, Best: 1}
	PBRatioBand          = Band{Worst: 6, Best: 1}
	EVEBITDABand         = Band{Worst: 25, Best: 6}
	DividendYieldBand    = Band{Worst: 0, Best: 0.06}
	DividendGrowthBand   = Band{Worst: -0.05, Best: 0.10}
	RatingBand           = Band{Worst: 1, Best: 10}
)

// Payout ratios inside [payoutLow, payoutHigh] are ideal.
const (
	payoutLow  = 0.3
	payoutHigh = 0.6
)

// dividendHorizons is the preference order for the dividend growth rate.
var dividendHorizons = []string{"5y", "3y", "1y", "10y"}

// Profile normalizes everything known about a company. Unknown figures are
// left out so the engine's missing metric policy decides. Entries in p.Scores
// replace derived values.
func Profile(p model.Profile) scoring.Values {
	v := scoring.Values{}

	if r := p.Ratios; r != nil {
		set(v, CurrentRatio, r.CurrentRatio, CurrentRatioBand)
		set(v, QuickRatio, r.QuickRatio, QuickRatioBand)
		if r.DebtToEquity != nil {
			// Negative equity is as bad as it gets.
			if *r.DebtToEquity < 0 {
				v[DebtToEquity] = 0
			} else {
				v[DebtToEquity] = DebtToEquityBand.Score(*r.DebtToEquity)
			}
		}
		set(v, InterestCoverage, r.InterestCoverage, InterestCoverageBand)
		set(v, NetMargin, r.NetMargin, NetMarginBand)
		set(v, ReturnOnEquity, r.ReturnOnEquity, ReturnOnEquityBand)
		set(v, ReturnOnAssets, r.ReturnOnAssets, ReturnOnAssetsBand)

		if r.PERatio != nil {
			v[PERatio] = PE(*r.PERatio)
		}
		setPositive(v, PSRatio, r.PSRatio, PSRatioBand)
		setPositive(v, PBRatio, r.PBRatio, PBRatioBand)
		setPositive(v, EVEBITDA, r.EVEBITDA, EVEBITDABand)
	}

	if g := p.Growth; g != nil {
		set(v, RevenueYoY, g.RevenueYoY, GrowthBand)
		set(v, Revenue3yr, g.Revenue3yr, GrowthBand)
		set(v, Revenue5yr, g.Revenue5yr, GrowthBand)
		set(v, EarningsYoY, g.EarningsYoY, GrowthBand)
		set(v, Earnings3yr, g.Earnings3yr, GrowthBand)
		set(v, Earnings5yr, g.Earnings5yr, GrowthBand)
		set(v, OperatingCFYoY, g.OperatingCFYoY, GrowthBand)
		set(v, FreeCFYoY, g.FreeCFYoY, GrowthBand)
	}

	if d := p.Dividend; d != nil {
		if !d.HasDividend {
			v[DividendYield] = 0
			v[DividendGrowthRate] = 0
			v[PayoutRatio] = 0
		} else {
			set(v, DividendYield, d.Yield, DividendYieldBand)
			if rate, ok := dividendGrowth(d.GrowthRates); ok {
				v[DividendGrowthRate] = DividendGrowthBand.Score(rate)
			}
			if d.PayoutRatio != nil {
				v[PayoutRatio] = Payout(*d.PayoutRatio)
			}
		}
	}

	if q := p.Qualitative; q != nil {
		if q.ManagementQuality != nil {
			v[ManagementQuality] = RatingBand.Score(float64(*q.ManagementQuality))
		}
		if q.CompetitivePosition != nil {
			v[CompetitivePositioning] = RatingBand.Score(float64(*q.CompetitivePosition))
		}
		if s, ok := Trend(q.IndustryTrend); ok {
			v[IndustryTrends] = s
		}
	}

	for path, s := range p.Scores {
		v[path] = s
	}
	return v
}

// PE scores a price/earnings ratio. Loss-making companies (P/E <= 0) score 0.
func PE(pe float64) float64 {
	if pe <= 0 {
		return 0
	}
	return PERatioBand.Score(pe)
}

// Payout scores a payout ratio: 1 inside the ideal range, falling linearly to
// 0 at a ratio of 0 and at 1.0 or more.
func Payout(ratio float64) float64 {
	switch {
	case math.IsNaN(ratio), ratio <= 0, ratio >= 1:
		return 0
	case ratio < payoutLow:
		return Band{Worst: 0, Best: payoutLow}.Score(ratio)
	case ratio <= payoutHigh:
		return 1
	default:
		return Band{Worst: 1, Best: payoutHigh}.Score(ratio)
	}
}

// Trend scores an industry trend label. Unknown labels report false.
func Trend(label string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case model.TrendPositive:
		return 1, true
	case model.TrendNeutral:
		return 0.5, true
	case model.TrendNegative:
		return 0, true
	default:
		return 0, false
	}
}

func dividendGrowth(rates map[string]float64) (float64, bool) {
	for _, h := range dividendHorizons {
		if r, ok := rates[h]; ok {
			return r, true
		}
	}
	return 0, false
}

func set(v scoring.Values, path string, raw *float64, b Band) {
	if raw != nil {
		v[path] = b.Score(*raw)
	}
}

// setPositive scores non-positive multiples as 0; they signal losses or negative book value.
func setPositive(v scoring.Values, path string, raw *float64, b Band) {
	if raw == nil {
		return
	}
	if *raw <= 0 {
		v[path] = 0
		return
	}
	v[path] = b.Score(*raw)
}
