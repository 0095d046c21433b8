package weights

import "github.com/okian/stockscore/internal/domain/model"

const third = 1.0 / 3

// Default returns the investment weight tree. Weights are relative to the parent:
// liquidity holds a third of financial_health, which holds 30% of the overall score.
func Default() *Tree {
	t, err := NewTree(
		NewComposite(model.CategoryFinancialHealth, 0.30,
			NewLeaf("liquidity", third, map[string]float64{
				"current_ratio": 0.5,
				"quick_ratio":   0.5,
			}),
			NewLeaf("solvency", third, map[string]float64{
				"debt_to_equity":    0.5,
				"interest_coverage": 0.5,
			}),
			NewLeaf("profitability", third, map[string]float64{
				"net_margin":       0.3,
				"return_on_equity": 0.4,
				"return_on_assets": 0.3,
			}),
		),
		NewComposite(model.CategoryGrowth, 0.25,
			NewLeaf("revenue_growth", 0.4, growthRates()),
			NewLeaf("earnings_growth", 0.4, growthRates()),
			NewLeaf("cash_flow_growth", 0.2, map[string]float64{
				"operating_cf_growth": 0.6,
				"free_cf_growth":      0.4,
			}),
		),
		NewLeaf(model.CategoryValuation, 0.20, map[string]float64{
			"pe_ratio":  0.25,
			"ps_ratio":  0.25,
			"pb_ratio":  0.25,
			"ev_ebitda": 0.25,
		}),
		NewLeaf(model.CategoryDividend, 0.10, map[string]float64{
			"dividend_yield":       0.4,
			"dividend_growth_rate": 0.3,
			"payout_ratio":         0.3,
		}),
		NewLeaf(model.CategoryQualitative, 0.15, map[string]float64{
			"management_quality":      third,
			"competitive_positioning": third,
			"industry_trends":         third,
		}),
	)
	if err != nil {
		panic("weights: default tree is invalid: " + err.Error())
	}
	return t
}

func growthRates() map[string]float64 {
	return map[string]float64{
		"yoy_growth":      0.4,
		"three_year_cagr": 0.3,
		"five_year_cagr":  0.3,
	}
}
