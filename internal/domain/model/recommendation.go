// Package model contains domain models passed between layers.
package model

// Recommendation is the categorical outcome derived from an overall score.
type Recommendation string

// Recommendation bands, strongest first.
const (
	StrongBuy  Recommendation = "strong_buy"
	Buy        Recommendation = "buy"
	Hold       Recommendation = "hold"
	Sell       Recommendation = "sell"
	StrongSell Recommendation = "strong_sell"
)

// Recommendations lists every band in descending order of strength.
func Recommendations() []Recommendation {
	return []Recommendation{StrongBuy, Buy, Hold, Sell, StrongSell}
}

// Valid reports whether r is one of the five known bands.
func (r Recommendation) Valid() bool {
	return r.Rank() > 0
}

// Rank orders bands: strong_sell=1 ... strong_buy=5, unknown=0.
func (r Recommendation) Rank() int {
	switch r {
	case StrongSell:
		return 1
	case Sell:
		return 2
	case Hold:
		return 3
	case Buy:
		return 4
	case StrongBuy:
		return 5
	default:
		return 0
	}
}

// Formatted returns the human label, e.g. "Strong Buy". Unknown values are
// returned unchanged.
func (r Recommendation) Formatted() string {
	switch r {
	case StrongBuy:
		return "Strong Buy"
	case Buy:
		return "Buy"
	case Hold:
		return "Hold"
	case Sell:
		return "Sell"
	case StrongSell:
		return "Strong Sell"
	default:
		return string(r)
	}
}

func (r Recommendation) String() string { return string(r) }
