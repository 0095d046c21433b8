package scoring

import (
	"fmt"
	"math"

	"github.com/okian/stockscore/internal/domain/model"
	"github.com/okian/stockscore/internal/domain/weights"
)

// Thresholds are the inclusive lower bounds of each recommendation band.
type Thresholds struct {
	StrongBuy  float64
	Buy        float64
	Hold       float64
	Sell       float64
	StrongSell float64
}

// DefaultThresholds returns the standard band boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StrongBuy:  0.80,
		Buy:        0.65,
		Hold:       0.45,
		Sell:       0.30,
		StrongSell: 0.0,
	}
}

type band struct {
	rec   model.Recommendation
	lower float64
}

// bands returns the bands in descending threshold order.
func (t Thresholds) bands() []band {
	return []band{
		{model.StrongBuy, t.StrongBuy},
		{model.Buy, t.Buy},
		{model.Hold, t.Hold},
		{model.Sell, t.Sell},
		{model.StrongSell, t.StrongSell},
	}
}

// Lower returns the lower bound of rec.
func (t Thresholds) Lower(rec model.Recommendation) (float64, bool) {
	for _, b := range t.bands() {
		if b.rec == rec {
			return b.lower, true
		}
	}
	return 0, false
}

// Validate checks that bounds lie in [0,1], strictly decrease from strong_buy
// to strong_sell, and that strong_sell catches everything from 0.0.
func (t Thresholds) Validate() error {
	bs := t.bands()
	for i, b := range bs {
		if math.IsNaN(b.lower) || b.lower < 0 || b.lower > 1 {
			return fmt.Errorf("%w: threshold %s is %v, must be in [0,1]", weights.ErrConfiguration, b.rec, b.lower)
		}
		if i > 0 && b.lower >= bs[i-1].lower {
			return fmt.Errorf("%w: threshold %s (%v) must be below %s (%v)",
				weights.ErrConfiguration, b.rec, b.lower, bs[i-1].rec, bs[i-1].lower)
		}
	}
	if t.StrongSell != 0 {
		return fmt.Errorf("%w: threshold %s must be 0, got %v", weights.ErrConfiguration, model.StrongSell, t.StrongSell)
	}
	return nil
}

// Recommend maps an overall score to its band: the first band, scanning from
// strong_buy down, whose lower bound is <= score.
func (t Thresholds) Recommend(score float64) (model.Recommendation, error) {
	if err := checkRange("overall", score); err != nil {
		return "", err
	}
	for _, b := range t.bands() {
		if score >= b.lower {
			return b.rec, nil
		}
	}
	// Unreachable with validated thresholds: strong_sell starts at 0.
	return model.StrongSell, nil
}

func checkRange(what string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s is %v, must be in [0,1]", ErrInvalidScore, what, v)
	}
	return nil
}
