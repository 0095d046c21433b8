package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/stockscore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecommendation(t *testing.T) {
	Convey("Given the recommendation bands", t, func() {
		Convey("Then they are listed strongest first with descending rank", func() {
			all := model.Recommendations()
			So(len(all), ShouldEqual, 5)
			for i := 1; i < len(all); i++ {
				So(all[i-1].Rank(), ShouldBeGreaterThan, all[i].Rank())
			}
		})

		Convey("Then labels are human readable", func() {
			So(model.StrongBuy.Formatted(), ShouldEqual, "Strong Buy")
			So(model.Hold.Formatted(), ShouldEqual, "Hold")
			So(model.StrongSell.Formatted(), ShouldEqual, "Strong Sell")
			So(model.Recommendation("accumulate").Formatted(), ShouldEqual, "accumulate")
		})

		Convey("Then unknown values are invalid", func() {
			So(model.Buy.Valid(), ShouldBeTrue)
			So(model.Recommendation("accumulate").Valid(), ShouldBeFalse)
		})
	})
}

func TestStock(t *testing.T) {
	Convey("Given stocks with different market caps", t, func() {
		big, small := 25_000.0, 900.0

		So(model.Stock{MarketCap: &big}.IsLargeCap(), ShouldBeTrue)
		So(model.Stock{MarketCap: &small}.IsLargeCap(), ShouldBeFalse)
		So(model.Stock{}.IsLargeCap(), ShouldBeFalse)
		So(model.Stock{}.CurrencyOrDefault(), ShouldEqual, "USD")
		So(model.Stock{Currency: "EUR"}.CurrencyOrDefault(), ShouldEqual, "EUR")
	})
}

func TestAnalysisResult(t *testing.T) {
	Convey("Given a record frozen into a result", t, func() {
		at := time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC)
		rec := model.AnalysisRecord{
			ID:     "a-1",
			Ticker: "MSFT",
			Stock:  &model.Stock{Ticker: "MSFT", Metadata: map[string]string{"src": "fmp"}},
			CategoryScores: map[string]float64{
				model.CategoryFinancialHealth: 0.7,
				model.CategoryGrowth:          0.6,
				model.CategoryValuation:       0.5,
				model.CategoryDividend:        0.8,
				model.CategoryQualitative:     0.65,
			},
			OverallScore:   0.6275,
			Recommendation: model.Hold,
			Strengths:      []string{"dividend_analysis"},
			Weaknesses:     []string{},
			AnalyzedAt:     at,
		}
		res := model.NewAnalysisResult(rec)

		Convey("When the source record is mutated afterwards", func() {
			rec.CategoryScores[model.CategoryGrowth] = 0
			rec.Strengths[0] = "changed"
			rec.Stock.Metadata["src"] = "changed"

			Convey("Then the result is unaffected", func() {
				So(res.GrowthScore(), ShouldEqual, 0.6)
				So(res.Strengths(), ShouldResemble, []string{"dividend_analysis"})
				s, ok := res.Stock()
				So(ok, ShouldBeTrue)
				So(s.Metadata["src"], ShouldEqual, "fmp")
			})
		})

		Convey("When a caller mutates returned collections", func() {
			res.CategoryScores()[model.CategoryDividend] = 0
			res.Strengths()[0] = "changed"

			Convey("Then the result is unaffected", func() {
				So(res.DividendScore(), ShouldEqual, 0.8)
				So(res.Strengths()[0], ShouldEqual, "dividend_analysis")
			})
		})

		Convey("When encoded as JSON", func() {
			raw, err := json.Marshal(res)
			So(err, ShouldBeNil)

			var out map[string]any
			So(json.Unmarshal(raw, &out), ShouldBeNil)

			Convey("Then the record form is emitted", func() {
				So(out["ticker"], ShouldEqual, "MSFT")
				So(out["recommendation"], ShouldEqual, "hold")
				So(out["recommendation_label"], ShouldEqual, "Hold")
				So(out["qualitative_score"], ShouldEqual, 0.65)
				So(out["overall_score"], ShouldEqual, 0.6275)
			})
		})
	})

	Convey("Given a record with only the flat category fields", t, func() {
		res := model.NewAnalysisResult(model.AnalysisRecord{
			Ticker:               "KO",
			FinancialHealthScore: 0.4,
			DividendScore:        0.9,
		})

		Convey("Then the category map is built from them", func() {
			v, ok := res.CategoryScore(model.CategoryDividend)
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 0.9)
			So(res.FinancialHealthScore(), ShouldEqual, 0.4)
			So(res.IsZero(), ShouldBeFalse)
			So(model.AnalysisResult{}.IsZero(), ShouldBeTrue)
		})
	})
}
