package normalize_test

import (
	"context"
	"math"
	"testing"

	"github.com/okian/stockscore/internal/domain/model"
	"github.com/okian/stockscore/internal/domain/normalize"
	"github.com/okian/stockscore/internal/domain/scoring"
	"github.com/okian/stockscore/internal/domain/weights"
	. "github.com/smartystreets/goconvey/convey"
)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }

func TestBand(t *testing.T) {
	Convey("Given a higher-is-better band", t, func() {
		b := normalize.Band{Worst: 0.5, Best: 2.5}
		So(b.Score(0.5), ShouldEqual, 0)
		So(b.Score(1.5), ShouldAlmostEqual, 0.5, 1e-12)
		So(b.Score(2.5), ShouldEqual, 1)
		So(b.Score(-3), ShouldEqual, 0)
		So(b.Score(40), ShouldEqual, 1)
		So(b.Score(math.NaN()), ShouldEqual, 0)
	})

	Convey("Given a lower-is-better band", t, func() {
		b := normalize.Band{Worst: 40, Best: 8}
		So(b.Score(8), ShouldEqual, 1)
		So(b.Score(24), ShouldAlmostEqual, 0.5, 1e-12)
		So(b.Score(60), ShouldEqual, 0)
		So(b.Score(5), ShouldEqual, 1)
	})
}

func TestSpecialCases(t *testing.T) {
	Convey("P/E of a loss-making company scores zero", t, func() {
		So(normalize.PE(-12), ShouldEqual, 0)
		So(normalize.PE(0), ShouldEqual, 0)
		So(normalize.PE(8), ShouldEqual, 1)
	})

	Convey("Payout ratio peaks inside the ideal range", t, func() {
		So(normalize.Payout(0), ShouldEqual, 0)
		So(normalize.Payout(0.15), ShouldAlmostEqual, 0.5, 1e-12)
		So(normalize.Payout(0.3), ShouldEqual, 1)
		So(normalize.Payout(0.45), ShouldEqual, 1)
		So(normalize.Payout(0.6), ShouldEqual, 1)
		So(normalize.Payout(0.8), ShouldAlmostEqual, 0.5, 1e-12)
		So(normalize.Payout(1.0), ShouldEqual, 0)
		So(normalize.Payout(1.7), ShouldEqual, 0)
	})

	Convey("Industry trend labels map to fixed scores", t, func() {
		s, ok := normalize.Trend("Positive")
		So(ok, ShouldBeTrue)
		So(s, ShouldEqual, 1)
		s, ok = normalize.Trend("neutral")
		So(ok, ShouldBeTrue)
		So(s, ShouldEqual, 0.5)
		s, ok = normalize.Trend("negative")
		So(ok, ShouldBeTrue)
		So(s, ShouldEqual, 0)
		_, ok = normalize.Trend("sideways")
		So(ok, ShouldBeFalse)
	})
}

func TestProfile(t *testing.T) {
	Convey("Given a fully described company", t, func() {
		p := model.Profile{
			Stock: model.Stock{Ticker: "ACME"},
			Ratios: &model.FinancialRatios{
				CurrentRatio:     f(1.5),
				QuickRatio:       f(0.9),
				DebtToEquity:     f(1.5),
				InterestCoverage: f(8),
				NetMargin:        f(0.125),
				ReturnOnEquity:   f(0.15),
				ReturnOnAssets:   f(0.075),
				PERatio:          f(24),
				PSRatio:          f(5.5),
				PBRatio:          f(3.5),
				EVEBITDA:         f(15.5),
			},
			Growth: &model.GrowthMetrics{
				RevenueYoY:     f(0.075),
				Revenue3yr:     f(0.075),
				Revenue5yr:     f(0.075),
				EarningsYoY:    f(0.075),
				Earnings3yr:    f(0.075),
				Earnings5yr:    f(0.075),
				OperatingCFYoY: f(0.075),
				FreeCFYoY:      f(0.075),
			},
			Dividend: &model.DividendInfo{
				HasDividend: true,
				Yield:       f(0.03),
				PayoutRatio: f(0.45),
				GrowthRates: map[string]float64{"1y": 0.10, "5y": 0.025},
			},
			Qualitative: &model.QualitativeAnalysis{
				ManagementQuality:   i(10),
				CompetitivePosition: i(1),
				IndustryTrend:       model.TrendNeutral,
			},
		}

		values := normalize.Profile(p)

		Convey("Then every metric of the default tree is populated", func() {
			for _, path := range weights.Default().Metrics() {
				So(values, ShouldContainKey, path)
				So(values[path], ShouldBeBetweenOrEqual, 0, 1)
			}
		})

		Convey("Then mid-band inputs score one half", func() {
			for _, path := range []string{
				normalize.CurrentRatio, normalize.QuickRatio, normalize.DebtToEquity,
				normalize.InterestCoverage, normalize.NetMargin, normalize.ReturnOnEquity,
				normalize.ReturnOnAssets, normalize.PERatio, normalize.PSRatio,
				normalize.PBRatio, normalize.EVEBITDA, normalize.RevenueYoY,
				normalize.FreeCFYoY, normalize.DividendYield, normalize.DividendGrowthRate,
				normalize.IndustryTrends,
			} {
				So(values[path], ShouldAlmostEqual, 0.5, 1e-9)
			}
		})

		Convey("Then ratings use the full 1-10 scale", func() {
			So(values[normalize.ManagementQuality], ShouldEqual, 1)
			So(values[normalize.CompetitivePositioning], ShouldEqual, 0)
		})

		Convey("Then the engine accepts the values without error", func() {
			e, err := scoring.NewEngine(weights.Default())
			So(err, ShouldBeNil)
			res, err := e.Analyze(context.Background(), scoring.Request{Ticker: p.Stock.Ticker, Values: values})
			So(err, ShouldBeNil)
			So(res.MissingMetrics(), ShouldBeEmpty)
		})
	})

	Convey("Given a sparse company", t, func() {
		p := model.Profile{
			Ratios:   &model.FinancialRatios{PERatio: f(-5), DebtToEquity: f(-2)},
			Dividend: &model.DividendInfo{HasDividend: false},
			Scores:   map[string]float64{normalize.ManagementQuality: 0.8},
		}
		values := normalize.Profile(p)

		Convey("Then only known figures are present", func() {
			So(values, ShouldResemble, scoring.Values{
				normalize.PERatio:            0,
				normalize.DebtToEquity:       0,
				normalize.DividendYield:      0,
				normalize.DividendGrowthRate: 0,
				normalize.PayoutRatio:        0,
				normalize.ManagementQuality:  0.8,
			})
		})
	})

	Convey("Given explicit scores that overlap derived ones", t, func() {
		p := model.Profile{
			Ratios: &model.FinancialRatios{CurrentRatio: f(2.5)},
			Scores: map[string]float64{normalize.CurrentRatio: 0.2},
		}
		Convey("Then the explicit score wins", func() {
			So(normalize.Profile(p)[normalize.CurrentRatio], ShouldEqual, 0.2)
		})
	})
}
