package weights_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/okian/stockscore/internal/domain/weights"
	. "github.com/smartystreets/goconvey/convey"
)

// siblingSums walks every component and returns the weight sum of its direct children.
func siblingSums(t *weights.Tree) map[string]float64 {
	sums := map[string]float64{}
	var rootSum float64
	var walk func(n weights.Node)
	walk = func(n weights.Node) {
		var s float64
		for _, c := range weights.Children(n) {
			s += c.Weight
			if c.Node != nil {
				walk(c.Node)
			}
		}
		sums[n.Path()] = s
	}
	for _, c := range t.Categories() {
		rootSum += c.Weight()
		walk(c)
	}
	sums[""] = rootSum
	return sums
}

func TestDefaultTree(t *testing.T) {
	Convey("Given the default investment tree", t, func() {
		tree := weights.Default()

		Convey("Then it has the five categories in lexical order", func() {
			So(tree.CategoryNames(), ShouldResemble, []string{
				"dividend_analysis", "financial_health", "growth_metrics",
				"qualitative_factors", "valuation_metrics",
			})
		})

		Convey("Then every sibling group sums to one", func() {
			for _, sum := range siblingSums(tree) {
				So(math.Abs(sum-1), ShouldBeLessThanOrEqualTo, weights.SumTolerance)
			}
		})

		Convey("Then the top-level weights match the configured split", func() {
			for name, want := range map[string]float64{
				"financial_health":    0.30,
				"growth_metrics":      0.25,
				"valuation_metrics":   0.20,
				"dividend_analysis":   0.10,
				"qualitative_factors": 0.15,
			} {
				got, ok := tree.Weight(name)
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, want)
			}
		})

		Convey("Then repeated metric names are told apart by path", func() {
			metrics := tree.Metrics()
			So(metrics, ShouldContain, "growth_metrics.revenue_growth.yoy_growth")
			So(metrics, ShouldContain, "growth_metrics.earnings_growth.yoy_growth")
			So(len(metrics), ShouldEqual, 25)
		})

		Convey("Then only full metric paths are metrics", func() {
			So(tree.IsMetric("financial_health.liquidity.current_ratio"), ShouldBeTrue)
			So(tree.IsMetric("current_ratio"), ShouldBeFalse)
			So(tree.IsMetric("financial_health.liquidity"), ShouldBeFalse)
			So(tree.UnknownMetrics([]string{
				"valuation_metrics.pe_ratio", "pe_ratio", "financial_health",
			}), ShouldResemble, []string{"financial_health", "pe_ratio"})
			So(tree.UnknownMetrics(tree.Metrics()), ShouldBeEmpty)
		})

		Convey("Then effective weights reproduce the absolute split", func() {
			w, ok := tree.EffectiveWeight("financial_health.liquidity.current_ratio")
			So(ok, ShouldBeTrue)
			So(w, ShouldAlmostEqual, 0.05, 1e-12)

			w, ok = tree.EffectiveWeight("growth_metrics.cash_flow_growth.free_cf_growth")
			So(ok, ShouldBeTrue)
			So(w, ShouldAlmostEqual, 0.02, 1e-12)

			_, ok = tree.EffectiveWeight("nope")
			So(ok, ShouldBeFalse)
		})

		Convey("Then leaves and composites are distinguished", func() {
			fh, ok := tree.Category("financial_health")
			So(ok, ShouldBeTrue)
			So(weights.IsLeaf(fh), ShouldBeFalse)

			val, ok := tree.Category("valuation_metrics")
			So(ok, ShouldBeTrue)
			So(weights.IsLeaf(val), ShouldBeTrue)

			children := weights.Children(fh)
			So(len(children), ShouldEqual, 3)
			So(children[0].Name, ShouldEqual, "liquidity")
			So(children[0].Path, ShouldEqual, "financial_health.liquidity")
			So(weights.IsLeaf(children[0].Node), ShouldBeTrue)

			_, ok = tree.Category("financial_health.liquidity")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestNewTreeValidation(t *testing.T) {
	Convey("Given malformed trees", t, func() {
		cases := []struct {
			name  string
			nodes []weights.Node
		}{
			{"empty root", nil},
			{"root sum below one", []weights.Node{
				weights.NewLeaf("a", 0.5, map[string]float64{"x": 1}),
				weights.NewLeaf("b", 0.4, map[string]float64{"x": 1}),
			}},
			{"metric sum above one", []weights.Node{
				weights.NewLeaf("a", 1, map[string]float64{"x": 0.6, "y": 0.6}),
			}},
			{"zero weight", []weights.Node{
				weights.NewLeaf("a", 1, map[string]float64{"x": 1, "y": 0}),
			}},
			{"negative weight", []weights.Node{
				weights.NewLeaf("a", 1.5, map[string]float64{"x": 1}),
				weights.NewLeaf("b", -0.5, map[string]float64{"x": 1}),
			}},
			{"weight above one", []weights.Node{
				weights.NewLeaf("a", 1.2, map[string]float64{"x": 1}),
			}},
			{"NaN weight", []weights.Node{
				weights.NewLeaf("a", math.NaN(), map[string]float64{"x": 1}),
			}},
			{"leaf without metrics", []weights.Node{
				weights.NewLeaf("a", 1, nil),
			}},
			{"composite without children", []weights.Node{
				weights.NewComposite("a", 1),
			}},
			{"duplicate siblings", []weights.Node{
				weights.NewLeaf("a", 0.5, map[string]float64{"x": 1}),
				weights.NewLeaf("a", 0.5, map[string]float64{"x": 1}),
			}},
			{"dotted name", []weights.Node{
				weights.NewLeaf("a.b", 1, map[string]float64{"x": 1}),
			}},
			{"blank name", []weights.Node{
				weights.NewLeaf(" ", 1, map[string]float64{"x": 1}),
			}},
			{"nil child", []weights.Node{nil}},
			{"nested sum off", []weights.Node{
				weights.NewComposite("a", 1,
					weights.NewLeaf("b", 0.7, map[string]float64{"x": 1}),
					weights.NewLeaf("c", 0.2, map[string]float64{"x": 1}),
				),
			}},
		}

		for _, tc := range cases {
			Convey("When building a tree with "+tc.name, func() {
				tree, err := weights.NewTree(tc.nodes...)

				Convey("Then construction fails with a configuration error", func() {
					So(tree, ShouldBeNil)
					So(errors.Is(err, weights.ErrConfiguration), ShouldBeTrue)
				})
			})
		}

		Convey("When weights sum to one within tolerance", func() {
			tree, err := weights.NewTree(
				weights.NewLeaf("a", 0.3333333, map[string]float64{"x": 1}),
				weights.NewLeaf("b", 0.6666667, map[string]float64{"x": 1}),
			)

			Convey("Then construction succeeds", func() {
				So(err, ShouldBeNil)
				So(tree, ShouldNotBeNil)
			})
		})
	})
}

func TestWithOverrides(t *testing.T) {
	Convey("Given the default tree", t, func() {
		base := weights.Default()

		Convey("When overriding a consistent set of weights", func() {
			tree, err := base.WithOverrides(
				map[string]float64{"financial_health": 0.35, "dividend_analysis": 0.05},
				map[string]float64{
					"financial_health.liquidity.current_ratio": 0.6,
					"financial_health.liquidity.quick_ratio":   0.4,
				},
			)

			Convey("Then the new tree carries them and the base is untouched", func() {
				So(err, ShouldBeNil)
				w, _ := tree.Weight("financial_health")
				So(w, ShouldEqual, 0.35)
				w, _ = tree.Weight("financial_health.liquidity.current_ratio")
				So(w, ShouldEqual, 0.6)

				w, _ = base.Weight("financial_health")
				So(w, ShouldEqual, 0.30)
				w, _ = base.Weight("financial_health.liquidity.current_ratio")
				So(w, ShouldEqual, 0.5)
			})
		})

		Convey("When an override breaks a sibling sum", func() {
			_, err := base.WithOverrides(map[string]float64{"financial_health": 0.5}, nil)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, weights.ErrConfiguration), ShouldBeTrue)
			})
		})

		Convey("When overriding an unknown path", func() {
			_, err := base.WithOverrides(nil, map[string]float64{"financial_health.liquidity.cash_ratio": 0.1})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, weights.ErrConfiguration), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "cash_ratio")
			})
		})

		Convey("When a category override uses a dotted path", func() {
			_, err := base.WithOverrides(map[string]float64{"financial_health.liquidity": 0.5}, nil)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, weights.ErrConfiguration), ShouldBeTrue)
			})
		})

		Convey("When there are no overrides", func() {
			tree, err := base.WithOverrides(nil, nil)

			Convey("Then the same tree is returned", func() {
				So(err, ShouldBeNil)
				So(tree, ShouldPointTo, base)
			})
		})
	})
}

func TestParse(t *testing.T) {
	Convey("Given the nested configuration format", t, func() {
		raw := map[string]any{
			"health": map[string]any{
				"weight": 0.6,
				"components": map[string]any{
					"liquidity": map[string]any{
						"weight":  1,
						"metrics": map[string]any{"current_ratio": 0.5, "quick_ratio": "0.5"},
					},
				},
			},
			"value": map[string]any{
				"weight":  0.4,
				"metrics": map[string]any{"pe_ratio": 1.0},
			},
		}

		Convey("When parsing it", func() {
			tree, err := weights.Parse(raw)

			Convey("Then the tree is built", func() {
				So(err, ShouldBeNil)
				So(tree.Metrics(), ShouldResemble, []string{
					"health.liquidity.current_ratio",
					"health.liquidity.quick_ratio",
					"value.pe_ratio",
				})
			})

			Convey("Then Spec round-trips through Parse", func() {
				again, err := weights.Parse(tree.Spec())
				So(err, ShouldBeNil)
				So(again.Metrics(), ShouldResemble, tree.Metrics())
			})

			Convey("Then JSON encoding uses the same format", func() {
				b, err := json.Marshal(tree)
				So(err, ShouldBeNil)
				So(string(b), ShouldContainSubstring, `"components"`)
				So(string(b), ShouldContainSubstring, `"pe_ratio":1`)
			})
		})

		Convey("When a component has both metrics and components", func() {
			_, err := weights.Parse(map[string]any{
				"x": map[string]any{
					"weight":     1,
					"metrics":    map[string]any{"a": 1},
					"components": map[string]any{},
				},
			})
			So(errors.Is(err, weights.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When a component lacks a weight", func() {
			_, err := weights.Parse(map[string]any{
				"x": map[string]any{"metrics": map[string]any{"a": 1}},
			})
			So(errors.Is(err, weights.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When a component has an unknown key", func() {
			_, err := weights.Parse(map[string]any{
				"x": map[string]any{"weight": 1, "metric": map[string]any{"a": 1}},
			})
			So(errors.Is(err, weights.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When a component body is not a mapping", func() {
			_, err := weights.Parse(map[string]any{"x": 1.0})
			So(errors.Is(err, weights.ErrConfiguration), ShouldBeTrue)
		})
	})
}
