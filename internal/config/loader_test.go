package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/stockscore/internal/config"
	"github.com/okian/stockscore/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.MetricWeights, convey.ShouldBeNil)
				convey.So(cfg.WeightTree, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("STOCKSCORE_ADDR", ":8080")
			_ = os.Setenv("STOCKSCORE_QUEUE_SIZE", "500")
			_ = os.Setenv("STOCKSCORE_WORKER_COUNT", "16")
			_ = os.Setenv("STOCKSCORE_MISSING_METRIC_POLICY", "renormalize")
			_ = os.Setenv("STOCKSCORE_THRESHOLD_BUY", "0.7")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.MissingMetricPolicy, convey.ShouldEqual, "renormalize")
				convey.So(cfg.ThresholdBuy, convey.ShouldEqual, 0.7)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
queue_size: 300
worker_count: 4
log_format: json
threshold_strong_buy: 0.85
category_weights:
  financial_health: 0.35
  growth_metrics: 0.20
metric_weights:
  financial_health:
    liquidity:
      current_ratio: 0.7
      quick_ratio: 0.3
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("STOCKSCORE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.ThresholdStrongBuy, convey.ShouldEqual, 0.85)
				convey.So(cfg.CategoryWeights, convey.ShouldResemble, map[string]float64{
					"financial_health": 0.35,
					"growth_metrics":   0.20,
				})
			})

			convey.Convey("Then nested metric weights become dotted paths", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MetricWeights, convey.ShouldResemble, map[string]float64{
					"financial_health.liquidity.current_ratio": 0.7,
					"financial_health.liquidity.quick_ratio":   0.3,
				})

				e, err := cfg.Engine()
				convey.So(err, convey.ShouldBeNil)
				w, _ := e.Tree().Weight("financial_health.liquidity.current_ratio")
				convey.So(w, convey.ShouldEqual, 0.7)
				convey.So(e.Thresholds().StrongBuy, convey.ShouldEqual, 0.85)
			})
		})

		convey.Convey("When loading a full weight tree from YAML", func() {
			yamlContent := `
missing_metric_policy: renormalize
weight_tree:
  quality:
    weight: 0.6
    components:
      margins:
        weight: 1
        metrics:
          gross: 0.5
          net: 0.5
  price:
    weight: 0.4
    metrics:
      pe: 1
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("STOCKSCORE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldBeNil)

			e, err := cfg.Engine()

			convey.Convey("Then the engine scores against it", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(e.Policy(), convey.ShouldEqual, scoring.MissingRenormalize)
				convey.So(e.Tree().Metrics(), convey.ShouldResemble, []string{
					"price.pe", "quality.margins.gross", "quality.margins.net",
				})
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
queue_size: 300
worker_count: 24
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("STOCKSCORE_CONFIG", tmpFile)
			_ = os.Setenv("STOCKSCORE_ADDR", ":8080")
			_ = os.Setenv("STOCKSCORE_WORKER_COUNT", "32")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("STOCKSCORE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("STOCKSCORE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("STOCKSCORE_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("STOCKSCORE_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When metric weights are not numbers", func() {
			tmpFile := createTempConfigFile("metric_weights:\n  valuation_metrics:\n    pe_ratio: high\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("STOCKSCORE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := config.Load(cctx)
			convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"STOCKSCORE_CONFIG",
		"STOCKSCORE_ADDR",
		"STOCKSCORE_QUEUE_SIZE",
		"STOCKSCORE_WORKER_COUNT",
		"STOCKSCORE_MISSING_METRIC_POLICY",
		"STOCKSCORE_THRESHOLD_BUY",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "stockscore-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
