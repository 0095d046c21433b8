// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Domain objects (weight tree, scoring engine) are derived from a loaded
//   Config explicitly; nothing reads the environment after Load returns.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/stockscore/internal/domain/scoring"
	"github.com/okian/stockscore/internal/domain/weights"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory analysis queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// WatchlistPath points at a YAML list of company profiles. Empty disables it.
	WatchlistPath string `koanf:"watchlist_path"`

	// ReportDir receives one YAML report per analysis. Empty disables reports.
	ReportDir string `koanf:"report_dir"`

	// Schedule is a cron expression (with seconds) for re-analyzing the watchlist.
	Schedule string `koanf:"schedule"`

	// MissingMetricPolicy is "zero" or "renormalize".
	MissingMetricPolicy string `koanf:"missing_metric_policy"`

	// Recommendation band lower bounds.
	ThresholdStrongBuy  float64 `koanf:"threshold_strong_buy"`
	ThresholdBuy        float64 `koanf:"threshold_buy"`
	ThresholdHold       float64 `koanf:"threshold_hold"`
	ThresholdSell       float64 `koanf:"threshold_sell"`
	ThresholdStrongSell float64 `koanf:"threshold_strong_sell"`

	// CategoryWeights overrides top-level category weights.
	CategoryWeights map[string]float64 `koanf:"category_weights"`

	// MetricWeights overrides weights below the categories, keyed by dotted
	// path (e.g. "financial_health.liquidity.current_ratio").
	MetricWeights map[string]float64 `koanf:"-"`

	// WeightTree replaces the default tree entirely when set.
	WeightTree map[string]any `koanf:"-"`
}

// New creates a Config with defaults.
func New() *Config {
	th := scoring.DefaultThresholds()
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		MaxLeaderboardLimit: 100,
		MissingMetricPolicy: scoring.MissingAsZero.String(),
		ThresholdStrongBuy:  th.StrongBuy,
		ThresholdBuy:        th.Buy,
		ThresholdHold:       th.Hold,
		ThresholdSell:       th.Sell,
		ThresholdStrongSell: th.StrongSell,
	}
}

// Thresholds returns the configured recommendation bands.
func (c *Config) Thresholds() scoring.Thresholds {
	return scoring.Thresholds{
		StrongBuy:  c.ThresholdStrongBuy,
		Buy:        c.ThresholdBuy,
		Hold:       c.ThresholdHold,
		Sell:       c.ThresholdSell,
		StrongSell: c.ThresholdStrongSell,
	}
}

// Tree builds the weight tree: the configured tree or the default one, with
// category and metric overrides applied.
func (c *Config) Tree() (*weights.Tree, error) {
	base := weights.Default()
	if len(c.WeightTree) > 0 {
		t, err := weights.Parse(c.WeightTree)
		if err != nil {
			return nil, err
		}
		base = t
	}
	return base.WithOverrides(c.CategoryWeights, c.MetricWeights)
}

// Engine builds the scoring engine described by the configuration.
func (c *Config) Engine(opts ...scoring.Option) (*scoring.Engine, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	policy, err := scoring.ParseMissingPolicy(c.MissingMetricPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", weights.ErrConfiguration, err)
	}
	base := []scoring.Option{
		scoring.WithThresholds(c.Thresholds()),
		scoring.WithMissingPolicy(policy),
	}
	return scoring.NewEngine(tree, append(base, opts...)...)
}

// Validate checks process settings. Scoring settings are checked by Engine.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive, got %d", ErrInvalidConfig, c.MaxLeaderboardLimit)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.Schedule != "" && c.WatchlistPath == "" {
		return fmt.Errorf("%w: schedule requires watchlist_path", ErrInvalidConfig)
	}
	return nil
}
