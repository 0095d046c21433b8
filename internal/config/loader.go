package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. STOCKSCORE_ADDR.
const EnvPrefix = "STOCKSCORE_"

// EnvConfigFile names the variable holding the optional YAML config path.
const EnvConfigFile = EnvPrefix + "CONFIG"

const (
	keyMetricWeights = "metric_weights"
	keyWeightTree    = "weight_tree"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if STOCKSCORE_CONFIG is set
//  3. env (prefix STOCKSCORE_)
func Load(ctx context.Context) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// STOCKSCORE_QUEUE_SIZE -> queue_size. Underscores are kept to match the
	// flat koanf tags on the struct.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	// koanf flattens nested maps into dotted keys, which is exactly the
	// metric path form the weight tree expects.
	if k.Exists(keyMetricWeights) {
		mw, err := floatMap(k.Cut(keyMetricWeights).All())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, keyMetricWeights, err)
		}
		cfg.MetricWeights = mw
	}
	if raw, ok := k.Get(keyWeightTree).(map[string]any); ok {
		cfg.WeightTree = raw
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func floatMap(raw map[string]any) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for key, v := range raw {
		switch n := v.(type) {
		case float64:
			out[key] = n
		case int:
			out[key] = float64(n)
		case int64:
			out[key] = float64(n)
		default:
			return nil, fmt.Errorf("weight %q is not a number: %v", key, v)
		}
	}
	return out, nil
}
