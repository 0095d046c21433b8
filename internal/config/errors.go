package config

import "errors"

var (
	// ErrLoadConfig wraps failures reading the config file or environment.
	ErrLoadConfig = errors.New("load config failed")
	// ErrInvalidConfig marks process settings that fail validation. Scoring
	// settings fail with weights.ErrConfiguration when the engine is built.
	ErrInvalidConfig = errors.New("invalid config")
)
