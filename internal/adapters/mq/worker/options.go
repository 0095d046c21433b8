// Package worker defines worker contracts for asynchronous analysis.
package worker

import (
	"github.com/okian/stockscore/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithSink adds a destination that receives every successful result after it
// is stored, e.g. the report writer.
func WithSink(s Sink) Option {
	return func(w *InMemoryWorker) {
		if s != nil {
			w.sinks = append(w.sinks, s)
		}
	}
}
