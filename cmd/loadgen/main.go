// Command loadgen submits synthetic companies to a running stockscore
// service and verifies the leaderboard it serves.
package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/stockscore/internal/loadgen"
	"github.com/okian/stockscore/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumCompanies = 1000
	defaultTopN         = 50
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultSettle       = 2 * time.Minute
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		companies = flag.Int("companies", defaultNumCompanies, "Number of synthetic companies to submit")
		topN      = flag.Int("top", defaultTopN, "Number of leaderboard entries to fetch and verify")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle    = flag.Duration("settle", defaultSettle, "Maximum wait for queued analyses to finish")
		seed      = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Seed for generated scores")
		prefix    = flag.String("prefix", "LG", "Ticker prefix of generated companies")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	_, err := loadgen.Run(ctx, &loadgen.Config{
		BaseURL:      *baseURL,
		NumCompanies: *companies,
		TopN:         *topN,
		Workers:      *workers,
		Timeout:      *timeout,
		Settle:       *settle,
		Seed:         *seed,
		Prefix:       *prefix,
		Verbose:      *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
