// Command analyze scores every company of a watchlist once and prints the
// ranked results.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/okian/stockscore/internal/adapters/watchlist"
	app "github.com/okian/stockscore/internal/app"
	"github.com/okian/stockscore/internal/config"
	"github.com/okian/stockscore/internal/domain/model"
	"github.com/okian/stockscore/pkg/logger"
	"gopkg.in/yaml.v3"
)

const defaultDrainTimeout = 5 * time.Minute

// Output formats.
const (
	formatTable = "table"
	formatYAML  = "yaml"
	formatJSON  = "json"
)

var errUsage = errors.New("usage")

func main() {
	// Logs go to stderr so stdout carries only results.
	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			os.Stderr.WriteString("analyze: " + err.Error() + "\n")
		}
		stop()
		os.Exit(1)
	}
}

type options struct {
	watchlist string
	reportDir string
	format    string
	top       int
	timeout   time.Duration
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.watchlist, "watchlist", cfg.WatchlistPath, "Watchlist YAML file")
	fs.StringVar(&o.reportDir, "reports", cfg.ReportDir, "Directory for per-company YAML reports (empty disables)")
	fs.StringVar(&o.format, "format", formatTable, "Output format: table, yaml or json")
	fs.IntVar(&o.top, "top", 0, "Print only the top N companies (0 prints all)")
	fs.DurationVar(&o.timeout, "timeout", defaultDrainTimeout, "Maximum time to wait for the batch")
	if err := fs.Parse(args); err != nil {
		return o, fmt.Errorf("%w: %w", errUsage, err)
	}
	switch {
	case o.watchlist == "":
		return o, errors.New("no watchlist: pass -watchlist or set watchlist_path")
	case o.format != formatTable && o.format != formatYAML && o.format != formatJSON:
		return o, fmt.Errorf("unknown format %q", o.format)
	case o.top < 0:
		return o, fmt.Errorf("invalid -top %d", o.top)
	}
	return o, nil
}

// run analyzes the watchlist and writes the results to out.
func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	_ = logger.SetLevelString(cfg.LogLevel)
	log := logger.Get().Named("analyze")

	o, err := parseFlags(args, cfg, os.Stderr)
	if err != nil {
		return err
	}
	engine, err := cfg.Engine()
	if err != nil {
		return fmt.Errorf("build scoring engine: %w", err)
	}
	profiles, err := watchlist.Load(o.watchlist)
	if err != nil {
		return err
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(max(cfg.QueueSize, len(profiles))),
	}
	if o.reportDir != "" {
		opts = append(opts, app.WithReportDir(o.reportDir))
	}
	svc := app.New(engine, opts...)

	if err := svc.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	if _, err := svc.SubmitAll(ctx, watchlist.Requests(profiles)); err != nil {
		_ = svc.Stop(ctx)
		return err
	}
	drainCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if err := svc.Stop(drainCtx); err != nil {
		return err
	}

	results := svc.Results(ctx)
	if o.top > 0 && len(results) > o.top {
		results = results[:o.top]
	}
	failures := make([]failure, 0)
	for _, p := range profiles {
		if f, ok := svc.Failure(ctx, p.Stock.Ticker); ok {
			failures = append(failures, failure{Ticker: f.Ticker, Reason: f.Reason, Message: f.Message})
		}
	}
	log.Info(ctx, "batch complete",
		logger.Int("companies", len(profiles)),
		logger.Int("failed", len(failures)),
	)
	return render(out, o.format, results, failures)
}

type failure struct {
	Ticker  string `json:"ticker" yaml:"ticker"`
	Reason  string `json:"reason" yaml:"reason"`
	Message string `json:"message" yaml:"message"`
}

type document struct {
	Results  []model.AnalysisResult `json:"results" yaml:"results"`
	Failures []failure              `json:"failures,omitempty" yaml:"failures,omitempty"`
}

func render(out io.Writer, format string, results []model.AnalysisResult, failures []failure) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(document{Results: results, Failures: failures}); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(document{Results: results, Failures: failures})
	default:
		return renderTable(out, results, failures)
	}
}

func renderTable(out io.Writer, results []model.AnalysisResult, failures []failure) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tTICKER\tOVERALL\tRECOMMENDATION\tHEALTH\tGROWTH\tVALUATION\tDIVIDEND\tQUALITATIVE\tMISSING")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%.3f\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%d\n",
			i+1, r.Ticker(), r.OverallScore(), r.Recommendation().Formatted(),
			r.FinancialHealthScore(), r.GrowthScore(), r.ValuationScore(),
			r.DividendScore(), r.QualitativeScore(), len(r.MissingMetrics()))
	}
	if len(failures) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "FAILED\tREASON\tMESSAGE")
		for _, f := range failures {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Ticker, f.Reason, f.Message)
		}
	}
	return tw.Flush()
}
