// Package report writes one YAML document per completed analysis.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/stockscore/internal/domain/model"
	"github.com/okian/stockscore/pkg/metrics"
	"gopkg.in/yaml.v3"
)

// TimeLayout is the timestamp part of report file names, to the millisecond.
const TimeLayout = "20060102T150405.000"

// idPrefixLen is how much of the result ID goes into a file name.
const idPrefixLen = 8

// ErrNoDirectory is returned when the writer has nowhere to write.
var ErrNoDirectory = errors.New("report directory not set")

// Writer stores reports under a directory as <TICKER>-<timestamp>-<id>.yaml.
type Writer struct {
	dir string
}

// NewWriter creates the directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrNoDirectory
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the target directory.
func (w *Writer) Dir() string { return w.dir }

// Path returns the file a result is written to. Results of one ticker never
// share a path unless they share both timestamp and ID prefix.
func (w *Writer) Path(res model.AnalysisResult) string {
	name := safeTicker(res.Ticker()) + "-" + res.AnalyzedAt().UTC().Format(TimeLayout)
	if id := res.ID(); id != "" {
		name += "-" + safeTicker(id[:min(len(id), idPrefixLen)])
	}
	return filepath.Join(w.dir, name+".yaml")
}

// Write encodes res and replaces the target file atomically.
func (w *Writer) Write(ctx context.Context, res model.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.write(res); err != nil {
		metrics.RecordReportError()
		return err
	}
	metrics.RecordReportWritten()
	return nil
}

func (w *Writer) write(res model.AnalysisResult) error {
	data, err := yaml.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", res.Ticker(), err)
	}

	target := w.Path(res)
	tmp, err := os.CreateTemp(w.dir, ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("create report %s: %w", target, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write report %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", target, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("rename report %s: %w", target, err)
	}
	return nil
}

// Read decodes a report written by Write.
func Read(path string) (model.AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("read report: %w", err)
	}
	var rec model.AnalysisRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return model.AnalysisResult{}, fmt.Errorf("decode report %s: %w", path, err)
	}
	return model.NewAnalysisResult(rec), nil
}

// safeTicker keeps file names portable, e.g. "BRK/B" becomes "BRK_B".
func safeTicker(t string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, t)
}
