// Package watchlist loads the companies to analyze from a YAML file.
//
// Example:
//
//	companies:
//	  - stock: {ticker: AAPL, name: Apple Inc., exchange: NASDAQ}
//	    ratios: {current_ratio: 1.1, pe_ratio: 29}
//	    qualitative: {management_quality: 8, industry_trend: positive}
//	    scores:
//	      qualitative_factors.competitive_positioning: 0.9
package watchlist

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/okian/stockscore/internal/domain/model"
	"github.com/okian/stockscore/internal/domain/normalize"
	"github.com/okian/stockscore/internal/domain/scoring"
	"gopkg.in/yaml.v3"
)

// ErrInvalidWatchlist marks a file that parses but cannot be used.
var ErrInvalidWatchlist = errors.New("invalid watchlist")

type file struct {
	Companies []model.Profile `yaml:"companies"`
}

// Load reads and validates the watchlist at path.
func Load(path string) ([]model.Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open watchlist: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// Decode reads a watchlist document. Tickers are upper-cased and must be unique.
func Decode(r io.Reader) ([]model.Profile, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidWatchlist)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidWatchlist, err)
	}
	if len(doc.Companies) == 0 {
		return nil, fmt.Errorf("%w: no companies", ErrInvalidWatchlist)
	}

	seen := make(map[string]int, len(doc.Companies))
	for i := range doc.Companies {
		p := &doc.Companies[i]
		p.Stock.Ticker = strings.ToUpper(strings.TrimSpace(p.Stock.Ticker))
		if p.Stock.Ticker == "" {
			return nil, fmt.Errorf("%w: company %d has no ticker", ErrInvalidWatchlist, i+1)
		}
		if j, dup := seen[p.Stock.Ticker]; dup {
			return nil, fmt.Errorf("%w: ticker %s listed twice (entries %d and %d)", ErrInvalidWatchlist, p.Stock.Ticker, j+1, i+1)
		}
		seen[p.Stock.Ticker] = i
	}
	return doc.Companies, nil
}

// Request turns a profile into an analysis request.
func Request(p model.Profile) scoring.Request {
	stock := p.Stock
	var strengths, weaknesses []string
	if q := p.Qualitative; q != nil {
		strengths = q.SWOT["strengths"]
		weaknesses = q.SWOT["weaknesses"]
	}
	return scoring.Request{
		Ticker:     stock.Ticker,
		Values:     normalize.Profile(p),
		Stock:      &stock,
		Summary:    p.Summary,
		Strengths:  strengths,
		Weaknesses: weaknesses,
	}
}

// Requests converts every profile.
func Requests(profiles []model.Profile) []scoring.Request {
	out := make([]scoring.Request, len(profiles))
	for i, p := range profiles {
		out[i] = Request(p)
	}
	return out
}
