package repository

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/okian/stockscore/internal/domain/model"
	"github.com/okian/stockscore/internal/domain/types"
	"github.com/okian/stockscore/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: overall score DESC, then ticker ASC (types.Before),
// so an in-order traversal yields the leaderboard from best to worst. Nodes
// carry subtree sizes so Rank is O(log n) expected.

type node struct {
	ticker string
	score  float64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, ticker string, score float64, prio uint64) *node {
	if n == nil {
		return &node{ticker: ticker, score: score, prio: prio, size: 1}
	}
	if types.Before(score, ticker, n.score, n.ticker) {
		n.left = insert(n.left, ticker, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, ticker, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, ticker string, score float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.ticker == ticker && n.score == score:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, ticker, score)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, ticker, score)
		}
	case types.Before(score, ticker, n.score, n.ticker):
		n.left = remove(n.left, ticker, score)
	default:
		n.right = remove(n.right, ticker, score)
	}
	fix(n)
	return n
}

// position returns the 1-based leaderboard position of (score, ticker).
func position(n *node, ticker string, score float64) int {
	pos := 0
	for n != nil {
		switch {
		case n.ticker == ticker && n.score == score:
			return pos + nsize(n.left) + 1
		case types.Before(score, ticker, n.score, n.ticker):
			n = n.left
		default:
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// walk visits up to limit nodes in rank order; limit < 0 means all.
func walk(n *node, limit int, visit func(*node)) int {
	if n == nil || limit == 0 {
		return 0
	}
	seen := walk(n.left, limit, visit)
	if limit > 0 && seen >= limit {
		return seen
	}
	visit(n)
	seen++
	if limit > 0 {
		return seen + walk(n.right, limit-seen, visit)
	}
	return seen + walk(n.right, -1, visit)
}

// MemoryStore implements Store in memory, guarded by an RWMutex.
type MemoryStore struct {
	mu       sync.RWMutex
	root     *node
	results  map[string]model.AnalysisResult
	failures map[string]Failure
	rng      *rand.Rand
	seed     uint64
	now      func() time.Time
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		results:  make(map[string]model.AnalysisResult),
		failures: make(map[string]Failure),
		seed:     uint64(time.Now().UnixNano()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	metrics.UpdateStoredTickers(0)
	return s
}

func key(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Put stores res as the latest result for its ticker.
func (s *MemoryStore) Put(ctx context.Context, res model.AnalysisResult) error {
	if res.IsZero() || key(res.Ticker()) == "" {
		return ErrInvalidResult
	}
	t := key(res.Ticker())

	s.mu.Lock()
	if old, ok := s.results[t]; ok {
		if res.AnalyzedAt().Before(old.AnalyzedAt()) {
			s.mu.Unlock()
			return nil
		}
		s.root = remove(s.root, t, old.OverallScore())
	}
	s.results[t] = res
	delete(s.failures, t)
	s.root = insert(s.root, t, res.OverallScore(), s.rng.Uint64())
	count := len(s.results)
	s.mu.Unlock()

	metrics.UpdateStoredTickers(count)
	return nil
}

// RecordFailure marks the latest run for ticker as failed.
func (s *MemoryStore) RecordFailure(ctx context.Context, ticker, reason string, err error) error {
	f := Failure{Ticker: key(ticker), Reason: reason, At: s.now().UTC()}
	if err != nil {
		f.Message = err.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[f.Ticker] = f
	return nil
}

// Get returns the latest result for ticker.
func (s *MemoryStore) Get(ctx context.Context, ticker string) (model.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[key(ticker)]
	if !ok {
		return model.AnalysisResult{}, ErrNotFound
	}
	return res, nil
}

// Failure returns the recorded failure for ticker.
func (s *MemoryStore) Failure(ctx context.Context, ticker string) (Failure, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.failures[key(ticker)]
	return f, ok
}

// Rank returns the leaderboard entry for ticker in O(log n).
func (s *MemoryStore) Rank(ctx context.Context, ticker string) (types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := key(ticker)
	res, ok := s.results[t]
	if !ok {
		return types.Entry{}, ErrNotFound
	}
	return types.NewEntry(position(s.root, t, res.OverallScore()), res), nil
}

// TopN returns the top n entries.
func (s *MemoryStore) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Entry, 0, min(n, len(s.results)))
	walk(s.root, n, func(nd *node) {
		out = append(out, types.NewEntry(len(out)+1, s.results[nd.ticker]))
	})
	return out, nil
}

// Results returns every stored result in rank order.
func (s *MemoryStore) Results(ctx context.Context) []model.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.AnalysisResult, 0, len(s.results))
	walk(s.root, -1, func(nd *node) {
		out = append(out, s.results[nd.ticker])
	})
	return out
}

// Count returns the number of tickers with a stored result.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
