package loadgen

import (
	"context"
	"net/http"
	"net/url"
	"sync"
)

// retrieveRanks fetches the rank of every submitted ticker concurrently.
// Tickers the service does not know are skipped.
func retrieveRanks(ctx context.Context, client *HTTPClient, cfg *Config, subs []Submission) []Entry {
	var (
		mu  sync.Mutex
		out = make([]Entry, 0, len(subs))
		wg  sync.WaitGroup
	)
	ch := make(chan string, cfg.Workers*2)

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range ch {
				var e Entry
				status, err := client.Get(ctx, cfg.BaseURL+"/analyses/"+url.PathEscape(ticker)+"/rank", &e)
				if err != nil || status != http.StatusOK {
					continue
				}
				mu.Lock()
				out = append(out, e)
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, s := range subs {
			select {
			case <-ctx.Done():
				return
			case ch <- s.Ticker:
			}
		}
	}()
	wg.Wait()
	return out
}
