package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/stockscore/internal/config"
	"github.com/okian/stockscore/internal/domain/weights"
	"github.com/okian/stockscore/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRun_ConfigurationErrors(t *testing.T) {
	convey.Convey("Given inconsistent thresholds in the environment", t, func() {
		t.Setenv("STOCKSCORE_THRESHOLD_BUY", "0.95")

		convey.Convey("Then run fails before serving", func() {
			err := run(context.Background(), nil)
			convey.So(errors.Is(err, weights.ErrConfiguration), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given an invalid process setting", t, func() {
		t.Setenv("STOCKSCORE_WORKER_COUNT", "0")

		convey.Convey("Then run fails with a config error", func() {
			err := run(context.Background(), nil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestRun_ServesAndDrains(t *testing.T) {
	convey.Convey("Given the service running on a local listener", t, func() {
		t.Setenv("STOCKSCORE_WORKER_COUNT", "2")
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)
		base := "http://" + ln.Addr().String()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx, ln) }()

		client := &http.Client{Timeout: 2 * time.Second}
		waitFor := func(method, url, body string, want int) bool {
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				req, _ := http.NewRequest(method, url, strings.NewReader(body))
				resp, err := client.Do(req)
				if err == nil {
					_ = resp.Body.Close()
					if resp.StatusCode == want {
						return true
					}
				}
				time.Sleep(25 * time.Millisecond)
			}
			return false
		}

		convey.Convey("When an analysis is submitted", func() {
			convey.So(waitFor(http.MethodGet, base+"/stats", "", http.StatusOK), convey.ShouldBeTrue)
			convey.So(waitFor(http.MethodPost, base+"/analyses",
				`{"ticker":"acme","scores":{"valuation_metrics.pe_ratio":0.7}}`, http.StatusAccepted), convey.ShouldBeTrue)

			convey.Convey("Then the result becomes readable and shutdown is clean", func() {
				convey.So(waitFor(http.MethodGet, base+"/analyses/ACME", "", http.StatusOK), convey.ShouldBeTrue)
				convey.So(waitFor(http.MethodGet, base+"/leaderboard?limit=1", "", http.StatusOK), convey.ShouldBeTrue)

				cancel()
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(10 * time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})

		cancel()
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		cfg := config.New()
		engine, err := cfg.Engine()
		convey.So(err, convey.ShouldBeNil)
		svc := newService(cfg, engine)
		h := newHandler(cfg, svc)

		convey.Convey("Then the API and its description are routed", func() {
			for path, want := range map[string]int{
				"/openapi.yaml":            http.StatusOK,
				"/weights":                 http.StatusOK,
				"/stats":                   http.StatusOK,
				"/healthz":                 http.StatusOK,
				"/leaderboard?limit=1":     http.StatusOK,
				"/leaderboard?limit=101":   http.StatusBadRequest,
				"/analyses/UNKNOWN":        http.StatusNotFound,
				"/analyses/UNKNOWN/rank":   http.StatusNotFound,
				"/definitely-not-a-route/": http.StatusNotFound,
			} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, want)
			}
		})

		convey.Convey("Then submissions fail until the service starts", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/analyses", strings.NewReader(`{"ticker":"A","scores":{"valuation_metrics.pe_ratio":0.5}}`)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestServiceMetricsUpdater(t *testing.T) {
	convey.Convey("Given a cancelled context", t, func() {
		cfg := config.New()
		engine, err := cfg.Engine()
		convey.So(err, convey.ShouldBeNil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		convey.Convey("Then the updater returns", func() {
			done := make(chan struct{})
			go func() {
				startServiceMetricsUpdater(ctx, newService(cfg, engine))
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("updater did not stop")
			}
		})
	})
}
