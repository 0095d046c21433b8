package loadgen_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/stockscore/internal/adapters/http/api"
	service "github.com/okian/stockscore/internal/app"
	"github.com/okian/stockscore/internal/domain/scoring"
	"github.com/okian/stockscore/internal/domain/weights"
	"github.com/okian/stockscore/internal/loadgen"
	"github.com/okian/stockscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given the default tree", t, func() {
		tree := weights.Default()

		Convey("Then every company is scored on every metric within [0,1]", func() {
			subs := loadgen.Generate(tree, 50, "LG", 7)
			So(subs, ShouldHaveLength, 50)
			So(subs[0].Ticker, ShouldEqual, "LG00000")
			So(subs[49].Ticker, ShouldEqual, "LG00049")
			for _, s := range subs {
				So(s.Scores, ShouldHaveLength, len(tree.Metrics()))
				for _, v := range s.Scores {
					So(v, ShouldBeBetweenOrEqual, 0, 1)
				}
			}
		})

		Convey("Then the same seed yields the same companies", func() {
			So(loadgen.Generate(tree, 5, "X", 1), ShouldResemble, loadgen.Generate(tree, 5, "X", 1))
			So(loadgen.Generate(tree, 5, "X", 1), ShouldNotResemble, loadgen.Generate(tree, 5, "X", 2))
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given leaderboards", t, func() {
		board := []loadgen.Entry{
			{Rank: 1, Ticker: "B", OverallScore: 0.9},
			{Rank: 2, Ticker: "A", OverallScore: 0.7},
			{Rank: 3, Ticker: "C", OverallScore: 0.7},
		}

		Convey("Then a consistent board passes", func() {
			ranks := []loadgen.Entry{board[2], board[0], {Rank: 4, Ticker: "D", OverallScore: 0.1}}
			So(loadgen.Verify(ranks, board), ShouldBeNil)
		})

		Convey("Then an empty board fails", func() {
			So(errors.Is(loadgen.Verify(nil, nil), loadgen.ErrInconsistent), ShouldBeTrue)
		})

		Convey("Then a wrong tie order fails", func() {
			board[1].Ticker, board[2].Ticker = "C", "A"
			So(errors.Is(loadgen.Verify(nil, board), loadgen.ErrInconsistent), ShouldBeTrue)
		})

		Convey("Then a rank gap fails", func() {
			board[2].Rank = 4
			So(errors.Is(loadgen.Verify(nil, board), loadgen.ErrInconsistent), ShouldBeTrue)
		})

		Convey("Then a per-ticker rank that disagrees fails", func() {
			ranks := []loadgen.Entry{{Rank: 3, Ticker: "A", OverallScore: 0.7}}
			So(errors.Is(loadgen.Verify(ranks, board), loadgen.ErrInconsistent), ShouldBeTrue)
		})

		Convey("Then a ticker above the leader fails", func() {
			ranks := []loadgen.Entry{{Rank: 1, Ticker: "Z", OverallScore: 0.95}}
			So(errors.Is(loadgen.Verify(ranks, board), loadgen.ErrInconsistent), ShouldBeTrue)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		engine, err := scoring.NewEngine(weights.Default())
		So(err, ShouldBeNil)
		svc := service.New(engine, service.WithWorkerCount(4), service.WithQueueSize(1000))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, func() any { return svc.GetStats() }).Register(mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When a load run submits synthetic companies", func() {
			stats, err := loadgen.Run(ctx, &loadgen.Config{
				BaseURL:      srv.URL,
				NumCompanies: 120,
				TopN:         25,
				Workers:      4,
				Timeout:      5 * time.Second,
				Settle:       10 * time.Second,
				Seed:         3,
				Prefix:       "LG",
			})

			Convey("Then everything is accepted, ranked and consistent", func() {
				So(err, ShouldBeNil)
				So(stats.Accepted, ShouldEqual, 120)
				So(stats.RanksRetrieved, ShouldEqual, 120)
				So(stats.LeaderboardEntries, ShouldEqual, 25)
				So(svc.GetStats().Stored, ShouldEqual, 120)
			})
		})

		Convey("When the service is unreachable", func() {
			_, err := loadgen.Run(ctx, &loadgen.Config{
				BaseURL: "http://127.0.0.1:1",
				Workers: 1,
				Timeout: time.Second,
			})
			So(errors.Is(err, loadgen.ErrUnhealthy), ShouldBeTrue)
		})
	})
}
