package drill

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/highscore/internal/adapters/http/api"
	"github.com/okian/highscore/internal/adapters/http/auth"
	service "github.com/okian/highscore/internal/app"
	"github.com/okian/highscore/internal/domain/catalog"
	"github.com/okian/highscore/internal/domain/model"
	"github.com/okian/highscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const testSecret = "drill-test-secret"

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	loader := catalog.LoaderFunc(func(context.Context) ([]model.ModeRef, []model.ContentRef, error) {
		return []model.ModeRef{{ID: uuid.New(), Slug: "classic", Name: "Classic"}},
			[]model.ContentRef{{ID: uuid.New(), Slug: "animals", Name: "Animals"}}, nil
	})
	svc := service.New(service.WithCatalogLoader(loader))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)

	srv := httptest.NewServer(api.NewServer(svc, auth.New(testSecret), svc).Handler(context.Background()))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL:              baseURL,
		JWTSecret:            testSecret,
		Players:              12,
		SubmissionsPerPlayer: 6,
		MaxScore:             50,
		ModeSlug:             "classic",
		ContentSlug:          "animals",
		Workers:              4,
		Timeout:              5 * time.Second,
		Seed:                 42,
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running highscore service", t, func() {
		srv := startServer(t)
		ctx := context.Background()

		Convey("A drill against it verifies cleanly", func() {
			cfg := testConfig(srv.URL)
			cfg.OutputFile = filepath.Join(t.TempDir(), "out", "subs.json")

			stats, err := Run(ctx, cfg)
			So(err, ShouldBeNil)
			So(stats.Submissions, ShouldEqual, 72)
			So(stats.Failed, ShouldEqual, 0)
			So(stats.Accepted+stats.Capped, ShouldEqual, 72)
			So(stats.Accepted, ShouldBeGreaterThanOrEqualTo, 12)
			So(stats.BestsRetrieved, ShouldEqual, 12)
			So(stats.LeaderboardEntries, ShouldEqual, 12)

			data, err := os.ReadFile(cfg.OutputFile)
			So(err, ShouldBeNil)
			var subs []Submission
			So(json.Unmarshal(data, &subs), ShouldBeNil)
			So(len(subs), ShouldEqual, 72)
		})

		Convey("A slug missing from the catalog stops the drill early", func() {
			cfg := testConfig(srv.URL)
			cfg.ContentSlug = "flags"
			stats, err := Run(ctx, cfg)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "flags")
			So(stats.Submissions, ShouldEqual, 0)
		})

		Convey("Tokens signed with another secret are refused", func() {
			cfg := testConfig(srv.URL)
			cfg.JWTSecret = "wrong"
			_, err := Run(ctx, cfg)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "submissions failed")
		})
	})

	Convey("Given nothing listening", t, func() {
		_, err := Run(context.Background(), testConfig("http://127.0.0.1:1"))
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "health check")
	})
}

func TestGeneratePlan(t *testing.T) {
	Convey("Given a seeded config", t, func() {
		cfg := testConfig("http://unused")

		Convey("The plan holds every submission and the per-player maximum", func() {
			plan, err := generatePlan(context.Background(), cfg)
			So(err, ShouldBeNil)
			So(len(plan.Players), ShouldEqual, 12)
			So(len(plan.Submissions), ShouldEqual, 72)

			best := map[uuid.UUID]int64{}
			for _, s := range plan.Submissions {
				So(s.Score, ShouldBeBetweenOrEqual, 0, 50)
				if v, ok := best[s.Player.ID]; !ok || s.Score > v {
					best[s.Player.ID] = s.Score
				}
			}
			So(best, ShouldResemble, plan.Expected)
		})

		Convey("Every token validates back to its player", func() {
			plan, err := generatePlan(context.Background(), cfg)
			So(err, ShouldBeNil)
			authn := auth.New(testSecret)
			for _, p := range plan.Players {
				got, err := authn.Validate(p.Token)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, p.Player)
			}
		})
	})
}

func TestVerifyLeaderboard(t *testing.T) {
	Convey("Given a plan with two players", t, func() {
		a := &Player{Player: model.Player{ID: uuid.New(), Username: "a"}}
		b := &Player{Player: model.Player{ID: uuid.New(), Username: "b"}}
		plan := &Plan{Players: []*Player{a, b}, Expected: map[uuid.UUID]int64{a.ID: 10, b.ID: 10}}
		day := model.NewDate(2024, time.May, 1)

		Convey("Sequential ranks with equal scores and ordered dates pass", func() {
			rows := []RankedRow{
				{Rank: 1, Score: 10, Date: day, Username: "a"},
				{Rank: 2, Score: 10, Date: day.AddDays(1), Username: "b"},
			}
			So(verifyLeaderboard(plan, rows), ShouldBeNil)
		})

		Convey("Shared ranks are rejected", func() {
			rows := []RankedRow{
				{Rank: 1, Score: 10, Date: day, Username: "a"},
				{Rank: 1, Score: 10, Date: day, Username: "b"},
			}
			So(errors.Is(verifyLeaderboard(plan, rows), ErrMismatch), ShouldBeTrue)
		})

		Convey("A later date ahead of an earlier one on a tie is rejected", func() {
			rows := []RankedRow{
				{Rank: 1, Score: 10, Date: day.AddDays(1), Username: "a"},
				{Rank: 2, Score: 10, Date: day, Username: "b"},
			}
			So(errors.Is(verifyLeaderboard(plan, rows), ErrMismatch), ShouldBeTrue)
		})

		Convey("Ascending scores are rejected", func() {
			plan.Expected[b.ID] = 11
			rows := []RankedRow{
				{Rank: 1, Score: 10, Date: day, Username: "a"},
				{Rank: 2, Score: 11, Date: day, Username: "b"},
			}
			So(errors.Is(verifyLeaderboard(plan, rows), ErrMismatch), ShouldBeTrue)
		})

		Convey("A missing player is rejected", func() {
			rows := []RankedRow{{Rank: 1, Score: 10, Date: day, Username: "a"}}
			err := verifyLeaderboard(plan, rows)
			So(errors.Is(err, ErrMismatch), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "b missing")
		})
	})
}

func TestVerifyResults(t *testing.T) {
	Convey("Given a one-player plan", t, func() {
		p := &Player{Player: model.Player{ID: uuid.New(), Username: "solo"}}
		plan := &Plan{Players: []*Player{p}, Expected: map[uuid.UUID]int64{p.ID: 7}}
		day := model.NewDate(2024, time.May, 1)
		rows := []RankedRow{{Rank: 1, Score: 7, Date: day, Username: "solo"}}
		cfg := testConfig("http://unused")

		Convey("A matching best passes", func() {
			v := int64(7)
			bests := map[uuid.UUID]PersonalBest{p.ID: {Found: true, Score: &v}}
			So(verifyResults(context.Background(), cfg, plan, bests, rows), ShouldBeNil)
		})

		Convey("A no-entry best fails", func() {
			bests := map[uuid.UUID]PersonalBest{p.ID: {}}
			So(errors.Is(verifyResults(context.Background(), cfg, plan, bests, rows), ErrMismatch), ShouldBeTrue)
		})

		Convey("A wrong best fails", func() {
			v := int64(6)
			bests := map[uuid.UUID]PersonalBest{p.ID: {Found: true, Score: &v}}
			err := verifyResults(context.Background(), cfg, plan, bests, rows)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "want 7")
		})
	})
}

func TestConfigValidate(t *testing.T) {
	Convey("Given a valid config", t, func() {
		cfg := testConfig("http://localhost")
		So(cfg.Validate(), ShouldBeNil)

		Convey("Zero workers is rejected", func() {
			cfg.Workers = 0
			So(errors.Is(cfg.Validate(), ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("An empty slug is rejected", func() {
			cfg.ModeSlug = ""
			So(errors.Is(cfg.Validate(), ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestNewApp(t *testing.T) {
	Convey("The CLI exposes the drill flags", t, func() {
		app := NewApp()
		names := map[string]bool{}
		for _, f := range app.Flags {
			for _, n := range f.Names() {
				names[n] = true
			}
		}
		for _, want := range []string{"url", "jwt-secret", "players", "per-player", "mode", "content", "modifier", "workers", "seed"} {
			So(names[want], ShouldBeTrue)
		}
	})
}
