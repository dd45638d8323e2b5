//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // "pgx" driver for the wait strategy
	"github.com/okian/highscore/internal/adapters/postgres"
	"github.com/okian/highscore/internal/domain/catalog"
	"github.com/okian/highscore/internal/domain/model"
	"github.com/okian/highscore/internal/domain/ranking"
	"github.com/okian/highscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
)

const (
	dbName     = "highscore"
	dbUser     = "highscore"
	dbPassword = "highscore"
)

func startPostgres(t *testing.T) *bun.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(dbName),
		tcpostgres.WithUsername(dbUser),
		tcpostgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
				return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, host, port.Port(), dbName)
			}).WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	q := u.Query()
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()

	log := logger.Discard()
	db, err := postgres.Open(ctx, u.String(), log)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := postgres.Migrate(ctx, db, log); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestPostgresStore(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	mode := model.ModeRef{ID: uuid.New(), Slug: "classic", Name: "Classic"}
	content := model.ContentRef{ID: uuid.New(), Slug: "level-1", Name: "Level 1"}
	if err := postgres.SeedCatalog(ctx, db, []model.ModeRef{mode}, []model.ContentRef{content}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	Convey("Given a postgres store with a seeded catalog", t, func() {
		_, err := db.NewTruncateTable().TableExpr("scores").Exec(ctx)
		So(err, ShouldBeNil)

		store := postgres.NewStore(db)
		game := model.GameKey{ModeID: mode.ID, ContentID: content.ID, Modifier: 0}
		day1 := model.NewDate(2024, time.January, 1)
		day2 := day1.AddDays(1)

		Convey("The catalog loads back from the database", func() {
			cat := catalog.New(catalog.WithLoader(postgres.NewCatalogLoader(db)))
			So(cat.Refresh(ctx), ShouldBeNil)
			got, ok := cat.Snapshot().ModeBySlug("classic")
			So(ok, ShouldBeTrue)
			So(got.ID, ShouldEqual, mode.ID)
		})

		Convey("An empty key has no entry", func() {
			_, found, err := store.GetBest(ctx, model.NewScoreKey(uuid.New(), game))
			So(err, ShouldBeNil)
			So(found, ShouldBeFalse)
		})

		Convey("Personal bests only move up", func() {
			key := model.NewScoreKey(uuid.New(), game)

			out, err := store.ReplaceIfHigher(ctx, key, model.Candidate{Value: 100, Recorded: day1, Username: "alice"})
			So(err, ShouldBeNil)
			So(out.Accepted, ShouldBeTrue)

			out, err = store.ReplaceIfHigher(ctx, key, model.Candidate{Value: 90, Recorded: day2, Username: "alice"})
			So(err, ShouldBeNil)
			So(out.Accepted, ShouldBeFalse)
			So(out.Value, ShouldEqual, 100)
			So(out.Entry.Recorded.Equal(day1), ShouldBeTrue)

			out, err = store.ReplaceIfHigher(ctx, key, model.Candidate{Value: 150, Recorded: day2, Username: "alice"})
			So(err, ShouldBeNil)
			So(out.Accepted, ShouldBeTrue)

			got, found, err := store.GetBest(ctx, key)
			So(err, ShouldBeNil)
			So(found, ShouldBeTrue)
			So(got.Value, ShouldEqual, 150)
			So(got.Recorded.String(), ShouldEqual, "2024-01-02")
			So(got.Username, ShouldEqual, "alice")

			n, err := store.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})

		Convey("Concurrent writers on one key leave the maximum", func() {
			key := model.NewScoreKey(uuid.New(), game)
			var wg sync.WaitGroup
			errs := make(chan error, 40)
			for v := int64(1); v <= 40; v++ {
				wg.Add(1)
				go func(v int64) {
					defer wg.Done()
					if _, err := store.ReplaceIfHigher(ctx, key, model.Candidate{Value: v, Recorded: day1}); err != nil {
						errs <- err
					}
				}(v)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				So(err, ShouldBeNil)
			}

			got, _, err := store.GetBest(ctx, key)
			So(err, ShouldBeNil)
			So(got.Value, ShouldEqual, 40)
			list, err := store.ListByGame(ctx, game)
			So(err, ShouldBeNil)
			So(len(list), ShouldEqual, 1)
		})

		Convey("The leaderboard is ranked from stored entries", func() {
			put := func(name string, v int64, d model.Date) {
				_, err := store.ReplaceIfHigher(ctx, model.NewScoreKey(uuid.New(), game), model.Candidate{Value: v, Recorded: d, Username: name})
				So(err, ShouldBeNil)
			}
			put("A", 100, day1)
			put("B", 150, day2)
			put("C", 150, day1)

			snap, err := catalog.NewSnapshot([]model.ModeRef{mode}, []model.ContentRef{content})
			So(err, ShouldBeNil)
			rows, err := ranking.New(store, catalog.New(catalog.WithSnapshot(snap))).Rank(ctx, game)
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 3)
			So(rows[0].Username, ShouldEqual, "C")
			So(rows[1].Username, ShouldEqual, "B")
			So(rows[2].Username, ShouldEqual, "A")
			So(rows[2].Rank, ShouldEqual, 3)
		})
	})
}
