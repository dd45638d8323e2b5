package submission_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/highscore/internal/adapters/repository"
	"github.com/okian/highscore/internal/domain/catalog"
	"github.com/okian/highscore/internal/domain/model"
	"github.com/okian/highscore/internal/domain/submission"
	. "github.com/smartystreets/goconvey/convey"
)

// countingSource records how often the snapshot is read.
type countingSource struct {
	snap  *catalog.Snapshot
	reads atomic.Int32
}

func (s *countingSource) Snapshot() *catalog.Snapshot {
	s.reads.Add(1)
	return s.snap
}

// flakyStore fails the next n writes with a storage failure before delegating.
type flakyStore struct {
	*repository.MemoryStore
	failures atomic.Int32
}

func (f *flakyStore) ReplaceIfHigher(ctx context.Context, key model.ScoreKey, c model.Candidate) (model.Outcome, error) {
	if f.failures.Add(-1) >= 0 {
		return model.Outcome{}, fmt.Errorf("%w: connection reset", repository.ErrStorageFailure)
	}
	return f.MemoryStore.ReplaceIfHigher(ctx, key, c)
}

func newFixture(t *testing.T) (*repository.MemoryStore, *countingSource) {
	t.Helper()
	snap, err := catalog.NewSnapshot(
		[]model.ModeRef{{ID: uuid.New(), Slug: "classic", Name: "Classic"}},
		[]model.ContentRef{{ID: uuid.New(), Slug: "level-1", Name: "Level 1"}},
	)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	store := repository.NewMemoryStore(context.Background())
	t.Cleanup(func() { _ = store.Close() })
	return store, &countingSource{snap: snap}
}

func TestSubmit(t *testing.T) {
	Convey("Given a coordinator over a memory store", t, func() {
		ctx := context.Background()
		store, src := newFixture(t)
		now := time.Date(2024, time.June, 1, 23, 30, 0, 0, time.UTC)
		coord := submission.New(store, src, submission.WithClock(func() time.Time { return now }))
		alice := model.Player{ID: uuid.New(), Username: "alice"}
		req := submission.Request{Player: alice, ModeSlug: "classic", ContentSlug: "level-1", Modifier: 0}

		Convey("The first submission is always accepted", func() {
			req.Value = 0
			best, err := coord.Submit(ctx, req)
			So(err, ShouldBeNil)
			So(best, ShouldEqual, 0)

			Convey("And a lower score is capped at the personal best", func() {
				req.Value = -3
				best, err := coord.Submit(ctx, req)
				So(err, ShouldBeNil)
				So(best, ShouldEqual, 0)
			})
		})

		Convey("Scores only ever go up", func() {
			var got []int64
			for _, v := range []int64{100, 90, 150, 120} {
				req.Value = v
				best, err := coord.Submit(ctx, req)
				So(err, ShouldBeNil)
				got = append(got, best)
			}
			So(got, ShouldResemble, []int64{100, 100, 150, 150})
		})

		Convey("Apply reports whether the best was replaced", func() {
			req.Value = 10
			out, err := coord.Apply(ctx, req)
			So(err, ShouldBeNil)
			So(out.Accepted, ShouldBeTrue)

			req.Value = 5
			out, err = coord.Apply(ctx, req)
			So(err, ShouldBeNil)
			So(out.Accepted, ShouldBeFalse)
			So(out.Value, ShouldEqual, 10)
		})

		Convey("The entry is stamped with today's date and the username", func() {
			req.Value = 7
			_, err := coord.Submit(ctx, req)
			So(err, ShouldBeNil)

			pb, err := coord.PersonalBest(ctx, alice, "classic", "level-1", 0)
			So(err, ShouldBeNil)
			So(pb.Found, ShouldBeTrue)
			So(pb.Date.String(), ShouldEqual, "2024-06-01")
			So(pb.GameMode, ShouldEqual, "Classic")

			list, _ := store.ListByGame(ctx, mustGame(coord).Key)
			So(list[0].Username, ShouldEqual, "alice")
		})

		Convey("The recorded day follows the configured location", func() {
			tokyo := time.FixedZone("JST", 9*3600)
			local := submission.New(store, src,
				submission.WithClock(func() time.Time { return now }),
				submission.WithLocation(tokyo))
			So(local.Today().String(), ShouldEqual, "2024-06-02")
		})

		Convey("An explicit day on the request wins over the clock", func() {
			req.Value = 1
			req.Today = model.NewDate(2023, time.December, 31)
			_, err := coord.Submit(ctx, req)
			So(err, ShouldBeNil)
			pb, _ := coord.PersonalBest(ctx, alice, "classic", "level-1", 0)
			So(pb.Date.String(), ShouldEqual, "2023-12-31")
		})

		Convey("An unknown slug is rejected without touching the store", func() {
			req.Value = 50
			req.ModeSlug = "missing"
			_, err := coord.Submit(ctx, req)
			So(errors.Is(err, submission.ErrUnknownReference), ShouldBeTrue)

			req.ModeSlug = "classic"
			req.ContentSlug = "missing"
			_, err = coord.Submit(ctx, req)
			So(errors.Is(err, submission.ErrUnknownReference), ShouldBeTrue)

			n, _ := store.Count(ctx)
			So(n, ShouldEqual, 0)
		})

		Convey("A missing identity fails before the catalog is consulted", func() {
			req.Player = model.Player{Username: "ghost"}
			req.Value = 10
			_, err := coord.Submit(ctx, req)
			So(errors.Is(err, submission.ErrUnauthenticated), ShouldBeTrue)
			So(src.reads.Load(), ShouldEqual, 0)
			n, _ := store.Count(ctx)
			So(n, ShouldEqual, 0)
		})

		Convey("Different modifiers are separate personal bests", func() {
			req.Value = 100
			_, _ = coord.Submit(ctx, req)
			req.Modifier = 2
			req.Value = 5
			best, err := coord.Submit(ctx, req)
			So(err, ShouldBeNil)
			So(best, ShouldEqual, 5)
		})

		Convey("Concurrent submissions keep the maximum", func() {
			var wg sync.WaitGroup
			for v := int64(1); v <= 64; v++ {
				wg.Add(1)
				go func(v int64) {
					defer wg.Done()
					r := req
					r.Value = v
					_, _ = coord.Submit(ctx, r)
				}(v)
			}
			wg.Wait()
			pb, err := coord.PersonalBest(ctx, alice, "classic", "level-1", 0)
			So(err, ShouldBeNil)
			So(*pb.Score, ShouldEqual, 64)
		})
	})
}

func TestSubmitStorageFailure(t *testing.T) {
	Convey("Given a store whose first write fails", t, func() {
		ctx := context.Background()
		mem, src := newFixture(t)
		flaky := &flakyStore{MemoryStore: mem}
		flaky.failures.Store(1)
		coord := submission.New(flaky, src)
		req := submission.Request{Player: model.Player{ID: uuid.New()}, ModeSlug: "classic", ContentSlug: "level-1", Value: 80}

		Convey("The failure surfaces as a storage failure and writes nothing", func() {
			_, err := coord.Submit(ctx, req)
			So(errors.Is(err, repository.ErrStorageFailure), ShouldBeTrue)
			n, _ := mem.Count(ctx)
			So(n, ShouldEqual, 0)

			Convey("Retrying the same submission succeeds once", func() {
				best, err := coord.Submit(ctx, req)
				So(err, ShouldBeNil)
				So(best, ShouldEqual, 80)

				best, err = coord.Submit(ctx, req)
				So(err, ShouldBeNil)
				So(best, ShouldEqual, 80)
				n, _ := mem.Count(ctx)
				So(n, ShouldEqual, 1)
			})
		})
	})
}

func TestPersonalBest(t *testing.T) {
	Convey("Given a coordinator with no scores", t, func() {
		ctx := context.Background()
		store, src := newFixture(t)
		coord := submission.New(store, src)
		bob := model.Player{ID: uuid.New(), Username: "bob"}

		Convey("A player without scores gets an explicit no-entry result", func() {
			pb, err := coord.PersonalBest(ctx, bob, "classic", "level-1", 0)
			So(err, ShouldBeNil)
			So(pb.Found, ShouldBeFalse)
			So(pb.Score, ShouldBeNil)
		})

		Convey("Unknown slugs are reported", func() {
			_, err := coord.PersonalBest(ctx, bob, "classic", "nope", 0)
			So(errors.Is(err, submission.ErrUnknownReference), ShouldBeTrue)
		})

		Convey("A missing identity is reported", func() {
			_, err := coord.PersonalBest(ctx, model.Player{}, "classic", "level-1", 0)
			So(errors.Is(err, submission.ErrUnauthenticated), ShouldBeTrue)
		})
	})
}

func mustGame(c *submission.Coordinator) submission.Game {
	g, err := c.ResolveGame("classic", "level-1", 0)
	if err != nil {
		panic(err)
	}
	return g
}
