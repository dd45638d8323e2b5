package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/highscore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRanksAbove(t *testing.T) {
	Convey("Given two score entries", t, func() {
		day1 := model.NewDate(2024, time.March, 1)
		day2 := day1.AddDays(1)
		base := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

		Convey("A higher value ranks above regardless of date", func() {
			a := model.ScoreEntry{Value: 150, Recorded: day2}
			b := model.ScoreEntry{Value: 100, Recorded: day1}
			So(a.RanksAbove(b), ShouldBeTrue)
			So(b.RanksAbove(a), ShouldBeFalse)
		})

		Convey("Equal values are ordered by earliest day", func() {
			a := model.ScoreEntry{Value: 150, Recorded: day1}
			b := model.ScoreEntry{Value: 150, Recorded: day2}
			So(a.RanksAbove(b), ShouldBeTrue)
			So(b.RanksAbove(a), ShouldBeFalse)
		})

		Convey("Same value and day fall back to acceptance time", func() {
			a := model.ScoreEntry{Value: 150, Recorded: day1, AcceptedAt: base}
			b := model.ScoreEntry{Value: 150, Recorded: day1, AcceptedAt: base.Add(time.Second)}
			So(a.RanksAbove(b), ShouldBeTrue)
		})

		Convey("Fully tied entries are ordered by ID", func() {
			lo := uuid.MustParse("00000000-0000-0000-0000-000000000001")
			hi := uuid.MustParse("00000000-0000-0000-0000-000000000002")
			a := model.ScoreEntry{ID: lo, Value: 1, Recorded: day1, AcceptedAt: base}
			b := model.ScoreEntry{ID: hi, Value: 1, Recorded: day1, AcceptedAt: base}
			So(a.RanksAbove(b), ShouldBeTrue)
			So(b.RanksAbove(a), ShouldBeFalse)
			So(a.RanksAbove(a), ShouldBeFalse)
		})
	})
}

func TestCandidateBeats(t *testing.T) {
	Convey("Given a candidate", t, func() {
		c := model.Candidate{Value: 0}

		Convey("It beats a missing entry even with a zero value", func() {
			So(c.Beats(nil), ShouldBeTrue)
			So(model.Candidate{Value: -5}.Beats(nil), ShouldBeTrue)
		})

		Convey("It only beats strictly lower values", func() {
			So(model.Candidate{Value: 10}.Beats(&model.ScoreEntry{Value: 9}), ShouldBeTrue)
			So(model.Candidate{Value: 10}.Beats(&model.ScoreEntry{Value: 10}), ShouldBeFalse)
			So(model.Candidate{Value: 10}.Beats(&model.ScoreEntry{Value: 11}), ShouldBeFalse)
		})
	})
}

func TestDate(t *testing.T) {
	Convey("Given a date", t, func() {
		d := model.DateOf(time.Date(2024, time.July, 9, 23, 59, 0, 0, time.FixedZone("X", 5*3600)))

		Convey("It keeps the calendar day of its location", func() {
			So(d.String(), ShouldEqual, "2024-07-09")
		})

		Convey("It encodes as a JSON string and parses back", func() {
			b, err := json.Marshal(d)
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `"2024-07-09"`)

			var back model.Date
			So(json.Unmarshal(b, &back), ShouldBeNil)
			So(back.Equal(d), ShouldBeTrue)
		})

		Convey("It rejects malformed input", func() {
			_, err := model.ParseDate("09/07/2024")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPlayerValid(t *testing.T) {
	Convey("A player needs a non-nil ID", t, func() {
		So(model.Player{Username: "x"}.Valid(), ShouldBeFalse)
		So(model.Player{ID: uuid.New()}.Valid(), ShouldBeTrue)
	})
}
