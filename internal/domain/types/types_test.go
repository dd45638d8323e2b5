package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/highscore/internal/domain/model"
	types "github.com/okian/highscore/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPersonalBest(t *testing.T) {
	Convey("Given a personal best", t, func() {
		Convey("When nothing was recorded", func() {
			b, err := json.Marshal(types.NoEntry())

			Convey("Then only the found flag is encoded", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, `{"found":false}`)
			})
		})

		Convey("When built from an entry", func() {
			id := uuid.MustParse("7a0c3c1e-5b7c-4a53-9d3c-2f1f5d0c9a11")
			e := model.ScoreEntry{
				ID:       id,
				Key:      model.ScoreKey{GameKey: model.GameKey{Modifier: 0}},
				Value:    0,
				Recorded: model.NewDate(2024, time.January, 2),
			}
			pb := types.BestFrom(e, "Classic", "Level 1")
			b, err := json.Marshal(pb)

			Convey("Then zero score and modifier are still present", func() {
				So(err, ShouldBeNil)
				So(pb.Found, ShouldBeTrue)
				So(string(b), ShouldContainSubstring, `"score":0`)
				So(string(b), ShouldContainSubstring, `"game_modifier":0`)
				So(string(b), ShouldContainSubstring, `"date":"2024-01-02"`)
				So(string(b), ShouldContainSubstring, `"game_mode":"Classic"`)
			})
		})
	})
}

func TestRankedRowShape(t *testing.T) {
	Convey("A ranked row uses the public field names", t, func() {
		row := types.RankedRow{Rank: 1, Score: 150, Username: "carol", GameMode: "Classic", GameContent: "Level 1", GameModifier: 2}
		b, err := json.Marshal(row)
		So(err, ShouldBeNil)
		for _, key := range []string{`"id"`, `"rank":1`, `"score":150`, `"date"`, `"username":"carol"`, `"game_mode"`, `"game_content"`, `"game_modifier":2`} {
			So(string(b), ShouldContainSubstring, key)
		}
	})
}
