package model_test

import (
	"testing"
	"time"

	"github.com/okian/passtrack/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScoreRange(t *testing.T) {
	Convey("Given the default passing scale", t, func() {
		r := model.DefaultScoreRange

		Convey("Then it contains its bounds and nothing outside", func() {
			So(r.Contains(0), ShouldBeTrue)
			So(r.Contains(3), ShouldBeTrue)
			So(r.Contains(-1), ShouldBeFalse)
			So(r.Contains(4), ShouldBeFalse)
		})

		Convey("Then it enumerates every score", func() {
			So(r.Scores(), ShouldResemble, []int{0, 1, 2, 3})
		})
	})

	Convey("Given an inverted range", t, func() {
		So(model.ScoreRange{Min: 5, Max: 1}.Valid(), ShouldBeFalse)
		So(model.ScoreRange{Min: 5, Max: 1}.Scores(), ShouldBeEmpty)
	})

	Convey("Given a single-score range", t, func() {
		r := model.ScoreRange{Min: 1, Max: 1}
		So(r.Valid(), ShouldBeTrue)
		So(r.Scores(), ShouldResemble, []int{1})
	})
}

func TestTagsMask(t *testing.T) {
	Convey("Given tags for every field", t, func() {
		tags := model.Tags{Zone: "z1", Contact: "platform", Body: "left", Serve: "float"}

		Convey("When only zone and serve are enabled", func() {
			masked := tags.Mask(model.Fields{Zone: true, Serve: true})

			Convey("Then the disabled fields are cleared", func() {
				So(masked, ShouldResemble, model.Tags{Zone: "z1", Serve: "float"})
				So(masked.Get(model.FieldContact), ShouldEqual, "")
				So(masked.Get(model.FieldZone), ShouldEqual, "z1")
			})
		})
	})
}

func TestSessionHelpers(t *testing.T) {
	Convey("Given a completed session", t, func() {
		start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		end := start.Add(45 * time.Minute)
		s := model.Session{
			ID:        "s1",
			PlayerIDs: []string{"b", "a"},
			StartedAt: start,
			EndedAt:   &end,
			Passes: []model.Pass{
				{ID: "p1", PlayerID: "a", Ordinal: 1, Score: 3},
				{ID: "p2", PlayerID: "b", Ordinal: 2, Score: 1},
				{ID: "p3", PlayerID: "a", Ordinal: 3, Score: 2},
			},
		}

		Convey("Then derived accessors reflect its content", func() {
			So(s.Active(), ShouldBeFalse)
			So(s.Includes("a"), ShouldBeTrue)
			So(s.Includes("c"), ShouldBeFalse)
			So(s.Duration(end.Add(time.Hour)), ShouldEqual, 45*time.Minute)
			So(len(s.PassesBy("a")), ShouldEqual, 2)
		})

		Convey("Then passers keep snapshot order and skip removed players", func() {
			team := model.Team{Players: []model.Player{{ID: "a", Name: "Ann"}, {ID: "b", Name: "Bo"}}}
			passers := s.Passers(team)
			So(len(passers), ShouldEqual, 2)
			So(passers[0].Name, ShouldEqual, "Bo")

			team.Players = team.Players[:1]
			So(len(s.Passers(team)), ShouldEqual, 1)
		})

		Convey("Then a clone shares no memory with the original", func() {
			c := s.Clone()
			c.Passes[0].Score = 0
			c.PlayerIDs[0] = "z"
			*c.EndedAt = start
			So(s.Passes[0].Score, ShouldEqual, 3)
			So(s.PlayerIDs[0], ShouldEqual, "b")
			So(*s.EndedAt, ShouldEqual, end)
		})
	})
}
