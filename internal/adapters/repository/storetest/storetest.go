// Package storetest holds a conformance suite shared by every repository
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/passtrack/internal/adapters/repository"
	"github.com/okian/passtrack/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// Backend is a store that also keeps teams.
type Backend interface {
	repository.Store
	repository.TeamStore
}

var base = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

// Session builds a completed session starting offset after a fixed base time.
// Times are millisecond precision in UTC so every backend round-trips them.
func Session(id string, offset time.Duration, scores ...int) model.Session {
	start := base.Add(offset)
	end := start.Add(30 * time.Minute)
	s := model.Session{
		ID:        id,
		TeamID:    "t1",
		TeamName:  "Varsity",
		PlayerIDs: []string{"A", "B"},
		StartedAt: start,
		EndedAt:   &end,
		Fields:    model.Fields{Zone: true, Serve: true},
		Threshold: 2,
	}
	for i, score := range scores {
		player := "A"
		if i%2 == 1 {
			player = "B"
		}
		s.Passes = append(s.Passes, model.Pass{
			ID:        id + "-p" + string(rune('a'+i)),
			PlayerID:  player,
			Ordinal:   i + 1,
			Score:     score,
			Tags:      model.Tags{Zone: "5", Serve: "float"},
			CreatedAt: start.Add(time.Duration(i+1) * time.Second),
		})
	}
	return s
}

// Team builds a two-player team.
func Team(id, name string) model.Team {
	return model.Team{
		ID:        id,
		Name:      name,
		CreatedAt: base,
		Threshold: 2,
		Venue:     model.VenueIndoor,
		Players: []model.Player{
			{ID: "A", Name: "Ann", Number: 1, Position: "libero", Active: true},
			{ID: "B", Name: "Bea", Number: 7, Active: false},
		},
	}
}

// Run exercises newBackend against the repository contracts. newBackend must
// return an empty store.
func Run(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Helper()

	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		store := newBackend(t)

		Convey("FetchAll returns nothing", func() {
			all, err := store.FetchAll(ctx)
			So(err, ShouldBeNil)
			So(all, ShouldBeEmpty)
		})

		Convey("Get and Delete report not found", func() {
			_, err := store.Get(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(store.Delete(ctx, "missing"), repository.ErrNotFound), ShouldBeTrue)
			_, err = store.Team(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("A session without an id is rejected as a persistence failure", func() {
			err := store.Save(ctx, model.Session{})
			So(errors.Is(err, repository.ErrPersistence), ShouldBeTrue)
		})

		Convey("When a session is saved", func() {
			want := Session("s1", 0, 3, 1, 2)
			So(store.Save(ctx, want), ShouldBeNil)

			Convey("It round-trips with its passes in ordinal order", func() {
				got, err := store.Get(ctx, "s1")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, want)
			})

			Convey("Mutating the caller's copy does not leak into the store", func() {
				want.Passes[0].Score = 0
				got, err := store.Get(ctx, "s1")
				So(err, ShouldBeNil)
				So(got.Passes[0].Score, ShouldEqual, 3)
			})

			Convey("Saving again replaces the passes", func() {
				replaced := Session("s1", 0, 0)
				So(store.Save(ctx, replaced), ShouldBeNil)
				got, err := store.Get(ctx, "s1")
				So(err, ShouldBeNil)
				So(got.Passes, ShouldHaveLength, 1)
				So(got.Passes[0].Score, ShouldEqual, 0)
			})

			Convey("Deleting it removes the session and its passes", func() {
				So(store.Delete(ctx, "s1"), ShouldBeNil)
				_, err := store.Get(ctx, "s1")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				all, err := store.FetchAll(ctx)
				So(err, ShouldBeNil)
				So(all, ShouldBeEmpty)

				// A new session under the same id starts clean.
				So(store.Save(ctx, Session("s1", 0)), ShouldBeNil)
				got, err := store.Get(ctx, "s1")
				So(err, ShouldBeNil)
				So(got.Passes, ShouldBeEmpty)
			})
		})

		Convey("When several sessions are saved out of order", func() {
			So(store.Save(ctx, Session("late", 2*time.Hour, 3)), ShouldBeNil)
			So(store.Save(ctx, Session("early", 0, 1)), ShouldBeNil)
			So(store.Save(ctx, Session("mid", time.Hour, 2, 2)), ShouldBeNil)

			Convey("FetchAll orders them by start time", func() {
				all, err := store.FetchAll(ctx)
				So(err, ShouldBeNil)
				So(ids(all), ShouldResemble, []string{"early", "mid", "late"})
			})

			Convey("FetchWhere applies the predicate", func() {
				got, err := store.FetchWhere(ctx, func(s model.Session) bool { return len(s.Passes) == 1 })
				So(err, ShouldBeNil)
				So(ids(got), ShouldResemble, []string{"early", "late"})
			})
		})

		Convey("An active session keeps a nil end time", func() {
			active := Session("live", 0, 2)
			active.EndedAt = nil
			So(store.Save(ctx, active), ShouldBeNil)
			got, err := store.Get(ctx, "live")
			So(err, ShouldBeNil)
			So(got.Active(), ShouldBeTrue)
		})

		Convey("Teams round-trip and list by name", func() {
			So(store.SaveTeam(ctx, Team("t2", "Zebras")), ShouldBeNil)
			So(store.SaveTeam(ctx, Team("t1", "Aces")), ShouldBeNil)

			got, err := store.Team(ctx, "t1")
			So(err, ShouldBeNil)
			So(got, ShouldResemble, Team("t1", "Aces"))

			teams, err := store.Teams(ctx)
			So(err, ShouldBeNil)
			So(teams, ShouldHaveLength, 2)
			So(teams[0].Name, ShouldEqual, "Aces")
			So(teams[1].Name, ShouldEqual, "Zebras")

			Convey("Saving a team again replaces its roster", func() {
				edited := Team("t1", "Aces")
				edited.Players = edited.Players[:1]
				So(store.SaveTeam(ctx, edited), ShouldBeNil)
				got, err := store.Team(ctx, "t1")
				So(err, ShouldBeNil)
				So(got.Players, ShouldHaveLength, 1)
			})
		})
	})
}

func ids(sessions []model.Session) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.ID)
	}
	return out
}
