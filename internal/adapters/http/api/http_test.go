package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/passtrack/internal/adapters/http/api"
	"github.com/okian/passtrack/internal/adapters/repository"
	service "github.com/okian/passtrack/internal/app"
	"github.com/okian/passtrack/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// brokenStore fails every session read and write.
type brokenStore struct {
	*repository.MemStore
}

var errDisk = errors.New("disk unavailable")

func (brokenStore) Save(context.Context, model.Session) error {
	return repository.Persistence("save session", errDisk)
}

func (brokenStore) FetchAll(context.Context) ([]model.Session, error) {
	return nil, repository.Persistence("fetch sessions", errDisk)
}

func newMux(store repository.Store, teams repository.TeamStore) *http.ServeMux {
	seq := 0
	svc := service.New(store, teams,
		service.WithClock(func() time.Time { return time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC) }),
		service.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var resp struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.Code
}

const teamBody = `{"id":"t1","name":"Varsity","players":[
	{"id":"A","name":"Ann","number":1},
	{"id":"B","name":"Bea","number":2},
	{"id":"C","name":"Cal","number":3,"active":false}]}`

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		store := repository.NewMemStore()
		mux := newMux(store, store)

		Convey("Health serves the metrics registry", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Stats reports the idle service", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["active"], ShouldEqual, false)
		})

		Convey("Unsupported methods are rejected", func() {
			w := do(mux, http.MethodPost, "/teams", teamBody)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestTeamsAPI(t *testing.T) {
	Convey("Given an empty API", t, func() {
		store := repository.NewMemStore()
		mux := newMux(store, store)

		Convey("When a team is put", func() {
			w := do(mux, http.MethodPut, "/teams", teamBody)
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then it can be read back with defaults applied", func() {
				w := do(mux, http.MethodGet, "/teams/t1", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var team model.Team
				So(json.Unmarshal(w.Body.Bytes(), &team), ShouldBeNil)
				So(team.Threshold, ShouldEqual, 2)
				So(team.Players, ShouldHaveLength, 3)
				So(team.Players[0].Active, ShouldBeTrue)
				So(team.Players[2].Active, ShouldBeFalse)

				w = do(mux, http.MethodGet, "/teams", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "Varsity")
			})
		})

		Convey("An unknown team is not found", func() {
			w := do(mux, http.MethodGet, "/teams/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "not_found")
		})

		Convey("Validation failures are bad requests", func() {
			w := do(mux, http.MethodPut, "/teams", `{"name":""}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "bad_request")

			w = do(mux, http.MethodPut, "/teams", `{"name":"X","venue":"moon"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)

			w = do(mux, http.MethodPut, "/teams", `{"name":"X","unknown":1}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)

			w = do(mux, http.MethodPut, "/teams", `{"name":"X","threshold":7}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "invalid_threshold")
		})
	})
}

func TestSessionsAPI(t *testing.T) {
	Convey("Given a team", t, func() {
		store := repository.NewMemStore()
		mux := newMux(store, store)
		So(do(mux, http.MethodPut, "/teams", teamBody).Code, ShouldEqual, http.StatusOK)

		Convey("Operations on an idle tracker conflict", func() {
			w := do(mux, http.MethodGet, "/sessions/active", "")
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(errorCode(w), ShouldEqual, "not_active")

			w = do(mux, http.MethodPost, "/sessions/active/passes", `{"player_id":"A","score":1}`)
			So(errorCode(w), ShouldEqual, "not_active")

			w = do(mux, http.MethodPost, "/sessions/active/complete", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"completed":false`)
		})

		Convey("An empty roster is rejected", func() {
			w := do(mux, http.MethodPost, "/sessions", `{"team_id":"t1","player_ids":[]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "invalid_roster")
		})

		Convey("When a session is started", func() {
			w := do(mux, http.MethodPost, "/sessions", `{"team_id":"t1","player_ids":["A","B"],"fields":{"zone":true}}`)
			So(w.Code, ShouldEqual, http.StatusCreated)

			Convey("Passes are logged and reflected in the live view", func() {
				w := do(mux, http.MethodPost, "/sessions/active/passes", `{"player_id":"A","score":3,"tags":{"zone":"1"}}`)
				So(w.Code, ShouldEqual, http.StatusCreated)
				w = do(mux, http.MethodPost, "/sessions/active/passes", `{"player_id":"B","score":1}`)
				So(w.Code, ShouldEqual, http.StatusCreated)

				w = do(mux, http.MethodGet, "/sessions/active", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var view service.ActiveView
				So(json.Unmarshal(w.Body.Bytes(), &view), ShouldBeNil)
				So(view.Team.Count, ShouldEqual, 2)
				So(view.Team.Mean, ShouldEqual, 2.0)
			})

			Convey("Out of range scores and missing scores are rejected", func() {
				w := do(mux, http.MethodPost, "/sessions/active/passes", `{"player_id":"A","score":4}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "invalid_score")

				w = do(mux, http.MethodPost, "/sessions/active/passes", `{"player_id":"A"}`)
				So(errorCode(w), ShouldEqual, "bad_request")

				w = do(mux, http.MethodPost, "/sessions/active/passes", `{"player_id":"C","score":1}`)
				So(errorCode(w), ShouldEqual, "unknown_player")
			})

			Convey("A repeated request id answers with the original pass", func() {
				body := `{"request_id":"r1","player_id":"A","score":2}`
				first := do(mux, http.MethodPost, "/sessions/active/passes", body)
				So(first.Code, ShouldEqual, http.StatusCreated)
				again := do(mux, http.MethodPost, "/sessions/active/passes", body)
				So(again.Code, ShouldEqual, http.StatusOK)
				So(again.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})

			Convey("Undo on an empty log conflicts", func() {
				w := do(mux, http.MethodPost, "/sessions/active/undo", "")
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(w), ShouldEqual, "empty_log")
			})

			Convey("Completed sessions appear in history and can be deleted", func() {
				So(do(mux, http.MethodPost, "/sessions/active/passes", `{"player_id":"A","score":3,"tags":{"zone":"1"}}`).Code, ShouldEqual, http.StatusCreated)
				So(do(mux, http.MethodPost, "/sessions/active/passes", `{"player_id":"B","score":2,"tags":{"zone":"5"}}`).Code, ShouldEqual, http.StatusCreated)
				w := do(mux, http.MethodPost, "/sessions/active/complete", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var done struct {
					Completed bool          `json:"completed"`
					Session   model.Session `json:"session"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &done), ShouldBeNil)
				So(done.Completed, ShouldBeTrue)

				w = do(mux, http.MethodGet, "/sessions?search=VARSITY&sort=average_desc", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, done.Session.ID)

				w = do(mux, http.MethodGet, "/sessions?min_average=2.6", "")
				So(w.Body.String(), ShouldEqual, "[]\n")

				w = do(mux, http.MethodGet, "/sessions/"+done.Session.ID, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"passers"`)

				w = do(mux, http.MethodGet, "/breakdown?field=zone", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"recorded":2`)

				w = do(mux, http.MethodGet, "/compare?players=A,B", "")
				So(w.Code, ShouldEqual, http.StatusOK)

				w = do(mux, http.MethodGet, "/trend?player_id=A", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, done.Session.ID)

				So(do(mux, http.MethodDelete, "/sessions/"+done.Session.ID, "").Code, ShouldEqual, http.StatusNoContent)
				So(do(mux, http.MethodGet, "/sessions/"+done.Session.ID, "").Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestAnalyticsAPIValidation(t *testing.T) {
	Convey("Given an API without history", t, func() {
		store := repository.NewMemStore()
		mux := newMux(store, store)

		Convey("Query parameters are validated", func() {
			So(errorCode(do(mux, http.MethodGet, "/compare?players=A", "")), ShouldEqual, "invalid_comparison")
			So(errorCode(do(mux, http.MethodGet, "/compare?players=A,B,C,D,E", "")), ShouldEqual, "invalid_comparison")
			So(errorCode(do(mux, http.MethodGet, "/breakdown", "")), ShouldEqual, "bad_request")
			So(errorCode(do(mux, http.MethodGet, "/breakdown?field=color", "")), ShouldEqual, "invalid_filter")
			So(errorCode(do(mux, http.MethodGet, "/trend", "")), ShouldEqual, "bad_request")
			So(errorCode(do(mux, http.MethodGet, "/sessions?sort=random", "")), ShouldEqual, "invalid_filter")
			So(errorCode(do(mux, http.MethodGet, "/sessions?window=fortnight", "")), ShouldEqual, "invalid_filter")
			So(errorCode(do(mux, http.MethodGet, "/sessions?min_average=3&max_average=1", "")), ShouldEqual, "invalid_filter")
			So(errorCode(do(mux, http.MethodGet, "/sessions?from=yesterday", "")), ShouldEqual, "bad_request")
			So(errorCode(do(mux, http.MethodGet, "/sessions?from=2026-05-02&to=2026-05-01", "")), ShouldEqual, "invalid_filter")
		})

		Convey("Explicit bounds only combine with the custom window", func() {
			So(errorCode(do(mux, http.MethodGet, "/sessions?window=7d&from=2026-05-01", "")), ShouldEqual, "invalid_filter")
			So(errorCode(do(mux, http.MethodGet, "/sessions?window=all&to=2026-05-01", "")), ShouldEqual, "invalid_filter")
			So(do(mux, http.MethodGet, "/sessions?window=custom&from=2026-05-01&to=2026-05-02", "").Code, ShouldEqual, http.StatusOK)
			So(do(mux, http.MethodGet, "/sessions?from=2026-05-01", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Empty results are empty arrays", func() {
			So(do(mux, http.MethodGet, "/sessions", "").Body.String(), ShouldEqual, "[]\n")
			So(do(mux, http.MethodGet, "/trend?player_id=A", "").Body.String(), ShouldEqual, "[]\n")
			So(do(mux, http.MethodGet, "/teams", "").Body.String(), ShouldEqual, "[]\n")
		})
	})
}

func TestPersistenceErrorsAPI(t *testing.T) {
	Convey("Given storage that is down", t, func() {
		mem := repository.NewMemStore()
		store := brokenStore{MemStore: mem}
		mux := newMux(store, mem)
		So(do(mux, http.MethodPut, "/teams", teamBody).Code, ShouldEqual, http.StatusOK)
		So(do(mux, http.MethodPost, "/sessions", `{"team_id":"t1","player_ids":["A"]}`).Code, ShouldEqual, http.StatusCreated)

		Convey("Complete answers 503 and the session stays active", func() {
			w := do(mux, http.MethodPost, "/sessions/active/complete", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(errorCode(w), ShouldEqual, "persistence")
			So(do(mux, http.MethodGet, "/sessions/active", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("History answers 503", func() {
			w := do(mux, http.MethodGet, "/sessions", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}
