package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/passtrack/internal/adapters/http/api"
	"github.com/okian/passtrack/internal/adapters/repository"
	service "github.com/okian/passtrack/internal/app"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRootCmd(t *testing.T) {
	Convey("Given a server and the simulate command", t, func() {
		store := repository.NewMemStore()
		svc := service.New(store, store)
		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		var out, errOut bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)

		Convey("When it runs a short simulation", func() {
			cmd.SetArgs([]string{"--url", srv.URL, "--sessions", "2", "--passes", "10", "--seed", "1"})
			err := cmd.ExecuteContext(context.Background())

			Convey("Then it succeeds and prints the totals", func() {
				So(err, ShouldBeNil)
				So(out.String(), ShouldContainSubstring, "sessions=2")
				So(out.String(), ShouldContainSubstring, "mismatches=0")
			})
		})

		Convey("When a flag is invalid", func() {
			cmd.SetArgs([]string{"--url", srv.URL, "--undo-rate", "2"})
			err := cmd.ExecuteContext(context.Background())

			Convey("Then it fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
