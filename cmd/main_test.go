package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/okian/passtrack/internal/adapters/repository"
	"github.com/okian/passtrack/internal/adapters/repository/sqlite"
	app "github.com/okian/passtrack/internal/app"
	"github.com/okian/passtrack/internal/config"
	"github.com/okian/passtrack/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestBuildStores(t *testing.T) {
	convey.Convey("Given the storage drivers", t, func() {
		ctx := context.Background()

		convey.Convey("When the driver is memory", func() {
			cfg := config.New()
			st, err := buildStores(ctx, cfg)

			convey.Convey("Then an in-memory store backs both roles", func() {
				convey.So(err, convey.ShouldBeNil)
				_, ok := st.sessions.(*repository.MemStore)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(st.teams, convey.ShouldEqual, st.sessions)
			})
		})

		convey.Convey("When the driver is sqlite", func() {
			cfg := config.New()
			cfg.StoreDriver = "sqlite"
			cfg.StorePath = filepath.Join(t.TempDir(), "passtrack.db")
			st, err := buildStores(ctx, cfg)

			convey.Convey("Then the database is opened and migrated", func() {
				convey.So(err, convey.ShouldBeNil)
				db, ok := st.sessions.(*sqlite.Store)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(db.Close(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the driver is unknown", func() {
			cfg := config.New()
			cfg.StoreDriver = "postgres"
			_, err := buildStores(ctx, cfg)

			convey.Convey("Then it should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the assembled handler", t, func() {
		convey.So(logger.Init(logger.WithOutput(io.Discard)), convey.ShouldBeNil)
		mem := repository.NewMemStore()
		svc := app.New(mem, mem)
		h := newHandler(context.Background(), svc)

		for _, path := range []string{"/healthz", "/stats", "/teams", "/sessions", "/openapi.yaml", "/api-docs"} {
			req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		}
	})
}

func TestInitMetrics(t *testing.T) {
	convey.Convey("Given metric settings", t, func() {
		convey.Convey("Valid buckets rebuild the registry", func() {
			cfg := config.New()
			cfg.MetricsBucketsMS = "1,10"
			convey.So(initMetrics(cfg), convey.ShouldBeNil)
		})

		convey.Convey("Malformed buckets are rejected", func() {
			cfg := config.New()
			cfg.MetricsBucketsMS = "1,fast"
			err := initMetrics(cfg)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
