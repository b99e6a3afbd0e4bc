package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/passtrack/internal/adapters/repository"
	"github.com/okian/passtrack/internal/adapters/repository/storetest"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemStoreConformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) storetest.Backend { return repository.NewMemStore() })
}

func TestMemStoreCanceledContext(t *testing.T) {
	Convey("Given a canceled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		store := repository.NewMemStore()

		Convey("Every operation fails as a persistence error", func() {
			So(errors.Is(store.Save(ctx, storetest.Session("s1", 0)), repository.ErrPersistence), ShouldBeTrue)
			_, err := store.FetchAll(ctx)
			So(errors.Is(err, repository.ErrPersistence), ShouldBeTrue)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			_, err = store.Teams(ctx)
			So(errors.Is(err, repository.ErrPersistence), ShouldBeTrue)
		})
	})
}
