package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/passtrack/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDeduper(t *testing.T) {
	Convey("Given a new deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("When a request id is recorded", func() {
			So(d.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)

			Convey("Then a retry of the same id is reported as seen", func() {
				So(d.SeenAndRecord(ctx, "req-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("Then unrecording lets the id through again", func() {
				d.Unrecord(ctx, "req-1")
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)
			})
		})

		Convey("Reset forgets every id", func() {
			d.SeenAndRecord(ctx, "req-1")
			d.SeenAndRecord(ctx, "req-2")
			d.Reset(ctx)
			So(d.Size(), ShouldEqual, 0)
			So(d.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "req-2"), ShouldBeFalse)
		})

		Convey("Unrecording an unknown id changes nothing", func() {
			d.SeenAndRecord(ctx, "req-1")
			d.Unrecord(ctx, "other")
			So(d.Size(), ShouldEqual, 1)
		})
	})

	Convey("Given a deduper capped at three ids", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, id := range []string{"r1", "r2", "r3", "r4"} {
			So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
		}

		Convey("The oldest id is forgotten first", func() {
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "r4"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "r3"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "r1"), ShouldBeFalse)
		})

		Convey("Unrecording frees a slot without evicting", func() {
			d.Unrecord(ctx, "r3")
			So(d.SeenAndRecord(ctx, "r5"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "r2"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "r4"), ShouldBeTrue)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := range 500 {
			d.SeenAndRecord(ctx, fmt.Sprintf("r%d", i))
		}
		So(d.Size(), ShouldEqual, 500)
		So(d.SeenAndRecord(ctx, "r0"), ShouldBeTrue)
	})
}

func TestDeduperConcurrency(t *testing.T) {
	Convey("Given many goroutines racing on the same ids", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		var fresh atomic.Int64
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range 100 {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("r%d", i)) {
						fresh.Add(1)
					}
				}
			}()
		}
		wg.Wait()

		Convey("Each id is admitted exactly once", func() {
			So(fresh.Load(), ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}
