package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/tes/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemory(t *testing.T) {
	ctx := context.Background()

	Convey("Given a default deduper", t, func() {
		d := dedupe.NewInMemory()
		So(d.Size(), ShouldEqual, 0)

		Convey("When an email is claimed for the first time", func() {
			seen := d.Claim(ctx, "asha@example.com")

			Convey("Then it is new", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And the same address in another case is a repeat", func() {
				So(d.Claim(ctx, "  ASHA@Example.com"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a claim is released", func() {
			d.Claim(ctx, "a@b.c")
			d.Release(ctx, "A@B.C")

			Convey("Then it can be claimed again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.Claim(ctx, "a@b.c"), ShouldBeFalse)
			})
		})

		Convey("When an unknown key is released", func() {
			d.Release(ctx, "nobody@example.com")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a deduper bounded to three keys", t, func() {
		d := dedupe.NewInMemory(dedupe.WithMaxSize(3))
		for _, k := range []string{"1@x.io", "2@x.io", "3@x.io"} {
			So(d.Claim(ctx, k), ShouldBeFalse)
		}

		Convey("When a fourth key arrives", func() {
			So(d.Claim(ctx, "4@x.io"), ShouldBeFalse)

			Convey("Then the oldest is evicted and the rest remain", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.Claim(ctx, "4@x.io"), ShouldBeTrue)
				So(d.Claim(ctx, "3@x.io"), ShouldBeTrue)
				So(d.Claim(ctx, "2@x.io"), ShouldBeTrue)
				So(d.Claim(ctx, "1@x.io"), ShouldBeFalse)
			})
		})

		Convey("When a middle key is released", func() {
			d.Release(ctx, "2@x.io")
			d.Claim(ctx, "4@x.io")

			Convey("Then no eviction was needed", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.Claim(ctx, "1@x.io"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemory(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			d.Claim(ctx, fmt.Sprintf("user-%d@x.io", i))
		}

		Convey("Then nothing is evicted", func() {
			So(d.Size(), ShouldEqual, 1000)
			So(d.Claim(ctx, "user-0@x.io"), ShouldBeTrue)
		})
	})
}

func TestInMemoryConcurrency(t *testing.T) {
	Convey("Given many goroutines claiming the same addresses", t, func() {
		d := dedupe.NewInMemory(dedupe.WithMaxSize(1000))
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)

		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					if !d.Claim(context.Background(), fmt.Sprintf("u%d@x.io", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each address is fresh exactly once", func() {
			So(fresh, ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}
