package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/tes/internal/domain/countdown"
	"github.com/okian/tes/internal/domain/event"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFormat(t *testing.T) {
	Convey("Given a remaining value", t, func() {
		So(format(countdown.Remaining{Days: 1, Hours: 2, Minutes: 3, Seconds: 4}), ShouldEqual, "01d 02h 03m 04s")
		So(format(countdown.Remaining{Days: 120}), ShouldEqual, "120d 00h 00m 00s")
	})
}

func TestResolveEvent(t *testing.T) {
	Convey("Given no flags", t, func() {
		ev, err := resolveEvent("", "")
		So(err, ShouldBeNil)
		So(ev.StartsAt, ShouldEqual, event.DefaultStart)
	})

	Convey("Given a target flag", t, func() {
		ev, err := resolveEvent("", "2030-01-01T00:00:00Z")
		So(err, ShouldBeNil)
		So(ev.StartsAt.Year(), ShouldEqual, 2030)

		_, err = resolveEvent("", "tomorrow")
		So(err, ShouldNotBeNil)
	})

	Convey("Given an event file", t, func() {
		path := filepath.Join(t.TempDir(), "event.hcl")
		So(os.WriteFile(path, []byte("starts_at = \"2031-05-05T10:00:00Z\"\n"), 0o600), ShouldBeNil)
		ev, err := resolveEvent(path, "")
		So(err, ShouldBeNil)
		So(ev.StartsAt.Year(), ShouldEqual, 2031)
	})
}

// syncBuffer lets the tick goroutine and the test share a buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch(t *testing.T) {
	Convey("Given a clock two seconds before the start", t, func() {
		ev := event.Default()
		var calls atomic.Int64
		clock := func() time.Time {
			return ev.StartsAt.Add(time.Duration(calls.Add(1)-3) * time.Second)
		}
		out := &syncBuffer{}

		Convey("When watching", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			watch(ctx, out, ev, time.Millisecond, clock)

			Convey("Then it stops on its own at zero", func() {
				So(ctx.Err(), ShouldBeNil)
				So(out.String(), ShouldContainSubstring, "00d 00h 00m 00s")
				So(strings.HasSuffix(out.String(), "started\n"), ShouldBeTrue)
			})
		})
	})
}
