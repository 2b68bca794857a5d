// Command countdown prints the time left until the event starts.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/tes/internal/domain/countdown"
	"github.com/okian/tes/internal/domain/event"
	"github.com/okian/tes/pkg/logger"
)

func main() {
	var (
		target   = flag.String("target", "", "Countdown target in RFC3339 (default: event start)")
		file     = flag.String("event", "", "Optional HCL event file")
		once     = flag.Bool("once", false, "Print a single value and exit")
		interval = flag.Duration("interval", time.Second, "Refresh interval")
	)
	flag.Parse()

	// stdout belongs to the countdown line.
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ev, err := resolveEvent(*file, *target)
	if err != nil {
		logger.Get().Error(ctx, "cannot resolve countdown target", logger.Error(err))
		stop()
		os.Exit(1)
	}

	if *once {
		fmt.Fprintln(os.Stdout, format(countdown.Compute(ev.StartsAt, time.Now())))
		return
	}
	watch(ctx, os.Stdout, ev, *interval, time.Now)
}

func resolveEvent(file, target string) (event.Event, error) {
	ev := event.Default()
	if file != "" {
		loaded, err := event.LoadFile(file)
		if err != nil {
			return event.Event{}, err
		}
		ev = loaded
	}
	if target != "" {
		t, err := time.Parse(time.RFC3339, target)
		if err != nil {
			return event.Event{}, fmt.Errorf("target %q is not RFC3339: %w", target, err)
		}
		ev = ev.WithTarget(t)
	}
	return ev, nil
}

// watch redraws one line per tick until ctx ends or zero is reached.
func watch(ctx context.Context, out io.Writer, ev event.Event, interval time.Duration, now func() time.Time) {
	finished := make(chan struct{})
	handle := countdown.Start(ctx, ev.StartsAt, func(r countdown.Remaining) {
		fmt.Fprintf(out, "\r%s %s ", ev.Name, format(r))
		if r.IsZero() {
			select {
			case <-finished:
			default:
				close(finished)
			}
		}
	}, countdown.WithInterval(interval), countdown.WithClock(now))

	reached := false
	select {
	case <-ctx.Done():
	case <-finished:
		reached = true
	}
	handle.Cancel()
	<-handle.Done()

	if reached {
		fmt.Fprintln(out, "\nstarted")
		return
	}
	fmt.Fprintln(out)
}

func format(r countdown.Remaining) string {
	return fmt.Sprintf("%02dd %02dh %02dm %02ds", r.Days, r.Hours, r.Minutes, r.Seconds)
}
