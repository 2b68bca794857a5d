// Package smoketest drives a running TES site end to end: health, countdown,
// concurrent registrations with planted invalid and duplicate drafts,
// subscriptions and delivery drain.
package smoketest

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/tes/pkg/logger"
)

// SetupLogging sends log output to stdout and, when logFile is set, to that
// file as well.
func SetupLogging(logFile string, verbose bool) (func(), error) {
	var out io.Writer = os.Stdout
	closeFn := func() {}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
		closeFn = func() { _ = file.Close() }
	}

	if err := logger.Init(logger.WithWriter(out)); err != nil {
		closeFn()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	if logFile != "" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	}
	return closeFn, nil
}

// DefaultOutputFile returns a timestamped file name for the drafts.
func DefaultOutputFile() string {
	return "smoke_drafts_" + time.Now().Format("20060102_150405") + ".json"
}

// ShowHelp prints usage information for the smoke tool.
func ShowHelp() {
	os.Stdout.WriteString(`TES Smoke Test
==============

Drives a running TES site end to end.

Usage:
  go run ./cmd/smoke [options]

Options:
  -url string
        Base URL of the site (default "http://localhost:8080")
  -registrations int
        Number of registration drafts to submit (default 200)
  -invalid-every int
        Make every Nth draft invalid, 0 disables (default 10)
  -duplicate-every int
        Reuse the previous email on every Nth draft, 0 disables (default 7)
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -drain duration
        How long to wait for deliveries (default 1m)
  -output string
        Write generated drafts to this JSON file
  -log string
        Also write logs to this file
  -verbose
        Enable debug logging
  -help
        Show this help message

The site rate limits write routes per client. Start it with a higher
TES_RATE_LIMIT for a full run, otherwise throttled submissions are skipped
during verification.
`)
}
