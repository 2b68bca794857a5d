package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/tes/internal/smoketest"
)

// Default configuration constants.
const (
	defaultRegistrations  = 200
	defaultInvalidEvery   = 10
	defaultDuplicateEvery = 7
	defaultWorkers        = 2 // multiplier for runtime.NumCPU()
	defaultTimeout        = 10 * time.Second
	defaultDrain          = time.Minute
	defaultTestTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL        = flag.String("url", "http://localhost:8080", "Base URL of the site")
		registrations  = flag.Int("registrations", defaultRegistrations, "Number of registration drafts to submit")
		invalidEvery   = flag.Int("invalid-every", defaultInvalidEvery, "Make every Nth draft invalid, 0 disables")
		duplicateEvery = flag.Int("duplicate-every", defaultDuplicateEvery, "Reuse the previous email on every Nth draft, 0 disables")
		workers        = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout        = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		drain          = flag.Duration("drain", defaultDrain, "How long to wait for deliveries")
		outputFile     = flag.String("output", "", "Write generated drafts to this JSON file")
		logFile        = flag.String("log", "", "Also write logs to this file")
		verbose        = flag.Bool("verbose", false, "Enable debug logging")
		help           = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoketest.ShowHelp()
		return
	}

	closeLog, err := smoketest.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closeLog()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &smoketest.Config{
		BaseURL:        *baseURL,
		Registrations:  *registrations,
		InvalidEvery:   *invalidEvery,
		DuplicateEvery: *duplicateEvery,
		Workers:        max(1, *workers),
		Timeout:        *timeout,
		DrainTimeout:   *drain,
		OutputFile:     *outputFile,
		Verbose:        *verbose,
	}

	if _, err := smoketest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Smoke test failed: " + err.Error() + "\n")
		cancel()
		closeLog()
		os.Exit(1)
	}
}
