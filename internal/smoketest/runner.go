package smoketest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tes/pkg/logger"
)

// countdownSnapshot mirrors GET /api/countdown.
type countdownSnapshot struct {
	Target    time.Time `json:"target"`
	Started   bool      `json:"started"`
	Remaining struct {
		Days    int `json:"days"`
		Hours   int `json:"hours"`
		Minutes int `json:"minutes"`
		Seconds int `json:"seconds"`
	} `json:"remaining"`
}

// Run executes the complete smoke test.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting TES smoke test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("registrations", config.Registrations),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("verbose", config.Verbose))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Check the countdown is coherent
	if err := checkCountdown(ctx, client, config); err != nil {
		return stats, fmt.Errorf("countdown check failed: %w", err)
	}

	// Step 3: Generate and submit registrations
	drafts := generateDrafts(ctx, config, stats)
	outcomes := submitDrafts(ctx, config, drafts, stats)

	// Step 4: Newsletter and early access, each sent twice
	if err := checkSubscriptions(ctx, client, config, stats); err != nil {
		return stats, fmt.Errorf("subscription check failed: %w", err)
	}

	// Step 5: Wait for the workers to deliver what was accepted
	delivered, err := waitForDelivery(ctx, client, config, stats.Accepted)
	stats.Delivered = delivered
	if err != nil {
		return stats, fmt.Errorf("delivery wait failed: %w", err)
	}

	// Step 6: Verify results
	if err := verifyResults(ctx, drafts, outcomes, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	// Step 7: Save drafts to file
	if config.OutputFile != "" {
		if err := saveDraftsToFile(ctx, config.OutputFile, drafts); err != nil {
			log.Warn(ctx, "failed to save drafts to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	log.Info(ctx, "smoke test completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	var body map[string]string
	if err := client.getJSON(ctx, config.BaseURL+"/healthz", &body); err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if body["status"] != "ok" {
		return fmt.Errorf("unexpected health status %q", body["status"])
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// checkCountdown reads the countdown and checks its units are in range.
func checkCountdown(ctx context.Context, client *HTTPClient, config *Config) error {
	var snap countdownSnapshot
	if err := client.getJSON(ctx, config.BaseURL+"/api/countdown", &snap); err != nil {
		return err
	}
	r := snap.Remaining
	if r.Days < 0 || r.Hours < 0 || r.Hours > 23 || r.Minutes < 0 || r.Minutes > 59 || r.Seconds < 0 || r.Seconds > 59 {
		return fmt.Errorf("countdown units out of range: %+v", r)
	}
	zero := r.Days == 0 && r.Hours == 0 && r.Minutes == 0 && r.Seconds == 0
	if snap.Started != zero {
		return fmt.Errorf("started=%v but remaining=%+v", snap.Started, r)
	}
	logger.Get().Info(ctx, "countdown",
		logger.String("target", snap.Target.Format(time.RFC3339)),
		logger.Int("days", r.Days),
		logger.Int("hours", r.Hours),
		logger.Int("minutes", r.Minutes),
		logger.Int("seconds", r.Seconds))
	return nil
}

// checkSubscriptions expects 201 then 200 for each source.
func checkSubscriptions(ctx context.Context, client *HTTPClient, config *Config, stats *Stats) error {
	for _, source := range []string{"newsletter", "early_access"} {
		email := "smoke-" + uuid.NewString() + "@example.com"
		for i, want := range []int{http.StatusCreated, http.StatusOK} {
			code, err := subscribe(ctx, client, config.BaseURL, email, source)
			if err != nil {
				return err
			}
			if code == http.StatusTooManyRequests {
				logger.Get().Warn(ctx, "subscription throttled; skipping", logger.String("source", source))
				break
			}
			if code != want {
				return fmt.Errorf("%s attempt %d: status %d, want %d", source, i+1, code, want)
			}
			if code == http.StatusCreated {
				stats.Subscriptions++
			}
		}
	}
	return nil
}

// waitForDelivery polls /api/stats until at least accepted submissions have
// been delivered or failed.
func waitForDelivery(ctx context.Context, client *HTTPClient, config *Config, accepted int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DrainTimeout)
	defer cancel()

	ticker := time.NewTicker(StatsPollInterval)
	defer ticker.Stop()

	var last int64
	for {
		var stats map[string]any
		if err := client.getJSON(ctx, config.BaseURL+"/api/stats", &stats); err == nil {
			delivered, _ := stats["delivered"].(float64)
			failed, _ := stats["deliveryFailed"].(float64)
			last = int64(delivered)
			if int64(delivered+failed) >= int64(accepted) {
				return last, nil
			}
		}
		select {
		case <-ctx.Done():
			return last, fmt.Errorf("%d of %d delivered: %w", last, accepted, ctx.Err())
		case <-ticker.C:
		}
	}
}

// saveDraftsToFile writes the generated drafts as a JSON array.
func saveDraftsToFile(ctx context.Context, filename string, drafts []Draft) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(drafts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal drafts: %w", err)
	}
	if err := os.WriteFile(filename, data, logFilePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "drafts saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, perSecond float64
	if stats.Submitted > 0 {
		acceptRate = float64(stats.Accepted) / float64(stats.Submitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("invalid", stats.Invalid),
		logger.Int("throttled", stats.Throttled),
		logger.Int("failed", stats.Failed),
		logger.Int("mismatched", stats.Mismatched),
		logger.Int("subscriptions", stats.Subscriptions),
		logger.Int64("delivered", stats.Delivered),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("submissionsPerSecond", perSecond))
}
