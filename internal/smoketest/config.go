package smoketest

import (
	"time"

	"github.com/okian/tes/internal/domain/registration"
)

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL        string        // Base URL of the site
	Registrations  int           // Number of drafts to generate
	InvalidEvery   int           // Every Nth draft is made invalid; 0 disables
	DuplicateEvery int           // Every Nth draft reuses an earlier email; 0 disables
	Workers        int           // Number of concurrent submitters
	Timeout        time.Duration // HTTP request timeout
	DrainTimeout   time.Duration // How long to wait for deliveries to finish
	OutputFile     string        // Output file for generated drafts
	Verbose        bool          // Enable verbose logging
}

// Draft is one generated registration plus what the run expects from it.
type Draft struct {
	registration.Draft
	Expect string `json:"expect"`
}

// Outcomes a submission can have.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeThrottled = "throttled"
	OutcomeFailed    = "failed"
	OutcomeMismatch  = "mismatch" // server errors differ from local validation
)

// Stats holds run statistics
type Stats struct {
	Generated     int
	Submitted     int
	Accepted      int
	Duplicate     int
	Invalid       int
	Throttled     int
	Failed        int
	Mismatched    int
	Subscriptions int
	Delivered     int64
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}

func (s *Stats) add(outcome string) {
	s.Submitted++
	switch outcome {
	case OutcomeAccepted:
		s.Accepted++
	case OutcomeDuplicate:
		s.Duplicate++
	case OutcomeInvalid:
		s.Invalid++
	case OutcomeThrottled:
		s.Throttled++
	case OutcomeMismatch:
		s.Mismatched++
	default:
		s.Failed++
	}
}
