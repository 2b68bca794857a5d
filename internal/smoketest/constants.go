package smoketest

import "time"

// Runner configuration constants.
const (
	StatsPollInterval    = 200 * time.Millisecond
	PercentageMultiplier = 100
)

// File permission constants.
const (
	logFilePermission   = 0o600
	directoryPermission = 0o750
)
