// Package countdown computes the time left until the event starts and
// drives the once-per-second refresh used by live displays.
package countdown

import (
	"time"
)

// Millisecond divisors for each unit.
const (
	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// Remaining is the time left until a target instant broken down into units.
type Remaining struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// Compute returns the time left between now and target.
// Once now reaches target every unit is zero.
func Compute(target, now time.Time) Remaining {
	if !now.Before(target) {
		return Remaining{}
	}
	diff := target.Sub(now).Milliseconds()
	return Remaining{
		Days:    int(diff / msPerDay),
		Hours:   int(diff / msPerHour % 24),
		Minutes: int(diff / msPerMinute % 60),
		Seconds: int(diff / msPerSecond % 60),
	}
}

// IsZero reports whether the countdown has finished.
func (r Remaining) IsZero() bool {
	return r == Remaining{}
}

// Total converts the breakdown back into a duration.
func (r Remaining) Total() time.Duration {
	return time.Duration(r.Days)*24*time.Hour +
		time.Duration(r.Hours)*time.Hour +
		time.Duration(r.Minutes)*time.Minute +
		time.Duration(r.Seconds)*time.Second
}
