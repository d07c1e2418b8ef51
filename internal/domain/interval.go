package domain

import (
	"errors"
	"fmt"
	"time"
)

const (
	// SentinelTime marks an unset start or end time of day.
	SentinelTime = "00:00:00"

	// TimeOfDayLayout is the HH:MM:SS layout used for interval boundaries.
	TimeOfDayLayout = "15:04:05"

	// FinalizedLayout is the day/month/year layout of LoggedSession.FinalizedAt.
	FinalizedLayout = "02/01/2006 15:04:05"
)

// ErrInvalidTimeOfDay is returned by ParseTimeOfDay for anything that is not HH:MM:SS.
var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// Interval is one contiguous activation of a stage.
type Interval struct {
	StageName  string
	StageCode  string
	Start      string // HH:MM:SS
	End        string // HH:MM:SS
	ElapsedSec int64  // Never negative
}

// IsBlank reports whether both boundaries are still the sentinel.
func (iv Interval) IsBlank() bool {
	return iv.Start == SentinelTime && iv.End == SentinelTime
}

// ParseTimeOfDay returns the offset since midnight of an HH:MM:SS string.
func ParseTimeOfDay(s string) (time.Duration, error) {
	t, err := time.Parse(TimeOfDayLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

// FormatTimeOfDay renders t as HH:MM:SS.
func FormatTimeOfDay(t time.Time) string {
	return t.Format(TimeOfDayLayout)
}

// ClampElapsed converts d to whole seconds, clamping negative spans to zero.
func ClampElapsed(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}
