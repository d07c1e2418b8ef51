// Package clock supplies the wall-clock instants the tracker measures against.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"

	"stage-tracker/internal/domain"
)

// Clock wraps a clockwork.Clock with the formats the tracker persists.
type Clock struct {
	base clockwork.Clock
}

// New returns a Clock backed by base, or by the real clock when base is nil.
func New(base clockwork.Clock) *Clock {
	if base == nil {
		base = clockwork.NewRealClock()
	}
	return &Clock{base: base}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time { return c.base.Now() }

// TimeOfDay returns the current local time as HH:MM:SS.
func (c *Clock) TimeOfDay() string { return domain.FormatTimeOfDay(c.base.Now()) }

// Timestamp returns the current time in the finalized-at layout.
func (c *Clock) Timestamp() string { return c.base.Now().Format(domain.FinalizedLayout) }
