// Package tracker turns stage selections into timestamped intervals.
//
// A Tracker is either idle or tracking exactly one stage. Selecting a stage
// closes the open interval, if any, and opens a new one; finishing closes the
// open interval and hands back every interval recorded since the last finish.
package tracker

import (
	"time"

	"stage-tracker/internal/clock"
	"stage-tracker/internal/domain"
)

// Status is a snapshot of the tracker for display.
type Status struct {
	Active    *domain.Stage // nil when idle
	Since     time.Time     // zero when idle
	Intervals int           // closed intervals so far
	Elapsed   int64         // seconds, including the running interval
}

// Tracker is the session state machine. It is not safe for concurrent use.
type Tracker struct {
	clock     *clock.Clock
	active    *domain.Stage
	since     time.Time
	startedAt string
	intervals []domain.Interval
}

func New(clk *clock.Clock) *Tracker {
	return &Tracker{clock: clk}
}

// Select starts tracking stage. If another interval was open it is closed and
// returned; re-selecting the active stage closes it and starts a fresh one.
func (t *Tracker) Select(stage domain.Stage) *domain.Interval {
	now := t.clock.Now()
	closed := t.close(now)
	t.active = &stage
	t.since = now
	t.startedAt = domain.FormatTimeOfDay(now)
	return closed
}

// Finish closes the open interval and returns all intervals of the session in
// activation order. The tracker is idle and empty afterwards.
func (t *Tracker) Finish() []domain.Interval {
	t.close(t.clock.Now())
	out := t.intervals
	if out == nil {
		out = []domain.Interval{}
	}
	t.intervals = nil
	return out
}

// Restore puts intervals returned by Finish back into an idle tracker so that
// a finish whose persistence failed can be retried.
func (t *Tracker) Restore(intervals []domain.Interval) {
	t.intervals = append(append([]domain.Interval(nil), intervals...), t.intervals...)
}

// Status reports the active stage and the elapsed total so far.
func (t *Tracker) Status() Status {
	st := Status{Intervals: len(t.intervals)}
	for _, iv := range t.intervals {
		st.Elapsed += iv.ElapsedSec
	}
	if t.active != nil {
		s := *t.active
		st.Active = &s
		st.Since = t.since
		st.Elapsed += domain.ClampElapsed(t.clock.Now().Sub(t.since))
	}
	return st
}

func (t *Tracker) close(now time.Time) *domain.Interval {
	if t.active == nil {
		return nil
	}
	iv := domain.Interval{
		StageName:  t.active.Name,
		StageCode:  t.active.Code,
		Start:      t.startedAt,
		End:        domain.FormatTimeOfDay(now),
		ElapsedSec: domain.ClampElapsed(now.Sub(t.since)),
	}
	t.intervals = append(t.intervals, iv)
	t.active = nil
	t.since = time.Time{}
	t.startedAt = ""
	return &iv
}
