// Package edit recomputes interval times after a logged session is edited.
//
// Editing is permissive: blank times become the 00:00:00 sentinel and
// malformed times yield zero elapsed seconds instead of an error. A row whose
// start and end are both left at the sentinel is treated as deleted.
package edit

import (
	"sort"
	"strings"

	"stage-tracker/internal/domain"
)

// Row is the edited start and end of one interval, as typed by the operator.
// A Keep row leaves its interval exactly as stored.
type Row struct {
	Start string
	End   string
	Keep  bool
}

// Session is an edit in progress on one logged session. Intervals is the list
// shown to the operator, and the list that row indexes refer to.
type Session struct {
	Token     string
	Reference string
	Intervals []domain.Interval
}

// Begin opens an edit session with the intervals sorted by start time.
// Intervals whose start cannot be parsed keep their relative order at the end.
func Begin(logged domain.LoggedSession) *Session {
	type keyed struct {
		iv  domain.Interval
		at  int64
		bad bool
	}
	rows := make([]keyed, len(logged.Intervals))
	for i, iv := range logged.Intervals {
		d, err := domain.ParseTimeOfDay(iv.Start)
		rows[i] = keyed{iv: iv, at: int64(d), bad: err != nil}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].bad != rows[j].bad {
			return !rows[i].bad
		}
		return rows[i].at < rows[j].at
	})

	out := make([]domain.Interval, len(rows))
	for i, r := range rows {
		out[i] = r.iv
	}
	return &Session{Token: logged.Token, Reference: logged.Reference, Intervals: out}
}

// Recompute returns max(0, end-start) in whole seconds. Blank inputs count as
// the sentinel; an unparseable input yields 0.
func Recompute(start, end string) int64 {
	s, err := domain.ParseTimeOfDay(orSentinel(start))
	if err != nil {
		return 0
	}
	e, err := domain.ParseTimeOfDay(orSentinel(end))
	if err != nil {
		return 0
	}
	return domain.ClampElapsed(e - s)
}

// ApplyEdits maps rows onto the session's intervals by position and returns
// the new interval list. Intervals without a matching row, or whose row is
// marked Keep, are left as they are.
func ApplyEdits(s *Session, rows []Row) []domain.Interval {
	out := make([]domain.Interval, len(s.Intervals))
	for i, iv := range s.Intervals {
		if i < len(rows) && !rows[i].Keep {
			iv.Start = orSentinel(rows[i].Start)
			iv.End = orSentinel(rows[i].End)
			iv.ElapsedSec = Recompute(iv.Start, iv.End)
		}
		out[i] = iv
	}
	return out
}

// FilterEmptyRows drops intervals whose start and end are both the sentinel.
func FilterEmptyRows(intervals []domain.Interval) []domain.Interval {
	out := make([]domain.Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.IsBlank() {
			continue
		}
		out = append(out, iv)
	}
	return out
}

func orSentinel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.SentinelTime
	}
	return s
}
