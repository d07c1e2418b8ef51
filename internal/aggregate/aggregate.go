// Package aggregate folds a session's intervals into per-stage totals.
package aggregate

import (
	"fmt"

	"stage-tracker/internal/domain"
)

// StageTotal is the summed time of every interval sharing a stage name and code.
type StageTotal struct {
	Name    string
	Code    string
	Seconds int64
}

// Summary is what a front end shows after a session is finished or opened from the log.
type Summary struct {
	Token     string
	Reference string
	Groups    []StageTotal
	Total     int64
	Intervals []domain.Interval
}

type stageKey struct{ name, code string }

// GroupByStage sums elapsed seconds per (name, code), in first-seen order.
func GroupByStage(intervals []domain.Interval) []StageTotal {
	index := make(map[stageKey]int)
	var out []StageTotal
	for _, iv := range intervals {
		k := stageKey{iv.StageName, iv.StageCode}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, StageTotal{Name: iv.StageName, Code: iv.StageCode})
		}
		out[i].Seconds += iv.ElapsedSec
	}
	return out
}

// TotalElapsed sums the elapsed seconds of all intervals.
func TotalElapsed(intervals []domain.Interval) int64 {
	var total int64
	for _, iv := range intervals {
		total += iv.ElapsedSec
	}
	return total
}

// FormatDuration renders seconds for display: under a minute as seconds,
// otherwise as whole minutes rounded down.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		return plural(seconds, "second")
	}
	return plural(seconds/60, "minute")
}

// Summarize builds the grouped view of a session.
func Summarize(token, reference string, intervals []domain.Interval) Summary {
	return Summary{
		Token:     token,
		Reference: reference,
		Groups:    GroupByStage(intervals),
		Total:     TotalElapsed(intervals),
		Intervals: intervals,
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
