package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stage-tracker/internal/domain"
)

func iv(name, code string, sec int64) domain.Interval {
	return domain.Interval{StageName: name, StageCode: code, Start: "10:00:00", End: "10:00:00", ElapsedSec: sec}
}

func TestGroupByStage_FirstSeenOrder(t *testing.T) {
	intervals := []domain.Interval{
		iv("Review", "0002", 10),
		iv("Intake", "0001", 5),
		iv("Review", "0002", 20),
		iv("Review", "0099", 1), // same name, different code
		iv("Intake", "0001", 7),
	}

	want := []StageTotal{
		{Name: "Review", Code: "0002", Seconds: 30},
		{Name: "Intake", Code: "0001", Seconds: 12},
		{Name: "Review", Code: "0099", Seconds: 1},
	}
	assert.Equal(t, want, GroupByStage(intervals))
	assert.Equal(t, want, GroupByStage(intervals), "stable across calls")
}

func TestGroupByStage_Empty(t *testing.T) {
	assert.Empty(t, GroupByStage(nil))
	assert.Zero(t, TotalElapsed(nil))
}

func TestTotalElapsedMatchesGroups(t *testing.T) {
	intervals := []domain.Interval{iv("A", "1", 30), iv("B", "2", 10), iv("A", "1", 2)}

	var grouped int64
	for _, g := range GroupByStage(intervals) {
		grouped += g.Seconds
	}
	assert.Equal(t, int64(42), TotalElapsed(intervals))
	assert.Equal(t, TotalElapsed(intervals), grouped)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{-3, "0 seconds"},
		{0, "0 seconds"},
		{1, "1 second"},
		{59, "59 seconds"},
		{60, "1 minute"},
		{119, "1 minute"},
		{120, "2 minutes"},
		{3599, "59 minutes"},
		{3600, "60 minutes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.seconds), "seconds=%d", tt.seconds)
	}
}

func TestSummarize(t *testing.T) {
	intervals := []domain.Interval{iv("Stage 1", "0001", 30), iv("Stage 2", "0002", 10)}

	s := Summarize("tok", "PROJ-7", intervals)
	assert.Equal(t, "tok", s.Token)
	assert.Equal(t, "PROJ-7", s.Reference)
	assert.Len(t, s.Groups, 2)
	assert.Equal(t, int64(40), s.Total)
	assert.Equal(t, intervals, s.Intervals)
}
