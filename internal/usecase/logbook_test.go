package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stage-tracker/internal/domain"
	"stage-tracker/internal/edit"
)

func seededLog() *memLog {
	return &memLog{sessions: []domain.LoggedSession{
		{
			Token: "aaa111", FinalizedAt: "01/02/2026 10:00:00", Reference: "PROJ-1",
			Intervals: []domain.Interval{
				{StageName: "Build", StageCode: "0002", Start: "09:10:00", End: "09:20:00", ElapsedSec: 600},
				{StageName: "Plan", StageCode: "0001", Start: "09:00:00", End: "09:10:00", ElapsedSec: 600},
			},
		},
		{Token: "bbb222", FinalizedAt: "02/02/2026 11:00:00", Reference: "OPS-7"},
	}}
}

func TestLogBook_ListReportsRecovery(t *testing.T) {
	store := &memLog{recovered: true}
	m := &countingMetrics{}
	b := &LogBook{Log: discardLogger(), Store: store, Metrics: m}

	l, err := b.List(context.Background())
	require.NoError(t, err)
	assert.True(t, l.Recovered)
	assert.Equal(t, 1, m.recovered)
}

func TestLogBook_Search(t *testing.T) {
	b := &LogBook{Log: discardLogger(), Store: seededLog()}
	ctx := context.Background()

	got, err := b.Search(ctx, "PROJ")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "aaa111", got[0].Token)

	got, err = b.Search(ctx, "02/2026")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = b.Search(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLogBook_DetailAndNotFound(t *testing.T) {
	b := &LogBook{Log: discardLogger(), Store: seededLog()}
	sum, err := b.Detail(context.Background(), "aaa111")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), sum.Total)
	assert.Len(t, sum.Groups, 2)

	_, err = b.Detail(context.Background(), "zzz")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = b.BeginEdit(context.Background(), "zzz")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLogBook_EditSortedRowsAndSave(t *testing.T) {
	store := seededLog()
	m := &countingMetrics{}
	b := &LogBook{Log: discardLogger(), Store: store, Metrics: m}
	ctx := context.Background()

	s, err := b.BeginEdit(ctx, "aaa111")
	require.NoError(t, err)
	require.Equal(t, "Plan", s.Intervals[0].StageName)

	assert.Equal(t, int64(300), b.Preview(edit.Row{Start: "09:00:00", End: "09:05:00"}))

	saved, err := b.SaveEdit(ctx, s, []edit.Row{
		{Start: "09:00:00", End: "09:05:00"},
		{Start: "", End: " "},
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Plan", saved[0].StageName)
	assert.Equal(t, int64(300), saved[0].ElapsedSec)

	got, err := store.FindByToken(ctx, "aaa111")
	require.NoError(t, err)
	assert.Equal(t, saved, got.Intervals)
	assert.Equal(t, []string{"update"}, m.edits)
}

func TestLogBook_SaveEditUnknownToken(t *testing.T) {
	store := seededLog()
	b := &LogBook{Log: discardLogger(), Store: store}
	_, err := b.SaveEdit(context.Background(), &edit.Session{Token: "gone"}, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, store.sessions, 2)
}

func TestLogBook_Clear(t *testing.T) {
	store := seededLog()
	b := &LogBook{Log: discardLogger(), Store: store}
	require.NoError(t, b.Clear(context.Background()))
	l, err := b.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, l.Sessions)
}

func TestLogBook_DetailUsesEditOrder(t *testing.T) {
	store := &memLog{sessions: []domain.LoggedSession{{
		Token: "night", Reference: "OPS-9",
		Intervals: []domain.Interval{
			{StageName: "Stage 1", StageCode: "0001", Start: "23:59:50", End: "00:00:20", ElapsedSec: 30},
			{StageName: "Stage 2", StageCode: "0002", Start: "00:00:20", End: "00:00:30", ElapsedSec: 10},
		},
	}}}
	b := &LogBook{Log: discardLogger(), Store: store}
	ctx := context.Background()

	sum, err := b.Detail(ctx, "night")
	require.NoError(t, err)
	s, err := b.BeginEdit(ctx, "night")
	require.NoError(t, err)

	assert.Equal(t, s.Intervals, sum.Intervals)
	assert.Equal(t, "Stage 2", sum.Intervals[0].StageName)
	assert.Equal(t, int64(40), sum.Total)
}
