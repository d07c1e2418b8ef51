package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stage-tracker/internal/aggregate"
	"stage-tracker/internal/domain"
	"stage-tracker/internal/edit"
	"stage-tracker/internal/ports"
)

// LogBook serves browsing and editing of the session log.
type LogBook struct {
	Log     *slog.Logger
	Store   ports.LogStore
	Metrics ports.Metrics
}

// List returns every logged session in append order.
func (b *LogBook) List(ctx context.Context) (ports.Listing, error) {
	listing, err := b.Store.LoadAll(ctx)
	if err != nil {
		return ports.Listing{}, err
	}
	if listing.Recovered {
		b.Log.Warn("session log was unreadable and has been reset")
		metricsOrNop(b.Metrics).LogRecovered()
	}
	return listing, nil
}

// Search returns the sessions whose timestamp, token or reference contains
// query. A blank query matches nothing.
func (b *LogBook) Search(ctx context.Context, query string) ([]domain.LoggedSession, error) {
	listing, err := b.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.Search(query, listing.Sessions), nil
}

// Detail returns the grouped summary of one logged session. Its intervals are
// in the order BeginEdit numbers them.
func (b *LogBook) Detail(ctx context.Context, token string) (aggregate.Summary, error) {
	logged, err := b.Store.FindByToken(ctx, token)
	if err != nil {
		return aggregate.Summary{}, err
	}
	s := edit.Begin(logged)
	return aggregate.Summarize(s.Token, s.Reference, s.Intervals), nil
}

func (b *LogBook) BeginEdit(ctx context.Context, token string) (*edit.Session, error) {
	logged, err := b.Store.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return edit.Begin(logged), nil
}

// Preview is the elapsed seconds a row would get if saved.
func (b *LogBook) Preview(row edit.Row) int64 {
	return edit.Recompute(row.Start, row.End)
}

// SaveEdit applies rows to the session, drops rows cleared to the sentinel and
// replaces the stored intervals. The saved intervals are returned.
func (b *LogBook) SaveEdit(ctx context.Context, s *edit.Session, rows []edit.Row) ([]domain.Interval, error) {
	if s == nil {
		return nil, errors.New("no edit session")
	}
	intervals := edit.FilterEmptyRows(edit.ApplyEdits(s, rows))
	if err := b.Store.UpdateIntervals(ctx, s.Token, intervals); err != nil {
		return nil, fmt.Errorf("save edit of %s: %w", s.Token, err)
	}
	metricsOrNop(b.Metrics).LogEdited("update")
	b.Log.Info("session edited",
		slog.String("token", s.Token),
		slog.Int("before", len(s.Intervals)),
		slog.Int("after", len(intervals)))
	return intervals, nil
}

// Clear empties the log. Callers are expected to have asked for confirmation.
func (b *LogBook) Clear(ctx context.Context) error {
	if err := b.Store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear log: %w", err)
	}
	metricsOrNop(b.Metrics).LogEdited("clear")
	b.Log.Info("session log cleared")
	return nil
}
