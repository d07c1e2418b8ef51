package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"stage-tracker/internal/aggregate"
	"stage-tracker/internal/domain"
	"stage-tracker/internal/ports"
	"stage-tracker/internal/registry"
	"stage-tracker/internal/tracker"
)

// Workflow coordinates the registry, the tracker and the log store for one
// operator session. Sink and Metrics are optional.
type Workflow struct {
	Log              *slog.Logger
	Registry         *registry.Registry
	Tracker          *tracker.Tracker
	Store            ports.LogStore
	Sink             ports.SessionSink
	Metrics          ports.Metrics
	DefaultReference string
}

// SelectStage starts tracking the stage registered under key.
func (w *Workflow) SelectStage(key string) (domain.Stage, error) {
	stage, ok := w.Registry.Lookup(key)
	if !ok {
		return domain.Stage{}, fmt.Errorf("%w: %q", domain.ErrUnknownStage, key)
	}
	if closed := w.Tracker.Select(stage); closed != nil {
		w.Log.Debug("interval closed",
			slog.String("stage", closed.StageName),
			slog.String("start", closed.Start),
			slog.String("end", closed.End),
			slog.Int64("elapsed_sec", closed.ElapsedSec))
	}
	w.Log.Info("stage selected", slog.String("stage", stage.Name), slog.String("code", stage.Code))
	metricsOrNop(w.Metrics).StageSelected(stage.Code)
	return stage, nil
}

func (w *Workflow) Status() tracker.Status { return w.Tracker.Status() }

// Finish closes the session, appends it to the log and returns its summary.
// When the append fails the intervals are handed back to the tracker so the
// operator can retry.
func (w *Workflow) Finish(ctx context.Context, reference string) (aggregate.Summary, error) {
	if w.Store == nil {
		return aggregate.Summary{}, errors.New("workflow not initialized: missing log store")
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		reference = w.defaultReference()
	}

	intervals := w.Tracker.Finish()
	token := domain.NewToken()
	logged, err := w.Store.Append(ctx, token, reference, intervals)
	if err != nil {
		w.Tracker.Restore(intervals)
		w.Log.Error("session not saved", slog.String("token", token), slog.Any("err", err))
		return aggregate.Summary{}, fmt.Errorf("finish session: %w", err)
	}

	secs := make([]int64, len(logged.Intervals))
	for i, iv := range logged.Intervals {
		secs[i] = iv.ElapsedSec
	}
	m := metricsOrNop(w.Metrics)
	m.SessionFinalized(secs)
	w.Log.Info("session finalized",
		slog.String("token", logged.Token),
		slog.String("reference", logged.Reference),
		slog.Int("intervals", len(logged.Intervals)))

	if w.Sink != nil {
		err := w.Sink.SyncSessions(ctx, []domain.LoggedSession{logged})
		m.Mirrored(err)
		if err != nil {
			w.Log.Warn("mirror failed, session kept in local log", slog.String("token", logged.Token), slog.Any("err", err))
		}
	}

	return aggregate.Summarize(logged.Token, logged.Reference, logged.Intervals), nil
}

func (w *Workflow) defaultReference() string {
	if w.DefaultReference != "" {
		return w.DefaultReference
	}
	return domain.DefaultReference
}

type nopMetrics struct{}

func (nopMetrics) StageSelected(string)     {}
func (nopMetrics) SessionFinalized([]int64) {}
func (nopMetrics) LogRecovered()            {}
func (nopMetrics) LogEdited(string)         {}
func (nopMetrics) Mirrored(error)           {}

func metricsOrNop(m ports.Metrics) ports.Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
