package usecase

import (
	"context"
	"errors"
	"log/slog"

	"stage-tracker/internal/ports"
)

// MirrorUseCase copies the whole session log to a SessionSink.
type MirrorUseCase struct {
	Log     *slog.Logger
	Store   ports.LogStore
	Sink    ports.SessionSink
	Metrics ports.Metrics
}

// Run pushes every logged session and returns how many were sent.
func (uc *MirrorUseCase) Run(ctx context.Context) (int, error) {
	if uc.Store == nil || uc.Sink == nil {
		return 0, errors.New("usecase not initialized: missing dependencies")
	}
	listing, err := uc.Store.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	uc.Log.Info("loaded session log", slog.Int("count", len(listing.Sessions)))

	if len(listing.Sessions) == 0 {
		uc.Log.Info("no sessions to mirror")
		return 0, nil
	}

	err = uc.Sink.SyncSessions(ctx, listing.Sessions)
	metricsOrNop(uc.Metrics).Mirrored(err)
	if err != nil {
		return 0, err
	}
	uc.Log.Info("mirror completed", slog.Int("count", len(listing.Sessions)))
	return len(listing.Sessions), nil
}
