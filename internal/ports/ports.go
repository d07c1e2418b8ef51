package ports

import (
	"context"

	"stage-tracker/internal/domain"
)

// StageConfig is the persisted stage configuration, in ordinal order.
type StageConfig struct {
	NumButtons int
	Stages     []domain.Stage
}

// ConfigStore persists the stage registry.
// Load reports found=false when there is no usable configuration yet.
type ConfigStore interface {
	Load(ctx context.Context) (cfg StageConfig, found bool, err error)
	Save(ctx context.Context, cfg StageConfig) error
}

// Listing is the result of reading the whole log.
// Recovered is set when unreadable content was discarded and the store reset.
type Listing struct {
	Sessions  []domain.LoggedSession
	Recovered bool
}

// LogStore is the durable, append-only log of finalized sessions.
type LogStore interface {
	Append(ctx context.Context, token, reference string, intervals []domain.Interval) (domain.LoggedSession, error)
	LoadAll(ctx context.Context) (Listing, error)
	FindByToken(ctx context.Context, token string) (domain.LoggedSession, error)
	UpdateIntervals(ctx context.Context, token string, intervals []domain.Interval) error
	ClearAll(ctx context.Context) error
}

// SessionSink receives finalized sessions and mirrors them to a target system.
// Implementations must be idempotent per token.
type SessionSink interface {
	SyncSessions(ctx context.Context, sessions []domain.LoggedSession) error
}

// Metrics records tracker activity. The Prometheus adapter implements it.
type Metrics interface {
	StageSelected(code string)
	SessionFinalized(intervalSeconds []int64)
	LogRecovered()
	LogEdited(op string)
	Mirrored(err error)
}
