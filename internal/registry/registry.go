// Package registry holds the configured set of workflow stages.
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"stage-tracker/internal/domain"
	"stage-tracker/internal/ports"
)

const (
	MinStages = 1
	MaxStages = 20
	// FallbackStages is used when a configuration carries neither a count nor stages.
	FallbackStages = 8
)

// Registry is the ordered set of stages. It is not safe for concurrent use.
type Registry struct {
	store  ports.ConfigStore
	log    *slog.Logger
	stages []domain.Stage
}

func New(store ports.ConfigStore, log *slog.Logger) *Registry {
	return &Registry{store: store, log: log}
}

// Initialize loads the persisted configuration, or creates and persists
// defaultCount default stages when there is none.
func (r *Registry) Initialize(ctx context.Context, defaultCount int) error {
	found, err := r.Load(ctx)
	if err != nil {
		return err
	}
	if !found {
		n := Clamp(defaultCount)
		r.log.Info("no stage configuration found, creating defaults", slog.Int("count", n))
		r.stages = nil
		r.Resize(n)
		return r.Persist(ctx)
	}
	return nil
}

// Load replaces the in-memory stages with the persisted ones. A configuration
// whose button count disagrees with its stage list is resized and written back.
func (r *Registry) Load(ctx context.Context) (bool, error) {
	cfg, found, err := r.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load stage configuration: %w", err)
	}
	if !found {
		return false, nil
	}

	r.stages = r.stages[:0]
	seen := make(map[string]bool, len(cfg.Stages))
	for i, s := range cfg.Stages {
		ordinal := i + 1
		s.Ordinal = ordinal
		if s.Key == "" || seen[s.Key] {
			s.Key = r.uniqueKey(ordinal, seen)
		}
		if s.Name == "" {
			s.Name = s.Key
		}
		if s.Code == "" {
			s.Code = domain.DefaultStageCode(ordinal)
		}
		seen[s.Key] = true
		r.stages = append(r.stages, s)
	}

	want := cfg.NumButtons
	if want <= 0 {
		want = len(r.stages)
	}
	if want <= 0 {
		want = FallbackStages
	}
	if got := r.Resize(want); got != len(cfg.Stages) {
		r.log.Info("stage count reconciled",
			slog.Int("stored", len(cfg.Stages)),
			slog.Int("count", got),
		)
		if err := r.Persist(ctx); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Persist writes the current stages to the configuration store.
func (r *Registry) Persist(ctx context.Context) error {
	cfg := ports.StageConfig{NumButtons: len(r.stages), Stages: r.Stages()}
	if err := r.store.Save(ctx, cfg); err != nil {
		return fmt.Errorf("save stage configuration: %w", err)
	}
	return nil
}

// Resize grows or shrinks the registry to n stages, clamped to
// [MinStages, MaxStages]. Existing stages keep their name and code; new ones
// get defaults. It returns the resulting count.
func (r *Registry) Resize(n int) int {
	n = Clamp(n)
	if n < len(r.stages) {
		r.stages = r.stages[:n]
		return n
	}
	seen := make(map[string]bool, n)
	for _, s := range r.stages {
		seen[s.Key] = true
	}
	for i := len(r.stages) + 1; i <= n; i++ {
		s := domain.DefaultStage(i)
		s.Key = r.uniqueKey(i, seen)
		s.Name = s.Key
		seen[s.Key] = true
		r.stages = append(r.stages, s)
	}
	return n
}

// Rename sets the display name and code of the stage with the given key.
func (r *Registry) Rename(key, name, code string) error {
	for i := range r.stages {
		if r.stages[i].Key == key {
			r.stages[i].Name = name
			r.stages[i].Code = code
			return nil
		}
	}
	return fmt.Errorf("%w: %q", domain.ErrUnknownStage, key)
}

// Lookup returns the stage with the given key.
func (r *Registry) Lookup(key string) (domain.Stage, bool) {
	for _, s := range r.stages {
		if s.Key == key {
			return s, true
		}
	}
	return domain.Stage{}, false
}

// ByOrdinal returns the i-th stage (1-based).
func (r *Registry) ByOrdinal(i int) (domain.Stage, bool) {
	if i < 1 || i > len(r.stages) {
		return domain.Stage{}, false
	}
	return r.stages[i-1], true
}

// Stages returns a copy of the stages in ordinal order.
func (r *Registry) Stages() []domain.Stage {
	out := make([]domain.Stage, len(r.stages))
	copy(out, r.stages)
	return out
}

func (r *Registry) Count() int { return len(r.stages) }

// Clamp bounds a requested stage count to [MinStages, MaxStages].
func Clamp(n int) int {
	if n < MinStages {
		return MinStages
	}
	if n > MaxStages {
		return MaxStages
	}
	return n
}

func (r *Registry) uniqueKey(ordinal int, seen map[string]bool) string {
	key := domain.DefaultStageKey(ordinal)
	for n := 2; seen[key]; n++ {
		key = fmt.Sprintf("%s (%d)", domain.DefaultStageKey(ordinal), n)
	}
	return key
}
