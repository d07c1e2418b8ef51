package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"stage-tracker/internal/domain"
	"stage-tracker/internal/ports"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type memConfig struct{ cfg *ports.StageConfig }

func (m *memConfig) Load(context.Context) (ports.StageConfig, bool, error) {
	if m.cfg == nil {
		return ports.StageConfig{}, false, nil
	}
	return *m.cfg, true, nil
}

func (m *memConfig) Save(_ context.Context, cfg ports.StageConfig) error {
	m.cfg = &cfg
	return nil
}

type memLog struct {
	mu        sync.Mutex
	sessions  []domain.LoggedSession
	appendErr error
	recovered bool
}

func (m *memLog) Append(_ context.Context, token, reference string, intervals []domain.Interval) (domain.LoggedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return domain.LoggedSession{}, m.appendErr
	}
	s := domain.LoggedSession{Token: token, FinalizedAt: "01/02/2026 10:00:00", Reference: reference, Intervals: intervals}
	m.sessions = append(m.sessions, s)
	return s, nil
}

func (m *memLog) LoadAll(context.Context) (ports.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := ports.Listing{Sessions: append([]domain.LoggedSession(nil), m.sessions...), Recovered: m.recovered}
	m.recovered = false
	return l, nil
}

func (m *memLog) FindByToken(_ context.Context, token string) (domain.LoggedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Token == token {
			return s, nil
		}
	}
	return domain.LoggedSession{}, domain.ErrNotFound
}

func (m *memLog) UpdateIntervals(_ context.Context, token string, intervals []domain.Interval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		if m.sessions[i].Token == token {
			m.sessions[i].Intervals = intervals
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memLog) ClearAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = nil
	return nil
}

type recordingSink struct {
	got []domain.LoggedSession
	err error
}

func (r *recordingSink) SyncSessions(_ context.Context, sessions []domain.LoggedSession) error {
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, sessions...)
	return nil
}

type countingMetrics struct {
	selected  []string
	finalized int
	recovered int
	edits     []string
	mirrorOK  int
	mirrorErr int
}

func (c *countingMetrics) StageSelected(code string)  { c.selected = append(c.selected, code) }
func (c *countingMetrics) SessionFinalized([]int64)   { c.finalized++ }
func (c *countingMetrics) LogRecovered()              { c.recovered++ }
func (c *countingMetrics) LogEdited(op string)        { c.edits = append(c.edits, op) }
func (c *countingMetrics) Mirrored(err error) {
	if err != nil {
		c.mirrorErr++
		return
	}
	c.mirrorOK++
}

var errDiskFull = &domain.PersistenceError{Op: "write", Path: "/tmp/x", Err: errors.New("disk full")}
