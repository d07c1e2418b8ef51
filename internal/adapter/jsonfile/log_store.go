// Package jsonfile stores the stage configuration and the session log as JSON files.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/renameio/v2"

	"stage-tracker/internal/clock"
	"stage-tracker/internal/domain"
	"stage-tracker/internal/ports"
)

// LogStore implements ports.LogStore on a single JSON array file.
// Every mutation loads the whole array and rewrites it atomically.
type LogStore struct {
	path  string
	clock *clock.Clock
	log   *slog.Logger
	mu    sync.Mutex
}

func NewLogStore(path string, clk *clock.Clock, log *slog.Logger) *LogStore {
	return &LogStore{path: path, clock: clk, log: log}
}

// Path returns the backing file.
func (s *LogStore) Path() string { return s.path }

// Ensure creates the backing file with an empty array if it does not exist.
func (s *LogStore) Ensure(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return &domain.PersistenceError{Op: "stat", Path: s.path, Err: err}
	}
	s.log.Info("creating empty session log", slog.String("path", s.path))
	return s.writeLogs(nil)
}

// Append adds a finalized session stamped with the current time.
func (s *LogStore) Append(ctx context.Context, token, reference string, intervals []domain.Interval) (domain.LoggedSession, error) {
	if err := ctx.Err(); err != nil {
		return domain.LoggedSession{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, _, err := s.readLogs()
	if err != nil {
		return domain.LoggedSession{}, err
	}
	for _, l := range logs {
		if l.Token == token {
			return domain.LoggedSession{}, fmt.Errorf("%w: %s", domain.ErrDuplicateToken, token)
		}
	}

	session := domain.LoggedSession{
		Token:       token,
		FinalizedAt: s.clock.Timestamp(),
		Reference:   reference,
		Intervals:   append([]domain.Interval{}, intervals...),
	}
	logs = append(logs, session)
	if err := s.writeLogs(logs); err != nil {
		return domain.LoggedSession{}, err
	}
	s.log.Debug("session appended",
		slog.String("token", token),
		slog.Int("intervals", len(intervals)),
	)
	return session, nil
}

// LoadAll returns every logged session. Content that is not a JSON array of
// sessions is replaced by an empty array and reported through Recovered.
func (s *LogStore) LoadAll(ctx context.Context) (ports.Listing, error) {
	if err := ctx.Err(); err != nil {
		return ports.Listing{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, recovered, err := s.readLogs()
	if err != nil {
		return ports.Listing{}, err
	}
	if recovered {
		if err := s.writeLogs(nil); err != nil {
			return ports.Listing{}, err
		}
	}
	if logs == nil {
		logs = []domain.LoggedSession{}
	}
	return ports.Listing{Sessions: logs, Recovered: recovered}, nil
}

// FindByToken returns the session with the given token.
func (s *LogStore) FindByToken(ctx context.Context, token string) (domain.LoggedSession, error) {
	listing, err := s.LoadAll(ctx)
	if err != nil {
		return domain.LoggedSession{}, err
	}
	for _, l := range listing.Sessions {
		if l.Token == token {
			return l, nil
		}
	}
	return domain.LoggedSession{}, fmt.Errorf("%w: %s", domain.ErrNotFound, token)
}

// UpdateIntervals replaces the interval list of one session.
// The file is left untouched when the token is unknown.
func (s *LogStore) UpdateIntervals(ctx context.Context, token string, intervals []domain.Interval) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, recovered, err := s.readLogs()
	if err != nil {
		return err
	}
	idx := -1
	for i, l := range logs {
		if l.Token == token {
			idx = i
			break
		}
	}
	if idx == -1 {
		if recovered {
			if err := s.writeLogs(nil); err != nil {
				return err
			}
		}
		return fmt.Errorf("%w: %s", domain.ErrNotFound, token)
	}

	logs[idx].Intervals = append([]domain.Interval{}, intervals...)
	return s.writeLogs(logs)
}

// ClearAll replaces the log with an empty array. It cannot be undone.
func (s *LogStore) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Warn("clearing session log", slog.String("path", s.path))
	return s.writeLogs(nil)
}

// rawInterval mirrors one entry of "etapas" in the log file.
type rawInterval struct {
	Etapa  string      `json:"etapa"`
	Codigo string      `json:"codigo"`
	Inicio string      `json:"inicio"`
	Fim    string      `json:"fim"`
	Tempo  json.Number `json:"tempo"`
}

// rawSession mirrors one logged session in the log file.
type rawSession struct {
	Token           string        `json:"token"`
	DataFinalizacao string        `json:"data_finalizacao"`
	CardJira        string        `json:"card_jira"`
	Etapas          []rawInterval `json:"etapas"`
}

// readLogs returns the stored sessions. recovered is true when the file held
// something other than an array of sessions; logs is then empty.
func (s *LogStore) readLogs() (logs []domain.LoggedSession, recovered bool, err error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &domain.PersistenceError{Op: "read", Path: s.path, Err: err}
	}

	var raw []rawSession
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		if err == nil {
			err = errors.New("not an array")
		}
		s.log.Warn("session log unreadable, resetting to empty",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return nil, true, nil
	}

	logs = make([]domain.LoggedSession, 0, len(raw))
	for _, r := range raw {
		logs = append(logs, fromRaw(r))
	}
	return logs, false, nil
}

func (s *LogStore) writeLogs(logs []domain.LoggedSession) error {
	raw := make([]rawSession, 0, len(logs))
	for _, l := range logs {
		raw = append(raw, toRaw(l))
	}
	data, err := json.MarshalIndent(raw, "", "    ")
	if err != nil {
		return err
	}
	return writeFile(s.path, data)
}

func fromRaw(r rawSession) domain.LoggedSession {
	intervals := make([]domain.Interval, 0, len(r.Etapas))
	for _, e := range r.Etapas {
		intervals = append(intervals, domain.Interval{
			StageName:  e.Etapa,
			StageCode:  e.Codigo,
			Start:      e.Inicio,
			End:        e.Fim,
			ElapsedSec: seconds(e.Tempo),
		})
	}
	return domain.LoggedSession{
		Token:       r.Token,
		FinalizedAt: r.DataFinalizacao,
		Reference:   r.CardJira,
		Intervals:   intervals,
	}
}

func toRaw(l domain.LoggedSession) rawSession {
	etapas := make([]rawInterval, 0, len(l.Intervals))
	for _, iv := range l.Intervals {
		etapas = append(etapas, rawInterval{
			Etapa:  iv.StageName,
			Codigo: iv.StageCode,
			Inicio: iv.Start,
			Fim:    iv.End,
			Tempo:  json.Number(strconv.FormatInt(iv.ElapsedSec, 10)),
		})
	}
	return rawSession{
		Token:           l.Token,
		DataFinalizacao: l.FinalizedAt,
		CardJira:        l.Reference,
		Etapas:          etapas,
	}
}

// seconds accepts integer or float seconds; fractions are truncated and
// negative or unparseable values count as zero.
func seconds(n json.Number) int64 {
	if n == "" {
		return 0
	}
	if v, err := n.Int64(); err == nil {
		return max(v, 0)
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &domain.PersistenceError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}
	if !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return &domain.PersistenceError{Op: "write", Path: path, Err: err}
	}
	return nil
}
