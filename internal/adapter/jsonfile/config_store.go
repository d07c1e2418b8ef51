package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"stage-tracker/internal/domain"
	"stage-tracker/internal/ports"
)

var errNotObject = errors.New("not a JSON object")

// ConfigStore implements ports.ConfigStore on the settings JSON file.
//
// Current layout:
//
//	{"num_buttons": 8, "stages": {"Stage 1": {"nome": "...", "codigo": "0001"}, ...}}
//
// Legacy layout, stages at the top level:
//
//	{"Stage 1": {"nome": "...", "codigo": "0001", "tempos": []}, ...}
//
// Stage order is the order of the keys in the file.
type ConfigStore struct {
	path string
	log  *slog.Logger
	mu   sync.Mutex
}

func NewConfigStore(path string, log *slog.Logger) *ConfigStore {
	return &ConfigStore{path: path, log: log}
}

// Path returns the backing file.
func (s *ConfigStore) Path() string { return s.path }

// rawStage is one entry of the stages object. The runtime fields older
// versions persisted (tempos, hora_inicio, hora_fim, horarios) are ignored.
type rawStage struct {
	Nome   *string `json:"nome"`
	Codigo *string `json:"codigo"`
}

// Load reads the configuration. A missing or unreadable file reports found=false.
func (s *ConfigStore) Load(ctx context.Context) (ports.StageConfig, bool, error) {
	if err := ctx.Err(); err != nil {
		return ports.StageConfig{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("could not read stage configuration", slog.String("path", s.path), slog.String("error", err.Error()))
		}
		return ports.StageConfig{}, false, nil
	}

	cfg, err := parseConfig(data)
	if err != nil {
		s.log.Warn("invalid stage configuration, using defaults", slog.String("path", s.path), slog.String("error", err.Error()))
		return ports.StageConfig{}, false, nil
	}
	return cfg, true, nil
}

// Save writes the configuration in the current layout.
func (s *ConfigStore) Save(ctx context.Context, cfg ports.StageConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encodeConfig(cfg)
	if err != nil {
		return err
	}
	return writeFile(s.path, data)
}

// parseConfig tries the current layout first and falls back to the legacy one.
func parseConfig(data []byte) (ports.StageConfig, error) {
	top, err := decodeOrdered(data)
	if err != nil {
		return ports.StageConfig{}, err
	}

	var (
		cfg        ports.StageConfig
		stagesRaw  json.RawMessage
		hasCurrent bool
	)
	for _, e := range top {
		switch e.key {
		case "num_buttons":
			hasCurrent = true
			var n float64
			if err := json.Unmarshal(e.value, &n); err == nil {
				cfg.NumButtons = int(n)
			}
		case "stages":
			hasCurrent = true
			stagesRaw = e.value
		}
	}

	entries := top
	if hasCurrent {
		entries = nil
		if len(stagesRaw) > 0 {
			if entries, err = decodeOrdered(stagesRaw); err != nil {
				return ports.StageConfig{}, fmt.Errorf("stages: %w", err)
			}
		}
	}

	for _, e := range entries {
		var rs rawStage
		if err := json.Unmarshal(e.value, &rs); err != nil {
			// Not a stage object; legacy files have nothing else at the top level.
			continue
		}
		st := domain.Stage{Key: e.key}
		if rs.Nome != nil {
			st.Name = *rs.Nome
		}
		if rs.Codigo != nil {
			st.Code = *rs.Codigo
		}
		cfg.Stages = append(cfg.Stages, st)
	}
	for i := range cfg.Stages {
		cfg.Stages[i].Ordinal = i + 1
	}
	return cfg, nil
}

func encodeConfig(cfg ports.StageConfig) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"num_buttons":%d,"stages":{`, cfg.NumButtons)
	for i, st := range cfg.Stages {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(st.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(struct {
			Nome   string `json:"nome"`
			Codigo string `json:"codigo"`
		}{st.Name, st.Code})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteString("}}")

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "    "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

type orderedEntry struct {
	key   string
	value json.RawMessage
}

// decodeOrdered decodes a JSON object into its entries, keeping key order.
func decodeOrdered(data []byte) ([]orderedEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}

	var out []orderedEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errNotObject
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, orderedEntry{key: key, value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}
