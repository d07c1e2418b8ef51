package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stage-tracker/internal/domain"
	"stage-tracker/internal/ports"
)

type memStore struct {
	cfg     ports.StageConfig
	found   bool
	saves   int
	saveErr error
}

func (m *memStore) Load(ctx context.Context) (ports.StageConfig, bool, error) {
	return m.cfg, m.found, nil
}

func (m *memStore) Save(ctx context.Context, cfg ports.StageConfig) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.cfg = cfg
	m.found = true
	m.saves++
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestInitialize_CreatesAndPersistsDefaults(t *testing.T) {
	store := &memStore{}
	r := New(store, discard())

	require.NoError(t, r.Initialize(context.Background(), 8))

	stages := r.Stages()
	require.Len(t, stages, 8)
	assert.Equal(t, domain.Stage{Key: "Stage 1", Name: "Stage 1", Code: "0001", Ordinal: 1}, stages[0])
	assert.Equal(t, domain.Stage{Key: "Stage 8", Name: "Stage 8", Code: "0008", Ordinal: 8}, stages[7])
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 8, store.cfg.NumButtons)
}

func TestInitialize_ClampsDefaultCount(t *testing.T) {
	r := New(&memStore{}, discard())
	require.NoError(t, r.Initialize(context.Background(), 50))
	assert.Equal(t, MaxStages, r.Count())

	r = New(&memStore{}, discard())
	require.NoError(t, r.Initialize(context.Background(), 0))
	assert.Equal(t, MinStages, r.Count())
}

func TestInitialize_LoadsExistingAndDefaultsMissingFields(t *testing.T) {
	store := &memStore{found: true, cfg: ports.StageConfig{
		NumButtons: 3,
		Stages: []domain.Stage{
			{Key: "Etapa 1", Name: "Triagem", Code: "7001"},
			{Key: "Etapa 2"},
			{Key: "Etapa 3", Name: "Deploy"},
		},
	}}
	r := New(store, discard())

	require.NoError(t, r.Initialize(context.Background(), 8))

	assert.Equal(t, []domain.Stage{
		{Key: "Etapa 1", Name: "Triagem", Code: "7001", Ordinal: 1},
		{Key: "Etapa 2", Name: "Etapa 2", Code: "0002", Ordinal: 2},
		{Key: "Etapa 3", Name: "Deploy", Code: "0003", Ordinal: 3},
	}, r.Stages())
	assert.Zero(t, store.saves, "consistent configuration is not rewritten")
}

func TestLoad_LegacyWithoutCountUsesStageCount(t *testing.T) {
	store := &memStore{found: true, cfg: ports.StageConfig{
		Stages: []domain.Stage{{Key: "A"}, {Key: "B"}},
	}}
	r := New(store, discard())

	found, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, r.Count())
	assert.Zero(t, store.saves)
}

func TestLoad_EmptyConfigurationFallsBackToEight(t *testing.T) {
	store := &memStore{found: true}
	r := New(store, discard())

	_, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FallbackStages, r.Count())
	assert.Equal(t, 1, store.saves)
}

func TestLoad_ReconcilesButtonCount(t *testing.T) {
	store := &memStore{found: true, cfg: ports.StageConfig{
		NumButtons: 4,
		Stages:     []domain.Stage{{Key: "Stage 1", Name: "Intake", Code: "0100"}},
	}}
	r := New(store, discard())

	_, err := r.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, r.Count())
	assert.Equal(t, "Intake", r.Stages()[0].Name)
	assert.Equal(t, "Stage 4", r.Stages()[3].Key)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 4, store.cfg.NumButtons)
}

func TestResize_PreservesFirstStageAcrossResizes(t *testing.T) {
	r := New(&memStore{}, discard())
	require.NoError(t, r.Initialize(context.Background(), 8))
	require.NoError(t, r.Rename("Stage 1", "Intake", "9001"))

	assert.Equal(t, 20, r.Resize(20))
	assert.Equal(t, 1, r.Resize(1))
	assert.Equal(t, 5, r.Resize(5))

	stages := r.Stages()
	require.Len(t, stages, 5)
	assert.Equal(t, "Intake", stages[0].Name)
	assert.Equal(t, "9001", stages[0].Code)
	for i := 2; i <= 5; i++ {
		assert.Equal(t, domain.DefaultStage(i), stages[i-1])
	}
}

func TestResize_Clamps(t *testing.T) {
	r := New(&memStore{}, discard())
	require.NoError(t, r.Initialize(context.Background(), 3))

	assert.Equal(t, MaxStages, r.Resize(21))
	assert.Equal(t, MinStages, r.Resize(0))
	assert.Equal(t, MinStages, r.Resize(-4))
}

func TestResize_AvoidsKeyCollisions(t *testing.T) {
	store := &memStore{found: true, cfg: ports.StageConfig{
		NumButtons: 2,
		Stages:     []domain.Stage{{Key: "Stage 3"}, {Key: "Other"}},
	}}
	r := New(store, discard())
	_, err := r.Load(context.Background())
	require.NoError(t, err)

	r.Resize(3)
	keys := map[string]bool{}
	for _, s := range r.Stages() {
		assert.False(t, keys[s.Key], "duplicate key %q", s.Key)
		keys[s.Key] = true
	}
	assert.Len(t, keys, 3)
	assert.Equal(t, "Stage 3 (2)", r.Stages()[2].Key)
}

func TestRename(t *testing.T) {
	r := New(&memStore{}, discard())
	require.NoError(t, r.Initialize(context.Background(), 2))

	require.NoError(t, r.Rename("Stage 2", "Review", "0042"))
	s, ok := r.Lookup("Stage 2")
	require.True(t, ok)
	assert.Equal(t, "Review", s.Name)
	assert.Equal(t, "0042", s.Code)

	// Names and codes need not be unique.
	require.NoError(t, r.Rename("Stage 1", "Review", "0042"))

	err := r.Rename("Stage 9", "x", "y")
	assert.ErrorIs(t, err, domain.ErrUnknownStage)
}

func TestByOrdinal(t *testing.T) {
	r := New(&memStore{}, discard())
	require.NoError(t, r.Initialize(context.Background(), 3))

	s, ok := r.ByOrdinal(2)
	require.True(t, ok)
	assert.Equal(t, "Stage 2", s.Key)

	_, ok = r.ByOrdinal(0)
	assert.False(t, ok)
	_, ok = r.ByOrdinal(4)
	assert.False(t, ok)
}

func TestPersist_WrapsStoreError(t *testing.T) {
	cause := &domain.PersistenceError{Op: "write", Path: "settings.json", Err: errors.New("denied")}
	r := New(&memStore{saveErr: cause}, discard())

	err := r.Initialize(context.Background(), 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}
