package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"stage-tracker/internal/adapter/jsonfile"
	"stage-tracker/internal/adapter/metrics"
	msql "stage-tracker/internal/adapter/mysql"
	"stage-tracker/internal/aggregate"
	"stage-tracker/internal/clock"
	"stage-tracker/internal/config"
	"stage-tracker/internal/domain"
	"stage-tracker/internal/edit"
	"stage-tracker/internal/migrate"
	"stage-tracker/internal/ports"
	"stage-tracker/internal/registry"
	"stage-tracker/internal/tracker"
	"stage-tracker/internal/usecase"
	"stage-tracker/internal/watcher"
)

// ErrMirrorDisabled is returned by Mirror when no MySQL DSN is configured.
var ErrMirrorDisabled = errors.New("mirror disabled: MYSQL_DSN is not set")

// App wires adapters and use cases. Every exported method holds the same
// lock, so front ends may call it from several goroutines.
type App struct {
	log *slog.Logger
	cfg config.Config

	mu       sync.Mutex
	registry *registry.Registry
	logs     *jsonfile.LogStore
	workflow *usecase.Workflow
	logbook  *usecase.LogBook
	mirror   *usecase.MirrorUseCase
	promReg  *prometheus.Registry
	closers  []func() error
}

// New builds the application from configuration. When a MySQL DSN is set the
// mirror schema is migrated and finished sessions are copied there.
func New(ctx context.Context, log *slog.Logger, cfg config.Config) (*App, error) {
	var (
		sink    ports.SessionSink
		closers []func() error
	)
	if cfg.MirrorEnabled() {
		client, err := msql.NewClient(ctx, cfg.MySQLDSN, log)
		if err != nil {
			return nil, fmt.Errorf("open mirror database: %w", err)
		}
		if _, err := migrate.Run(ctx, client.DB(), log); err != nil {
			client.Close()
			return nil, fmt.Errorf("migrate mirror database: %w", err)
		}
		sink = client
		closers = append(closers, client.Close)
	}
	a, err := build(ctx, log, cfg, clockwork.NewRealClock(), sink)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}
	a.closers = closers
	return a, nil
}

func build(ctx context.Context, log *slog.Logger, cfg config.Config, base clockwork.Clock, sink ports.SessionSink) (*App, error) {
	clk := clock.New(base)
	promReg := metrics.NewRegistry()
	m := metrics.NewTrackerMetrics(promReg)

	reg := registry.New(jsonfile.NewConfigStore(cfg.SettingsPath(), log), log)
	if err := reg.Initialize(ctx, cfg.DefaultStages); err != nil {
		return nil, err
	}
	logs := jsonfile.NewLogStore(cfg.LogPath(), clk, log)
	if err := logs.Ensure(ctx); err != nil {
		return nil, err
	}

	a := &App{
		log:      log,
		cfg:      cfg,
		registry: reg,
		logs:     logs,
		promReg:  promReg,
		workflow: &usecase.Workflow{
			Log:              log,
			Registry:         reg,
			Tracker:          tracker.New(clk),
			Store:            logs,
			Sink:             sink,
			Metrics:          m,
			DefaultReference: cfg.DefaultReference,
		},
		logbook: &usecase.LogBook{Log: log, Store: logs, Metrics: m},
	}
	if sink != nil {
		a.mirror = &usecase.MirrorUseCase{Log: log, Store: logs, Sink: sink, Metrics: m}
	}
	log.Info("stage tracker ready",
		slog.String("data_dir", cfg.DataDir),
		slog.Int("stages", reg.Count()),
		slog.Bool("mirror", sink != nil))
	return a, nil
}

// Close releases the mirror connection, if any.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// WatchLogs recreates the session log if it is deleted while the app runs.
// The returned stop function ends the watch.
func (a *App) WatchLogs(ctx context.Context) (stop func() error, err error) {
	w, err := watcher.New(a.logs.Path(), func(ctx context.Context) {
		if err := a.logs.Ensure(ctx); err != nil {
			a.log.Error("could not recreate session log", slog.Any("err", err))
		}
	}, a.log)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, err
	}
	return w.Stop, nil
}

// MetricsHandler serves the Prometheus registry.
func (a *App) MetricsHandler() http.Handler { return metrics.Handler(a.promReg) }

func (a *App) Stages() []domain.Stage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registry.Stages()
}

// RenameStage changes a stage's name and code and saves the configuration.
func (a *App) RenameStage(ctx context.Context, key, name, code string) (domain.Stage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.registry.Rename(key, name, code); err != nil {
		return domain.Stage{}, err
	}
	if err := a.registry.Persist(ctx); err != nil {
		return domain.Stage{}, err
	}
	s, _ := a.registry.Lookup(key)
	return s, nil
}

// ResizeStages sets the number of stages, clamped to the allowed range, and
// saves the configuration.
func (a *App) ResizeStages(ctx context.Context, n int) ([]domain.Stage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.registry.Resize(n)
	if err := a.registry.Persist(ctx); err != nil {
		return nil, err
	}
	return a.registry.Stages(), nil
}

func (a *App) SelectStage(key string) (domain.Stage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.workflow.SelectStage(key)
}

// SelectOrdinal selects the i-th stage (1-based).
func (a *App) SelectOrdinal(i int) (domain.Stage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.registry.ByOrdinal(i)
	if !ok {
		return domain.Stage{}, fmt.Errorf("%w: #%d", domain.ErrUnknownStage, i)
	}
	return a.workflow.SelectStage(s.Key)
}

func (a *App) Status() tracker.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.workflow.Status()
}

func (a *App) Finish(ctx context.Context, reference string) (aggregate.Summary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.workflow.Finish(ctx, reference)
}

func (a *App) Logs(ctx context.Context) (ports.Listing, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.logbook.List(ctx)
}

func (a *App) SearchLogs(ctx context.Context, query string) ([]domain.LoggedSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.logbook.Search(ctx, query)
}

func (a *App) LogDetail(ctx context.Context, token string) (aggregate.Summary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.logbook.Detail(ctx, token)
}

// BeginEdit returns the rows of a logged session in the order edits refer to.
func (a *App) BeginEdit(ctx context.Context, token string) (*edit.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.logbook.BeginEdit(ctx, token)
}

// EditLog applies rows to the logged session and saves it in one step.
func (a *App) EditLog(ctx context.Context, token string, rows []edit.Row) ([]domain.Interval, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, err := a.logbook.BeginEdit(ctx, token)
	if err != nil {
		return nil, err
	}
	return a.logbook.SaveEdit(ctx, s, rows)
}

// SaveEdit saves an edit session started with BeginEdit.
func (a *App) SaveEdit(ctx context.Context, s *edit.Session, rows []edit.Row) ([]domain.Interval, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.logbook.SaveEdit(ctx, s, rows)
}

func (a *App) Preview(row edit.Row) int64 { return a.logbook.Preview(row) }

func (a *App) ClearLogs(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.logbook.Clear(ctx)
}

// Mirror pushes the whole log to MySQL and returns the number of sessions sent.
func (a *App) Mirror(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mirror == nil {
		return 0, ErrMirrorDisabled
	}
	return a.mirror.Run(ctx)
}
