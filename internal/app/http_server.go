package app

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"stage-tracker/internal/aggregate"
	"stage-tracker/internal/domain"
	"stage-tracker/internal/edit"
)

// HTTPServer returns a configured http.Server exposing the tracker over JSON.
// Call ListenAndServe on the returned server in a goroutine and Shutdown it on exit.
func (a *App) HTTPServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.log.Info("http server configured", slog.String("addr", addr))
	return srv
}

// Handler is the HTTP API router.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler { return loggingMiddleware(a.log, next) })

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", a.MetricsHandler())

	r.Route("/stages", func(r chi.Router) {
		r.Get("/", a.handleListStages)
		r.Post("/resize", a.handleResizeStages)
		r.Put("/{key}", a.handleRenameStage)
		r.Post("/{key}/select", a.handleSelectStage)
	})

	r.Get("/session", a.handleStatus)
	r.Post("/session/finish", a.handleFinish)

	r.Route("/logs", func(r chi.Router) {
		r.Get("/", a.handleListLogs)
		r.Delete("/", a.handleClearLogs)
		r.Post("/recompute", a.handleRecompute)
		r.Get("/{token}", a.handleLogDetail)
		r.Put("/{token}/intervals", a.handleEditLog)
	})

	r.Post("/mirror", a.handleMirror)
	return r
}

func (a *App) handleListStages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewStageViews(a.Stages()))
}

func (a *App) handleResizeStages(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Count int `json:"count"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	stages, err := a.ResizeStages(r.Context(), body.Count)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewStageViews(stages))
}

func (a *App) handleRenameStage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s, err := a.RenameStage(r.Context(), pathParam(r, "key"), body.Name, body.Code)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewStageView(s))
}

func (a *App) handleSelectStage(w http.ResponseWriter, r *http.Request) {
	if _, err := a.SelectStage(pathParam(r, "key")); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewStatusView(a.Status()))
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewStatusView(a.Status()))
}

func (a *App) handleFinish(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reference string `json:"reference"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	sum, err := a.Finish(r.Context(), body.Reference)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewSummaryView(sum))
}

// GET /logs?q=... filters by timestamp, token or reference.
func (a *App) handleListLogs(w http.ResponseWriter, r *http.Request) {
	if q, ok := r.URL.Query()["q"]; ok {
		found, err := a.SearchLogs(r.Context(), q[0])
		if err != nil {
			a.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": NewSessionViews(found)})
		return
	}
	listing, err := a.Logs(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions":  NewSessionViews(listing.Sessions),
		"recovered": listing.Recovered,
	})
}

func (a *App) handleLogDetail(w http.ResponseWriter, r *http.Request) {
	sum, err := a.LogDetail(r.Context(), pathParam(r, "token"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSummaryView(sum))
}

type rowBody struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Keep  bool   `json:"keep,omitempty"`
}

func (a *App) handleEditLog(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rows []rowBody `json:"rows"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	rows := make([]edit.Row, len(body.Rows))
	for i, rb := range body.Rows {
		rows[i] = edit.Row{Start: rb.Start, End: rb.End, Keep: rb.Keep}
	}
	saved, err := a.EditLog(r.Context(), pathParam(r, "token"), rows)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"intervals": NewIntervalViews(saved)})
}

func (a *App) handleRecompute(w http.ResponseWriter, r *http.Request) {
	var body rowBody
	if !decodeBody(w, r, &body) {
		return
	}
	secs := a.Preview(edit.Row{Start: body.Start, End: body.End})
	writeJSON(w, http.StatusOK, map[string]any{
		"elapsed_sec": secs,
		"duration":    aggregate.FormatDuration(secs),
	})
}

// DELETE /logs requires ?confirm=yes.
func (a *App) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "yes" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"status": "error",
			"error":  "clearing the log needs confirm=yes",
		})
		return
	}
	if err := a.ClearLogs(r.Context()); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleMirror(w http.ResponseWriter, r *http.Request) {
	n, err := a.Mirror(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": n})
}

// writeError maps domain errors to status codes.
func (a *App) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnknownStage):
		status = http.StatusNotFound
	case errors.Is(err, ErrMirrorDisabled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrPersistence):
		a.log.Error("persistence failure", slog.Any("err", err))
	default:
		a.log.Error("request failed", slog.Any("err", err))
	}
	writeJSON(w, status, map[string]any{"status": "error", "error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "error": "invalid JSON body: " + err.Error()})
	return false
}

func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// loggingMiddleware provides basic request logging.
func loggingMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("dur", time.Since(start)),
		)
	})
}
