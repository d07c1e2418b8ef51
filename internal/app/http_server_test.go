package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHTTP_Healthz(t *testing.T) {
	a, _ := newTestApp(t, nil)
	rec := do(t, a.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHTTP_StagesAndSession(t *testing.T) {
	a, fc := newTestApp(t, nil)
	h := a.Handler()

	rec := do(t, h, http.MethodGet, "/stages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stages := decode[[]StageView](t, rec)
	require.Len(t, stages, 3)
	assert.Equal(t, "Stage 1", stages[0].Key)

	rec = do(t, h, http.MethodPut, "/stages/Stage%201", `{"name":"Design","code":"D1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Design", decode[StageView](t, rec).Name)

	rec = do(t, h, http.MethodPost, "/stages/Stage%201/select", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[StatusView](t, rec)
	require.NotNil(t, st.Active)
	assert.Equal(t, "D1", st.Active.Code)

	fc.Advance(2 * time.Minute)

	rec = do(t, h, http.MethodGet, "/session", "")
	assert.Equal(t, "2 minutes", decode[StatusView](t, rec).Duration)

	rec = do(t, h, http.MethodPost, "/session/finish", `{"reference":"ABC-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	sum := decode[SummaryView](t, rec)
	assert.Equal(t, "ABC-1", sum.Reference)
	assert.Equal(t, int64(120), sum.Total)
	require.Len(t, sum.Groups, 1)
	assert.Equal(t, "Design", sum.Groups[0].Stage)

	rec = do(t, h, http.MethodGet, "/logs/"+sum.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sum.Token, decode[SummaryView](t, rec).Token)
}

func TestHTTP_FinishWithoutBodyUsesDefaultReference(t *testing.T) {
	a, _ := newTestApp(t, nil)
	rec := do(t, a.Handler(), http.MethodPost, "/session/finish", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "SEM CARD JIRA", decode[SummaryView](t, rec).Reference)
}

func TestHTTP_NotFound(t *testing.T) {
	a, _ := newTestApp(t, nil)
	h := a.Handler()

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/logs/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/stages/nope/select", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPut, "/logs/nope/intervals", `{"rows":[]}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPut, "/stages/nope", `{"name":"x","code":"y"}`).Code)
}

func TestHTTP_BadBody(t *testing.T) {
	a, _ := newTestApp(t, nil)
	rec := do(t, a.Handler(), http.MethodPost, "/stages/resize", `{"count":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_ResizeClamps(t *testing.T) {
	a, _ := newTestApp(t, nil)
	rec := do(t, a.Handler(), http.MethodPost, "/stages/resize", `{"count":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]StageView](t, rec), 1)
}

func TestHTTP_SearchEditClear(t *testing.T) {
	a, fc := newTestApp(t, nil)
	h := a.Handler()

	do(t, h, http.MethodPost, "/stages/Stage%202/select", "")
	fc.Advance(10 * time.Second)
	rec := do(t, h, http.MethodPost, "/session/finish", `{"reference":"OPS-3"}`)
	token := decode[SummaryView](t, rec).Token

	rec = do(t, h, http.MethodGet, "/logs?q=OPS", "")
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[struct {
		Sessions []SessionView `json:"sessions"`
	}](t, rec)
	require.Len(t, found.Sessions, 1)

	rec = do(t, h, http.MethodGet, "/logs?q=", "")
	assert.Empty(t, decode[struct {
		Sessions []SessionView `json:"sessions"`
	}](t, rec).Sessions)

	rec = do(t, h, http.MethodPost, "/logs/recompute", `{"start":"10:00:00","end":"09:00:00"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode[map[string]any](t, rec)["elapsed_sec"])

	rec = do(t, h, http.MethodPut, "/logs/"+token+"/intervals", `{"rows":[{"start":"","end":""}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[struct {
		Intervals []IntervalView `json:"intervals"`
	}](t, rec).Intervals)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodDelete, "/logs", "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/logs?confirm=yes", "").Code)

	b, err := os.ReadFile(a.cfg.LogPath())
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(b)))
}

func TestHTTP_PersistenceFailureIs500(t *testing.T) {
	a, _ := newTestApp(t, nil)
	require.NoError(t, os.Remove(a.cfg.LogPath()))
	require.NoError(t, os.Mkdir(a.cfg.LogPath(), 0o755))

	rec := do(t, a.Handler(), http.MethodPost, "/session/finish", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHTTP_MirrorDisabled(t *testing.T) {
	a, _ := newTestApp(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, a.Handler(), http.MethodPost, "/mirror", "").Code)
}

func TestHTTP_Metrics(t *testing.T) {
	a, _ := newTestApp(t, nil)
	h := a.Handler()
	do(t, h, http.MethodPost, "/stages/Stage%201/select", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `stage_tracker_stage_selections_total{code="0001"} 1`)
}

func TestHTTP_EditKeepsMarkedRows(t *testing.T) {
	a, fc := newTestApp(t, nil)
	h := a.Handler()

	do(t, h, http.MethodPost, "/stages/Stage%201/select", "")
	fc.Advance(30 * time.Second)
	do(t, h, http.MethodPost, "/stages/Stage%202/select", "")
	fc.Advance(10 * time.Second)
	token := decode[SummaryView](t, do(t, h, http.MethodPost, "/session/finish", "")).Token

	rec := do(t, h, http.MethodPut, "/logs/"+token+"/intervals",
		`{"rows":[{"keep":true},{"start":"08:00:30","end":"08:01:30"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[struct {
		Intervals []IntervalView `json:"intervals"`
	}](t, rec).Intervals
	require.Len(t, got, 2)
	assert.Equal(t, "08:00:00", got[0].Start)
	assert.Equal(t, int64(30), got[0].ElapsedSec)
	assert.Equal(t, int64(60), got[1].ElapsedSec)
}
