package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stage_tracker"

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// TrackerMetrics counts what happens to sessions and the log.
// A nil *TrackerMetrics is valid and records nothing.
type TrackerMetrics struct {
	StageSelections   *prometheus.CounterVec
	SessionsFinalized prometheus.Counter
	IntervalSeconds   prometheus.Histogram
	LogRecoveries     prometheus.Counter
	LogEdits          *prometheus.CounterVec
	MirrorRuns        *prometheus.CounterVec
}

// NewTrackerMetrics creates and registers tracker metrics on the given registry.
func NewTrackerMetrics(reg prometheus.Registerer) *TrackerMetrics {
	m := &TrackerMetrics{
		StageSelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_selections_total",
			Help:      "Total number of stage selections, by stage code.",
		}, []string{"code"}),
		SessionsFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finalized_total",
			Help:      "Total number of sessions finished and logged.",
		}),
		IntervalSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interval_duration_seconds",
			Help:      "Elapsed time of closed intervals in seconds.",
			Buckets:   []float64{10, 30, 60, 300, 900, 1800, 3600, 7200},
		}),
		LogRecoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_recoveries_total",
			Help:      "Total number of times an unreadable session log was reset.",
		}),
		LogEdits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_edits_total",
			Help:      "Total number of log mutations, by operation.",
		}, []string{"op"}),
		MirrorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_runs_total",
			Help:      "Total number of mirror pushes, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.StageSelections, m.SessionsFinalized, m.IntervalSeconds,
		m.LogRecoveries, m.LogEdits, m.MirrorRuns)
	return m
}

func (m *TrackerMetrics) StageSelected(code string) {
	if m == nil {
		return
	}
	m.StageSelections.WithLabelValues(code).Inc()
}

func (m *TrackerMetrics) SessionFinalized(intervalSeconds []int64) {
	if m == nil {
		return
	}
	m.SessionsFinalized.Inc()
	for _, s := range intervalSeconds {
		m.IntervalSeconds.Observe(float64(s))
	}
}

func (m *TrackerMetrics) LogRecovered() {
	if m == nil {
		return
	}
	m.LogRecoveries.Inc()
}

func (m *TrackerMetrics) LogEdited(op string) {
	if m == nil {
		return
	}
	m.LogEdits.WithLabelValues(op).Inc()
}

func (m *TrackerMetrics) Mirrored(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.MirrorRuns.WithLabelValues(result).Inc()
}
