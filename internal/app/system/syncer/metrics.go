package syncer

import (
	"time"

	"github.com/dalemusser/surveytrack/internal/domain/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Submission outcomes reported in metrics.
const (
	outcomeNew       = "new"
	outcomeUpdated   = "updated"
	outcomeUnchanged = "unchanged"
	outcomeError     = "error"
)

// Metrics are the Prometheus collectors of the orchestrator. A nil
// *Metrics records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	submissions *prometheus.CounterVec
	duration    prometheus.Histogram
	running     prometheus.Gauge
}

// NewMetrics creates the sync collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surveytrack",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Finished sync runs by terminal status.",
		}, []string{"status"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surveytrack",
			Subsystem: "sync",
			Name:      "submissions_total",
			Help:      "Processed submissions by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "surveytrack",
			Subsystem: "sync",
			Name:      "run_duration_seconds",
			Help:      "Wall time of sync runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "surveytrack",
			Subsystem: "sync",
			Name:      "running",
			Help:      "Sync runs currently executing in this process.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.submissions, m.duration, m.running)
	}
	return m
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.running.Inc()
}

func (m *Metrics) finished(run models.SyncRun, took time.Duration) {
	if m == nil {
		return
	}
	m.running.Dec()
	m.runs.WithLabelValues(string(run.Status)).Inc()
	m.duration.Observe(took.Seconds())
}

func (m *Metrics) submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}
