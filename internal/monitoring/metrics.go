package monitoring

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"

	"github.com/sells-group/h1b-counting/internal/h1b"
)

const namespace = "h1b"

// Failure reasons used for the runs_total reason label.
const (
	ReasonNone          = "none"
	ReasonMissingColumn = "missing_column"
	ReasonEmptyInput    = "empty_input"
	ReasonOther         = "other"
)

// RunMetrics records report runs on a private Prometheus registry. It
// implements h1b.Observer and is safe for concurrent use.
type RunMetrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	rowsRead    prometheus.Counter
	rowsSkipped prometheus.Counter
	certified   prometheus.Counter
	distinct    *prometheus.GaugeVec
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
}

var _ h1b.Observer = (*RunMetrics)(nil)

// NewRunMetrics creates and registers the run metrics.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Report runs by outcome.",
		}, []string{"status", "reason"}),
		rowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Data rows read from inputs.",
		}),
		rowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Data rows skipped for having too few fields.",
		}),
		certified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "certified_total",
			Help:      "Certified applications counted.",
		}),
		distinct: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "distinct_keys",
			Help:      "Distinct keys seen by the last successful run, per report.",
		}, []string{"report"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last successful run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
	m.registry.MustRegister(m.runs, m.rowsRead, m.rowsSkipped, m.certified, m.distinct, m.duration, m.lastSuccess)
	return m
}

// Registry exposes the underlying registry.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records the outcome of one run.
func (m *RunMetrics) ObserveRun(res *h1b.Result, err error) {
	if err != nil {
		m.runs.WithLabelValues("failed", FailureReason(err)).Inc()
		return
	}
	m.runs.WithLabelValues("complete", ReasonNone).Inc()
	if res == nil {
		return
	}
	m.rowsRead.Add(float64(res.RowsRead))
	m.rowsSkipped.Add(float64(res.RowsSkipped))
	m.certified.Add(float64(res.Total))
	m.distinct.WithLabelValues("occupations").Set(float64(res.DistinctOccupations))
	m.distinct.WithLabelValues("states").Set(float64(res.DistinctStates))
	m.duration.Set(res.Duration.Seconds())
	m.lastSuccess.SetToCurrentTime()
}

// FailureReason classifies a run error for the reason label.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, h1b.ErrMissingColumn):
		return ReasonMissingColumn
	case errors.Is(err, h1b.ErrEmptyInput):
		return ReasonEmptyInput
	default:
		return ReasonOther
	}
}

// WriteTextfile writes the metrics in the node_exporter textfile format.
func (m *RunMetrics) WriteTextfile(path string) error {
	return eris.Wrapf(prometheus.WriteToTextfile(path, m.registry), "monitoring: write textfile %s", path)
}
