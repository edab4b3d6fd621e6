package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ImportMetrics records bulk import job activity.
type ImportMetrics struct {
	jobDuration *prometheus.HistogramVec
	jobSuccess  *prometheus.CounterVec
	jobFailure  *prometheus.CounterVec
	items       *prometheus.CounterVec
}

// NewImportMetrics registers the import metrics on the provided registerer.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	if reg == nil {
		return &ImportMetrics{}
	}
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "import_job_duration_seconds",
		Help:    "Duration of import jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})
	jobSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_job_success",
		Help: "Completed import jobs.",
	}, []string{"trigger"})
	jobFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_job_failure",
		Help: "Failed import jobs.",
	}, []string{"trigger"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_items_processed",
		Help: "Import rows processed by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(jobDuration, jobSuccess, jobFailure, items)
	return &ImportMetrics{
		jobDuration: jobDuration,
		jobSuccess:  jobSuccess,
		jobFailure:  jobFailure,
		items:       items,
	}
}

// ObserveJobDuration records the wall time of a finished job.
func (m *ImportMetrics) ObserveJobDuration(trigger string, duration time.Duration) {
	if m == nil || m.jobDuration == nil {
		return
	}
	m.jobDuration.WithLabelValues(normalizeLabel(trigger)).Observe(duration.Seconds())
}

// IncJobSuccess increments the completed job counter.
func (m *ImportMetrics) IncJobSuccess(trigger string) {
	if m == nil || m.jobSuccess == nil {
		return
	}
	m.jobSuccess.WithLabelValues(normalizeLabel(trigger)).Inc()
}

// IncJobFailure increments the failed job counter.
func (m *ImportMetrics) IncJobFailure(trigger string) {
	if m == nil || m.jobFailure == nil {
		return
	}
	m.jobFailure.WithLabelValues(normalizeLabel(trigger)).Inc()
}

// IncItems adds processed rows under the given outcome label.
func (m *ImportMetrics) IncItems(outcome string, n int) {
	if m == nil || m.items == nil || n <= 0 {
		return
	}
	m.items.WithLabelValues(normalizeLabel(outcome)).Add(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
