package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Service actor metrics
	ReactivesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "meerkat_reactives_total",
			Help: "Total number of reactives by service and kind",
		},
		[]string{"service", "kind"},
	)

	ServicesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "meerkat_services_total",
			Help: "Total number of running service actors",
		},
	)

	// Lock metrics
	LockWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meerkat_lock_wait_duration_seconds",
			Help:    "Time a coordinator waited between Lock and LockGranted",
			Buckets: prometheus.DefBuckets,
		},
	)

	LocksPreemptedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meerkat_locks_preempted_total",
			Help: "Total number of Preempt messages sent by service actors",
		},
		[]string{"service"},
	)

	LocksGrantedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meerkat_locks_granted_total",
			Help: "Total number of locks granted by kind",
		},
		[]string{"service", "kind"},
	)

	// Transaction metrics
	CommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meerkat_commit_duration_seconds",
			Help:    "Time from Lock to Commit for a transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meerkat_transactions_total",
			Help: "Total number of transactions by coordinator kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	AssertionFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meerkat_assertion_failures_total",
			Help: "Total number of failed assertions",
		},
	)

	// Propagation metrics
	PropagationFanout = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meerkat_propagation_fanout",
			Help:    "Number of subscribers and importers notified per propagation sweep",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"service"},
	)

	BatchDiscoveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meerkat_batch_discovery_duration_seconds",
			Help:    "Time spent inside a definition's nextValue batch-discovery search",
			Buckets: prometheus.DefBuckets,
		},
	)

	DefinitionRecomputesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meerkat_definition_recomputes_total",
			Help: "Total number of times a definition recomputed its value",
		},
		[]string{"service", "reactive"},
	)
)

func init() {
	prometheus.MustRegister(ReactivesTotal)
	prometheus.MustRegister(ServicesTotal)
	prometheus.MustRegister(LockWaitDuration)
	prometheus.MustRegister(LocksPreemptedTotal)
	prometheus.MustRegister(LocksGrantedTotal)
	prometheus.MustRegister(CommitDuration)
	prometheus.MustRegister(TransactionsTotal)
	prometheus.MustRegister(AssertionFailuresTotal)
	prometheus.MustRegister(PropagationFanout)
	prometheus.MustRegister(BatchDiscoveryDuration)
	prometheus.MustRegister(DefinitionRecomputesTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
