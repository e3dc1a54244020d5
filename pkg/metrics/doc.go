/*
Package metrics provides Prometheus metrics collection and exposition for
Meerkat service actors and transaction coordinators.

The metrics package defines and registers every Meerkat metric using the
Prometheus client library, giving visibility into lock contention, commit
latency, and propagation fan-out without requiring a reader to trace through
actor logs. Metrics are exposed via an HTTP endpoint (`meerkat serve
--metrics-addr`) for scraping by a Prometheus server.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Categories              │          │
	│  │                                              │          │
	│  │  Reactives: count by service and kind       │          │
	│  │  Locks: wait time, grants, preemptions      │          │
	│  │  Transactions: commit latency, outcomes     │          │
	│  │  Propagation: fan-out size, batch discovery │          │
	│  └──────────────────────────────────────────────┘          │
	└────────────────────────────────────────────────────────────┘

# Usage

A Timer observes an elapsed duration into one of the histograms. The
engine itself updates only meerkat_services_total; the lock, transaction and
propagation series stay at zero unless a caller records them, for example:

	timer := metrics.NewTimer()
	// ... wait for LockGranted ...
	timer.ObserveDuration(metrics.LockWaitDuration)

# Alerting Guidance

High Preemption Rate:
  - Alert: rate(meerkat_locks_preempted_total[5m]) > 1
  - Description: younger transactions are frequently dying to wait-die
  - Action: check for long-held exclusive locks on hot reactives

Slow Commits:
  - Alert: histogram_quantile(0.95, meerkat_commit_duration_seconds_bucket) > 1
  - Description: p95 commit latency exceeds 1 second
  - Action: inspect batch-discovery duration and propagation fan-out

# See Also

  - Prometheus client library: https://github.com/prometheus/client_golang
  - Histogram best practices: https://prometheus.io/docs/practices/histograms/
*/
package metrics
