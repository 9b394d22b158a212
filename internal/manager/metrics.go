package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	inflightGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "geminid",
			Subsystem: "gen",
			Name:      "inflight",
			Help:      "Generation processes currently holding a slot",
		},
	)

	queueGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "geminid",
			Subsystem: "gen",
			Name:      "queue_waiting",
			Help:      "Callers parked waiting for a slot",
		},
	)

	slotsGrantedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "geminid",
			Subsystem: "gen",
			Name:      "slots_granted_total",
			Help:      "Total slot grants",
		},
	)

	processDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "geminid",
			Subsystem: "gen",
			Name:      "process_duration_seconds",
			Help:      "Wall time of generation processes by outcome",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	processOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geminid",
			Subsystem: "gen",
			Name:      "process_outcomes_total",
			Help:      "Terminal outcomes of generation processes",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(inflightGauge, queueGauge, slotsGrantedTotal, processDuration, processOutcomes)
}

// outcome labels for processDuration/processOutcomes
const (
	outcomeOK           = "ok"
	outcomeCLIError     = "cli_error"
	outcomeTimeout      = "timeout"
	outcomeSpawnFailure = "spawn_failure"
	outcomeDisconnect   = "disconnect"
	outcomeOverrun      = "overrun"
)

func observeOutcome(outcome string, seconds float64) {
	processOutcomes.WithLabelValues(outcome).Inc()
	processDuration.WithLabelValues(outcome).Observe(seconds)
}
