package sleep

import "github.com/prometheus/client_golang/prometheus"

var (
	finalizedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wearables_core",
		Subsystem: "sleep",
		Name:      "sessions_finalized_total",
		Help:      "Number of sleep sessions finalized and persisted.",
	})
	outOfOrderCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wearables_core",
		Subsystem: "sleep",
		Name:      "out_of_order_events_dropped_total",
		Help:      "Number of phase events dropped because they arrived out of order.",
	})
	malformedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wearables_core",
		Subsystem: "sleep",
		Name:      "malformed_events_dropped_total",
		Help:      "Number of phase events dropped because of invalid timestamps.",
	})
	sweepFinalizedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wearables_core",
		Subsystem: "sleep",
		Name:      "sweep_sessions_finalized_total",
		Help:      "Number of idle sessions finalized by the sweep process.",
	})
	openAccumulatorGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wearables_core",
		Subsystem: "sleep",
		Name:      "open_accumulators",
		Help:      "Number of users with an open sleep accumulator, sampled by the sweeper.",
	})
)

func init() {
	prometheus.MustRegister(finalizedCounter, outOfOrderCounter, malformedCounter, sweepFinalizedCounter, openAccumulatorGauge)
}

func recordSessionFinalized() { finalizedCounter.Inc() }

func recordOutOfOrderDrop() { outOfOrderCounter.Inc() }

func recordMalformedDrop() { malformedCounter.Inc() }

func recordSweepFinalized() { sweepFinalizedCounter.Inc() }

func recordOpenAccumulators(n int) { openAccumulatorGauge.Set(float64(n)) }
