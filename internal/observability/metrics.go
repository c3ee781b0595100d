package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	identityRaceCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wearables_core",
		Subsystem: "identity",
		Name:      "insert_races_recovered_total",
		Help:      "Number of concurrent data source inserts recovered by re-reading the winner's row.",
	})
	eventPersistGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "wearables_core",
		Subsystem: "persistence",
		Name:      "last_event_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent event record persisted, per category.",
	}, []string{"category"})
)

func init() {
	prometheus.MustRegister(identityRaceCounter, eventPersistGauge)
}

// RecordIdentityRace counts a lost insert race that was recovered locally.
func RecordIdentityRace() {
	identityRaceCounter.Inc()
}

// RecordEventPersisted updates the persistence watermark gauge for a category.
func RecordEventPersisted(category string, ts time.Time) {
	if ts.IsZero() {
		return
	}
	eventPersistGauge.WithLabelValues(category).Set(float64(ts.Unix()))
}
