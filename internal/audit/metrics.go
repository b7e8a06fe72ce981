package audit

import "github.com/prometheus/client_golang/prometheus"

var (
	eventsPersistedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wardwatch_audit_events_persisted_total",
		Help: "Activity events written to the audit log.",
	})
	writeFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wardwatch_audit_write_failures_total",
		Help: "Activity events lost because the store rejected the write.",
	})
	eventsDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wardwatch_audit_events_dropped_total",
		Help: "Activity events dropped before reaching the store, by reason.",
	}, []string{"reason"})
	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wardwatch_audit_queue_depth",
		Help: "Activity events waiting to be written.",
	})
)

func init() {
	prometheus.MustRegister(eventsPersistedTotal, writeFailuresTotal, eventsDroppedTotal, queueDepth)
}
