package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	refreshTicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wardwatch_monitor_refresh_ticks_total",
		Help: "Completed refresh ticks.",
	})
	refreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wardwatch_monitor_refresh_duration_seconds",
		Help:    "Wall time of one refresh tick across all active beds.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})
	refreshFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wardwatch_monitor_refresh_failures_total",
		Help: "Per-bed refresh failures by reason.",
	}, []string{"reason"})
	refreshDiscardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wardwatch_monitor_refresh_discarded_total",
		Help: "Refresh results dropped because the bed was removed, replaced, deactivated, or already newer.",
	})
	bedsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wardwatch_monitor_beds",
		Help: "Registered beds by state.",
	}, []string{"state"})
)

func init() {
	prometheus.MustRegister(refreshTicksTotal, refreshDuration, refreshFailuresTotal, refreshDiscardedTotal, bedsGauge)
}
