package pool

import "github.com/prometheus/client_golang/prometheus"

// metrics exposes the pool's bounded-semaphore behavior to Prometheus, per
// SPEC_FULL.md's domain-stack wiring: a gauge of permits currently in use
// and a histogram of how long Acquire waited for one, both labeled by
// authority so a multi-cluster client distinguishes hot pools from idle
// ones.
type metrics struct {
	inUse       *prometheus.GaugeVec
	idle        *prometheus.GaugeVec
	acquireWait *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		inUse: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "neobolt",
			Subsystem: "pool",
			Name:      "connections_in_use",
			Help:      "Number of pooled Bolt connections currently borrowed.",
		}, []string{"authority"}),
		idle: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "neobolt",
			Subsystem: "pool",
			Name:      "connections_idle",
			Help:      "Number of pooled Bolt connections currently idle.",
		}, []string{"authority"}),
		acquireWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "neobolt",
			Subsystem: "pool",
			Name:      "acquire_wait_seconds",
			Help:      "Time spent waiting for a pooled Bolt connection to become available.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"authority"}),
	}
	if reg != nil {
		reg.MustRegister(m.inUse, m.idle, m.acquireWait)
	}
	return m
}
