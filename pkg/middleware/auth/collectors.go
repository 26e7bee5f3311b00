package auth

import "github.com/prometheus/client_golang/prometheus"

var (
	refreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sentinel_session_refresh_total", Help: "session refresh attempts by outcome"},
		[]string{"outcome"},
	)

	refreshSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_session_refresh_seconds",
			Help:    "duration of one refresh slot, store read to store write.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	gateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sentinel_session_gate_total", Help: "session gate outcomes by state"},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(
		refreshTotal,
		refreshSeconds,
		gateTotal,
	)
}
