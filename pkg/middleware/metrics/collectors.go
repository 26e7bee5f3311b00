package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	responseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_http_response_seconds",
			Help:    "http response time.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	totalHttpRequestsFromRole = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sentinel_http_requests_from_role_total", Help: "http requests from role"},
		[]string{"role"},
	)

	totalHttpRequestsBySession = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sentinel_http_requests_by_session_state_total", Help: "http requests by session gate state"},
		[]string{"state"},
	)

	totalHttpRequestsToUri = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sentinel_http_requests_to_uri_total", Help: "http requests to uri"},
		[]string{"code", "uri", "method"},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sentinel_http_requests_total", Help: "http requests by code, and method"},
		[]string{"code", "method"},
	)
)

func init() {
	prometheus.MustRegister(
		responseTime,
		totalHttpRequestsFromRole,
		totalHttpRequestsBySession,
		totalHttpRequestsToUri,
		totalHttpRequests,
	)
}
