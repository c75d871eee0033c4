package keycloak

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// TokenRequestTotal counts token requests by result
	TokenRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keycloak_token_requests_total",
			Help: "Total number of token requests against the Keycloak token endpoint",
		},
		[]string{"result"},
	)

	// TokenRequestDuration tracks the duration of token requests
	TokenRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "keycloak_token_request_duration_seconds",
			Help:    "Duration of token requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		TokenRequestTotal,
		TokenRequestDuration,
	)
}

// RecordTokenRequest records the outcome of a single token request
func RecordTokenRequest(success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	TokenRequestTotal.WithLabelValues(result).Inc()
}
