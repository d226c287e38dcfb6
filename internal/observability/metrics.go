package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestDuration records fitness API call latency by endpoint, method and status.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fitness_web_api_request_duration_seconds",
		Help:    "Latency of calls to the fitness API in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status"})

	// APIRequestsTotal counts fitness API calls by endpoint, method and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitness_web_api_requests_total",
		Help: "Total number of calls to the fitness API",
	}, []string{"endpoint", "method", "status"})

	// SessionOperations counts session transitions by operation and outcome.
	SessionOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitness_web_session_operations_total",
		Help: "Total session operations by type and outcome",
	}, []string{"operation", "outcome"})

	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitness_web_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// StaleListRenders counts list pages served from the last good snapshot after a failed fetch.
	StaleListRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitness_web_stale_list_renders_total",
		Help: "Total number of admin list pages rendered from a snapshot",
	}, []string{"resource"})

	// AdBanners counts banner lookups by placement and result (shown, empty, error, disabled).
	AdBanners = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitness_web_ad_banners_total",
		Help: "Total advertisement banner lookups by placement and result",
	}, []string{"placement", "result"})
)

// ObserveAPICall records one fitness API call. A status of 0 means the
// request never got a response.
func ObserveAPICall(endpoint, method string, status int, start time.Time) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	APIRequestDuration.WithLabelValues(endpoint, method, label).Observe(time.Since(start).Seconds())
	APIRequestsTotal.WithLabelValues(endpoint, method, label).Inc()
}

// RecordSessionOp increments the session operation counter.
func RecordSessionOp(operation, outcome string) {
	SessionOperations.WithLabelValues(operation, outcome).Inc()
}
