package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accountsvc_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "accountsvc_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	DatabaseOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accountsvc_database_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "entity"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "accountsvc_database_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "entity"},
	)

	AccountEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accountsvc_account_events_total",
			Help: "Account lifecycle outcomes by operation",
		},
		[]string{"operation", "outcome"},
	)

	NotifierQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "accountsvc_notifier_queue_size",
			Help: "Reset notices waiting in the delivery queue",
		},
	)

	NotifierActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "accountsvc_notifier_active_workers",
			Help: "Delivery workers currently processing a notice",
		},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "accountsvc_cache_hits_total",
			Help: "Cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "accountsvc_cache_misses_total",
			Help: "Cache misses",
		},
	)
)

func RecordHttpRequest(method, endpoint, status string, duration time.Duration) {
	HttpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HttpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func RecordDatabaseOperation(operation, entity string, duration time.Duration) {
	DatabaseOperationsTotal.WithLabelValues(operation, entity).Inc()
	DatabaseOperationDuration.WithLabelValues(operation, entity).Observe(duration.Seconds())
}

func RecordAccountEvent(operation, outcome string) {
	AccountEventsTotal.WithLabelValues(operation, outcome).Inc()
}

func UpdateNotifierStats(queueSize, activeWorkers int) {
	NotifierQueueSize.Set(float64(queueSize))
	NotifierActiveWorkers.Set(float64(activeWorkers))
}

func RecordCacheHit() {
	CacheHits.Inc()
}

func RecordCacheMiss() {
	CacheMisses.Inc()
}
