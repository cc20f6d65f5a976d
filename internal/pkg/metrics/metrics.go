package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal 按路由与状态码统计的请求数。
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoapi_http_requests_total",
			Help: "Total HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration 请求耗时分布。
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todoapi_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// RecordConflictsTotal 唯一约束冲突次数。
	RecordConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoapi_record_conflicts_total",
			Help: "Uniqueness conflicts surfaced by record services.",
		},
		[]string{"entity"},
	)

	// ValidationFailuresTotal 请求体校验失败次数。
	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoapi_validation_failures_total",
			Help: "Requests rejected by schema validation.",
		},
		[]string{"schema"},
	)
)

var initOnce sync.Once

// InitMetrics 注册所有指标，可重复调用。
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			RecordConflictsTotal,
			ValidationFailuresTotal,
		)
	})
}
