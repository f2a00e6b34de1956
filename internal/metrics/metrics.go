// Package metrics 定义了服务暴露给 Prometheus 的指标。
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mailsync",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailsync",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// SearchDuration 记录一次搜索（编译 + Elasticsearch 请求 + 结果转换）的耗时。
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mailsync",
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"entity"},
	)

	// QueryCompileErrorsTotal 统计被拒绝的 API 查询。
	QueryCompileErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailsync",
			Name:      "query_compile_errors_total",
			Help:      "Total number of API queries rejected by the compiler",
		},
		[]string{"entity"},
	)

	// SyncbackActionsTotal 统计 syncback 派发结果，result 为 dispatched 或 failed。
	SyncbackActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailsync",
			Name:      "syncback_actions_total",
			Help:      "Total number of action log rows processed by syncback",
		},
		[]string{"shard", "result"},
	)

	// SyncbackLeaseHeld 表示当前进程是否持有分片租约。
	SyncbackLeaseHeld = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mailsync",
			Name:      "syncback_lease_held",
			Help:      "Whether this process holds the syncback lease for a shard",
		},
		[]string{"shard"},
	)

	// IndexTasksTotal 统计索引管道处理的任务，result 为 ok 或 error。
	IndexTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailsync",
			Name:      "index_tasks_total",
			Help:      "Total number of index tasks processed",
		},
		[]string{"kind", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestDuration,
		httpRequestsTotal,
		SearchDuration,
		QueryCompileErrorsTotal,
		SyncbackActionsTotal,
		SyncbackLeaseHeld,
		IndexTasksTotal,
	)
}

// ShardLabel 把分片 ID 转换为指标标签。
func ShardLabel(shardID int) string {
	return strconv.Itoa(shardID)
}

// Middleware 记录 HTTP 请求的耗时和次数，path 使用路由模板以避免标签基数过高。
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
