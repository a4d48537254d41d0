// Package metrics 定义服务暴露给 Prometheus 的指标。
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal 按路由模板、方法与状态码统计请求数。
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskhub_http_requests_total",
		Help: "Total HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})
	// HTTPRequestDuration 请求耗时分布。
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskhub_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
	// AuthEventsTotal 认证事件：register / login 的 success / failure。
	AuthEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskhub_auth_events_total",
		Help: "Authentication events by action and result.",
	}, []string{"action", "result"})
	// AccessDeniedTotal 访问控制拒绝次数（按实体类型），包括不存在与非本人两种情况。
	AccessDeniedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskhub_access_denied_total",
		Help: "Ownership checks that resolved to not found.",
	}, []string{"entity"})
	// AttachmentBytesTotal 成功保存的附件字节数。
	AttachmentBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskhub_attachment_bytes_total",
		Help: "Bytes of attachments stored.",
	})
	// FileCleanupTotal 存储文件清理结果：ok / failed。
	FileCleanupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskhub_file_cleanup_total",
		Help: "Stored file removals by result.",
	}, []string{"result"})
	// SharesCreatedTotal 创建的任务共享数。
	SharesCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskhub_shares_created_total",
		Help: "Task share grants created.",
	})
	// LoginRateLimitedTotal 被限流拒绝的登录请求数。
	LoginRateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskhub_login_rate_limited_total",
		Help: "Login requests rejected by the rate limiter.",
	})
	// CleanupQueueDepth 文件清理队列中待处理的任务数。
	CleanupQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "taskhub_cleanup_queue_depth",
		Help: "Pending jobs in the file cleanup queue.",
	})

	initOnce sync.Once
)

// InitMetrics 注册全部指标，可重复调用。
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AuthEventsTotal,
			AccessDeniedTotal,
			AttachmentBytesTotal,
			FileCleanupTotal,
			SharesCreatedTotal,
			LoginRateLimitedTotal,
			CleanupQueueDepth,
		)
	})
}
