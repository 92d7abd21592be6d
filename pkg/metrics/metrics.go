// Package metrics 提供基于Prometheus的指标收集
//
// 可观测性三支柱之一（Tracing、Metrics、Logging）：
// - Tracing 回答"为什么慢？"（pkg/tracing）
// - Metrics 回答"有多少？多快？"（本包）
// - Logging 回答"发生了什么？"（pkg/logger）
//
// 指标命名规范：
// 1. Counter以_total结尾（reservations_created_total）
// 2. Histogram以单位结尾（order_creation_duration_seconds）
// 3. 标签只用低基数维度（status、result），不要用user_id
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// initialized 标记是否已初始化（防止重复注册；测试中未初始化时所有记录函数为no-op）
	initialized bool

	// HTTP请求指标

	// HTTPRequestsTotal HTTP请求总数
	// 标签：method、path、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 预留业务指标

	// ReservationsCreatedTotal 创建的库存预留总数
	// 标签：status（CART/CHECKOUT）
	ReservationsCreatedTotal *prometheus.CounterVec

	// ReservationsReclaimedTotal 过期回收的预留总数
	ReservationsReclaimedTotal prometheus.Counter

	// OversellRejectedTotal 因可用库存不足被拒绝的预留请求总数
	// 并发抢最后一件库存时，失败方计入这里
	OversellRejectedTotal prometheus.Counter

	// StockCommitDuration 库存出库（销售落账）耗时
	StockCommitDuration prometheus.Histogram

	// 订单业务指标

	OrdersCreatedTotal prometheus.Counter
	OrdersFailedTotal  prometheus.Counter

	// PaymentCallbacksTotal 支付回调总数
	// 标签：result（success/failure/duplicate）
	PaymentCallbacksTotal *prometheus.CounterVec

	// LowStockAlertsTotal 低库存告警发送总数
	LowStockAlertsTotal prometheus.Counter
)

// InitMetrics 初始化所有Prometheus指标
// 必须在程序启动时调用一次；使用promauto自动注册到默认Registry
func InitMetrics() {
	if initialized {
		return
	}
	initialized = true

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	ReservationsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_created_total",
			Help: "创建的库存预留总数",
		},
		[]string{"status"},
	)

	ReservationsReclaimedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservations_reclaimed_total",
			Help: "过期回收的库存预留总数",
		},
	)

	OversellRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oversell_rejected_total",
			Help: "因可用库存不足被拒绝的预留请求总数",
		},
	)

	StockCommitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stock_commit_duration_seconds",
			Help:    "库存出库耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	OrdersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "订单创建总数",
		},
	)

	OrdersFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_failed_total",
			Help: "订单创建失败总数",
		},
	)

	PaymentCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "支付回调总数",
		},
		[]string{"result"},
	)

	LowStockAlertsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "low_stock_alerts_total",
			Help: "低库存告警发送总数",
		},
	)
}

// =========================================
// no-op安全的记录辅助函数
// 未调用InitMetrics时（单元测试）全部静默跳过
// =========================================

// RecordReservationCreated 记录一次预留创建
func RecordReservationCreated(status string) {
	if !initialized {
		return
	}
	ReservationsCreatedTotal.WithLabelValues(status).Inc()
}

// RecordReservationsReclaimed 记录回收的预留数量
func RecordReservationsReclaimed(n int) {
	if !initialized || n <= 0 {
		return
	}
	ReservationsReclaimedTotal.Add(float64(n))
}

// RecordOversellRejected 记录一次可用库存不足的拒绝
func RecordOversellRejected() {
	if !initialized {
		return
	}
	OversellRejectedTotal.Inc()
}

// RecordStockCommit 记录一次出库耗时
func RecordStockCommit(d time.Duration) {
	if !initialized {
		return
	}
	StockCommitDuration.Observe(d.Seconds())
}

// RecordOrderCreated 记录订单创建结果
func RecordOrderCreated(ok bool) {
	if !initialized {
		return
	}
	if ok {
		OrdersCreatedTotal.Inc()
	} else {
		OrdersFailedTotal.Inc()
	}
}

// RecordPaymentCallback 记录一次支付回调
func RecordPaymentCallback(result string) {
	if !initialized {
		return
	}
	PaymentCallbacksTotal.WithLabelValues(result).Inc()
}

// RecordLowStockAlert 记录一次低库存告警
func RecordLowStockAlert() {
	if !initialized {
		return
	}
	LowStockAlertsTotal.Inc()
}

// GinMiddleware 请求指标中间件
// 挂在全局路由上，按method/path/status统计请求数和耗时
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		if !initialized {
			return
		}

		path := c.FullPath()
		if path == "" {
			path = "unmatched" // 404等未匹配路由，避免高基数标签
		}

		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}
