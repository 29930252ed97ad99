// Package metrics 提供 Prometheus 指标收集
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标收集器
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
	dbStatementsTotal    *prometheus.CounterVec
	dbStatementDuration  *prometheus.HistogramVec
	dbReconnectsTotal    *prometheus.CounterVec
	mutationsTotal       *prometheus.CounterVec
	loginFailuresTotal   prometheus.Counter
	occupancyFixesTotal  prometheus.Counter
}

// New 创建指标收集器，每个实例使用独立的注册表
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dormitory"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		dbStatementsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_statements_total",
				Help:      "Total number of SQL statements issued through the connection manager",
			},
			[]string{"operation", "table", "result"},
		),
		dbStatementDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_statement_duration_seconds",
				Help:      "SQL statement duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
			},
			[]string{"operation", "table"},
		),
		dbReconnectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_reconnects_total",
				Help:      "Total number of database reconnect attempts",
			},
			[]string{"result"},
		),
		mutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entity_mutations_total",
				Help:      "Total number of entity mutations by outcome",
			},
			[]string{"entity", "action", "result"},
		),
		loginFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_login_failures_total",
				Help:      "Total number of failed admin logins",
			},
		),
		occupancyFixesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "occupancy_corrections_total",
				Help:      "Total number of dorm occupancy counters corrected by reconciliation",
			},
		),
	}
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware 返回 Gin 中间件
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		m.httpRequestsInFlight.Inc()

		c.Next()

		m.httpRequestsInFlight.Dec()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler 返回 Prometheus HTTP 处理器
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return gin.WrapH(h)
}

// RecordDBStatement 记录一条 SQL 语句
func (m *Metrics) RecordDBStatement(operation, table string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.dbStatementsTotal.WithLabelValues(operation, table, result).Inc()
	m.dbStatementDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordReconnect 记录重连结果
func (m *Metrics) RecordReconnect(err error) {
	if err != nil {
		m.dbReconnectsTotal.WithLabelValues("error").Inc()
		return
	}
	m.dbReconnectsTotal.WithLabelValues("ok").Inc()
}

// RecordMutation 记录实体变更结果
func (m *Metrics) RecordMutation(entity, action string, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.mutationsTotal.WithLabelValues(entity, action, result).Inc()
}

// RecordLoginFailure 记录一次登录失败
func (m *Metrics) RecordLoginFailure() {
	m.loginFailuresTotal.Inc()
}

// RecordOccupancyFixes 记录校准修正的宿舍数
func (m *Metrics) RecordOccupancyFixes(n int) {
	m.occupancyFixesTotal.Add(float64(n))
}
