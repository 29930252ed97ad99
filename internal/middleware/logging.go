package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/dormitory-backend/internal/common/logger"
)

// LoggingConfig 访问日志配置
type LoggingConfig struct {
	Logger    *zap.Logger
	SkipPaths []string
}

// Logging 访问日志中间件，5xx 记 Error，4xx 记 Warn
func Logging(config *LoggingConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			logger.RequestID(GetRequestID(c)),
			logger.Method(c.Request.Method),
			logger.Path(path),
			zap.String("query", c.Request.URL.RawQuery),
			logger.StatusCode(status),
			logger.Latency(time.Since(start)),
			logger.IP(c.ClientIP()),
		}
		if adminID := GetAdminID(c); adminID != "" {
			fields = append(fields, logger.AdminID(adminID))
		}
		if traceID := TraceID(c); traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			config.Logger.Error("HTTP Request", fields...)
		case status >= 400:
			config.Logger.Warn("HTTP Request", fields...)
		default:
			config.Logger.Info("HTTP Request", fields...)
		}
	}
}

// AccessLog 跳过健康检查和指标接口的访问日志
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return Logging(&LoggingConfig{
		Logger:    log,
		SkipPaths: []string{"/health", "/ready", "/metrics"},
	})
}
