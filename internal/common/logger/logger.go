// Package logger 提供结构化日志功能
package logger

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dumeirei/dormitory-backend/internal/common/config"
)

var (
	mu  sync.RWMutex
	log *zap.Logger
)

// Init 按配置初始化全局日志器
func Init(cfg *config.LoggerConfig) error {
	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Caller {
		opts = append(opts, zap.AddCaller())
	}
	core := zapcore.NewCore(newEncoder(cfg.Format), newSink(cfg), parseLevel(cfg.Level))
	SetLogger(zap.New(core, opts...))
	return nil
}

// SetLogger 替换全局日志器，测试中可注入 zap.NewNop 或 observer
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// newEncoder json 用于采集，其余按带颜色的控制台格式输出
func newEncoder(format string) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if format == "json" {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

// newSink output 取 stdout、file 或 both；file 未配置路径时退回 stdout
func newSink(cfg *config.LoggerConfig) zapcore.WriteSyncer {
	toFile := cfg.FilePath != "" && (cfg.Output == "file" || cfg.Output == "both")
	toStdout := !toFile || cfg.Output == "both"

	var sinks []zapcore.WriteSyncer
	if toStdout {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}
	if toFile {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}))
	}
	return zapcore.NewMultiWriteSyncer(sinks...)
}

func parseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// GetLogger 获取全局日志器，未初始化时使用开发模式日志器
func GetLogger() *zap.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l == nil {
		l, _ = zap.NewDevelopment()
		SetLogger(l)
	}
	return l
}

// Sync 同步日志
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if log != nil {
		return log.Sync()
	}
	return nil
}

// Debug 调试日志
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Info 信息日志
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Warn 警告日志
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error 错误日志
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal 致命错误日志
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// Named 返回命名日志器
func Named(name string) *zap.Logger {
	return GetLogger().Named(name)
}

// RequestID 请求ID字段
func RequestID(id string) zap.Field {
	return zap.String("request_id", id)
}

// AdminID 管理员账号字段
func AdminID(id string) zap.Field {
	return zap.String("admin_id", id)
}

// StudentID 学号字段
func StudentID(id string) zap.Field {
	return zap.String("student_id", id)
}

// DormID 宿舍号字段
func DormID(id string) zap.Field {
	return zap.String("dorm_id", id)
}

// RecordID 费用、报修、访客等自增记录ID字段
func RecordID(id int64) zap.Field {
	return zap.Int64("record_id", id)
}

// Action 操作字段
func Action(name string) zap.Field {
	return zap.String("action", name)
}

// SQL 语句字段
func SQL(query string) zap.Field {
	return zap.String("sql", query)
}

// DBCode 数据库驱动错误码字段
func DBCode(code int) zap.Field {
	return zap.Int("db_code", code)
}

// Latency 延迟字段
func Latency(d time.Duration) zap.Field {
	return zap.Duration("latency", d)
}

// StatusCode HTTP状态码字段
func StatusCode(code int) zap.Field {
	return zap.Int("status_code", code)
}

// Method HTTP方法字段
func Method(method string) zap.Field {
	return zap.String("method", method)
}

// Path 路径字段
func Path(path string) zap.Field {
	return zap.String("path", path)
}

// IP IP地址字段
func IP(ip string) zap.Field {
	return zap.String("ip", ip)
}
