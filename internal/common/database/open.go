// Package database 提供数据库连接管理：单连接、语句串行执行、断线重连和事务
package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/dormitory-backend/internal/common/config"
)

// 支持的驱动
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// DialectorFunc 根据配置构造 gorm 方言
type DialectorFunc func(cfg *config.DatabaseConfig) (gorm.Dialector, error)

// DefaultDialector 按 cfg.Driver 选择 postgres、mysql 或 sqlite
func DefaultDialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return postgres.Open(cfg.DSN()), nil
	case DriverMySQL:
		return mysql.Open(cfg.DSN()), nil
	case DriverSQLite:
		return sqlite.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// open 建立连接并校验可用性
//
// 连接池固定为一个连接，所有语句由 Conn 串行发出；内存 sqlite 也依赖这一点保持同一个库。
func open(ctx context.Context, cfg *config.DatabaseConfig, dialect DialectorFunc, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialect(cfg)
	if err != nil {
		return nil, err
	}

	gormLogger := logger.New(zapWriter{log.Sugar()}, logger.Config{
		SlowThreshold:             time.Duration(cfg.SlowThreshold) * time.Millisecond,
		LogLevel:                  logLevel(cfg.LogMode),
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   gormLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		DisableAutomaticPing:                     true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if cfg.Driver != DriverSQLite && cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeoutDuration())
	defer cancel()
	if err = sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func logLevel(logMode bool) logger.LogLevel {
	if logMode {
		return logger.Info
	}
	return logger.Warn
}

// zapWriter 将 gorm 日志输出到 zap
type zapWriter struct {
	sugar *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.sugar.Infof(format, args...)
}
