// Package testutil 提供测试用的数据库连接和固定时钟
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dumeirei/dormitory-backend/internal/common/config"
	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/models"
)

// NewConn 创建迁移好全部表的 sqlite 连接，测试结束自动断开
func NewConn(t *testing.T) *database.Conn {
	t.Helper()
	conn := database.New(database.WithLogger(zap.NewNop()))
	cfg := &config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Name:   filepath.Join(t.TempDir(), "dorm.db"),
	}
	require.NoError(t, conn.Connect(context.Background(), cfg))
	require.NoError(t, conn.AutoMigrate(context.Background(), models.AllModels()...))
	t.Cleanup(func() { _ = conn.Disconnect() })
	return conn
}

// FixedClock 返回固定时间的时钟函数
func FixedClock(year int, month time.Month, day, hour, min int) func() time.Time {
	at := time.Date(year, month, day, hour, min, 0, 0, time.Local)
	return func() time.Time { return at }
}
