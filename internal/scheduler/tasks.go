package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dumeirei/dormitory-backend/internal/common/logger"
	"github.com/dumeirei/dormitory-backend/internal/models"
)

// 任务名称
const (
	TaskReconcileOccupancy = "reconcile_occupancy"
	TaskDBKeepalive        = "db_keepalive"
)

// OccupancyReconciler 按学生记录校准宿舍入住人数
type OccupancyReconciler interface {
	Reconcile(ctx context.Context) ([]*models.OccupancyDrift, error)
}

// DashboardCache 首页统计缓存
type DashboardCache interface {
	InvalidateDashboard(ctx context.Context)
}

// Pinger 数据库连接检查与重连
type Pinger interface {
	Ping(ctx context.Context) error
	Reconnect(ctx context.Context) error
}

// TaskHandler 任务处理器
type TaskHandler struct {
	dorms OccupancyReconciler
	cache DashboardCache
	conn  Pinger
	log   *zap.Logger
}

// NewTaskHandler 创建任务处理器，cache 可为 nil
func NewTaskHandler(dorms OccupancyReconciler, cache DashboardCache, conn Pinger) *TaskHandler {
	return &TaskHandler{
		dorms: dorms,
		cache: cache,
		conn:  conn,
		log:   logger.Named("task"),
	}
}

// ReconcileOccupancy 校准入住人数，有修正时清除首页统计缓存
func (h *TaskHandler) ReconcileOccupancy(ctx context.Context) error {
	drifts, err := h.dorms.Reconcile(ctx)
	if err != nil {
		return err
	}
	if len(drifts) == 0 {
		return nil
	}

	h.log.Info("入住人数校准完成", zap.Int("fixed", len(drifts)))
	if h.cache != nil {
		h.cache.InvalidateDashboard(ctx)
	}
	return nil
}

// DBKeepalive 检查数据库连接，失败时重连
func (h *TaskHandler) DBKeepalive(ctx context.Context) error {
	if err := h.conn.Ping(ctx); err == nil {
		return nil
	}
	h.log.Warn("数据库连接不可用，尝试重连")
	return h.conn.Reconnect(ctx)
}

// Register 将全部任务注册到调度器
func (h *TaskHandler) Register(s *Scheduler, reconcileEvery, keepaliveEvery time.Duration) {
	s.AddTask(TaskReconcileOccupancy, reconcileEvery, h.ReconcileOccupancy)
	if h.conn != nil {
		s.AddTask(TaskDBKeepalive, keepaliveEvery, h.DBKeepalive)
	}
}
