package repository

import (
	"context"

	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/models"
)

const repairColumns = "repair_id, student_id, dorm_id, repair_content, repair_date, handle_status, handle_date"

// RepairRepository 报修仓储
type RepairRepository struct {
	conn *database.Conn
}

// NewRepairRepository 创建报修仓储
func NewRepairRepository(conn *database.Conn) *RepairRepository {
	return &RepairRepository{conn: conn}
}

// Create 创建报修单，RepairID 由数据库自增生成
func (r *RepairRepository) Create(ctx context.Context, repair *models.Repair) error {
	return r.conn.Create(ctx, repair)
}

// Update 更新未处理报修单的基础信息
func (r *RepairRepository) Update(ctx context.Context, repair *models.Repair) (int64, error) {
	return r.conn.Execute(ctx,
		"UPDATE repair SET student_id = ?, dorm_id = ?, repair_content = ? WHERE repair_id = ? AND handle_status = ?",
		repair.StudentID, repair.DormID, repair.RepairContent, repair.RepairID, models.RepairStatusUnhandled,
	)
}

// UpdateStatus 状态从 prev 变为 next 并记录处理日期，prev 不匹配时不更新
func (r *RepairRepository) UpdateStatus(ctx context.Context, repairID int64, prev, next models.RepairStatus, handleDate models.Date) (int64, error) {
	return r.conn.Execute(ctx,
		"UPDATE repair SET handle_status = ?, handle_date = ? WHERE repair_id = ? AND handle_status = ?",
		next, handleDate, repairID, prev,
	)
}

// Delete 删除未处理的报修单
func (r *RepairRepository) Delete(ctx context.Context, repairID int64) (int64, error) {
	return r.conn.Execute(ctx, "DELETE FROM repair WHERE repair_id = ? AND handle_status = ?",
		repairID, models.RepairStatusUnhandled)
}

// GetByID 根据 ID 获取报修单
func (r *RepairRepository) GetByID(ctx context.Context, repairID int64) (*models.Repair, error) {
	return selectOne[models.Repair](ctx, r.conn, "SELECT "+repairColumns+" FROM repair WHERE repair_id = ?", repairID)
}

// List 分页获取报修列表
func (r *RepairRepository) List(ctx context.Context, page *models.PageParam) ([]*models.Repair, error) {
	var c conditions
	return selectMany[models.Repair](ctx, r.conn,
		"SELECT "+repairColumns+" FROM repair ORDER BY repair_id ASC"+limitClause, c.paged(page)...)
}

// Count 报修总数
func (r *RepairRepository) Count(ctx context.Context) (int64, error) {
	return r.conn.Count(ctx, "SELECT COUNT(*) FROM repair")
}

// Filter 按学号、宿舍号、处理状态筛选
func (r *RepairRepository) Filter(ctx context.Context, f *models.RepairFilter, page *models.PageParam) ([]*models.Repair, error) {
	c := repairConditions(f)
	return selectMany[models.Repair](ctx, r.conn,
		"SELECT "+repairColumns+" FROM repair"+c.where()+" ORDER BY repair_id ASC"+limitClause, c.paged(page)...)
}

// FilterCount 筛选结果总数
func (r *RepairRepository) FilterCount(ctx context.Context, f *models.RepairFilter) (int64, error) {
	c := repairConditions(f)
	return r.conn.Count(ctx, "SELECT COUNT(*) FROM repair"+c.where(), c.args...)
}

// UnfinishedCount 未完成的报修数
func (r *RepairRepository) UnfinishedCount(ctx context.Context) (int64, error) {
	return r.conn.Count(ctx, "SELECT COUNT(*) FROM repair WHERE handle_status <> ?", models.RepairStatusCompleted)
}

func repairConditions(f *models.RepairFilter) *conditions {
	c := &conditions{}
	if f == nil {
		return c
	}
	if f.StudentID != "" {
		c.and("student_id = ?", f.StudentID)
	}
	if f.DormID != "" {
		c.and("dorm_id = ?", f.DormID)
	}
	if f.HandleStatus != nil && f.HandleStatus.Valid() {
		c.and("handle_status = ?", *f.HandleStatus)
	}
	return c
}
