package repository

import (
	"context"

	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/models"
)

const visitorColumns = "visitor_id, visitor_name, gender, id_card, dorm_id, visit_reason, visit_time, leave_time, register_admin"

// VisitorRepository 访客仓储
type VisitorRepository struct {
	conn *database.Conn
}

// NewVisitorRepository 创建访客仓储
func NewVisitorRepository(conn *database.Conn) *VisitorRepository {
	return &VisitorRepository{conn: conn}
}

// Create 登记访客，VisitorID 由数据库自增生成
func (r *VisitorRepository) Create(ctx context.Context, visitor *models.Visitor) error {
	return r.conn.Create(ctx, visitor)
}

// Update 更新访客登记信息，离开时间只通过 SetLeaveTime 修改
func (r *VisitorRepository) Update(ctx context.Context, visitor *models.Visitor) (int64, error) {
	return r.conn.Execute(ctx,
		"UPDATE visitor SET visitor_name = ?, gender = ?, id_card = ?, dorm_id = ?, visit_reason = ?, visit_time = ?, register_admin = ? "+
			"WHERE visitor_id = ?",
		visitor.VisitorName, visitor.Gender, visitor.IDCard, visitor.DormID, visitor.VisitReason,
		visitor.VisitTime, visitor.RegisterAdmin, visitor.VisitorID,
	)
}

// SetLeaveTime 登记离开时间
func (r *VisitorRepository) SetLeaveTime(ctx context.Context, visitorID int64, leave models.DateTime) (int64, error) {
	return r.conn.Execute(ctx, "UPDATE visitor SET leave_time = ? WHERE visitor_id = ?", leave, visitorID)
}

// Delete 删除访客记录
func (r *VisitorRepository) Delete(ctx context.Context, visitorID int64) (int64, error) {
	return r.conn.Execute(ctx, "DELETE FROM visitor WHERE visitor_id = ?", visitorID)
}

// GetByID 根据 ID 获取访客记录
func (r *VisitorRepository) GetByID(ctx context.Context, visitorID int64) (*models.Visitor, error) {
	return selectOne[models.Visitor](ctx, r.conn, "SELECT "+visitorColumns+" FROM visitor WHERE visitor_id = ?", visitorID)
}

// List 分页获取访客列表
func (r *VisitorRepository) List(ctx context.Context, page *models.PageParam) ([]*models.Visitor, error) {
	var c conditions
	return selectMany[models.Visitor](ctx, r.conn,
		"SELECT "+visitorColumns+" FROM visitor ORDER BY visitor_id ASC"+limitClause, c.paged(page)...)
}

// Count 访客记录总数
func (r *VisitorRepository) Count(ctx context.Context) (int64, error) {
	return r.conn.Count(ctx, "SELECT COUNT(*) FROM visitor")
}

// Filter 按学生所在宿舍、宿舍号、在访状态筛选
func (r *VisitorRepository) Filter(ctx context.Context, f *models.VisitorFilter, page *models.PageParam) ([]*models.Visitor, error) {
	c := visitorConditions(f)
	return selectMany[models.Visitor](ctx, r.conn,
		"SELECT "+visitorColumns+" FROM visitor"+c.where()+" ORDER BY visitor_id ASC"+limitClause, c.paged(page)...)
}

// FilterCount 筛选结果总数
func (r *VisitorRepository) FilterCount(ctx context.Context, f *models.VisitorFilter) (int64, error) {
	c := visitorConditions(f)
	return r.conn.Count(ctx, "SELECT COUNT(*) FROM visitor"+c.where(), c.args...)
}

// ActiveCount 尚未离开的访客数
func (r *VisitorRepository) ActiveCount(ctx context.Context) (int64, error) {
	return r.conn.Count(ctx, "SELECT COUNT(*) FROM visitor WHERE leave_time IS NULL")
}

func visitorConditions(f *models.VisitorFilter) *conditions {
	c := &conditions{}
	if f == nil {
		return c
	}
	if f.StudentID != "" {
		c.and("dorm_id IN (SELECT dorm_id FROM student WHERE student_id = ?)", f.StudentID)
	}
	if f.DormID != "" {
		c.and("dorm_id = ?", f.DormID)
	}
	switch f.Status {
	case models.VisitStatusVisiting:
		c.and("leave_time IS NULL")
	case models.VisitStatusLeft:
		c.and("leave_time IS NOT NULL")
	}
	return c
}
