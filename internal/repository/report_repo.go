package repository

import (
	"context"

	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/models"
)

const studentDormFeeSelect = "SELECT s.student_id, s.student_name, s.gender, s.major, s.dorm_id, d.building, d.room_type, " +
	"f.fee_id, f.fee_month, f.water_fee, f.electric_fee, f.total_fee, f.pay_status, f.pay_date " +
	"FROM student s LEFT JOIN dorm d ON s.dorm_id = d.dorm_id LEFT JOIN fee f ON s.student_id = f.student_id"

// ReportRepository 跨表只读查询
type ReportRepository struct {
	conn *database.Conn
}

// NewReportRepository 创建报表仓储
func NewReportRepository(conn *database.Conn) *ReportRepository {
	return &ReportRepository{conn: conn}
}

// StudentDormFee 学生-宿舍-费用联合查询，没有费用记录的学生也会出现
func (r *ReportRepository) StudentDormFee(ctx context.Context, f *models.StudentDormFeeFilter, page *models.PageParam) ([]*models.StudentDormFee, error) {
	c := studentDormFeeConditions(f)
	return selectMany[models.StudentDormFee](ctx, r.conn,
		studentDormFeeSelect+c.where()+" ORDER BY s.student_id ASC, f.fee_month DESC"+limitClause, c.paged(page)...)
}

// StudentDormFeeCount 联合查询结果总数
func (r *ReportRepository) StudentDormFeeCount(ctx context.Context, f *models.StudentDormFeeFilter) (int64, error) {
	c := studentDormFeeConditions(f)
	return r.conn.Count(ctx,
		"SELECT COUNT(*) FROM student s LEFT JOIN dorm d ON s.dorm_id = d.dorm_id LEFT JOIN fee f ON s.student_id = f.student_id"+c.where(),
		c.args...)
}

func studentDormFeeConditions(f *models.StudentDormFeeFilter) *conditions {
	c := &conditions{}
	if f == nil {
		return c
	}
	if f.StudentID != "" {
		c.and(like("s.student_id"), contains(f.StudentID))
	}
	if f.DormID != "" {
		c.and(like("s.dorm_id"), contains(f.DormID))
	}
	if f.FeeMonth != "" {
		c.and("f.fee_month = ?", f.FeeMonth)
	}
	if f.PayStatus != nil && f.PayStatus.Valid() {
		c.and("(f.pay_status = ? OR f.pay_status IS NULL)", *f.PayStatus)
	}
	return c
}
