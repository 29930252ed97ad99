package repository

import (
	"context"

	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/models"
)

const feeColumns = "fee_id, student_id, dorm_id, fee_month, water_fee, electric_fee, total_fee, pay_status, pay_date"

// FeeRepository 水电费仓储
type FeeRepository struct {
	conn *database.Conn
}

// NewFeeRepository 创建水电费仓储
func NewFeeRepository(conn *database.Conn) *FeeRepository {
	return &FeeRepository{conn: conn}
}

// Create 创建费用记录，FeeID 由数据库自增生成
func (r *FeeRepository) Create(ctx context.Context, fee *models.Fee) error {
	return r.conn.Create(ctx, fee)
}

// Update 更新费用明细，仅对未缴费记录生效
func (r *FeeRepository) Update(ctx context.Context, fee *models.Fee) (int64, error) {
	return r.conn.Execute(ctx,
		"UPDATE fee SET student_id = ?, dorm_id = ?, fee_month = ?, water_fee = ?, electric_fee = ?, total_fee = ? "+
			"WHERE fee_id = ? AND pay_status = ?",
		fee.StudentID, fee.DormID, fee.FeeMonth, fee.WaterFee, fee.ElectricFee, fee.TotalFee,
		fee.FeeID, models.PayStatusUnpaid,
	)
}

// MarkPaid 将未缴费记录标记为已缴费
func (r *FeeRepository) MarkPaid(ctx context.Context, feeID int64, payDate models.Date) (int64, error) {
	return r.conn.Execute(ctx,
		"UPDATE fee SET pay_status = ?, pay_date = ? WHERE fee_id = ? AND pay_status = ?",
		models.PayStatusPaid, payDate, feeID, models.PayStatusUnpaid,
	)
}

// Delete 删除未缴费记录
func (r *FeeRepository) Delete(ctx context.Context, feeID int64) (int64, error) {
	return r.conn.Execute(ctx, "DELETE FROM fee WHERE fee_id = ? AND pay_status = ?", feeID, models.PayStatusUnpaid)
}

// GetByID 根据 ID 获取费用记录
func (r *FeeRepository) GetByID(ctx context.Context, feeID int64) (*models.Fee, error) {
	return selectOne[models.Fee](ctx, r.conn, "SELECT "+feeColumns+" FROM fee WHERE fee_id = ?", feeID)
}

// ExistsForMonth 学生在该月份是否已有费用记录，excludeID 大于 0 时排除该记录
func (r *FeeRepository) ExistsForMonth(ctx context.Context, studentID, month string, excludeID int64) (bool, error) {
	var c conditions
	c.and("student_id = ?", studentID)
	c.and("fee_month = ?", month)
	if excludeID > 0 {
		c.and("fee_id <> ?", excludeID)
	}
	return exists(ctx, r.conn, "SELECT COUNT(*) FROM fee"+c.where(), c.args...)
}

// List 分页获取费用列表
func (r *FeeRepository) List(ctx context.Context, page *models.PageParam) ([]*models.Fee, error) {
	var c conditions
	return selectMany[models.Fee](ctx, r.conn,
		"SELECT "+feeColumns+" FROM fee ORDER BY fee_id ASC"+limitClause, c.paged(page)...)
}

// Count 费用记录总数
func (r *FeeRepository) Count(ctx context.Context) (int64, error) {
	return r.conn.Count(ctx, "SELECT COUNT(*) FROM fee")
}

// Filter 按学号、宿舍号、缴费状态筛选，按月份倒序
func (r *FeeRepository) Filter(ctx context.Context, f *models.FeeFilter, page *models.PageParam) ([]*models.Fee, error) {
	c := feeConditions(f)
	return selectMany[models.Fee](ctx, r.conn,
		"SELECT "+feeColumns+" FROM fee"+c.where()+" ORDER BY fee_month DESC, fee_id ASC"+limitClause, c.paged(page)...)
}

// FilterCount 筛选结果总数
func (r *FeeRepository) FilterCount(ctx context.Context, f *models.FeeFilter) (int64, error) {
	c := feeConditions(f)
	return r.conn.Count(ctx, "SELECT COUNT(*) FROM fee"+c.where(), c.args...)
}

// ListByMonth 按月份查询
func (r *FeeRepository) ListByMonth(ctx context.Context, month string, page *models.PageParam) ([]*models.Fee, error) {
	var c conditions
	c.and("fee_month = ?", month)
	return selectMany[models.Fee](ctx, r.conn,
		"SELECT "+feeColumns+" FROM fee"+c.where()+" ORDER BY fee_id ASC"+limitClause, c.paged(page)...)
}

// CountByMonth 月份费用记录数
func (r *FeeRepository) CountByMonth(ctx context.Context, month string) (int64, error) {
	return r.conn.Count(ctx, "SELECT COUNT(*) FROM fee WHERE fee_month = ?", month)
}

// UnpaidCount 未缴费记录数
func (r *FeeRepository) UnpaidCount(ctx context.Context) (int64, error) {
	return r.conn.Count(ctx, "SELECT COUNT(*) FROM fee WHERE pay_status = ?", models.PayStatusUnpaid)
}

func feeConditions(f *models.FeeFilter) *conditions {
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
	if f.PayStatus != nil && f.PayStatus.Valid() {
		c.and("pay_status = ?", *f.PayStatus)
	}
	return c
}
