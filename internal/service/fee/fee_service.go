// Package fee 提供水电费管理服务
package fee

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/common/errors"
	"github.com/dumeirei/dormitory-backend/internal/common/logger"
	"github.com/dumeirei/dormitory-backend/internal/common/metrics"
	"github.com/dumeirei/dormitory-backend/internal/common/validator"
	"github.com/dumeirei/dormitory-backend/internal/models"
	"github.com/dumeirei/dormitory-backend/internal/repository"
	"github.com/dumeirei/dormitory-backend/internal/service"
)

// Lookup 按主键判断记录是否存在
type Lookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// FeeService 水电费服务
type FeeService struct {
	errors.Tracker
	repo     *repository.FeeRepository
	students Lookup
	dorms    Lookup
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
}

// NewFeeService 创建水电费服务
func NewFeeService(repo *repository.FeeRepository, students, dorms Lookup, m *metrics.Metrics) *FeeService {
	return &FeeService{
		repo:     repo,
		students: students,
		dorms:    dorms,
		metrics:  m,
		log:      logger.Named("fee"),
		now:      time.Now,
	}
}

// Add 新增费用记录，总费用由水费和电费相加得出，FeeID 由数据库生成
func (s *FeeService) Add(ctx context.Context, fee *models.Fee) error {
	err := s.add(ctx, fee)
	return s.done("add", fee.FeeID, err)
}

func (s *FeeService) add(ctx context.Context, fee *models.Fee) error {
	if err := s.validate(ctx, fee, 0); err != nil {
		return err
	}
	if fee.PayStatus == models.PayStatusPaid {
		if fee.PayDate.IsZero() {
			fee.PayDate = models.NewDate(s.now())
		}
	} else {
		fee.PayDate = models.Date{}
	}

	if err := s.repo.Create(ctx, fee); err != nil {
		if database.IsDuplicate(err) {
			return duplicate(fee).WithError(err)
		}
		return errors.Storage("添加费用失败：", err)
	}
	return nil
}

// Update 修改未缴费记录的明细，缴费状态和缴费日期不随之变化
func (s *FeeService) Update(ctx context.Context, fee *models.Fee) error {
	return s.done("update", fee.FeeID, s.update(ctx, fee))
}

func (s *FeeService) update(ctx context.Context, fee *models.Fee) error {
	if fee.FeeID <= 0 {
		return errors.ErrInvalidParams.WithMessage("修改费用记录时，费用ID不能为空！")
	}
	current, err := s.find(ctx, fee.FeeID, "费用记录不存在，ID%d未找到")
	if err != nil {
		return err
	}
	if current.PayStatus == models.PayStatusPaid {
		return errors.ErrFeePaidImmutable
	}

	fee.PayStatus = current.PayStatus
	fee.PayDate = current.PayDate
	if err := s.validate(ctx, fee, fee.FeeID); err != nil {
		return err
	}

	n, err := s.repo.Update(ctx, fee)
	if err != nil {
		if database.IsDuplicate(err) {
			return duplicate(fee).WithError(err)
		}
		return errors.Storage("更新费用失败：", err)
	}
	if n == 0 {
		return errors.ErrFeePaidImmutable
	}
	return nil
}

// UpdatePayStatus 将未缴费记录标记为已缴费，payDate 为零值时取当天
func (s *FeeService) UpdatePayStatus(ctx context.Context, feeID int64, payDate models.Date) error {
	return s.done("pay", feeID, s.pay(ctx, feeID, payDate))
}

func (s *FeeService) pay(ctx context.Context, feeID int64, payDate models.Date) error {
	if feeID <= 0 {
		return errors.ErrInvalidParams.WithMessage("费用ID格式不正确，应为纯数字")
	}
	current, err := s.find(ctx, feeID, "费用记录不存在，ID%d未找到")
	if err != nil {
		return err
	}
	if current.PayStatus == models.PayStatusPaid {
		return errors.ErrFeeAlreadyPaid
	}
	if payDate.IsZero() {
		payDate = models.NewDate(s.now())
	}

	n, err := s.repo.MarkPaid(ctx, feeID, payDate)
	if err != nil {
		return errors.Storage("更新缴费状态失败：", err)
	}
	if n == 0 {
		return errors.ErrFeeAlreadyPaid
	}
	return nil
}

// Delete 删除未缴费记录
func (s *FeeService) Delete(ctx context.Context, feeID int64) error {
	return s.done("delete", feeID, s.delete(ctx, feeID))
}

func (s *FeeService) delete(ctx context.Context, feeID int64) error {
	if feeID <= 0 {
		return errors.ErrInvalidParams.WithMessage("费用ID格式不正确，应为纯数字")
	}
	current, err := s.find(ctx, feeID, "费用记录不存在，ID%d未找到")
	if err != nil {
		return err
	}
	if current.PayStatus == models.PayStatusPaid {
		return errors.ErrFeePaidImmutable.WithMessage("已缴费的费用记录不允许删除")
	}

	n, err := s.repo.Delete(ctx, feeID)
	if err != nil {
		return errors.Storage("删除费用失败：", err)
	}
	if n == 0 {
		return errors.ErrFeePaidImmutable.WithMessage("已缴费的费用记录不允许删除")
	}
	return nil
}

// GetByID 根据 ID 获取费用记录
func (s *FeeService) GetByID(ctx context.Context, feeID int64) (*models.Fee, error) {
	if feeID <= 0 {
		return nil, s.Fail(errors.ErrInvalidParams.WithMessage("费用ID格式不正确，应为纯数字"))
	}
	fee, err := s.find(ctx, feeID, "未找到费用记录，ID%d不存在")
	return fee, s.Fail(err)
}

// List 分页获取费用列表，按 ID 升序
func (s *FeeService) List(ctx context.Context, page *models.PageParam) ([]*models.Fee, error) {
	rows, err := service.Paginate(ctx, page, s.repo.Count, s.repo.List)
	return rows, s.Fail(err)
}

// Filter 按学号、宿舍号精确匹配和缴费状态筛选，按月份降序、ID 升序
func (s *FeeService) Filter(ctx context.Context, f *models.FeeFilter, page *models.PageParam) ([]*models.Fee, error) {
	if err := normalizeFilter(f); err != nil {
		return nil, s.Fail(err)
	}
	rows, err := service.Paginate(ctx, page,
		func(ctx context.Context) (int64, error) { return s.repo.FilterCount(ctx, f) },
		func(ctx context.Context, p *models.PageParam) ([]*models.Fee, error) { return s.repo.Filter(ctx, f, p) },
	)
	return rows, s.Fail(err)
}

// FilterCount 筛选命中的记录数
func (s *FeeService) FilterCount(ctx context.Context, f *models.FeeFilter) (int64, error) {
	if err := normalizeFilter(f); err != nil {
		return 0, s.Fail(err)
	}
	n, err := s.repo.FilterCount(ctx, f)
	if err != nil {
		return 0, s.Fail(errors.Storage("获取筛选总数失败：", err))
	}
	return n, s.Fail(nil)
}

// ListByMonth 获取某月全部费用记录
func (s *FeeService) ListByMonth(ctx context.Context, month string, page *models.PageParam) ([]*models.Fee, error) {
	month = validator.Trim(month)
	if !validator.IsValidFeeMonth(month) {
		return nil, s.Fail(errors.ErrInvalidParams.WithMessage("费用月份格式不正确，应为YYYY-MM格式"))
	}
	rows, err := service.Paginate(ctx, page,
		func(ctx context.Context) (int64, error) { return s.repo.CountByMonth(ctx, month) },
		func(ctx context.Context, p *models.PageParam) ([]*models.Fee, error) { return s.repo.ListByMonth(ctx, month, p) },
	)
	return rows, s.Fail(err)
}

// TotalCount 费用记录总数
func (s *FeeService) TotalCount(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, s.Fail(errors.Storage("获取费用总数失败：", err))
	}
	return n, s.Fail(nil)
}

// UnpaidCount 未缴费记录数
func (s *FeeService) UnpaidCount(ctx context.Context) (int64, error) {
	n, err := s.repo.UnpaidCount(ctx)
	if err != nil {
		return 0, s.Fail(errors.Storage("获取未支付费用数量失败：", err))
	}
	return n, s.Fail(nil)
}

// IsDuplicate 学生在该月份是否已有费用记录
func (s *FeeService) IsDuplicate(ctx context.Context, studentID, month string) (bool, error) {
	ok, err := s.repo.ExistsForMonth(ctx, validator.Trim(studentID), validator.Trim(month), 0)
	if err != nil {
		return false, s.Fail(errors.Storage("查询费用失败：", err))
	}
	return ok, s.Fail(nil)
}

// validate 依次校验学号、宿舍号、月份、金额，最后检查同月重复，excludeID 为修改中的记录
func (s *FeeService) validate(ctx context.Context, fee *models.Fee, excludeID int64) error {
	fee.StudentID = validator.Trim(fee.StudentID)
	fee.DormID = validator.Trim(fee.DormID)
	fee.FeeMonth = validator.Trim(fee.FeeMonth)
	invalid := errors.ErrInvalidParams.WithMessage

	switch {
	case fee.StudentID == "":
		return invalid("学号不能为空")
	case !validator.IsValidStudentID(fee.StudentID):
		return invalid("学号格式不正确")
	}
	if err := s.require(ctx, s.students, fee.StudentID, "学号%s对应的学生不存在"); err != nil {
		return err
	}

	switch {
	case fee.DormID == "":
		return invalid("宿舍号不能为空")
	case !validator.IsValidDormID(fee.DormID):
		return invalid("宿舍号格式不正确")
	}
	if err := s.require(ctx, s.dorms, fee.DormID, "宿舍号%s不存在"); err != nil {
		return err
	}

	switch {
	case fee.FeeMonth == "":
		return invalid("费用月份不能为空")
	case !validator.IsValidFeeMonth(fee.FeeMonth):
		return invalid("费用月份格式不正确，应为YYYY-MM格式")
	case fee.WaterFee < 0:
		return invalid("水费金额不能为负数")
	case fee.ElectricFee < 0:
		return invalid("电费金额不能为负数")
	case !fee.PayStatus.Valid():
		return invalid("缴费状态不正确")
	}
	fee.WaterFee = round2(fee.WaterFee)
	fee.ElectricFee = round2(fee.ElectricFee)
	fee.TotalFee = round2(fee.WaterFee + fee.ElectricFee)
	if fee.TotalFee < 0.0001 {
		return invalid("总费用不能为0")
	}

	dup, err := s.repo.ExistsForMonth(ctx, fee.StudentID, fee.FeeMonth, excludeID)
	if err != nil {
		return errors.Storage("查询费用失败：", err)
	}
	if dup {
		return duplicate(fee)
	}
	return nil
}

func (s *FeeService) require(ctx context.Context, l Lookup, id, notFound string) error {
	ok, err := l.Exists(ctx, id)
	if err != nil {
		if errors.IsAppError(err) {
			return err
		}
		return errors.Storage("查询失败：", err)
	}
	if !ok {
		return errors.ErrNotFound.WithMessagef(notFound, id)
	}
	return nil
}

func (s *FeeService) find(ctx context.Context, feeID int64, notFound string) (*models.Fee, error) {
	fee, err := s.repo.GetByID(ctx, feeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrFeeNotFound.WithMessagef(notFound, feeID)
	}
	if err != nil {
		return nil, errors.Storage("查询费用失败：", err)
	}
	return fee, nil
}

func (s *FeeService) done(action string, feeID int64, err error) error {
	if s.metrics != nil {
		s.metrics.RecordMutation("fee", action, err)
	}
	if err != nil {
		s.log.Warn("费用操作失败", logger.Action(action), logger.RecordID(feeID), zap.Error(err))
	} else {
		s.log.Info("费用操作成功", logger.Action(action), logger.RecordID(feeID))
	}
	return s.Fail(err)
}

// normalizeFilter f 为 nil 表示不限条件
func normalizeFilter(f *models.FeeFilter) error {
	if f == nil {
		return nil
	}
	f.StudentID = validator.Trim(f.StudentID)
	f.DormID = validator.Trim(f.DormID)
	if f.PayStatus != nil && !f.PayStatus.Valid() {
		return errors.ErrInvalidParams.WithMessage("缴费状态不正确")
	}
	return nil
}

func duplicate(fee *models.Fee) *errors.AppError {
	return errors.ErrFeeDuplicate.WithMessagef("学号%s在%s月份的费用记录已存在", fee.StudentID, fee.FeeMonth)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
