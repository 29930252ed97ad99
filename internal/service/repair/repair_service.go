// Package repair 提供报修管理服务
package repair

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/dormitory-backend/internal/common/errors"
	"github.com/dumeirei/dormitory-backend/internal/common/logger"
	"github.com/dumeirei/dormitory-backend/internal/common/metrics"
	"github.com/dumeirei/dormitory-backend/internal/common/validator"
	"github.com/dumeirei/dormitory-backend/internal/models"
	"github.com/dumeirei/dormitory-backend/internal/repository"
	"github.com/dumeirei/dormitory-backend/internal/service"
)

// MaxContentLength 报修内容最大字符数
const MaxContentLength = 200

// Lookup 按主键判断记录是否存在
type Lookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// RepairService 报修服务
//
// 状态只能前进：未处理->处理中->已完成，或未处理直接到已完成；
// 只有未处理的报修可以修改和删除。
type RepairService struct {
	errors.Tracker
	repo     *repository.RepairRepository
	students Lookup
	dorms    Lookup
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
}

// NewRepairService 创建报修服务
func NewRepairService(repo *repository.RepairRepository, students, dorms Lookup, m *metrics.Metrics) *RepairService {
	return &RepairService{
		repo:     repo,
		students: students,
		dorms:    dorms,
		metrics:  m,
		log:      logger.Named("repair"),
		now:      time.Now,
	}
}

// Add 提交报修，报修日期为当天，状态为未处理
func (s *RepairService) Add(ctx context.Context, repair *models.Repair) error {
	err := s.add(ctx, repair)
	return s.done("add", repair.RepairID, err)
}

func (s *RepairService) add(ctx context.Context, repair *models.Repair) error {
	if err := s.validate(ctx, repair); err != nil {
		return err
	}
	repair.RepairDate = models.NewDate(s.now())
	repair.HandleStatus = models.RepairStatusUnhandled
	repair.HandleDate = models.Date{}

	if err := s.repo.Create(ctx, repair); err != nil {
		return errors.Storage("提交失败：", err)
	}
	return nil
}

// Update 修改未处理报修的学号、宿舍号和内容
func (s *RepairService) Update(ctx context.Context, repair *models.Repair) error {
	return s.done("update", repair.RepairID, s.update(ctx, repair))
}

func (s *RepairService) update(ctx context.Context, repair *models.Repair) error {
	if repair.RepairID <= 0 {
		return errors.ErrInvalidParams.WithMessage("报修ID不能为空！")
	}
	current, err := s.find(ctx, repair.RepairID, "修改失败：未查询到报修ID%d对应的记录！")
	if err != nil {
		return err
	}
	if current.HandleStatus != models.RepairStatusUnhandled {
		return errors.ErrRepairNotEditable
	}
	if err := s.validate(ctx, repair); err != nil {
		return err
	}

	n, err := s.repo.Update(ctx, repair)
	if err != nil {
		return errors.Storage("修改失败：", err)
	}
	if n == 0 {
		return errors.ErrRepairNotEditable
	}
	repair.RepairDate = current.RepairDate
	repair.HandleStatus = current.HandleStatus
	return nil
}

// UpdateStatus 推进处理状态并记录处理日期
func (s *RepairService) UpdateStatus(ctx context.Context, repairID int64, next models.RepairStatus) error {
	return s.done("update_status", repairID, s.updateStatus(ctx, repairID, next))
}

func (s *RepairService) updateStatus(ctx context.Context, repairID int64, next models.RepairStatus) error {
	if repairID <= 0 {
		return errors.ErrInvalidParams.WithMessage("报修ID格式错误！")
	}
	if !next.Valid() {
		return errors.ErrRepairTargetStatus
	}
	current, err := s.find(ctx, repairID, "更新失败：未查询到报修ID%d对应的记录！")
	if err != nil {
		return err
	}
	if !current.HandleStatus.CanTransitionTo(next) {
		return transitionError(current.HandleStatus, next)
	}

	n, err := s.repo.UpdateStatus(ctx, repairID, current.HandleStatus, next, models.NewDate(s.now()))
	if err != nil {
		return errors.Storage("更新失败：", err)
	}
	if n == 0 {
		return errors.ErrRepairTransition.WithMessage("更新失败：未找到匹配的记录")
	}
	return nil
}

// Delete 删除未处理的报修
func (s *RepairService) Delete(ctx context.Context, repairID int64) error {
	return s.done("delete", repairID, s.delete(ctx, repairID))
}

func (s *RepairService) delete(ctx context.Context, repairID int64) error {
	if repairID <= 0 {
		return errors.ErrInvalidParams.WithMessage("报修ID格式错误！")
	}
	current, err := s.find(ctx, repairID, "删除失败：未查询到报修ID%d对应的记录！")
	if err != nil {
		return err
	}
	if current.HandleStatus != models.RepairStatusUnhandled {
		return errors.ErrRepairNotEditable.WithMessage("删除失败：已处理/处理中的报修不允许删除！")
	}

	n, err := s.repo.Delete(ctx, repairID)
	if err != nil {
		return errors.Storage("删除失败：", err)
	}
	if n == 0 {
		return errors.ErrRepairNotEditable.WithMessage("删除失败：已处理/处理中的报修不允许删除！")
	}
	return nil
}

// GetByID 根据 ID 获取报修
func (s *RepairService) GetByID(ctx context.Context, repairID int64) (*models.Repair, error) {
	if repairID <= 0 {
		return nil, s.Fail(errors.ErrInvalidParams.WithMessage("报修ID格式错误！"))
	}
	repair, err := s.find(ctx, repairID, "未查询到报修ID%d对应的记录！")
	return repair, s.Fail(err)
}

// List 分页获取报修列表
func (s *RepairService) List(ctx context.Context, page *models.PageParam) ([]*models.Repair, error) {
	rows, err := service.Paginate(ctx, page, s.repo.Count, s.repo.List)
	return rows, s.Fail(err)
}

// Filter 按学号、宿舍号、处理状态筛选
func (s *RepairService) Filter(ctx context.Context, f *models.RepairFilter, page *models.PageParam) ([]*models.Repair, error) {
	if err := normalizeFilter(f); err != nil {
		return nil, s.Fail(err)
	}
	rows, err := service.Paginate(ctx, page,
		func(ctx context.Context) (int64, error) { return s.repo.FilterCount(ctx, f) },
		func(ctx context.Context, p *models.PageParam) ([]*models.Repair, error) { return s.repo.Filter(ctx, f, p) },
	)
	return rows, s.Fail(err)
}

// FilterCount 筛选命中的报修数
func (s *RepairService) FilterCount(ctx context.Context, f *models.RepairFilter) (int64, error) {
	if err := normalizeFilter(f); err != nil {
		return 0, s.Fail(err)
	}
	n, err := s.repo.FilterCount(ctx, f)
	if err != nil {
		return 0, s.Fail(errors.Storage("获取总数失败：", err))
	}
	return n, s.Fail(nil)
}

// TotalCount 报修总数
func (s *RepairService) TotalCount(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, s.Fail(errors.Storage("获取总数失败：", err))
	}
	return n, s.Fail(nil)
}

// UnfinishedCount 未完成的报修数
func (s *RepairService) UnfinishedCount(ctx context.Context) (int64, error) {
	n, err := s.repo.UnfinishedCount(ctx)
	if err != nil {
		return 0, s.Fail(errors.Storage("获取未处理报修总数失败：", err))
	}
	return n, s.Fail(nil)
}

func (s *RepairService) validate(ctx context.Context, repair *models.Repair) error {
	repair.StudentID = validator.Trim(repair.StudentID)
	repair.DormID = validator.Trim(repair.DormID)
	repair.RepairContent = validator.Trim(repair.RepairContent)
	invalid := errors.ErrInvalidParams.WithMessage

	switch {
	case repair.StudentID == "":
		return invalid("学号不能为空！")
	case !validator.IsValidStudentID(repair.StudentID):
		return invalid("学号格式错误！")
	}
	if err := requireExists(ctx, s.students, repair.StudentID, "学号%s对应的学生不存在！"); err != nil {
		return err
	}

	switch {
	case repair.DormID == "":
		return invalid("宿舍号不能为空！")
	case !validator.IsValidDormID(repair.DormID):
		return invalid("宿舍号格式错误！")
	}
	if err := requireExists(ctx, s.dorms, repair.DormID, "宿舍号%s对应的宿舍不存在！"); err != nil {
		return err
	}

	switch {
	case repair.RepairContent == "":
		return invalid("报修内容不能为空！")
	case !validator.LengthBetween(repair.RepairContent, 1, MaxContentLength):
		return invalid("报修内容不能超过200个字符！")
	}
	return nil
}

func (s *RepairService) find(ctx context.Context, repairID int64, notFound string) (*models.Repair, error) {
	repair, err := s.repo.GetByID(ctx, repairID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrRepairNotFound.WithMessagef(notFound, repairID)
	}
	if err != nil {
		return nil, errors.Storage("查询失败：", err)
	}
	return repair, nil
}

func (s *RepairService) done(action string, repairID int64, err error) error {
	if s.metrics != nil {
		s.metrics.RecordMutation("repair", action, err)
	}
	if err != nil {
		s.log.Warn("报修操作失败", logger.Action(action), logger.RecordID(repairID), zap.Error(err))
	} else {
		s.log.Info("报修操作成功", logger.Action(action), logger.RecordID(repairID))
	}
	return s.Fail(err)
}

func requireExists(ctx context.Context, l Lookup, id, notFound string) error {
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

// normalizeFilter f 为 nil 表示不限条件
func normalizeFilter(f *models.RepairFilter) error {
	if f == nil {
		return nil
	}
	f.StudentID = validator.Trim(f.StudentID)
	f.DormID = validator.Trim(f.DormID)
	if f.HandleStatus != nil && !f.HandleStatus.Valid() {
		return errors.ErrInvalidParams.WithMessage("处理状态错误！")
	}
	return nil
}

func transitionError(prev, next models.RepairStatus) *errors.AppError {
	return errors.ErrRepairTransition.WithMessagef("状态流转错误：%s不能直接转为%s！", prev, next)
}
