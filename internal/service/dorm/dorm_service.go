// Package dorm 提供宿舍管理服务
package dorm

import (
	"context"
	"fmt"

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

// DormService 宿舍服务
type DormService struct {
	errors.Tracker
	repo    *repository.DormRepository
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewDormService 创建宿舍服务，m 可以为 nil
func NewDormService(repo *repository.DormRepository, m *metrics.Metrics) *DormService {
	return &DormService{
		repo:    repo,
		metrics: m,
		log:     logger.Named("dorm"),
	}
}

// Add 新增宿舍，新宿舍的入住人数必须为 0
func (s *DormService) Add(ctx context.Context, dorm *models.Dorm) error {
	return s.done("add", dorm.DormID, s.add(ctx, dorm))
}

func (s *DormService) add(ctx context.Context, dorm *models.Dorm) error {
	normalize(dorm)
	if err := validate(dorm); err != nil {
		return err
	}
	if err := validateOccupancy(dorm.CurrentOccupancy, dorm.MaxCapacity, ""); err != nil {
		return err
	}
	if dorm.CurrentOccupancy != 0 {
		return errors.ErrInvalidParams.WithMessage("新增宿舍的当前入住人数必须为0！")
	}

	exists, err := s.repo.Exists(ctx, dorm.DormID)
	if err != nil {
		return errors.Storage("添加失败：", err)
	}
	if exists {
		return errors.ErrDormExists.WithMessagef("添加失败：宿舍号%s已存在！", dorm.DormID)
	}

	if err := s.repo.Create(ctx, dorm); err != nil {
		if database.IsDuplicate(err) {
			return errors.ErrDormExists.WithMessagef("添加失败：宿舍号%s已存在！", dorm.DormID).WithError(err)
		}
		return errors.Storage("添加失败：", err)
	}
	return nil
}

// Update 修改宿舍基础信息
//
// 入住人数以库中记录为准，调用方传入的值被忽略；
// 新的最大容纳人数不能小于当前入住人数。
func (s *DormService) Update(ctx context.Context, dorm *models.Dorm) error {
	return s.done("update", dorm.DormID, s.update(ctx, dorm))
}

func (s *DormService) update(ctx context.Context, dorm *models.Dorm) error {
	normalize(dorm)
	if err := validate(dorm); err != nil {
		return err
	}

	current, err := s.find(ctx, dorm.DormID, "修改失败：未查询到宿舍号%s对应的宿舍！")
	if err != nil {
		return err
	}
	if err := validateOccupancy(current.CurrentOccupancy, dorm.MaxCapacity, "修改失败："); err != nil {
		return err
	}
	dorm.CurrentOccupancy = current.CurrentOccupancy

	if _, err := s.repo.Update(ctx, dorm); err != nil {
		return errors.Storage("修改失败：", err)
	}
	return nil
}

// Delete 删除宿舍，仍有学生入住时拒绝
func (s *DormService) Delete(ctx context.Context, dormID string) error {
	return s.done("delete", dormID, s.delete(ctx, validator.Trim(dormID)))
}

func (s *DormService) delete(ctx context.Context, dormID string) error {
	if !validator.IsValidDormID(dormID) {
		return errors.ErrInvalidParams.WithMessage("宿舍号格式错误！")
	}
	if _, err := s.find(ctx, dormID, "删除失败：未查询到宿舍号%s对应的宿舍！"); err != nil {
		return err
	}

	n, err := s.repo.Delete(ctx, dormID)
	if err != nil {
		return errors.Storage("删除失败：", err)
	}
	if n == 0 {
		return errors.ErrDormOccupied
	}
	return nil
}

// GetByID 根据宿舍号获取宿舍
func (s *DormService) GetByID(ctx context.Context, dormID string) (*models.Dorm, error) {
	dormID = validator.Trim(dormID)
	if !validator.IsValidDormID(dormID) {
		return nil, s.Fail(errors.ErrInvalidParams.WithMessage("宿舍号格式错误！"))
	}
	dorm, err := s.find(ctx, dormID, "未查询到宿舍号%s对应的宿舍！")
	return dorm, s.Fail(err)
}

// Exists 宿舍是否存在
func (s *DormService) Exists(ctx context.Context, dormID string) (bool, error) {
	ok, err := s.repo.Exists(ctx, dormID)
	if err != nil {
		return false, errors.Storage("查询失败：", err)
	}
	return ok, nil
}

// List 分页获取宿舍列表
func (s *DormService) List(ctx context.Context, page *models.PageParam) ([]*models.Dorm, error) {
	rows, err := service.Paginate(ctx, page, s.repo.Count, s.repo.List)
	return rows, s.Fail(err)
}

// FilterByBuilding 按楼栋模糊筛选
func (s *DormService) FilterByBuilding(ctx context.Context, building string, page *models.PageParam) ([]*models.Dorm, error) {
	building = validator.Trim(building)
	if building == "" {
		return nil, s.Fail(errors.ErrInvalidParams.WithMessage("楼栋名称不能为空！"))
	}
	rows, err := service.Paginate(ctx, page,
		func(ctx context.Context) (int64, error) { return s.repo.CountByBuilding(ctx, building) },
		func(ctx context.Context, p *models.PageParam) ([]*models.Dorm, error) {
			return s.repo.ListByBuilding(ctx, building, p)
		},
	)
	return rows, s.Fail(err)
}

// TotalCount 宿舍总数
func (s *DormService) TotalCount(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, s.Fail(errors.Storage("获取总数失败：", err))
	}
	return n, s.Fail(nil)
}

// BuildingCount 楼栋模糊筛选的宿舍总数
func (s *DormService) BuildingCount(ctx context.Context, building string) (int64, error) {
	building = validator.Trim(building)
	if building == "" {
		return 0, s.Fail(errors.ErrInvalidParams.WithMessage("楼栋名称不能为空！"))
	}
	n, err := s.repo.CountByBuilding(ctx, building)
	if err != nil {
		return 0, s.Fail(errors.Storage("获取总数失败：", err))
	}
	return n, s.Fail(nil)
}

// AdjustOccupancy 按 delta 增减入住人数
//
// 在 ctx 携带的事务内调用时与学生变更一同提交或回滚。
func (s *DormService) AdjustOccupancy(ctx context.Context, dormID string, delta int) error {
	return s.done("adjust_occupancy", dormID, s.adjust(ctx, dormID, delta))
}

func (s *DormService) adjust(ctx context.Context, dormID string, delta int) error {
	if delta == 0 {
		return errors.ErrOccupancyDeltaZero
	}
	n, err := s.repo.AddOccupancy(ctx, dormID, delta)
	if err != nil {
		return errors.Storage("更新失败：", err)
	}
	if n > 0 {
		return nil
	}

	// 未更新时区分宿舍不存在和越界
	dorm, err := s.find(ctx, dormID, "更新失败：未查询到宿舍号%s对应的宿舍！")
	if err != nil {
		return err
	}
	if err := validateOccupancy(dorm.CurrentOccupancy+delta, dorm.MaxCapacity, "更新失败："); err != nil {
		return err
	}
	return errors.ErrDatabaseError.WithMessage("更新失败：宿舍入住人数已被并发修改，请重试！")
}

// Reconcile 按学生记录校准所有宿舍的入住人数，返回被修正的宿舍
func (s *DormService) Reconcile(ctx context.Context) ([]*models.OccupancyDrift, error) {
	drifts, err := s.repo.ListOccupancyDrift(ctx)
	if err != nil {
		return nil, s.Fail(errors.Storage("查询失败：", err))
	}
	for _, d := range drifts {
		if d.Actual > d.MaxCapacity {
			s.log.Warn("宿舍实际入住人数超过最大容纳人数",
				logger.DormID(d.DormID), zap.Int("actual", d.Actual), zap.Int("max_capacity", d.MaxCapacity))
		}
		if _, err := s.repo.SetOccupancy(ctx, d.DormID, d.Actual); err != nil {
			return nil, s.Fail(errors.Storage("更新失败：", err))
		}
		s.log.Info("校准宿舍入住人数",
			logger.DormID(d.DormID), zap.Int("recorded", d.Recorded), zap.Int("actual", d.Actual))
	}
	if s.metrics != nil {
		s.metrics.RecordOccupancyFixes(len(drifts))
	}
	return drifts, s.Fail(nil)
}

func (s *DormService) find(ctx context.Context, dormID, notFound string) (*models.Dorm, error) {
	dorm, err := s.repo.GetByID(ctx, dormID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrDormNotFound.WithMessagef(notFound, dormID)
	}
	if err != nil {
		return nil, errors.Storage("查询失败：", err)
	}
	return dorm, nil
}

func (s *DormService) done(action, dormID string, err error) error {
	if s.metrics != nil {
		s.metrics.RecordMutation("dorm", action, err)
	}
	if err != nil {
		s.log.Warn("宿舍操作失败", logger.Action(action), logger.DormID(dormID), zap.Error(err))
	} else {
		s.log.Info("宿舍操作成功", logger.Action(action), logger.DormID(dormID))
	}
	return s.Fail(err)
}

func normalize(d *models.Dorm) {
	d.DormID = validator.Trim(d.DormID)
	d.Building = validator.Trim(d.Building)
	d.RoomType = validator.Trim(d.RoomType)
	d.DormManager = validator.Trim(d.DormManager)
}

// validate 校验宿舍字段，不含入住人数
func validate(d *models.Dorm) error {
	invalid := errors.ErrInvalidParams.WithMessage
	switch {
	case d.DormID == "":
		return invalid("宿舍号不能为空！")
	case !validator.IsValidDormID(d.DormID):
		return invalid("宿舍号格式错误（3-10位，格式如1-101）！")
	case d.Building == "":
		return invalid("楼栋不能为空！")
	case !validator.IsValidBuilding(d.Building):
		return invalid("楼栋格式错误（1-10位中文/数字）！")
	case d.RoomType == "":
		return invalid("房间类型不能为空！")
	case !validator.IsValidRoomType(d.RoomType):
		return invalid("房间类型错误（仅支持数字4、6、8）！")
	case d.MaxCapacity <= 0:
		return invalid("最大容纳人数必须大于0！")
	}
	if want := models.RoomCapacity(d.RoomType); d.MaxCapacity != want {
		return invalid(fmt.Sprintf("%s人间最大容纳人数应为%d人！", d.RoomType, want))
	}
	if d.DormManager != "" && !validator.IsValidPhone(d.DormManager) {
		return invalid("宿管联系方式格式错误（11位数字，以13/14/15/17/18/19开头）！")
	}
	return nil
}

func validateOccupancy(occupancy, capacity int, prefix string) error {
	if occupancy < 0 {
		return errors.ErrOccupancyNegative.WithMessage(prefix + "当前入住人数不能为负数！")
	}
	if occupancy > capacity {
		return errors.ErrDormCapacityExceed.WithMessagef("%s当前入住人数不能超过最大容纳人数（%d人）！", prefix, capacity)
	}
	return nil
}
