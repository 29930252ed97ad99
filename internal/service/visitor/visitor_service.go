// Package visitor 提供访客登记服务
package visitor

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/dormitory-backend/internal/common/crypto"
	"github.com/dumeirei/dormitory-backend/internal/common/errors"
	"github.com/dumeirei/dormitory-backend/internal/common/logger"
	"github.com/dumeirei/dormitory-backend/internal/common/metrics"
	"github.com/dumeirei/dormitory-backend/internal/common/validator"
	"github.com/dumeirei/dormitory-backend/internal/models"
	"github.com/dumeirei/dormitory-backend/internal/repository"
	"github.com/dumeirei/dormitory-backend/internal/service"
)

// DormLookup 宿舍存在性查询
type DormLookup interface {
	Exists(ctx context.Context, dormID string) (bool, error)
}

// Registration 访客登记信息，时间为 HH:MM，写入时与当天日期合并
type Registration struct {
	VisitorName   string `json:"visitor_name"`
	Gender        string `json:"gender"`
	IDCard        string `json:"id_card"`
	DormID        string `json:"dorm_id"`
	VisitReason   string `json:"visit_reason"`
	VisitTime     string `json:"visit_time"`
	LeaveTime     string `json:"leave_time"`
	RegisterAdmin string `json:"register_admin"`
}

// VisitorService 访客服务
type VisitorService struct {
	errors.Tracker
	repo    *repository.VisitorRepository
	dorms   DormLookup
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// NewVisitorService 创建访客服务
func NewVisitorService(repo *repository.VisitorRepository, dorms DormLookup, m *metrics.Metrics) *VisitorService {
	return &VisitorService{
		repo:    repo,
		dorms:   dorms,
		metrics: m,
		log:     logger.Named("visitor"),
		now:     time.Now,
	}
}

// Add 登记访客，离开时间可为空
func (s *VisitorService) Add(ctx context.Context, in *Registration) (*models.Visitor, error) {
	v, err := s.add(ctx, in)
	var id int64
	if v != nil {
		id = v.VisitorID
		s.log.Debug("访客登记", logger.DormID(v.DormID), zap.String("id_card", crypto.MaskIDCard(v.IDCard)))
	}
	return v, s.done("add", id, err)
}

func (s *VisitorService) add(ctx context.Context, in *Registration) (*models.Visitor, error) {
	v, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	if in.LeaveTime != "" {
		if !validator.IsValidClock(in.LeaveTime) {
			return nil, errors.ErrInvalidParams.WithMessage("离开时间格式错误（应为HH:MM，如11:45）！")
		}
		leave, _ := models.CombineClock(s.now(), in.LeaveTime)
		if leave.Before(v.VisitTime.Time) {
			return nil, errors.ErrVisitorTimeOrder
		}
		v.LeaveTime = leave
	}

	if err := s.repo.Create(ctx, v); err != nil {
		return nil, errors.Storage("添加失败：", err)
	}
	return v, nil
}

// Update 修改访客登记信息，离开时间只能通过 RecordLeave 登记
func (s *VisitorService) Update(ctx context.Context, visitorID int64, in *Registration) error {
	return s.done("update", visitorID, s.update(ctx, visitorID, in))
}

func (s *VisitorService) update(ctx context.Context, visitorID int64, in *Registration) error {
	if visitorID <= 0 {
		return errors.ErrInvalidParams.WithMessage("访客ID不能为空！")
	}
	v, err := s.build(ctx, in)
	if err != nil {
		return err
	}
	current, err := s.find(ctx, visitorID, "修改失败：未查询到访客ID%d对应的记录！")
	if err != nil {
		return err
	}
	if current.HasLeft() && current.LeaveTime.Before(v.VisitTime.Time) {
		return errors.ErrVisitorTimeOrder
	}

	v.VisitorID = visitorID
	if _, err := s.repo.Update(ctx, v); err != nil {
		return errors.Storage("修改失败：", err)
	}
	return nil
}

// RecordLeave 登记离开时间，离开时间不能早于拜访时间
func (s *VisitorService) RecordLeave(ctx context.Context, visitorID int64, leaveClock string) error {
	return s.done("leave", visitorID, s.recordLeave(ctx, visitorID, validator.Trim(leaveClock)))
}

func (s *VisitorService) recordLeave(ctx context.Context, visitorID int64, leaveClock string) error {
	if visitorID <= 0 {
		return errors.ErrInvalidParams.WithMessage("访客ID格式错误（必须为纯数字）！")
	}
	if !validator.IsValidClock(leaveClock) {
		return errors.ErrInvalidParams.WithMessage("离开时间格式错误（应为HH:MM，如11:45）！")
	}
	current, err := s.find(ctx, visitorID, "登记失败：未查询到访客ID%d对应的记录！")
	if err != nil {
		return err
	}
	if current.HasLeft() {
		return errors.ErrVisitorAlreadyLeft
	}
	leave, _ := models.CombineClock(s.now(), leaveClock)
	if leave.Before(current.VisitTime.Time) {
		return errors.ErrVisitorTimeOrder
	}

	if _, err := s.repo.SetLeaveTime(ctx, visitorID, leave); err != nil {
		return errors.Storage("登记失败：", err)
	}
	return nil
}

// Delete 删除访客记录
func (s *VisitorService) Delete(ctx context.Context, visitorID int64) error {
	return s.done("delete", visitorID, s.delete(ctx, visitorID))
}

func (s *VisitorService) delete(ctx context.Context, visitorID int64) error {
	if visitorID <= 0 {
		return errors.ErrInvalidParams.WithMessage("访客ID格式错误（必须为纯数字）！")
	}
	if _, err := s.find(ctx, visitorID, "删除失败：未查询到访客ID%d对应的记录！"); err != nil {
		return err
	}
	if _, err := s.repo.Delete(ctx, visitorID); err != nil {
		return errors.Storage("删除失败：", err)
	}
	return nil
}

// GetByID 根据 ID 获取访客记录
func (s *VisitorService) GetByID(ctx context.Context, visitorID int64) (*models.Visitor, error) {
	if visitorID <= 0 {
		return nil, s.Fail(errors.ErrInvalidParams.WithMessage("访客ID格式错误（必须为纯数字）！"))
	}
	v, err := s.find(ctx, visitorID, "未查询到访客ID%d对应的记录！")
	return v, s.Fail(err)
}

// List 分页获取访客列表
func (s *VisitorService) List(ctx context.Context, page *models.PageParam) ([]*models.Visitor, error) {
	rows, err := service.Paginate(ctx, page, s.repo.Count, s.repo.List)
	return rows, s.Fail(err)
}

// Filter 按学生所在宿舍、宿舍号和在访状态筛选
func (s *VisitorService) Filter(ctx context.Context, f *models.VisitorFilter, page *models.PageParam) ([]*models.Visitor, error) {
	if err := normalizeFilter(f); err != nil {
		return nil, s.Fail(err)
	}
	rows, err := service.Paginate(ctx, page,
		func(ctx context.Context) (int64, error) { return s.repo.FilterCount(ctx, f) },
		func(ctx context.Context, p *models.PageParam) ([]*models.Visitor, error) { return s.repo.Filter(ctx, f, p) },
	)
	return rows, s.Fail(err)
}

// FilterCount 筛选命中的记录数
func (s *VisitorService) FilterCount(ctx context.Context, f *models.VisitorFilter) (int64, error) {
	if err := normalizeFilter(f); err != nil {
		return 0, s.Fail(err)
	}
	n, err := s.repo.FilterCount(ctx, f)
	if err != nil {
		return 0, s.Fail(errors.Storage("获取总数失败：", err))
	}
	return n, s.Fail(nil)
}

// TotalCount 访客记录总数
func (s *VisitorService) TotalCount(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, s.Fail(errors.Storage("获取总数失败：", err))
	}
	return n, s.Fail(nil)
}

// ActiveCount 尚未离开的访客数
func (s *VisitorService) ActiveCount(ctx context.Context) (int64, error) {
	n, err := s.repo.ActiveCount(ctx)
	if err != nil {
		return 0, s.Fail(errors.Storage("获取当前访客数量失败：", err))
	}
	return n, s.Fail(nil)
}

// build 校验登记信息并生成记录，拜访时间取当天
func (s *VisitorService) build(ctx context.Context, in *Registration) (*models.Visitor, error) {
	in.VisitorName = validator.Trim(in.VisitorName)
	in.Gender = validator.Trim(in.Gender)
	in.IDCard = validator.Trim(in.IDCard)
	in.DormID = validator.Trim(in.DormID)
	in.VisitReason = validator.Trim(in.VisitReason)
	in.VisitTime = validator.Trim(in.VisitTime)
	in.LeaveTime = validator.Trim(in.LeaveTime)
	in.RegisterAdmin = validator.Trim(in.RegisterAdmin)
	invalid := errors.ErrInvalidParams.WithMessage

	switch {
	case in.VisitorName == "":
		return nil, invalid("访客姓名不能为空！")
	case !validator.LengthBetween(in.VisitorName, 1, 20):
		return nil, invalid("访客姓名不能超过20个字符！")
	case !validator.IsValidVisitorName(in.VisitorName):
		return nil, invalid("访客姓名格式错误（中文或字母）！")
	case in.Gender == "":
		return nil, invalid("性别不能为空！")
	case !validator.IsValidGender(in.Gender):
		return nil, invalid("性别格式错误（应为'男'或'女'）！")
	case in.IDCard == "":
		return nil, invalid("身份证号不能为空！")
	case !validator.IsValidIDCard(in.IDCard):
		return nil, invalid("身份证号格式错误（需18位，支持最后一位X）！")
	case in.DormID == "":
		return nil, invalid("被访宿舍号不能为空！")
	case !validator.IsValidDormID(in.DormID):
		return nil, invalid("被访宿舍号格式错误！")
	}

	ok, err := s.dorms.Exists(ctx, in.DormID)
	if err != nil {
		if errors.IsAppError(err) {
			return nil, err
		}
		return nil, errors.Storage("查询失败：", err)
	}
	if !ok {
		return nil, errors.ErrDormNotFound.WithMessagef("宿舍号%s对应的宿舍不存在！", in.DormID)
	}

	switch {
	case in.VisitReason == "":
		return nil, invalid("访问事由不能为空！")
	case !validator.LengthBetween(in.VisitReason, 1, 100):
		return nil, invalid("访问事由不能超过100个字符！")
	case !validator.IsValidClock(in.VisitTime):
		return nil, invalid("拜访时间格式错误（应为HH:MM，如09:30）！")
	case in.RegisterAdmin == "":
		return nil, invalid("登记管理员不能为空！")
	case !validator.LengthBetween(in.RegisterAdmin, 1, 20):
		return nil, invalid("登记管理员姓名不能超过20个字符！")
	}

	visit, _ := models.CombineClock(s.now(), in.VisitTime)
	return &models.Visitor{
		VisitorName:   in.VisitorName,
		Gender:        in.Gender,
		IDCard:        in.IDCard,
		DormID:        in.DormID,
		VisitReason:   in.VisitReason,
		VisitTime:     visit,
		RegisterAdmin: in.RegisterAdmin,
	}, nil
}

func (s *VisitorService) find(ctx context.Context, visitorID int64, notFound string) (*models.Visitor, error) {
	v, err := s.repo.GetByID(ctx, visitorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrVisitorNotFound.WithMessagef(notFound, visitorID)
	}
	if err != nil {
		return nil, errors.Storage("查询失败：", err)
	}
	return v, nil
}

func (s *VisitorService) done(action string, visitorID int64, err error) error {
	if s.metrics != nil {
		s.metrics.RecordMutation("visitor", action, err)
	}
	if err != nil {
		s.log.Warn("访客操作失败", logger.Action(action), logger.RecordID(visitorID), zap.Error(err))
	} else {
		s.log.Info("访客操作成功", logger.Action(action), logger.RecordID(visitorID))
	}
	return s.Fail(err)
}

// normalizeFilter f 为 nil 表示不限条件
func normalizeFilter(f *models.VisitorFilter) error {
	if f == nil {
		return nil
	}
	f.StudentID = validator.Trim(f.StudentID)
	f.DormID = validator.Trim(f.DormID)
	switch f.Status {
	case models.VisitStatusAll, models.VisitStatusVisiting, models.VisitStatusLeft:
		return nil
	default:
		return errors.ErrInvalidParams.WithMessage("访客状态错误（仅支持visiting或left）！")
	}
}
