// Package student 提供学生管理服务
package student

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/dormitory-backend/internal/common/crypto"
	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/common/errors"
	"github.com/dumeirei/dormitory-backend/internal/common/logger"
	"github.com/dumeirei/dormitory-backend/internal/common/metrics"
	"github.com/dumeirei/dormitory-backend/internal/common/validator"
	"github.com/dumeirei/dormitory-backend/internal/models"
	"github.com/dumeirei/dormitory-backend/internal/repository"
	"github.com/dumeirei/dormitory-backend/internal/service"
)

// Transactor 在事务中执行回调
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// DormLookup 宿舍存在性查询
type DormLookup interface {
	Exists(ctx context.Context, dormID string) (bool, error)
}

// OccupancyAdjuster 宿舍入住人数调整
type OccupancyAdjuster interface {
	AdjustOccupancy(ctx context.Context, dormID string, delta int) error
}

// StudentService 学生服务
//
// 学生的增删改与宿舍入住人数在同一事务内变更。
type StudentService struct {
	errors.Tracker
	tx        Transactor
	repo      *repository.StudentRepository
	dorms     DormLookup
	occupancy OccupancyAdjuster
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

// NewStudentService 创建学生服务
func NewStudentService(
	tx Transactor,
	repo *repository.StudentRepository,
	dorms DormLookup,
	occupancy OccupancyAdjuster,
	m *metrics.Metrics,
) *StudentService {
	return &StudentService{
		tx:        tx,
		repo:      repo,
		dorms:     dorms,
		occupancy: occupancy,
		metrics:   m,
		log:       logger.Named("student"),
		now:       time.Now,
	}
}

// Add 新增学生并将所在宿舍入住人数加一，入住日期为空时取当天
func (s *StudentService) Add(ctx context.Context, student *models.Student) error {
	return s.done("add", student.StudentID, s.add(ctx, student))
}

func (s *StudentService) add(ctx context.Context, student *models.Student) error {
	normalize(student)
	if err := validate(student); err != nil {
		return err
	}
	s.log.Debug("新增学生", logger.StudentID(student.StudentID), zap.String("phone", crypto.MaskPhone(student.StudentPhone)))

	exists, err := s.repo.Exists(ctx, student.StudentID)
	if err != nil {
		return errors.Storage("添加失败：", err)
	}
	if exists {
		return errors.ErrStudentExists.WithMessagef("添加失败：学号%s已存在！", student.StudentID)
	}
	if err := s.requireDorm(ctx, student.DormID, "添加失败："); err != nil {
		return err
	}
	if student.CheckInDate.IsZero() {
		student.CheckInDate = models.NewDate(s.now())
	}

	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, student); err != nil {
			if database.IsDuplicate(err) {
				return errors.ErrStudentExists.WithMessagef("添加失败：学号%s已存在！", student.StudentID).WithError(err)
			}
			return errors.Storage("添加失败：", err)
		}
		return s.checkIn(ctx, student.DormID, "添加失败：")
	})
}

// Update 修改学生信息，学号不可修改；宿舍变更时同步调整两个宿舍的入住人数
func (s *StudentService) Update(ctx context.Context, student *models.Student) error {
	return s.done("update", student.StudentID, s.update(ctx, student))
}

func (s *StudentService) update(ctx context.Context, student *models.Student) error {
	normalize(student)
	if err := validate(student); err != nil {
		return err
	}

	current, err := s.find(ctx, student.StudentID, "修改失败：未查询到学号%s对应的学生！")
	if err != nil {
		return err
	}
	if err := s.requireDorm(ctx, student.DormID, "修改失败："); err != nil {
		return err
	}
	if student.CheckInDate.IsZero() {
		student.CheckInDate = current.CheckInDate
	}

	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.Update(ctx, student); err != nil {
			return errors.Storage("修改失败：", err)
		}
		if current.DormID == student.DormID {
			return nil
		}
		// 先占新宿舍床位，住满时整体回滚
		if err := s.checkIn(ctx, student.DormID, "修改失败："); err != nil {
			return err
		}
		return s.checkOut(ctx, current.DormID)
	})
}

// Delete 删除学生并将原宿舍入住人数减一
func (s *StudentService) Delete(ctx context.Context, studentID string) error {
	studentID = validator.Trim(studentID)
	return s.done("delete", studentID, s.delete(ctx, studentID))
}

func (s *StudentService) delete(ctx context.Context, studentID string) error {
	if err := validateID(studentID); err != nil {
		return err
	}
	current, err := s.find(ctx, studentID, "删除失败：未查询到学号%s对应的学生！")
	if err != nil {
		return err
	}

	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		n, err := s.repo.Delete(ctx, studentID)
		if err != nil {
			return errors.Storage("删除失败：", err)
		}
		if n == 0 {
			return errors.ErrStudentNotFound.WithMessagef("删除失败：未查询到学号%s对应的学生！", studentID)
		}
		return s.checkOut(ctx, current.DormID)
	})
}

// GetByID 根据学号获取学生
func (s *StudentService) GetByID(ctx context.Context, studentID string) (*models.Student, error) {
	studentID = validator.Trim(studentID)
	if studentID == "" || !validator.IsValidStudentID(studentID) {
		return nil, s.Fail(errors.ErrInvalidParams.WithMessage("学号格式错误！"))
	}
	student, err := s.find(ctx, studentID, "未查询到学号%s对应的学生！")
	return student, s.Fail(err)
}

// Exists 学生是否存在
func (s *StudentService) Exists(ctx context.Context, studentID string) (bool, error) {
	ok, err := s.repo.Exists(ctx, studentID)
	if err != nil {
		return false, errors.Storage("查询失败：", err)
	}
	return ok, nil
}

// List 分页获取学生列表
func (s *StudentService) List(ctx context.Context, page *models.PageParam) ([]*models.Student, error) {
	rows, err := service.Paginate(ctx, page, s.repo.Count, s.repo.List)
	return rows, s.Fail(err)
}

// Search 按学号或姓名模糊查询
func (s *StudentService) Search(ctx context.Context, keyword string, page *models.PageParam) ([]*models.Student, error) {
	keyword = validator.Trim(keyword)
	if keyword == "" {
		return nil, s.Fail(errors.ErrInvalidParams.WithMessage("查询关键词不能为空！"))
	}
	rows, err := service.Paginate(ctx, page,
		func(ctx context.Context) (int64, error) { return s.repo.SearchCount(ctx, keyword) },
		func(ctx context.Context, p *models.PageParam) ([]*models.Student, error) {
			return s.repo.Search(ctx, keyword, p)
		},
	)
	return rows, s.Fail(err)
}

// SearchCount 模糊查询命中的学生数
func (s *StudentService) SearchCount(ctx context.Context, keyword string) (int64, error) {
	keyword = validator.Trim(keyword)
	if keyword == "" {
		return 0, s.Fail(errors.ErrInvalidParams.WithMessage("查询关键词不能为空！"))
	}
	n, err := s.repo.SearchCount(ctx, keyword)
	if err != nil {
		return 0, s.Fail(errors.Storage("获取总数失败：", err))
	}
	return n, s.Fail(nil)
}

// TotalCount 学生总数
func (s *StudentService) TotalCount(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, s.Fail(errors.Storage("获取总数失败：", err))
	}
	return n, s.Fail(nil)
}

func (s *StudentService) find(ctx context.Context, studentID, notFound string) (*models.Student, error) {
	student, err := s.repo.GetByID(ctx, studentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrStudentNotFound.WithMessagef(notFound, studentID)
	}
	if err != nil {
		return nil, errors.Storage("查询失败：", err)
	}
	return student, nil
}

func (s *StudentService) requireDorm(ctx context.Context, dormID, prefix string) error {
	ok, err := s.dorms.Exists(ctx, dormID)
	if err != nil {
		if errors.IsAppError(err) {
			return err
		}
		return errors.Storage("查询失败：", err)
	}
	if !ok {
		return errors.ErrDormNotFound.WithMessage(prefix + "该生要入住的宿舍不存在！")
	}
	return nil
}

func (s *StudentService) checkIn(ctx context.Context, dormID, prefix string) error {
	err := s.occupancy.AdjustOccupancy(ctx, dormID, 1)
	if errors.Is(err, errors.ErrDormCapacityExceed) {
		return errors.ErrDormCapacityExceed.WithMessagef("%s宿舍%s已住满！", prefix, dormID).WithError(err)
	}
	return err
}

// checkOut 原宿舍人数减一；记录已为 0 时只告警，由定时校准修正
func (s *StudentService) checkOut(ctx context.Context, dormID string) error {
	err := s.occupancy.AdjustOccupancy(ctx, dormID, -1)
	if errors.Is(err, errors.ErrOccupancyNegative) {
		s.log.Warn("宿舍入住人数与学生记录不一致", logger.DormID(dormID))
		return nil
	}
	return err
}

func (s *StudentService) done(action, studentID string, err error) error {
	if s.metrics != nil {
		s.metrics.RecordMutation("student", action, err)
	}
	if err != nil {
		s.log.Warn("学生操作失败", logger.Action(action), logger.StudentID(studentID), zap.Error(err))
	} else {
		s.log.Info("学生操作成功", logger.Action(action), logger.StudentID(studentID))
	}
	return s.Fail(err)
}

func normalize(st *models.Student) {
	st.StudentID = validator.Trim(st.StudentID)
	st.StudentName = validator.Trim(st.StudentName)
	st.Gender = validator.Trim(st.Gender)
	st.Major = validator.Trim(st.Major)
	st.DormID = validator.Trim(st.DormID)
	st.StudentPhone = validator.Trim(st.StudentPhone)
}

func validateID(id string) error {
	if id == "" {
		return errors.ErrInvalidParams.WithMessage("学号不能为空！")
	}
	if !validator.IsValidStudentID(id) {
		return errors.ErrInvalidParams.WithMessage("学号格式错误！")
	}
	return nil
}

func validate(st *models.Student) error {
	if err := validateID(st.StudentID); err != nil {
		return err
	}
	invalid := errors.ErrInvalidParams.WithMessage
	switch {
	case st.StudentName == "":
		return invalid("姓名不能为空！")
	case !validator.IsValidName(st.StudentName):
		return invalid("姓名格式错误（2-20位中文或字母）！")
	case st.Gender == "":
		return invalid("性别不能为空！")
	case !validator.IsValidGender(st.Gender):
		return invalid("性别格式错误（仅支持\"男\"或\"女\"）！")
	case st.Major == "":
		return invalid("专业不能为空！")
	case !validator.IsValidMajor(st.Major):
		return invalid("专业格式错误")
	case st.DormID == "":
		return invalid("宿舍号不能为空！")
	case !validator.IsValidDormID(st.DormID):
		return invalid("宿舍号格式错误")
	case !validator.IsValidAge(st.Age):
		return invalid("年龄必须在18-30岁之间！")
	case st.StudentPhone != "" && !validator.IsValidPhone(st.StudentPhone):
		return invalid("手机号格式错误（11位数字，以13/14/15/17/18/19开头）！")
	}
	return nil
}
