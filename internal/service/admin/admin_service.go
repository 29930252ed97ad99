// Package admin 提供管理员登录与账号管理服务
package admin

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/dormitory-backend/internal/common/cache"
	"github.com/dumeirei/dormitory-backend/internal/common/crypto"
	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/common/errors"
	"github.com/dumeirei/dormitory-backend/internal/common/jwt"
	"github.com/dumeirei/dormitory-backend/internal/common/logger"
	"github.com/dumeirei/dormitory-backend/internal/common/metrics"
	"github.com/dumeirei/dormitory-backend/internal/common/validator"
	"github.com/dumeirei/dormitory-backend/internal/models"
	"github.com/dumeirei/dormitory-backend/internal/repository"
)

// AdminService 管理员服务
type AdminService struct {
	errors.Tracker
	repo    *repository.AdminRepository
	hasher  *crypto.PasswordHasher
	tokens  *jwt.Manager
	guard   *cache.LoginGuard
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// NewAdminService 创建管理员服务，guard 为 nil 时不做失败锁定
func NewAdminService(
	repo *repository.AdminRepository,
	hasher *crypto.PasswordHasher,
	tokens *jwt.Manager,
	guard *cache.LoginGuard,
	m *metrics.Metrics,
) *AdminService {
	return &AdminService{
		repo:    repo,
		hasher:  hasher,
		tokens:  tokens,
		guard:   guard,
		metrics: m,
		log:     logger.Named("admin"),
		now:     time.Now,
	}
}

// LoginResponse 登录响应
type LoginResponse struct {
	Admin     *models.Admin  `json:"admin"`
	TokenPair *jwt.TokenPair `json:"token"`
}

// VerifyLogin 校验账号密码，成功返回管理员信息
func (s *AdminService) VerifyLogin(ctx context.Context, adminID, password string) (*models.Admin, error) {
	adminID = validator.Trim(adminID)
	admin, err := s.verify(ctx, adminID, validator.Trim(password))
	if err != nil {
		s.log.Warn("管理员登录失败", logger.AdminID(adminID), zap.Error(err))
		return nil, s.Fail(err)
	}
	s.log.Info("管理员登录成功", logger.AdminID(adminID))
	return admin, s.Fail(nil)
}

// Login 校验账号密码并签发令牌
func (s *AdminService) Login(ctx context.Context, adminID, password string) (*LoginResponse, error) {
	admin, err := s.VerifyLogin(ctx, adminID, password)
	if err != nil {
		return nil, err
	}
	pair, err := s.tokens.GenerateTokenPair(admin.AdminID, admin.AdminName)
	if err != nil {
		return nil, s.Fail(errors.ErrInternalError.WithError(err))
	}
	return &LoginResponse{Admin: admin, TokenPair: pair}, nil
}

// RefreshToken 用刷新令牌换取新的令牌对
func (s *AdminService) RefreshToken(ctx context.Context, refreshToken string) (*jwt.TokenPair, error) {
	claims, err := s.tokens.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, s.Fail(errors.ErrTokenRefreshFail.WithError(err))
	}
	// 账号已删除时不再续期
	if _, err := s.find(ctx, claims.AdminID); err != nil {
		return nil, s.Fail(errors.ErrTokenRefreshFail.WithError(err))
	}
	pair, err := s.tokens.RefreshToken(refreshToken)
	if err != nil {
		return nil, s.Fail(errors.ErrTokenRefreshFail.WithError(err))
	}
	return pair, s.Fail(nil)
}

// GetByID 根据账号获取管理员
func (s *AdminService) GetByID(ctx context.Context, adminID string) (*models.Admin, error) {
	adminID = validator.Trim(adminID)
	if adminID == "" || !validator.IsValidAdminID(adminID) {
		return nil, s.Fail(errors.ErrInvalidParams.WithMessage("账号格式错误！"))
	}
	admin, err := s.find(ctx, adminID)
	return admin, s.Fail(err)
}

// Create 创建管理员，密码以 bcrypt 哈希保存
func (s *AdminService) Create(ctx context.Context, admin *models.Admin, password string) error {
	admin.AdminID = validator.Trim(admin.AdminID)
	return s.done("create", admin.AdminID, s.create(ctx, admin, validator.Trim(password)))
}

func (s *AdminService) create(ctx context.Context, admin *models.Admin, password string) error {
	admin.AdminName = validator.Trim(admin.AdminName)
	if admin.AdminID == "" || !validator.IsValidAdminID(admin.AdminID) {
		return errors.ErrInvalidParams.WithMessage("账号格式错误（4-20位字母+数字组合）！")
	}
	if !validator.LengthBetween(admin.AdminName, 0, 20) {
		return errors.ErrInvalidParams.WithMessage("管理员姓名不能超过20个字符！")
	}
	if !validator.IsValidPassword(password) {
		return errors.ErrInvalidParams.WithMessage("密码格式错误（6-20位字母+数字组合）！")
	}

	exists, err := s.repo.Exists(ctx, admin.AdminID)
	if err != nil {
		return errors.Storage("添加失败：", err)
	}
	if exists {
		return errors.ErrAdminExists.WithMessagef("添加失败：账号%s已存在！", admin.AdminID)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return errors.ErrInternalError.WithError(err)
	}
	admin.Password = hash
	admin.CreatedAt = models.NewDateTime(s.now())
	if err := s.repo.Create(ctx, admin); err != nil {
		if database.IsDuplicate(err) {
			return errors.ErrAdminExists.WithMessagef("添加失败：账号%s已存在！", admin.AdminID).WithError(err)
		}
		return errors.Storage("添加失败：", err)
	}
	return nil
}

// ChangePassword 校验原密码后修改密码
func (s *AdminService) ChangePassword(ctx context.Context, adminID, oldPassword, newPassword string) error {
	adminID = validator.Trim(adminID)
	return s.done("change_password", adminID, s.changePassword(ctx, adminID, validator.Trim(oldPassword), validator.Trim(newPassword)))
}

func (s *AdminService) changePassword(ctx context.Context, adminID, oldPassword, newPassword string) error {
	admin, err := s.find(ctx, adminID)
	if err != nil {
		return err
	}
	if s.hasher.Verify(oldPassword, admin.Password) != nil {
		return errors.ErrPasswordError.WithMessage("原密码错误！")
	}
	if !validator.IsValidPassword(newPassword) {
		return errors.ErrInvalidParams.WithMessage("密码格式错误（6-20位字母+数字组合）！")
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return errors.ErrInternalError.WithError(err)
	}
	if _, err := s.repo.UpdatePassword(ctx, adminID, hash); err != nil {
		return errors.Storage("修改失败：", err)
	}
	return nil
}

func (s *AdminService) verify(ctx context.Context, adminID, password string) (*models.Admin, error) {
	if adminID == "" || password == "" {
		return nil, errors.ErrLoginEmpty
	}
	if !validator.IsValidAdminID(adminID) {
		return nil, errors.ErrInvalidParams.WithMessage("账号格式错误")
	}
	if err := s.checkLocked(ctx, adminID); err != nil {
		return nil, err
	}

	admin, err := s.repo.GetByID(ctx, adminID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.recordFailure(ctx, adminID)
		return nil, errors.ErrAdminNotFound
	}
	if err != nil {
		return nil, errors.Storage("登录失败：", err)
	}

	if err := s.hasher.Verify(password, admin.Password); err != nil {
		if err != crypto.ErrPasswordMismatch {
			s.log.Warn("密码哈希校验异常", logger.AdminID(adminID), zap.Error(err))
		}
		s.recordFailure(ctx, adminID)
		return nil, errors.ErrPasswordError
	}

	if s.guard != nil {
		if err := s.guard.Reset(ctx, adminID); err != nil {
			s.log.Warn("清除登录失败计数失败", logger.AdminID(adminID), zap.Error(err))
		}
	}
	return admin, nil
}

// checkLocked 缓存不可用时放行，只记录日志
func (s *AdminService) checkLocked(ctx context.Context, adminID string) error {
	if s.guard == nil {
		return nil
	}
	locked, ttl, err := s.guard.Locked(ctx, adminID)
	if err != nil {
		s.log.Warn("读取登录失败计数失败", logger.AdminID(adminID), zap.Error(err))
		return nil
	}
	if !locked {
		return nil
	}
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return errors.ErrAccountLocked.WithMessagef("登录失败次数过多，账号已锁定，请%d分钟后再试！", minutes)
}

func (s *AdminService) recordFailure(ctx context.Context, adminID string) {
	if s.metrics != nil {
		s.metrics.RecordLoginFailure()
	}
	if s.guard == nil {
		return
	}
	if _, err := s.guard.Fail(ctx, adminID); err != nil {
		s.log.Warn("记录登录失败次数失败", logger.AdminID(adminID), zap.Error(err))
	}
}

func (s *AdminService) find(ctx context.Context, adminID string) (*models.Admin, error) {
	admin, err := s.repo.GetByID(ctx, adminID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrAdminNotFound.WithMessage("未查询到该管理员！")
	}
	if err != nil {
		return nil, errors.Storage("查询失败：", err)
	}
	return admin, nil
}

func (s *AdminService) done(action, adminID string, err error) error {
	if s.metrics != nil {
		s.metrics.RecordMutation("admin", action, err)
	}
	if err != nil {
		s.log.Warn("管理员操作失败", logger.Action(action), logger.AdminID(adminID), zap.Error(err))
	} else {
		s.log.Info("管理员操作成功", logger.Action(action), logger.AdminID(adminID))
	}
	return s.Fail(err)
}
