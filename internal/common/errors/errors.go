// Package errors 定义业务错误码和错误处理
package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，使 errors.Is 能匹配改写过消息的同类错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Kind 返回错误所属分类
func (e *AppError) Kind() Kind {
	return KindOf(e.Code)
}

// New 创建新的应用错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
	}
}

// WithMessagef 按格式修改错误消息
func (e *AppError) WithMessagef(format string, args ...interface{}) *AppError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// 通用错误码 (1000-1099)
var (
	ErrUnknown       = New(1000, "未知错误")
	ErrInvalidParams = New(1001, "参数错误")
	ErrNotFound      = New(1002, "资源不存在")
	ErrAlreadyExists = New(1003, "资源已存在")
	ErrDatabaseError = New(1004, "数据库错误")
	ErrCacheError    = New(1005, "缓存错误")
	ErrInternalError = New(1006, "内部错误")
	ErrPageParam     = New(1007, "分页参数错误：页码和每页条数必须大于0！")
)

// 状态错误码 (1100-1199)
var (
	ErrDormOccupied        = New(1101, "删除失败：该宿舍仍有关联学生，请先处理学生入住信息！")
	ErrDormCapacityExceed  = New(1102, "宿舍人数超过最大容纳人数")
	ErrOccupancyNegative   = New(1103, "宿舍当前人数不能小于0")
	ErrOccupancyDeltaZero  = New(1104, "变更人数不能为0！")
	ErrFeePaidImmutable    = New(1105, "已缴费的费用记录不允许修改")
	ErrFeeAlreadyPaid      = New(1106, "该费用记录已缴费，不能重复缴费")
	ErrRepairNotEditable   = New(1107, "修改失败：已处理/处理中的报修不允许修改基础信息！")
	ErrRepairTransition    = New(1108, "状态流转错误")
	ErrRepairTargetStatus  = New(1109, "仅支持更新为处理中或已完成状态！")
	ErrVisitorTimeOrder    = New(1110, "离开时间不能早于来访时间")
	ErrVisitorAlreadyLeft  = New(1111, "该访客已登记离开")
	ErrTransactionActive   = New(1112, "已存在未结束的事务")
	ErrDatabaseUnavailable = New(1113, "数据库未连接")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized     = New(2000, "未登录")
	ErrTokenExpired     = New(2001, "登录已过期")
	ErrTokenInvalid     = New(2002, "无效的令牌")
	ErrTokenRefreshFail = New(2003, "刷新令牌失败")
	ErrPermissionDenied = New(2004, "权限不足")
	ErrAccountLocked    = New(2006, "账号已锁定，请稍后再试")
	ErrPasswordError    = New(2007, "密码错误！")
	ErrLoginEmpty       = New(2008, "账号或密码不能为空")
	ErrAdminNotFound    = New(2013, "账号不存在！")
	ErrAdminExists      = New(2014, "管理员账号已存在")
)

// 宿舍错误码 (3000-3999)
var (
	ErrDormNotFound = New(3000, "宿舍不存在")
	ErrDormExists   = New(3001, "宿舍号已存在")
)

// 学生错误码 (4000-4999)
var (
	ErrStudentNotFound = New(4000, "学生不存在")
	ErrStudentExists   = New(4001, "学号已存在")
)

// 费用错误码 (5000-5999)
var (
	ErrFeeNotFound  = New(5000, "费用记录不存在")
	ErrFeeDuplicate = New(5001, "该学生当月费用记录已存在")
)

// 报修错误码 (6000-6999)
var (
	ErrRepairNotFound = New(6000, "报修记录不存在")
)

// 访客错误码 (7000-7999)
var (
	ErrVisitorNotFound = New(7000, "访客记录不存在")
)

// Kind 错误分类
type Kind int

const (
	KindUnknown Kind = iota
	KindFormat
	KindNotFound
	KindDuplicate
	KindState
	KindStorage
	KindAuth
)

// String 返回分类名称
func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	case KindState:
		return "state"
	case KindStorage:
		return "storage"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// KindOf 根据错误码返回分类
func KindOf(code int) Kind {
	switch {
	case code == ErrInvalidParams.Code || code == ErrPageParam.Code:
		return KindFormat
	case code == ErrNotFound.Code:
		return KindNotFound
	case code == ErrAlreadyExists.Code:
		return KindDuplicate
	case code == ErrDatabaseError.Code || code == ErrDatabaseUnavailable.Code || code == ErrCacheError.Code:
		return KindStorage
	case code >= 1100 && code < 1200:
		return KindState
	case code >= 2000 && code < 3000:
		return KindAuth
	case code >= 3000 && code < 8000:
		if code%1000 == 0 {
			return KindNotFound
		}
		return KindDuplicate
	default:
		return KindUnknown
	}
}

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrUnknown.WithError(err)
}

// Storage 将存储层错误包装为数据库错误，消息为 prefix 加驱动返回的消息
func Storage(prefix string, err error) *AppError {
	msg := err.Error()
	var se interface{ StorageMessage() string }
	if stderrors.As(err, &se) {
		msg = se.StorageMessage()
	}
	return ErrDatabaseError.WithMessage(prefix + msg).WithError(err)
}

// Is 同标准库 errors.Is，AppError 按错误码匹配
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
