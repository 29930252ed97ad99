// Package response 提供统一的 API 响应格式
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/dormitory-backend/internal/common/errors"
	"github.com/dumeirei/dormitory-backend/internal/models"
)

// Response API 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageData 分页数据，字段与 PageParam 一致
type PageData struct {
	List       interface{} `json:"list"`
	PageIndex  int         `json:"page_index"`
	PageSize   int         `json:"page_size"`
	TotalCount int64       `json:"total_count"`
	TotalPage  int         `json:"total_page"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 成功响应（带消息）
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// SuccessPage 分页成功响应，page 为查询后回填过总数的分页参数
func SuccessPage(c *gin.Context, list interface{}, page *models.PageParam) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data: PageData{
			List:       list,
			PageIndex:  page.PageIndex,
			PageSize:   page.PageSize,
			TotalCount: page.TotalCount,
			TotalPage:  page.TotalPage,
		},
	})
}

// Error 业务错误响应，HTTP 状态码由错误分类决定
func Error(c *gin.Context, err error) {
	appErr := errors.GetAppError(err)
	c.JSON(StatusOf(appErr), Response{
		Code:    appErr.Code,
		Message: appErr.Message,
	})
}

// StatusOf 错误分类对应的 HTTP 状态码
func StatusOf(err *errors.AppError) int {
	switch err.Kind() {
	case errors.KindFormat:
		return http.StatusBadRequest
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindDuplicate, errors.KindState:
		return http.StatusConflict
	case errors.KindAuth:
		if err.Code == errors.ErrAccountLocked.Code {
			return http.StatusTooManyRequests
		}
		if err.Code == errors.ErrPermissionDenied.Code {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case errors.KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest 请求参数错误
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    errors.ErrInvalidParams.Code,
		Message: message,
	})
}

// Unauthorized 未授权
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = errors.ErrUnauthorized.Message
	}
	c.JSON(http.StatusUnauthorized, Response{
		Code:    errors.ErrUnauthorized.Code,
		Message: message,
	})
}

// InternalError 服务器内部错误
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = errors.ErrInternalError.Message
	}
	c.JSON(http.StatusInternalServerError, Response{
		Code:    errors.ErrInternalError.Code,
		Message: message,
	})
}
