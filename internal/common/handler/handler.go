// Package handler 提供 API Handler 的通用辅助函数
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/dormitory-backend/internal/common/response"
	"github.com/dumeirei/dormitory-backend/internal/middleware"
	"github.com/dumeirei/dormitory-backend/internal/models"
)

// HandleError 有错误时写出错误响应并返回 true，调用方应直接 return
//
//	rows, err := svc.List(ctx, page)
//	if handler.HandleError(c, err) {
//	    return
//	}
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	_ = c.Error(err)
	response.Error(c, err)
	return true
}

// MustSucceed 出错写错误响应，否则写成功响应
func MustSucceed(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Success(c, data)
}

// MustSucceedWithMessage 带自定义成功消息
func MustSucceedWithMessage(c *gin.Context, err error, message string) {
	if HandleError(c, err) {
		return
	}
	response.SuccessWithMessage(c, message, nil)
}

// MustSucceedPage 分页响应版本
func MustSucceedPage(c *gin.Context, err error, list interface{}, page *models.PageParam) {
	if HandleError(c, err) {
		return
	}
	response.SuccessPage(c, list, page)
}

// Paging 分页参数默认值与上限
type Paging struct {
	DefaultSize int
	MaxSize     int
}

// Bind 从查询参数 page、page_size 读取分页参数
//
// 缺省时使用默认值；page_size 超过上限时截断为上限。
// 非法数字保留为 0，交由服务层返回分页参数错误。
func (p Paging) Bind(c *gin.Context) *models.PageParam {
	index := 1
	if s := c.Query("page"); s != "" {
		index, _ = strconv.Atoi(s)
	}
	size := p.DefaultSize
	if size <= 0 {
		size = models.DefaultPageSize
	}
	if s := c.Query("page_size"); s != "" {
		size, _ = strconv.Atoi(s)
	}
	if p.MaxSize > 0 && size > p.MaxSize {
		size = p.MaxSize
	}
	return &models.PageParam{PageIndex: index, PageSize: size}
}

// ParseID 解析路径参数 "id" 为 int64
func ParseID(c *gin.Context, resourceName string) (int64, bool) {
	return ParseParamID(c, "id", resourceName)
}

// ParseParamID 解析指定路径参数为正整数，失败时写出 400 响应
func ParseParamID(c *gin.Context, paramName, resourceName string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, resourceName+"ID格式错误（必须为纯数字）！")
		return 0, false
	}
	return id, true
}

// BindJSON 绑定请求体，失败时写出 400 响应
func BindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.BadRequest(c, "请求参数格式错误")
		return false
	}
	return true
}

// RequireAdminID 获取当前管理员账号，未登录时写出 401 响应
func RequireAdminID(c *gin.Context) (string, bool) {
	adminID := middleware.GetAdminID(c)
	if adminID == "" {
		response.Unauthorized(c, "请先登录")
		return "", false
	}
	return adminID, true
}
