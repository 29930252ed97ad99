package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/dormitory-backend/internal/common/handler"
	"github.com/dumeirei/dormitory-backend/internal/common/response"
	"github.com/dumeirei/dormitory-backend/internal/middleware"
	"github.com/dumeirei/dormitory-backend/internal/models"
	visitorService "github.com/dumeirei/dormitory-backend/internal/service/visitor"
)

// VisitorHandler 访客登记处理器
type VisitorHandler struct {
	visitorService *visitorService.VisitorService
	cache          DashboardCache
	paging         handler.Paging
}

// NewVisitorHandler 创建访客登记处理器
func NewVisitorHandler(visitorSvc *visitorService.VisitorService, cache DashboardCache, paging handler.Paging) *VisitorHandler {
	return &VisitorHandler{
		visitorService: visitorSvc,
		cache:          cache,
		paging:         paging,
	}
}

// LeaveRequest 登记离开请求
type LeaveRequest struct {
	LeaveTime string `json:"leave_time"`
}

// List 访客列表
// @Summary 访客列表，按学号、宿舍号、是否离开组合筛选
// @Tags 访客登记
// @Produce json
// @Security Bearer
// @Param status query string false "visiting/left"
// @Router /api/admin/visitors [get]
func (h *VisitorHandler) List(c *gin.Context) {
	page := h.paging.Bind(c)

	var filter models.VisitorFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "请求参数格式错误")
		return
	}
	visitors, err := h.visitorService.Filter(c.Request.Context(), &filter, page)
	handler.MustSucceedPage(c, err, visitors, page)
}

// Get 访客详情
// @Router /api/admin/visitors/{id} [get]
func (h *VisitorHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "访客")
	if !ok {
		return
	}
	visitor, err := h.visitorService.GetByID(c.Request.Context(), id)
	handler.MustSucceed(c, err, visitor)
}

// Create 登记访客，登记人默认为当前管理员
// @Router /api/admin/visitors [post]
func (h *VisitorHandler) Create(c *gin.Context) {
	var req visitorService.Registration
	if !handler.BindJSON(c, &req) {
		return
	}
	if req.RegisterAdmin == "" {
		req.RegisterAdmin = middleware.GetAdminID(c)
	}

	visitor, err := h.visitorService.Add(c.Request.Context(), &req)
	if handler.HandleError(c, err) {
		return
	}
	invalidate(c, h.cache)
	handler.MustSucceed(c, nil, visitor)
}

// Update 修改访客登记
// @Router /api/admin/visitors/{id} [put]
func (h *VisitorHandler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "访客")
	if !ok {
		return
	}
	var req visitorService.Registration
	if !handler.BindJSON(c, &req) {
		return
	}
	if req.RegisterAdmin == "" {
		req.RegisterAdmin = middleware.GetAdminID(c)
	}
	handler.MustSucceedWithMessage(c, h.visitorService.Update(c.Request.Context(), id, &req), "修改成功")
}

// Leave 登记离开
// @Router /api/admin/visitors/{id}/leave [put]
func (h *VisitorHandler) Leave(c *gin.Context) {
	id, ok := handler.ParseID(c, "访客")
	if !ok {
		return
	}
	var req LeaveRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	if handler.HandleError(c, h.visitorService.RecordLeave(c.Request.Context(), id, req.LeaveTime)) {
		return
	}
	invalidate(c, h.cache)
	handler.MustSucceedWithMessage(c, nil, "登记离开成功")
}

// Delete 删除访客登记
// @Router /api/admin/visitors/{id} [delete]
func (h *VisitorHandler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "访客")
	if !ok {
		return
	}
	if handler.HandleError(c, h.visitorService.Delete(c.Request.Context(), id)) {
		return
	}
	invalidate(c, h.cache)
	handler.MustSucceedWithMessage(c, nil, "删除成功")
}

// RegisterRoutes 注册访客路由
func (h *VisitorHandler) RegisterRoutes(r *gin.RouterGroup) {
	visitors := r.Group("/visitors")
	{
		visitors.GET("", h.List)
		visitors.POST("", h.Create)
		visitors.GET("/:id", h.Get)
		visitors.PUT("/:id", h.Update)
		visitors.PUT("/:id/leave", h.Leave)
		visitors.DELETE("/:id", h.Delete)
	}
}
