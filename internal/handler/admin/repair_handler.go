package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/dormitory-backend/internal/common/handler"
	"github.com/dumeirei/dormitory-backend/internal/common/response"
	"github.com/dumeirei/dormitory-backend/internal/models"
	repairService "github.com/dumeirei/dormitory-backend/internal/service/repair"
)

// RepairHandler 报修管理处理器
type RepairHandler struct {
	repairService *repairService.RepairService
	cache         DashboardCache
	paging        handler.Paging
}

// NewRepairHandler 创建报修管理处理器
func NewRepairHandler(repairSvc *repairService.RepairService, cache DashboardCache, paging handler.Paging) *RepairHandler {
	return &RepairHandler{
		repairService: repairSvc,
		cache:         cache,
		paging:        paging,
	}
}

// RepairRequest 新增/修改报修请求
type RepairRequest struct {
	StudentID     string      `json:"student_id"`
	DormID        string      `json:"dorm_id"`
	RepairContent string      `json:"repair_content"`
	RepairDate    models.Date `json:"repair_date"`
}

// RepairStatusRequest 更新处理状态请求
type RepairStatusRequest struct {
	HandleStatus models.RepairStatus `json:"handle_status"`
}

// List 报修列表
// @Summary 报修列表，按学号、宿舍号、处理状态组合筛选
// @Tags 报修管理
// @Produce json
// @Security Bearer
// @Router /api/admin/repairs [get]
func (h *RepairHandler) List(c *gin.Context) {
	page := h.paging.Bind(c)

	var filter models.RepairFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "处理状态不正确")
		return
	}
	repairs, err := h.repairService.Filter(c.Request.Context(), &filter, page)
	handler.MustSucceedPage(c, err, repairs, page)
}

// Get 报修详情
// @Router /api/admin/repairs/{id} [get]
func (h *RepairHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "报修")
	if !ok {
		return
	}
	repair, err := h.repairService.GetByID(c.Request.Context(), id)
	handler.MustSucceed(c, err, repair)
}

// Create 新增报修，状态固定为未处理
// @Router /api/admin/repairs [post]
func (h *RepairHandler) Create(c *gin.Context) {
	var req RepairRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	repair := &models.Repair{
		StudentID:     req.StudentID,
		DormID:        req.DormID,
		RepairContent: req.RepairContent,
		RepairDate:    req.RepairDate,
	}
	if handler.HandleError(c, h.repairService.Add(c.Request.Context(), repair)) {
		return
	}
	invalidate(c, h.cache)
	handler.MustSucceed(c, nil, repair)
}

// Update 修改报修内容
// @Router /api/admin/repairs/{id} [put]
func (h *RepairHandler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "报修")
	if !ok {
		return
	}
	var req RepairRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	repair := &models.Repair{
		RepairID:      id,
		StudentID:     req.StudentID,
		DormID:        req.DormID,
		RepairContent: req.RepairContent,
		RepairDate:    req.RepairDate,
	}
	handler.MustSucceedWithMessage(c, h.repairService.Update(c.Request.Context(), repair), "修改成功")
}

// UpdateStatus 推进处理状态
// @Router /api/admin/repairs/{id}/status [put]
func (h *RepairHandler) UpdateStatus(c *gin.Context) {
	id, ok := handler.ParseID(c, "报修")
	if !ok {
		return
	}
	var req RepairStatusRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	if handler.HandleError(c, h.repairService.UpdateStatus(c.Request.Context(), id, req.HandleStatus)) {
		return
	}
	invalidate(c, h.cache)
	handler.MustSucceedWithMessage(c, nil, "状态已更新为"+req.HandleStatus.String())
}

// Delete 删除报修
// @Router /api/admin/repairs/{id} [delete]
func (h *RepairHandler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "报修")
	if !ok {
		return
	}
	if handler.HandleError(c, h.repairService.Delete(c.Request.Context(), id)) {
		return
	}
	invalidate(c, h.cache)
	handler.MustSucceedWithMessage(c, nil, "删除成功")
}

// RegisterRoutes 注册报修路由
func (h *RepairHandler) RegisterRoutes(r *gin.RouterGroup) {
	repairs := r.Group("/repairs")
	{
		repairs.GET("", h.List)
		repairs.POST("", h.Create)
		repairs.GET("/:id", h.Get)
		repairs.PUT("/:id", h.Update)
		repairs.PUT("/:id/status", h.UpdateStatus)
		repairs.DELETE("/:id", h.Delete)
	}
}
