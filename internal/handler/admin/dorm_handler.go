package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/dormitory-backend/internal/common/handler"
	"github.com/dumeirei/dormitory-backend/internal/models"
	dormService "github.com/dumeirei/dormitory-backend/internal/service/dorm"
)

// DormHandler 宿舍管理处理器
type DormHandler struct {
	dormService *dormService.DormService
	cache       DashboardCache
	paging      handler.Paging
}

// NewDormHandler 创建宿舍管理处理器
func NewDormHandler(dormSvc *dormService.DormService, cache DashboardCache, paging handler.Paging) *DormHandler {
	return &DormHandler{
		dormService: dormSvc,
		cache:       cache,
		paging:      paging,
	}
}

// DormRequest 新增/修改宿舍请求
type DormRequest struct {
	DormID           string `json:"dorm_id"`
	Building         string `json:"building"`
	RoomType         string `json:"room_type"`
	MaxCapacity      int    `json:"max_capacity"`
	CurrentOccupancy int    `json:"current_occupancy"`
	DormManager      string `json:"dorm_manager"`
}

func (r *DormRequest) toModel() *models.Dorm {
	return &models.Dorm{
		DormID:           r.DormID,
		Building:         r.Building,
		RoomType:         r.RoomType,
		MaxCapacity:      r.MaxCapacity,
		CurrentOccupancy: r.CurrentOccupancy,
		DormManager:      r.DormManager,
	}
}

// List 宿舍列表
// @Summary 宿舍列表，可按楼栋模糊筛选
// @Tags 宿舍管理
// @Produce json
// @Security Bearer
// @Param building query string false "楼栋"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Router /api/admin/dorms [get]
func (h *DormHandler) List(c *gin.Context) {
	page := h.paging.Bind(c)

	var (
		dorms []*models.Dorm
		err   error
	)
	if building, ok := c.GetQuery("building"); ok {
		dorms, err = h.dormService.FilterByBuilding(c.Request.Context(), building, page)
	} else {
		dorms, err = h.dormService.List(c.Request.Context(), page)
	}
	handler.MustSucceedPage(c, err, dorms, page)
}

// Get 宿舍详情
// @Router /api/admin/dorms/{id} [get]
func (h *DormHandler) Get(c *gin.Context) {
	dorm, err := h.dormService.GetByID(c.Request.Context(), c.Param("id"))
	handler.MustSucceed(c, err, dorm)
}

// Create 新增宿舍
// @Router /api/admin/dorms [post]
func (h *DormHandler) Create(c *gin.Context) {
	var req DormRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	dorm := req.toModel()
	if handler.HandleError(c, h.dormService.Add(c.Request.Context(), dorm)) {
		return
	}
	invalidate(c, h.cache)
	handler.MustSucceed(c, nil, dorm)
}

// Update 修改宿舍，入住人数不随请求修改
// @Router /api/admin/dorms/{id} [put]
func (h *DormHandler) Update(c *gin.Context) {
	var req DormRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	dorm := req.toModel()
	dorm.DormID = c.Param("id")
	if handler.HandleError(c, h.dormService.Update(c.Request.Context(), dorm)) {
		return
	}
	invalidate(c, h.cache)
	handler.MustSucceedWithMessage(c, nil, "修改成功")
}

// Delete 删除宿舍，仍有学生入住时拒绝
// @Router /api/admin/dorms/{id} [delete]
func (h *DormHandler) Delete(c *gin.Context) {
	if handler.HandleError(c, h.dormService.Delete(c.Request.Context(), c.Param("id"))) {
		return
	}
	invalidate(c, h.cache)
	handler.MustSucceedWithMessage(c, nil, "删除成功")
}

// Reconcile 按学生记录校准入住人数
// @Router /api/admin/dorms/reconcile [post]
func (h *DormHandler) Reconcile(c *gin.Context) {
	drifts, err := h.dormService.Reconcile(c.Request.Context())
	if handler.HandleError(c, err) {
		return
	}
	if len(drifts) > 0 {
		invalidate(c, h.cache)
	}
	handler.MustSucceed(c, nil, drifts)
}

// RegisterRoutes 注册宿舍路由
func (h *DormHandler) RegisterRoutes(r *gin.RouterGroup) {
	dorms := r.Group("/dorms")
	{
		dorms.GET("", h.List)
		dorms.POST("", h.Create)
		dorms.POST("/reconcile", h.Reconcile)
		dorms.GET("/:id", h.Get)
		dorms.PUT("/:id", h.Update)
		dorms.DELETE("/:id", h.Delete)
	}
}
