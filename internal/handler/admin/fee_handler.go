package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/dormitory-backend/internal/common/handler"
	"github.com/dumeirei/dormitory-backend/internal/common/response"
	"github.com/dumeirei/dormitory-backend/internal/models"
	feeService "github.com/dumeirei/dormitory-backend/internal/service/fee"
)

// FeeHandler 水电费管理处理器
type FeeHandler struct {
	feeService *feeService.FeeService
	cache      DashboardCache
	paging     handler.Paging
}

// NewFeeHandler 创建水电费管理处理器
func NewFeeHandler(feeSvc *feeService.FeeService, cache DashboardCache, paging handler.Paging) *FeeHandler {
	return &FeeHandler{
		feeService: feeSvc,
		cache:      cache,
		paging:     paging,
	}
}

// FeeRequest 新增/修改费用请求，总费用由服务端计算
type FeeRequest struct {
	StudentID   string           `json:"student_id"`
	DormID      string           `json:"dorm_id"`
	FeeMonth    string           `json:"fee_month"`
	WaterFee    float64          `json:"water_fee"`
	ElectricFee float64          `json:"electric_fee"`
	PayStatus   models.PayStatus `json:"pay_status"`
	PayDate     models.Date      `json:"pay_date"`
}

func (r *FeeRequest) toModel() *models.Fee {
	return &models.Fee{
		StudentID:   r.StudentID,
		DormID:      r.DormID,
		FeeMonth:    r.FeeMonth,
		WaterFee:    r.WaterFee,
		ElectricFee: r.ElectricFee,
		PayStatus:   r.PayStatus,
		PayDate:     r.PayDate,
	}
}

// PayRequest 缴费请求，缴费日期为空时取当天
type PayRequest struct {
	PayDate models.Date `json:"pay_date"`
}

// List 费用列表
// @Summary 费用列表，month 非空时按月份查询，否则按学号、宿舍号、缴费状态组合筛选
// @Tags 水电费管理
// @Produce json
// @Security Bearer
// @Param month query string false "费用月份 YYYY-MM"
// @Param student_id query string false "学号"
// @Param dorm_id query string false "宿舍号"
// @Param pay_status query int false "缴费状态"
// @Router /api/admin/fees [get]
func (h *FeeHandler) List(c *gin.Context) {
	page := h.paging.Bind(c)
	if month, ok := c.GetQuery("month"); ok {
		fees, err := h.feeService.ListByMonth(c.Request.Context(), month, page)
		handler.MustSucceedPage(c, err, fees, page)
		return
	}

	var filter models.FeeFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "缴费状态不正确")
		return
	}
	fees, err := h.feeService.Filter(c.Request.Context(), &filter, page)
	handler.MustSucceedPage(c, err, fees, page)
}

// Get 费用详情
// @Router /api/admin/fees/{id} [get]
func (h *FeeHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "费用")
	if !ok {
		return
	}
	fee, err := h.feeService.GetByID(c.Request.Context(), id)
	handler.MustSucceed(c, err, fee)
}

// Create 新增费用记录
// @Router /api/admin/fees [post]
func (h *FeeHandler) Create(c *gin.Context) {
	var req FeeRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	fee := req.toModel()
	if handler.HandleError(c, h.feeService.Add(c.Request.Context(), fee)) {
		return
	}
	invalidate(c, h.cache)
	handler.MustSucceed(c, nil, fee)
}

// Update 修改费用记录，已缴费记录不可修改
// @Router /api/admin/fees/{id} [put]
func (h *FeeHandler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "费用")
	if !ok {
		return
	}
	var req FeeRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	fee := req.toModel()
	fee.FeeID = id
	if handler.HandleError(c, h.feeService.Update(c.Request.Context(), fee)) {
		return
	}
	invalidate(c, h.cache)
	handler.MustSucceedWithMessage(c, nil, "修改成功")
}

// Pay 标记已缴费
// @Router /api/admin/fees/{id}/pay [put]
func (h *FeeHandler) Pay(c *gin.Context) {
	id, ok := handler.ParseID(c, "费用")
	if !ok {
		return
	}
	var req PayRequest
	if c.Request.ContentLength > 0 && !handler.BindJSON(c, &req) {
		return
	}

	if handler.HandleError(c, h.feeService.UpdatePayStatus(c.Request.Context(), id, req.PayDate)) {
		return
	}
	invalidate(c, h.cache)
	handler.MustSucceedWithMessage(c, nil, "缴费成功")
}

// Delete 删除费用记录
// @Router /api/admin/fees/{id} [delete]
func (h *FeeHandler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "费用")
	if !ok {
		return
	}
	if handler.HandleError(c, h.feeService.Delete(c.Request.Context(), id)) {
		return
	}
	invalidate(c, h.cache)
	handler.MustSucceedWithMessage(c, nil, "删除成功")
}

// RegisterRoutes 注册水电费路由
func (h *FeeHandler) RegisterRoutes(r *gin.RouterGroup) {
	fees := r.Group("/fees")
	{
		fees.GET("", h.List)
		fees.POST("", h.Create)
		fees.GET("/:id", h.Get)
		fees.PUT("/:id", h.Update)
		fees.PUT("/:id/pay", h.Pay)
		fees.DELETE("/:id", h.Delete)
	}
}
