package admin

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/dormitory-backend/internal/common/handler"
	"github.com/dumeirei/dormitory-backend/internal/common/response"
	"github.com/dumeirei/dormitory-backend/internal/models"
	reportService "github.com/dumeirei/dormitory-backend/internal/service/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DashboardHandler 首页统计与报表处理器
type DashboardHandler struct {
	reportService *reportService.ReportService
	paging        handler.Paging
}

// NewDashboardHandler 创建首页统计与报表处理器
func NewDashboardHandler(reportSvc *reportService.ReportService, paging handler.Paging) *DashboardHandler {
	return &DashboardHandler{
		reportService: reportSvc,
		paging:        paging,
	}
}

// Overview 首页统计
// @Summary 首页统计
// @Tags 管理-仪表盘
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=models.DashboardStats}
// @Router /api/admin/dashboard [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	stats, err := h.reportService.Dashboard(c.Request.Context())
	handler.MustSucceed(c, err, stats)
}

// StudentDormFee 学生-宿舍-费用联合查询
// @Summary 学生-宿舍-费用联合查询
// @Tags 报表
// @Produce json
// @Security Bearer
// @Param student_id query string false "学号，模糊匹配"
// @Param dorm_id query string false "宿舍号，模糊匹配"
// @Param fee_month query string false "费用月份 YYYY-MM"
// @Param pay_status query int false "缴费状态"
// @Router /api/admin/reports/student-dorm-fee [get]
func (h *DashboardHandler) StudentDormFee(c *gin.Context) {
	filter, ok := bindReportFilter(c)
	if !ok {
		return
	}
	page := h.paging.Bind(c)
	rows, err := h.reportService.StudentDormFee(c.Request.Context(), filter, page)
	handler.MustSucceedPage(c, err, rows, page)
}

// Export 导出联合查询结果为 xlsx
// @Router /api/admin/reports/student-dorm-fee/export [get]
func (h *DashboardHandler) Export(c *gin.Context) {
	filter, ok := bindReportFilter(c)
	if !ok {
		return
	}
	buf, filename, err := h.reportService.Export(c.Request.Context(), filter)
	if handler.HandleError(c, err) {
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func bindReportFilter(c *gin.Context) (*models.StudentDormFeeFilter, bool) {
	var filter models.StudentDormFeeFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "缴费状态不正确")
		return nil, false
	}
	return &filter, true
}

// RegisterRoutes 注册统计与报表路由
func (h *DashboardHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard", h.Overview)

	reports := r.Group("/reports")
	{
		reports.GET("/student-dorm-fee", h.StudentDormFee)
		reports.GET("/student-dorm-fee/export", h.Export)
	}
}
