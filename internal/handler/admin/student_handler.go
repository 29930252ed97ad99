package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/dormitory-backend/internal/common/handler"
	"github.com/dumeirei/dormitory-backend/internal/models"
	studentService "github.com/dumeirei/dormitory-backend/internal/service/student"
)

// StudentHandler 学生管理处理器
type StudentHandler struct {
	studentService *studentService.StudentService
	cache          DashboardCache
	paging         handler.Paging
}

// NewStudentHandler 创建学生管理处理器
func NewStudentHandler(studentSvc *studentService.StudentService, cache DashboardCache, paging handler.Paging) *StudentHandler {
	return &StudentHandler{
		studentService: studentSvc,
		cache:          cache,
		paging:         paging,
	}
}

// StudentRequest 新增/修改学生请求
type StudentRequest struct {
	StudentID    string      `json:"student_id"`
	StudentName  string      `json:"student_name"`
	Gender       string      `json:"gender"`
	Age          int         `json:"age"`
	Major        string      `json:"major"`
	DormID       string      `json:"dorm_id"`
	StudentPhone string      `json:"student_phone"`
	CheckInDate  models.Date `json:"check_in_date"`
}

func (r *StudentRequest) toModel() *models.Student {
	return &models.Student{
		StudentID:    r.StudentID,
		StudentName:  r.StudentName,
		Gender:       r.Gender,
		Age:          r.Age,
		Major:        r.Major,
		DormID:       r.DormID,
		StudentPhone: r.StudentPhone,
		CheckInDate:  r.CheckInDate,
	}
}

// List 学生列表
// @Summary 学生列表，keyword 按学号或姓名模糊搜索
// @Tags 学生管理
// @Produce json
// @Security Bearer
// @Param keyword query string false "学号或姓名"
// @Router /api/admin/students [get]
func (h *StudentHandler) List(c *gin.Context) {
	page := h.paging.Bind(c)

	var (
		students []*models.Student
		err      error
	)
	if keyword, ok := c.GetQuery("keyword"); ok {
		students, err = h.studentService.Search(c.Request.Context(), keyword, page)
	} else {
		students, err = h.studentService.List(c.Request.Context(), page)
	}
	handler.MustSucceedPage(c, err, students, page)
}

// Get 学生详情
// @Router /api/admin/students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.studentService.GetByID(c.Request.Context(), c.Param("id"))
	handler.MustSucceed(c, err, student)
}

// Create 新增学生，宿舍入住人数同时加一
// @Router /api/admin/students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req StudentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	student := req.toModel()
	if handler.HandleError(c, h.studentService.Add(c.Request.Context(), student)) {
		return
	}
	invalidate(c, h.cache)
	handler.MustSucceed(c, nil, student)
}

// Update 修改学生，更换宿舍时同时调整两间宿舍的入住人数
// @Router /api/admin/students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req StudentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	student := req.toModel()
	student.StudentID = c.Param("id")
	if handler.HandleError(c, h.studentService.Update(c.Request.Context(), student)) {
		return
	}
	invalidate(c, h.cache)
	handler.MustSucceedWithMessage(c, nil, "修改成功")
}

// Delete 删除学生
// @Router /api/admin/students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if handler.HandleError(c, h.studentService.Delete(c.Request.Context(), c.Param("id"))) {
		return
	}
	invalidate(c, h.cache)
	handler.MustSucceedWithMessage(c, nil, "删除成功")
}

// RegisterRoutes 注册学生路由
func (h *StudentHandler) RegisterRoutes(r *gin.RouterGroup) {
	students := r.Group("/students")
	{
		students.GET("", h.List)
		students.POST("", h.Create)
		students.GET("/:id", h.Get)
		students.PUT("/:id", h.Update)
		students.DELETE("/:id", h.Delete)
	}
}
