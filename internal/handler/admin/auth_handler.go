package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/dormitory-backend/internal/common/handler"
	"github.com/dumeirei/dormitory-backend/internal/common/response"
	"github.com/dumeirei/dormitory-backend/internal/models"
	adminService "github.com/dumeirei/dormitory-backend/internal/service/admin"
)

// tokenCookie 浏览器端保存访问令牌的 Cookie
const tokenCookie = "token"

// AuthHandler 管理员认证处理器
type AuthHandler struct {
	adminService *adminService.AdminService
	cookieMaxAge int
	secureCookie bool
}

// NewAuthHandler 创建管理员认证处理器，cookieMaxAge 单位为秒
func NewAuthHandler(adminSvc *adminService.AdminService, cookieMaxAge int, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		adminService: adminSvc,
		cookieMaxAge: cookieMaxAge,
		secureCookie: secureCookie,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	AdminID  string `json:"admin_id"`
	Password string `json:"password"`
}

// Login 管理员登录
// @Summary 管理员登录
// @Tags 管理员认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "请求参数"
// @Success 200 {object} response.Response{data=adminService.LoginResponse}
// @Router /api/admin/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	result, err := h.adminService.Login(c.Request.Context(), req.AdminID, req.Password)
	if handler.HandleError(c, err) {
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, result.TokenPair.AccessToken, h.cookieMaxAge, "/", "", h.secureCookie, true)
	response.Success(c, result)
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken 刷新 Token
// @Router /api/admin/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	pair, err := h.adminService.RefreshToken(c.Request.Context(), req.RefreshToken)
	handler.MustSucceed(c, err, pair)
}

// GetCurrentAdmin 获取当前管理员信息
// @Router /api/admin/auth/me [get]
func (h *AuthHandler) GetCurrentAdmin(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}
	admin, err := h.adminService.GetByID(c.Request.Context(), adminID)
	handler.MustSucceed(c, err, admin)
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword 修改密码
// @Router /api/admin/auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	err := h.adminService.ChangePassword(c.Request.Context(), adminID, req.OldPassword, req.NewPassword)
	handler.MustSucceedWithMessage(c, err, "密码修改成功")
}

// CreateAdminRequest 新增管理员请求
type CreateAdminRequest struct {
	AdminID   string `json:"admin_id"`
	AdminName string `json:"admin_name"`
	Password  string `json:"password"`
}

// CreateAdmin 新增管理员
// @Router /api/admin/admins [post]
func (h *AuthHandler) CreateAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	admin := &models.Admin{AdminID: req.AdminID, AdminName: req.AdminName}
	err := h.adminService.Create(c.Request.Context(), admin, req.Password)
	handler.MustSucceed(c, err, admin)
}

// Logout 退出登录
// @Router /api/admin/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	// 依赖 JWT 自然过期，只清除浏览器 Cookie
	c.SetCookie(tokenCookie, "", -1, "/", "", h.secureCookie, true)
	response.Success(c, nil)
}

// RegisterRoutes 注册公开路由
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, limit ...gin.HandlerFunc) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", append(limit, h.Login)...)
		auth.POST("/refresh", h.RefreshToken)
	}
}

// RegisterProtectedRoutes 注册需要认证的路由
func (h *AuthHandler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.GET("/me", h.GetCurrentAdmin)
		auth.PUT("/password", h.ChangePassword)
		auth.POST("/logout", h.Logout)
	}
	r.POST("/admins", h.CreateAdmin)
}
