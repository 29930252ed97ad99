// Package middleware 提供 HTTP 中间件
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/dormitory-backend/internal/common/jwt"
	"github.com/dumeirei/dormitory-backend/internal/common/response"
)

// 上下文键
const (
	ContextKeyAdminID   = "admin_id"
	ContextKeyAdminName = "admin_name"
)

// AdminAuth 管理员认证中间件，只接受访问令牌
func AdminAuth(tokens *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		claims, err := tokens.ParseAccessToken(token)
		if err != nil {
			if err == jwt.ErrTokenExpired {
				response.Unauthorized(c, "登录已过期，请重新登录")
			} else {
				response.Unauthorized(c, "无效的令牌")
			}
			c.Abort()
			return
		}

		c.Set(ContextKeyAdminID, claims.AdminID)
		c.Set(ContextKeyAdminName, claims.AdminName)
		c.Next()
	}
}

// extractToken 依次从 Authorization 头和 Cookie 中取令牌
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	token, _ := c.Cookie("token")
	return token
}

// GetAdminID 从上下文获取管理员账号，未登录返回空串
func GetAdminID(c *gin.Context) string {
	return c.GetString(ContextKeyAdminID)
}

// GetAdminName 从上下文获取管理员姓名
func GetAdminName(c *gin.Context) string {
	return c.GetString(ContextKeyAdminName)
}
