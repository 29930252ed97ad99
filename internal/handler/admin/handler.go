// Package admin 管理端 HTTP Handler
package admin

import (
	"context"

	"github.com/gin-gonic/gin"
)

// DashboardCache 首页统计缓存，数据变更后失效
type DashboardCache interface {
	InvalidateDashboard(ctx context.Context)
}

// invalidate 变更成功后清除首页统计缓存，cache 为 nil 时忽略
func invalidate(c *gin.Context, cache DashboardCache) {
	if cache != nil {
		cache.InvalidateDashboard(c.Request.Context())
	}
}
