package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dumeirei/dormitory-backend/internal/common/cache"
	"github.com/dumeirei/dormitory-backend/internal/common/errors"
	"github.com/dumeirei/dormitory-backend/internal/common/logger"
	"github.com/dumeirei/dormitory-backend/internal/common/response"
)

// KeyPrefixRateLimit 限流计数键前缀
const KeyPrefixRateLimit = "ratelimit:"

// RateLimit 按客户端 IP 和路径的固定窗口限流，Redis 不可用时放行
func RateLimit(rdb redis.Cmdable, limit int, window time.Duration) gin.HandlerFunc {
	log := logger.Named("ratelimit")
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := cache.BuildKey(KeyPrefixRateLimit, c.ClientIP(), c.FullPath())

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("限流计数失败", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if count > int64(limit) {
			ttl, _ := rdb.TTL(ctx, key).Result()
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			response.Error(c, errors.ErrAccountLocked.WithMessage("请求过于频繁，请稍后再试"))
			c.Abort()
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(int64(limit)-count, 10))
		c.Next()
	}
}
