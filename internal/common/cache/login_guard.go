package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginGuard 按账号统计连续登录失败次数，达到上限后在锁定期内拒绝登录
type LoginGuard struct {
	rdb         redis.Cmdable
	maxFailures int64
	lockout     time.Duration
}

// NewLoginGuard 创建登录失败计数器
func NewLoginGuard(rdb redis.Cmdable, maxFailures int, lockout time.Duration) *LoginGuard {
	return &LoginGuard{rdb: rdb, maxFailures: int64(maxFailures), lockout: lockout}
}

// Locked 返回账号是否被锁定及剩余锁定时长
func (g *LoginGuard) Locked(ctx context.Context, account string) (bool, time.Duration, error) {
	if g.maxFailures <= 0 {
		return false, 0, nil
	}
	key := BuildKey(KeyPrefixLoginFail, account)
	n, err := g.rdb.Get(ctx, key).Int64()
	if IsMiss(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	if n < g.maxFailures {
		return false, 0, nil
	}
	ttl, err := g.rdb.TTL(ctx, key).Result()
	if err != nil {
		return true, 0, err
	}
	return true, ttl, nil
}

// Fail 记录一次失败，返回锁定期内累计失败次数
func (g *LoginGuard) Fail(ctx context.Context, account string) (int64, error) {
	key := BuildKey(KeyPrefixLoginFail, account)
	var incr *redis.IntCmd
	_, err := g.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, g.lockout)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Reset 登录成功后清除失败计数
func (g *LoginGuard) Reset(ctx context.Context, account string) error {
	return g.rdb.Del(ctx, BuildKey(KeyPrefixLoginFail, account)).Err()
}
