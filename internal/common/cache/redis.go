// Package cache 提供 Redis 缓存功能
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dumeirei/dormitory-backend/internal/common/config"
)

// Init 创建 Redis 客户端并在拨号超时内完成一次 PING，调用方负责 Close
func Init(cfg *config.RedisConfig) (*redis.Client, error) {
	dial := time.Duration(cfg.DialTimeout) * time.Second
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dial,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	if dial <= 0 {
		dial = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), dial)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis %s 失败: %w", cfg.Addr(), err)
	}
	return client, nil
}

// Store 以 JSON 存取缓存值
type Store struct {
	rdb redis.Cmdable
}

// NewStore 创建缓存存储
func NewStore(rdb redis.Cmdable) *Store {
	return &Store{rdb: rdb}
}

// IsMiss 是否为缓存未命中
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Set 设置缓存
func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return s.rdb.Set(ctx, key, data, expiration).Err()
}

// Get 获取缓存，未命中时返回 redis.Nil
func (s *Store) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Delete 删除缓存
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	return s.rdb.Del(ctx, keys...).Err()
}

// 缓存键前缀
const (
	KeyPrefixLoginFail = "login:fail:"
	KeyPrefixDashboard = "dashboard:"
)

// BuildKey 构建缓存键
func BuildKey(prefix string, parts ...string) string {
	return prefix + strings.Join(parts, ":")
}
