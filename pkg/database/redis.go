// Package database 负责外部存储的连接初始化。
package database

import (
	"context"
	"fmt"

	"enstp-advisor-go/internal/config"
	"enstp-advisor-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// NewRedis 创建 Redis 客户端并测试连接。
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	log.Infow("Redis client connected successfully", "addr", cfg.Addr, "db", cfg.DB)
	return rdb, nil
}
