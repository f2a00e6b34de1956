package database

import (
	"context"
	"fmt"
	"mailsync-go/internal/config"
	"mailsync-go/pkg/log"
	"time"

	"github.com/go-redis/redis/v8"
)

// InitRedis 初始化 Redis 客户端连接并检查连通性。
func InitRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis (%s) 失败: %w", cfg.Addr, err)
	}

	log.Info("Redis client connected successfully")
	return rdb, nil
}
