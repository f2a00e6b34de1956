package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrInvalidLeaseTTL 表示租约时长不是正数。没有过期时间的租约在进程崩溃后永远不会释放。
var ErrInvalidLeaseTTL = errors.New("lease ttl must be positive")

// LeaseRepository 用 Redis 键实现分片级别的 syncback 租约，防止两个进程同时处理同一分片。
type LeaseRepository interface {
	// Acquire 尝试获取或续期租约。租约被其他 owner 持有时返回 false。
	Acquire(ctx context.Context, shardID int, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, shardID int, owner string) error
}

// 获取与续期在同一个脚本里完成：键不存在时写入，持有者是自己时延长 TTL。
var acquireScript = redis.NewScript(`
if redis.call("SET", KEYS[1], ARGV[1], "NX", "PX", ARGV[2]) then
	return 1
end
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// 只有持有者才能删除租约。
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type leaseRepository struct {
	redisClient *redis.Client
}

// NewLeaseRepository 创建一个新的 LeaseRepository 实例。
func NewLeaseRepository(redisClient *redis.Client) LeaseRepository {
	return &leaseRepository{redisClient: redisClient}
}

func leaseKey(shardID int) string {
	return fmt.Sprintf("syncback:shard:%d", shardID)
}

func (r *leaseRepository) Acquire(ctx context.Context, shardID int, owner string, ttl time.Duration) (bool, error) {
	if ttl.Milliseconds() <= 0 {
		return false, fmt.Errorf("%w: %s", ErrInvalidLeaseTTL, ttl)
	}
	held, err := acquireScript.Run(ctx, r.redisClient, []string{leaseKey(shardID)}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("获取分片 %d 的租约失败: %w", shardID, err)
	}
	return held == 1, nil
}

func (r *leaseRepository) Release(ctx context.Context, shardID int, owner string) error {
	err := releaseScript.Run(ctx, r.redisClient, []string{leaseKey(shardID)}, owner).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("释放分片 %d 的租约失败: %w", shardID, err)
	}
	return nil
}
