package sharding

import (
	"fmt"
	"math/rand/v2"
)

// ShardKeyShift 是分片 ID 在主键中的偏移量。低 48 位留给分片内的本地自增 ID。
const ShardKeyShift = 48

// MaxShardID 保证 shardID << 48 在 int64 中仍为正数。
const MaxShardID = 1<<(63-ShardKeyShift) - 1

// NewKey 返回分片的起始主键，新记录的本地 ID 加在低 48 位上。
func NewKey(shardID int) int64 {
	return int64(shardID) << ShardKeyShift
}

// ShardIDFromKey 从全局主键中还原所属分片 ID。
func ShardIDFromKey(key int64) int {
	return int(key >> ShardKeyShift)
}

// RandomOpenKey 随机选取一个可写分片并返回其起始主键，不考虑各分片负载。
func RandomOpenKey(reg Registry) (int64, error) {
	return randomOpenKey(reg, rand.IntN)
}

func randomOpenKey(reg Registry, intN func(int) int) (int64, error) {
	open := reg.OpenShardIDs()
	if len(open) == 0 {
		return 0, fmt.Errorf("%w: 没有可写入的分片", ErrConfiguration)
	}
	return NewKey(open[intN(len(open))]), nil
}

// WorkerShardKeys 返回第 workerIndex 个 worker（共 totalWorkers 个）负责的分片 ID，升序排列。
//
// 划分规则是 shardID % totalWorkers == workerIndex，因此在 [0, totalWorkers) 上
// 所有 worker 的结果恰好覆盖全部分片一次。totalWorkers 变化后每个 worker 都必须重新计算；
// 同一 totalWorkers 下 workerIndex 的唯一性由部署方保证。
func WorkerShardKeys(reg Registry, workerIndex, totalWorkers int) ([]int, error) {
	if totalWorkers < 1 {
		return nil, fmt.Errorf("%w: total workers 必须 >= 1，实际为 %d", ErrConfiguration, totalWorkers)
	}
	if workerIndex < 0 || workerIndex >= totalWorkers {
		return nil, fmt.Errorf("%w: worker index %d 不在 [0, %d) 内", ErrConfiguration, workerIndex, totalWorkers)
	}
	keys := []int{}
	for _, id := range reg.ShardIDs() {
		if id%totalWorkers == workerIndex {
			keys = append(keys, id)
		}
	}
	return keys, nil
}
