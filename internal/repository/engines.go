// Package repository 定义了与数据库进行数据交换的接口和实现。
// 所有记录按主键高位路由到所在分片的数据库连接。
package repository

import "gorm.io/gorm"

// EngineSource 提供按分片或按主键查找数据库连接的能力，由 database.EngineManager 实现。
type EngineSource interface {
	EngineForShard(shardID int) (*gorm.DB, error)
	EngineForKey(key int64) (*gorm.DB, error)
	ShardIDs() []int
}
