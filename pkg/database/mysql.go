// Package database 管理各分片的 MySQL 连接以及 Redis 客户端。
package database

import (
	"fmt"
	"mailsync-go/internal/config"
	"mailsync-go/internal/model"
	"mailsync-go/internal/sharding"
	"mailsync-go/pkg/log"
	"sort"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// shardedModels 是每个分片上都存在的表；新表的 AUTO_INCREMENT 起点为分片的起始主键。
var shardedModels = []interface{}{
	&model.Account{},
	&model.Thread{},
	&model.Message{},
	&model.Category{},
	&model.ActionLog{},
}

// EngineManager 持有每个分片对应的 gorm 连接。
type EngineManager struct {
	engines map[int]*gorm.DB
}

// NewEngineManager 用已打开的连接构建 EngineManager。
func NewEngineManager(engines map[int]*gorm.DB) *EngineManager {
	return &EngineManager{engines: engines}
}

// InitShards 为配置中的每个分片打开 MySQL 连接，迁移表结构并设置主键起点。
func InitShards(dbCfg config.DatabaseConfig) (*EngineManager, error) {
	engines := make(map[int]*gorm.DB)
	for _, host := range dbCfg.Hosts {
		for _, shard := range host.Shards {
			dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
				host.User, host.Password, host.Host, host.Port, shard.SchemaName)
			db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
				Logger: logger.Default.LogMode(logger.Warn),
			})
			if err != nil {
				return nil, fmt.Errorf("连接分片 %d (%s/%s) 失败: %w", shard.ID, host.Host, shard.SchemaName, err)
			}

			// 配置连接池
			sqlDB, err := db.DB()
			if err != nil {
				return nil, fmt.Errorf("获取分片 %d 的 sql.DB 失败: %w", shard.ID, err)
			}
			sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
			sqlDB.SetMaxOpenConns(dbCfg.MaxOpenConns)
			sqlDB.SetConnMaxLifetime(time.Duration(dbCfg.ConnMaxLifetime) * time.Minute)

			if err := initShardSchema(db, shard.ID); err != nil {
				return nil, err
			}
			engines[shard.ID] = db
			log.Infof("[Database] 分片 %d 已连接 (%s/%s, open=%t, disabled=%t)",
				shard.ID, host.Host, shard.SchemaName, shard.Open, shard.Disabled)
		}
	}
	return NewEngineManager(engines), nil
}

// initShardSchema 迁移表结构，并让空表的自增主键从 shardID << 48 开始，保证主键全局唯一。
func initShardSchema(db *gorm.DB, shardID int) error {
	if err := db.AutoMigrate(shardedModels...); err != nil {
		return fmt.Errorf("迁移分片 %d 的表结构失败: %w", shardID, err)
	}
	base := sharding.NewKey(shardID)
	if base == 0 {
		return nil
	}
	for _, m := range shardedModels {
		var count int64
		if err := db.Model(m).Count(&count).Error; err != nil {
			return fmt.Errorf("统计分片 %d 的表记录数失败: %w", shardID, err)
		}
		if count > 0 {
			continue
		}
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return err
		}
		sql := fmt.Sprintf("ALTER TABLE `%s` AUTO_INCREMENT = %d", stmt.Schema.Table, base)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("设置分片 %d 表 %s 的 AUTO_INCREMENT 失败: %w", shardID, stmt.Schema.Table, err)
		}
	}
	return nil
}

// EngineForShard 返回分片对应的连接。
func (m *EngineManager) EngineForShard(shardID int) (*gorm.DB, error) {
	db, ok := m.engines[shardID]
	if !ok {
		return nil, fmt.Errorf("%w: 分片 %d 没有可用的数据库连接", sharding.ErrConfiguration, shardID)
	}
	return db, nil
}

// EngineForKey 根据全局主键的高位找到记录所在分片的连接。
func (m *EngineManager) EngineForKey(key int64) (*gorm.DB, error) {
	return m.EngineForShard(sharding.ShardIDFromKey(key))
}

// ShardIDs 返回所有已连接分片的 ID（升序）。
func (m *EngineManager) ShardIDs() []int {
	ids := make([]int, 0, len(m.engines))
	for id := range m.engines {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Close 关闭所有分片连接。
func (m *EngineManager) Close() {
	for id, db := range m.engines {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warnf("[Database] 关闭分片 %d 连接失败: %v", id, err)
			}
		}
	}
}
