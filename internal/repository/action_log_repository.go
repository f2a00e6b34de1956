package repository

import (
	"context"
	"mailsync-go/internal/model"

	"gorm.io/gorm"
)

// ActionLogRepository 接口定义了 syncback 对 action log 的读取与状态更新。
type ActionLogRepository interface {
	// FetchPending 按 ID 升序返回分片上最多 limit 条待派发的记录。
	FetchPending(ctx context.Context, shardID, limit int) ([]model.ActionLog, error)
	MarkDispatched(ctx context.Context, shardID int, ids []int64) error
	// RecordFailure 增加重试次数，达到 maxRetries 的记录被标记为 failed。
	RecordFailure(ctx context.Context, shardID int, ids []int64, maxRetries int) error
}

type actionLogRepository struct {
	engines EngineSource
}

// NewActionLogRepository 创建一个新的 ActionLogRepository 实例。
func NewActionLogRepository(engines EngineSource) ActionLogRepository {
	return &actionLogRepository{engines: engines}
}

func (r *actionLogRepository) FetchPending(ctx context.Context, shardID, limit int) ([]model.ActionLog, error) {
	db, err := r.engines.EngineForShard(shardID)
	if err != nil {
		return nil, err
	}
	var logs []model.ActionLog
	err = db.WithContext(ctx).
		Where("status = ?", model.ActionStatusPending).
		Order("id").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func (r *actionLogRepository) MarkDispatched(ctx context.Context, shardID int, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	db, err := r.engines.EngineForShard(shardID)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).
		Model(&model.ActionLog{}).
		Where("id IN ?", ids).
		Update("status", model.ActionStatusDispatched).Error
}

func (r *actionLogRepository) RecordFailure(ctx context.Context, shardID int, ids []int64, maxRetries int) error {
	if len(ids) == 0 {
		return nil
	}
	db, err := r.engines.EngineForShard(shardID)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.ActionLog{}).
			Where("id IN ?", ids).
			Update("retries", gorm.Expr("retries + 1")).Error
		if err != nil {
			return err
		}
		return tx.Model(&model.ActionLog{}).
			Where("id IN ? AND retries >= ?", ids, maxRetries).
			Update("status", model.ActionStatusFailed).Error
	})
}
