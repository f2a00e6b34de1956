package repository

import (
	"context"
	"mailsync-go/internal/model"
)

// ThreadRepository 接口定义了会话数据的读取操作。
type ThreadRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Thread, error)
	// Tags 返回会话内所有邮件的分类显示名（去重）。
	Tags(ctx context.Context, thread *model.Thread) ([]string, error)
}

type threadRepository struct {
	engines EngineSource
}

// NewThreadRepository 创建一个新的 ThreadRepository 实例。
func NewThreadRepository(engines EngineSource) ThreadRepository {
	return &threadRepository{engines: engines}
}

func (r *threadRepository) FindByID(ctx context.Context, id int64) (*model.Thread, error) {
	db, err := r.engines.EngineForKey(id)
	if err != nil {
		return nil, err
	}
	var thread model.Thread
	if err := db.WithContext(ctx).First(&thread, id).Error; err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *threadRepository) Tags(ctx context.Context, thread *model.Thread) ([]string, error) {
	db, err := r.engines.EngineForKey(thread.ID)
	if err != nil {
		return nil, err
	}
	var tags []string
	err = db.WithContext(ctx).
		Model(&model.Category{}).
		Distinct("categories.display_name").
		Joins("JOIN message_categories mc ON mc.category_id = categories.id").
		Joins("JOIN messages m ON m.id = mc.message_id").
		Where("m.thread_id = ?", thread.ID).
		Order("categories.display_name").
		Pluck("categories.display_name", &tags).Error
	return tags, err
}
