package repository

import (
	"context"
	"mailsync-go/internal/model"
)

// CategoryRepository 接口定义了分类（label/folder）的读取操作。
type CategoryRepository interface {
	// FindByIDs 返回 namespace 下 ID 在 ids 中的分类，不存在的 ID 被忽略。
	FindByIDs(ctx context.Context, namespaceID int64, ids []int64) ([]model.Category, error)
}

type categoryRepository struct {
	engines EngineSource
}

// NewCategoryRepository 创建一个新的 CategoryRepository 实例。
func NewCategoryRepository(engines EngineSource) CategoryRepository {
	return &categoryRepository{engines: engines}
}

func (r *categoryRepository) FindByIDs(ctx context.Context, namespaceID int64, ids []int64) ([]model.Category, error) {
	var categories []model.Category
	if len(ids) == 0 {
		return categories, nil
	}
	db, err := r.engines.EngineForKey(namespaceID)
	if err != nil {
		return nil, err
	}
	err = db.WithContext(ctx).
		Where("namespace_id = ? AND id IN ?", namespaceID, ids).
		Find(&categories).Error
	return categories, err
}
