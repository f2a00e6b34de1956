package repository

import (
	"context"
	"fmt"
	"mailsync-go/internal/model"

	"gorm.io/gorm"
)

// MessageRepository 接口定义了邮件数据的持久化操作。
type MessageRepository interface {
	// FindByID 读取邮件及其分类。
	FindByID(ctx context.Context, id int64) (*model.Message, error)
	// ApplyUpdate 在同一事务内保存邮件的标记与分类变更，并写入对应的 action log。
	ApplyUpdate(ctx context.Context, update *MessageUpdate) error
}

// MessageUpdate 描述一次邮件更新。Categories 为 nil 表示分类不变。
type MessageUpdate struct {
	Message    *model.Message
	Categories []model.Category
	Actions    []model.ActionLog
}

type messageRepository struct {
	engines EngineSource
}

// NewMessageRepository 创建一个新的 MessageRepository 实例。
func NewMessageRepository(engines EngineSource) MessageRepository {
	return &messageRepository{engines: engines}
}

func (r *messageRepository) FindByID(ctx context.Context, id int64) (*model.Message, error) {
	db, err := r.engines.EngineForKey(id)
	if err != nil {
		return nil, err
	}
	var message model.Message
	if err := db.WithContext(ctx).Preload("Categories").First(&message, id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) ApplyUpdate(ctx context.Context, update *MessageUpdate) error {
	m := update.Message
	db, err := r.engines.EngineForKey(m.ID)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.Message{}).
			Where("id = ?", m.ID).
			Updates(map[string]interface{}{
				"unread":  m.Unread,
				"starred": m.Starred,
				"version": gorm.Expr("version + 1"),
			}).Error
		if err != nil {
			return fmt.Errorf("更新邮件 %d 失败: %w", m.ID, err)
		}
		if update.Categories != nil {
			if err := tx.Model(m).Association("Categories").Replace(update.Categories); err != nil {
				return fmt.Errorf("更新邮件 %d 的分类失败: %w", m.ID, err)
			}
			m.Categories = update.Categories
		}
		if len(update.Actions) > 0 {
			if err := tx.Create(&update.Actions).Error; err != nil {
				return fmt.Errorf("写入 action log 失败: %w", err)
			}
		}
		m.Version++
		return nil
	})
}
