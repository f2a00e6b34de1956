package repository

import (
	"context"
	"errors"
	"fmt"
	"mailsync-go/internal/model"

	"gorm.io/gorm"
)

// AccountRepository 接口定义了账号数据的持久化操作。
type AccountRepository interface {
	// Create 在 shardKey 所在分片上创建账号，账号 ID 由该分片的自增起点决定。
	Create(ctx context.Context, shardKey int64, account *model.Account) error
	FindByID(ctx context.Context, id int64) (*model.Account, error)
	// FindByEmail 在所有分片中查找邮箱对应的账号。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
}

type accountRepository struct {
	engines EngineSource
}

// NewAccountRepository 创建一个新的 AccountRepository 实例。
func NewAccountRepository(engines EngineSource) AccountRepository {
	return &accountRepository{engines: engines}
}

func (r *accountRepository) Create(ctx context.Context, shardKey int64, account *model.Account) error {
	db, err := r.engines.EngineForKey(shardKey)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Create(account).Error
}

func (r *accountRepository) FindByID(ctx context.Context, id int64) (*model.Account, error) {
	db, err := r.engines.EngineForKey(id)
	if err != nil {
		return nil, err
	}
	var account model.Account
	if err := db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	for _, shardID := range r.engines.ShardIDs() {
		db, err := r.engines.EngineForShard(shardID)
		if err != nil {
			return nil, err
		}
		var account model.Account
		err = db.WithContext(ctx).Where("email = ?", email).First(&account).Error
		if err == nil {
			return &account, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("在分片 %d 上查找账号失败: %w", shardID, err)
		}
	}
	return nil, gorm.ErrRecordNotFound
}
