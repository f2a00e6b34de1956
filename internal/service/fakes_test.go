package service

import (
	"context"
	"fmt"
	"mailsync-go/internal/model"
	"mailsync-go/internal/repository"
	"mailsync-go/internal/sharding"
	"mailsync-go/pkg/tasks"

	"gorm.io/gorm"
)

type fakeAccountRepo struct {
	accounts map[int64]*model.Account
	nextIDs  map[int64]int64
	// engines 非空时只接受这些分片上的写入，与 EngineManager 的行为一致
	engines []int
}

func newFakeAccountRepo(accounts ...*model.Account) *fakeAccountRepo {
	r := &fakeAccountRepo{accounts: map[int64]*model.Account{}, nextIDs: map[int64]int64{}}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *fakeAccountRepo) Create(_ context.Context, shardKey int64, account *model.Account) error {
	if r.engines != nil {
		found := false
		for _, id := range r.engines {
			found = found || id == sharding.ShardIDFromKey(shardKey)
		}
		if !found {
			return fmt.Errorf("%w: 分片 %d 没有数据库连接", sharding.ErrConfiguration, sharding.ShardIDFromKey(shardKey))
		}
	}
	r.nextIDs[shardKey]++
	account.ID = shardKey + r.nextIDs[shardKey]
	r.accounts[account.ID] = account
	return nil
}

func (r *fakeAccountRepo) FindByID(_ context.Context, id int64) (*model.Account, error) {
	if a, ok := r.accounts[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAccountRepo) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	for _, a := range r.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeMessageRepo struct {
	messages map[int64]*model.Message
	updates  []*repository.MessageUpdate
}

func (r *fakeMessageRepo) FindByID(_ context.Context, id int64) (*model.Message, error) {
	if m, ok := r.messages[id]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeMessageRepo) ApplyUpdate(_ context.Context, update *repository.MessageUpdate) error {
	if update.Categories != nil {
		update.Message.Categories = update.Categories
	}
	r.updates = append(r.updates, update)
	return nil
}

type fakeCategoryRepo struct {
	categories []model.Category
}

func (r *fakeCategoryRepo) FindByIDs(_ context.Context, namespaceID int64, ids []int64) ([]model.Category, error) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Category
	for _, c := range r.categories {
		if c.NamespaceID == namespaceID && want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeProducer struct {
	tasks []tasks.IndexTask
}

func (p *fakeProducer) ProduceIndexTask(_ context.Context, task tasks.IndexTask) error {
	p.tasks = append(p.tasks, task)
	return nil
}

type fakeRegistry struct {
	all, open []int
}

func (r fakeRegistry) ShardIDs() []int     { return r.all }
func (r fakeRegistry) OpenShardIDs() []int { return r.open }

func (r *fakeAccountRepo) ShardIDs() []int { return r.engines }
