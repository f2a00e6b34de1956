// Package sharding 负责分片注册表以及基于分片的主键生成与 worker 分配。
package sharding

import (
	"errors"
	"fmt"
	"mailsync-go/internal/config"
	"sort"
	"sync/atomic"
)

// ErrConfiguration 表示分片配置缺失或不合法，属于启动期致命错误，不应按请求重试。
var ErrConfiguration = errors.New("shard configuration error")

// Registry 暴露全部分片 ID 以及当前可写入的分片 ID。
type Registry interface {
	// ShardIDs 返回所有已配置分片的 ID（升序）。
	ShardIDs() []int
	// OpenShardIDs 返回 open 且未被 disabled 的分片 ID（升序）。
	OpenShardIDs() []int
}

// snapshot 是某一时刻分片配置的不可变视图。
type snapshot struct {
	all  []int
	open []int
}

// StaticRegistry 是基于静态配置的 Registry 实现。
// 数据库引擎本身不记录分片的 open/closed 状态，所以这里以配置为准。
type StaticRegistry struct {
	current atomic.Pointer[snapshot]
}

// NewStaticRegistry 根据主机配置构建注册表。配置中没有分片时返回空注册表而不是错误。
func NewStaticRegistry(hosts []config.DatabaseHostConfig) (*StaticRegistry, error) {
	r := &StaticRegistry{}
	if err := r.Reload(hosts); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload 校验新的主机配置并原子地替换当前快照。
// 校验失败时旧快照保持生效，读者不会看到半更新的分片列表。
func (r *StaticRegistry) Reload(hosts []config.DatabaseHostConfig) error {
	snap, err := buildSnapshot(hosts)
	if err != nil {
		return err
	}
	r.current.Store(snap)
	return nil
}

// ShardIDs 返回所有分片 ID 的副本。
func (r *StaticRegistry) ShardIDs() []int {
	return append([]int{}, r.current.Load().all...)
}

// OpenShardIDs 返回可写分片 ID 的副本。
func (r *StaticRegistry) OpenShardIDs() []int {
	return append([]int{}, r.current.Load().open...)
}

func buildSnapshot(hosts []config.DatabaseHostConfig) (*snapshot, error) {
	seen := make(map[int]string)
	snap := &snapshot{all: []int{}, open: []int{}}
	for i, host := range hosts {
		if host.Host == "" {
			return nil, fmt.Errorf("%w: database.hosts[%d] 缺少 host", ErrConfiguration, i)
		}
		for _, shard := range host.Shards {
			if shard.ID < 0 || shard.ID > MaxShardID {
				return nil, fmt.Errorf("%w: 分片 ID %d 超出范围 [0, %d]", ErrConfiguration, shard.ID, MaxShardID)
			}
			if owner, dup := seen[shard.ID]; dup {
				return nil, fmt.Errorf("%w: 分片 ID %d 同时出现在 %s 和 %s", ErrConfiguration, shard.ID, owner, host.Host)
			}
			seen[shard.ID] = host.Host
			snap.all = append(snap.all, shard.ID)
			if shard.Open && !shard.Disabled {
				snap.open = append(snap.open, shard.ID)
			}
		}
	}
	sort.Ints(snap.all)
	sort.Ints(snap.open)
	return snap, nil
}

// ShardLister 列出进程内已建立数据库连接的分片，由 database.EngineManager 实现。
type ShardLister interface {
	ShardIDs() []int
}

// ConnectedRegistry 只暴露同时拥有数据库连接的分片。
// 热更新加入的分片在进程重启前没有连接，不能用来分配新主键。
type ConnectedRegistry struct {
	reg     Registry
	engines ShardLister
}

// NewConnectedRegistry 用已连接的分片过滤 reg。
func NewConnectedRegistry(reg Registry, engines ShardLister) *ConnectedRegistry {
	return &ConnectedRegistry{reg: reg, engines: engines}
}

func (r *ConnectedRegistry) ShardIDs() []int {
	return intersect(r.reg.ShardIDs(), r.engines.ShardIDs())
}

func (r *ConnectedRegistry) OpenShardIDs() []int {
	return intersect(r.reg.OpenShardIDs(), r.engines.ShardIDs())
}

// Disconnected 返回已配置但没有数据库连接的分片。
func (r *ConnectedRegistry) Disconnected() []int {
	connected := make(map[int]bool)
	for _, id := range r.engines.ShardIDs() {
		connected[id] = true
	}
	missing := []int{}
	for _, id := range r.reg.ShardIDs() {
		if !connected[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

// intersect 保留 ids 中同时出现在 allowed 里的元素，顺序与 ids 一致。
func intersect(ids, allowed []int) []int {
	ok := make(map[int]bool, len(allowed))
	for _, id := range allowed {
		ok[id] = true
	}
	out := []int{}
	for _, id := range ids {
		if ok[id] {
			out = append(out, id)
		}
	}
	return out
}
