package sharding

import (
	"mailsync-go/internal/config"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHosts() []config.DatabaseHostConfig {
	return []config.DatabaseHostConfig{
		{
			Host: "db-a",
			Shards: []config.ShardConfig{
				{ID: 3, Open: true},
				{ID: 0, Open: true},
				{ID: 4, Open: false},
			},
		},
		{
			Host: "db-b",
			Shards: []config.ShardConfig{
				{ID: 1, Open: true, Disabled: true},
				{ID: 2, Open: true},
				{ID: 5},
			},
		},
	}
}

func TestStaticRegistry_ShardIDs(t *testing.T) {
	reg, err := NewStaticRegistry(testHosts())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, reg.ShardIDs())
	assert.Equal(t, []int{0, 2, 3}, reg.OpenShardIDs())
}

func TestStaticRegistry_Empty(t *testing.T) {
	reg, err := NewStaticRegistry(nil)
	require.NoError(t, err)

	assert.NotNil(t, reg.ShardIDs())
	assert.Empty(t, reg.ShardIDs())
	assert.Empty(t, reg.OpenShardIDs())
}

func TestStaticRegistry_InvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		hosts []config.DatabaseHostConfig
	}{
		{
			name:  "missing host name",
			hosts: []config.DatabaseHostConfig{{Shards: []config.ShardConfig{{ID: 0}}}},
		},
		{
			name: "duplicate shard id",
			hosts: []config.DatabaseHostConfig{
				{Host: "a", Shards: []config.ShardConfig{{ID: 1}}},
				{Host: "b", Shards: []config.ShardConfig{{ID: 1}}},
			},
		},
		{
			name:  "negative shard id",
			hosts: []config.DatabaseHostConfig{{Host: "a", Shards: []config.ShardConfig{{ID: -1}}}},
		},
		{
			name:  "shard id overflows key space",
			hosts: []config.DatabaseHostConfig{{Host: "a", Shards: []config.ShardConfig{{ID: MaxShardID + 1}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStaticRegistry(tt.hosts)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestStaticRegistry_Reload(t *testing.T) {
	reg, err := NewStaticRegistry(testHosts())
	require.NoError(t, err)

	err = reg.Reload([]config.DatabaseHostConfig{
		{Host: "db-c", Shards: []config.ShardConfig{{ID: 7, Open: true}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{7}, reg.ShardIDs())
	assert.Equal(t, []int{7}, reg.OpenShardIDs())

	// 非法配置不会替换当前快照
	err = reg.Reload([]config.DatabaseHostConfig{{Host: ""}})
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, []int{7}, reg.ShardIDs())
}

func TestStaticRegistry_ReturnsCopies(t *testing.T) {
	reg, err := NewStaticRegistry(testHosts())
	require.NoError(t, err)

	ids := reg.ShardIDs()
	ids[0] = 99
	assert.Equal(t, 0, reg.ShardIDs()[0])
}

func TestStaticRegistry_ConcurrentReload(t *testing.T) {
	reg, err := NewStaticRegistry(testHosts())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = reg.Reload(testHosts())
		}()
		go func() {
			defer wg.Done()
			assert.Len(t, reg.ShardIDs(), 6)
		}()
	}
	wg.Wait()
}

type shardList []int

func (l shardList) ShardIDs() []int { return l }

func TestConnectedRegistry_HidesShardsWithoutEngine(t *testing.T) {
	reg, err := NewStaticRegistry(testHosts())
	require.NoError(t, err)
	connected := NewConnectedRegistry(reg, shardList{0, 2, 3, 4, 5})

	hosts := testHosts()
	hosts[1].Shards = append(hosts[1].Shards, config.ShardConfig{ID: 7, Open: true})
	require.NoError(t, reg.Reload(hosts))

	assert.Equal(t, []int{0, 2, 3, 7}, reg.OpenShardIDs())
	assert.Equal(t, []int{0, 2, 3}, connected.OpenShardIDs())
	assert.Equal(t, []int{0, 2, 3, 4, 5}, connected.ShardIDs())
	assert.Equal(t, []int{1, 7}, connected.Disconnected())

	for i := 0; i < 100; i++ {
		key, err := RandomOpenKey(connected)
		require.NoError(t, err)
		assert.NotEqual(t, 7, ShardIDFromKey(key))
	}
}

func TestConnectedRegistry_NoEngines(t *testing.T) {
	reg, err := NewStaticRegistry(testHosts())
	require.NoError(t, err)

	_, err = RandomOpenKey(NewConnectedRegistry(reg, shardList{}))
	assert.ErrorIs(t, err, ErrConfiguration)
}
