package sharding

import (
	"mailsync-go/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRegistry 是测试用的 Registry。
type fixedRegistry struct {
	all  []int
	open []int
}

func (r fixedRegistry) ShardIDs() []int     { return r.all }
func (r fixedRegistry) OpenShardIDs() []int { return r.open }

func TestNewKey_RoundTrip(t *testing.T) {
	for _, id := range []int{0, 1, 2, 17, 255, 4096, MaxShardID} {
		key := NewKey(id)
		assert.Equal(t, id, ShardIDFromKey(key))
		assert.Equal(t, int64(id), key>>48)
		assert.GreaterOrEqual(t, key, int64(0))
	}
}

func TestNewKey_LocalOffset(t *testing.T) {
	key := NewKey(3) + 12345
	assert.Equal(t, 3, ShardIDFromKey(key))
	assert.Equal(t, int64(12345), key&(1<<48-1))
}

func TestRandomOpenKey(t *testing.T) {
	reg := fixedRegistry{all: []int{0, 1, 2, 3}, open: []int{1, 3}}

	key, err := randomOpenKey(reg, func(int) int { return 0 })
	require.NoError(t, err)
	assert.Equal(t, NewKey(1), key)

	key, err = randomOpenKey(reg, func(n int) int { return n - 1 })
	require.NoError(t, err)
	assert.Equal(t, NewKey(3), key)
}

func TestRandomOpenKey_OnlyOpenShards(t *testing.T) {
	reg, err := NewStaticRegistry(testHosts())
	require.NoError(t, err)

	open := map[int]bool{0: true, 2: true, 3: true}
	for i := 0; i < 200; i++ {
		key, err := RandomOpenKey(reg)
		require.NoError(t, err)
		assert.True(t, open[ShardIDFromKey(key)], "shard %d is not open", ShardIDFromKey(key))
	}
}

func TestRandomOpenKey_NoOpenShards(t *testing.T) {
	reg, err := NewStaticRegistry([]config.DatabaseHostConfig{
		{Host: "db", Shards: []config.ShardConfig{{ID: 0, Open: false}, {ID: 1, Open: true, Disabled: true}}},
	})
	require.NoError(t, err)

	_, err = RandomOpenKey(reg)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestWorkerShardKeys_TwoWorkers(t *testing.T) {
	reg := fixedRegistry{all: []int{0, 1, 2, 3, 4, 5}}

	keys, err := WorkerShardKeys(reg, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, keys)

	keys, err = WorkerShardKeys(reg, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, keys)
}

func TestWorkerShardKeys_ExactlyOnce(t *testing.T) {
	all := []int{0, 1, 2, 3, 5, 8, 13, 21, 34, 55, 89, 144}
	reg := fixedRegistry{all: all}

	for total := 1; total <= 16; total++ {
		seen := make(map[int]int)
		for idx := 0; idx < total; idx++ {
			keys, err := WorkerShardKeys(reg, idx, total)
			require.NoError(t, err)
			assert.IsIncreasing(t, append([]int{-1}, keys...))
			for _, k := range keys {
				seen[k]++
			}
		}
		require.Len(t, seen, len(all), "total=%d", total)
		for _, id := range all {
			assert.Equal(t, 1, seen[id], "shard %d with %d workers", id, total)
		}
	}
}

func TestWorkerShardKeys_InvalidArguments(t *testing.T) {
	reg := fixedRegistry{all: []int{0, 1}}

	tests := []struct {
		name  string
		index int
		total int
	}{
		{name: "zero workers", index: 0, total: 0},
		{name: "negative index", index: -1, total: 2},
		{name: "index equals total", index: 2, total: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WorkerShardKeys(reg, tt.index, tt.total)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestWorkerShardKeys_MoreWorkersThanShards(t *testing.T) {
	reg := fixedRegistry{all: []int{0, 1}}

	keys, err := WorkerShardKeys(reg, 5, 8)
	require.NoError(t, err)
	assert.NotNil(t, keys)
	assert.Empty(t, keys)
}
