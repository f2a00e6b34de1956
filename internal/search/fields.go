package search

import (
	"fmt"
	"sort"
	"strconv"
)

// EntityType 标识查询针对的实体类型，决定字段集与默认权重。
type EntityType string

const (
	EntityMessage EntityType = "message"
	EntityThread  EntityType = "thread"
)

// ParseEntityType 把 API 中的字符串转换为 EntityType。
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityMessage, EntityThread:
		return EntityType(s), nil
	}
	return "", fmt.Errorf("%w: 未知的实体类型 %q", ErrInvalidQuery, s)
}

// Related 返回与之构成父子关系的另一实体类型：thread 是 message 的父文档。
func (e EntityType) Related() EntityType {
	if e == EntityMessage {
		return EntityThread
	}
	return EntityMessage
}

// 文件带有 content_type/size/filename/id，标签带有 name/id，这里只按顶层字段检索；namespace_id 不对外开放。
var entityFields = map[EntityType][]string{
	EntityMessage: {
		"id", "object", "subject", "from", "to", "cc", "bcc", "date",
		"thread_id", "snippet", "body", "unread", "files", "version", "state",
	},
	EntityThread: {
		"id", "object", "subject", "participants", "tags",
		"last_message_timestamp", "first_message_timestamp",
	},
}

// defaultBoosts 在查询包含 all 且没有 weights 时生效。thread 的 snippet 不在字段集中，但仍参与 all 检索。
var defaultBoosts = map[EntityType]map[string]float64{
	EntityMessage: {"subject": 3, "snippet": 3, "body": 3},
	EntityThread:  {"subject": 3, "snippet": 3, "participants": 3, "tags": 3},
}

// HasField 判断字段是否属于该实体的字段集。
func (e EntityType) HasField(field string) bool {
	for _, f := range entityFields[e] {
		if f == field {
			return true
		}
	}
	return false
}

// Fields 返回该实体的字段集副本。
func (e EntityType) Fields() []string {
	return append([]string{}, entityFields[e]...)
}

// weightTable 是单次编译使用的字段→权重表，0 表示不加权。
// 每次编译都新建一张表，请求之间不会互相污染。
type weightTable map[string]float64

// newWeightTable 以不加权的实体字段集为基础：查询带 weights 时只合并这些覆盖值，
// 否则使用实体的默认权重。
func newWeightTable(entity EntityType, overrides map[string]float64) weightTable {
	table := make(weightTable, len(entityFields[entity])+len(defaultBoosts[entity]))
	for _, f := range entityFields[entity] {
		table[f] = 0
	}
	boosts := overrides
	if boosts == nil {
		boosts = defaultBoosts[entity]
	}
	for f, w := range boosts {
		table[f] = w
	}
	return table
}

// fields 返回按字段名排序的检索字段列表，boost 为 true 时带上 ^权重 后缀。
func (t weightTable) fields(boost bool) []string {
	names := make([]string, 0, len(t))
	for f := range t {
		names = append(names, f)
	}
	sort.Strings(names)
	if !boost {
		return names
	}
	out := make([]string, 0, len(names))
	for _, f := range names {
		if w := t[f]; w > 0 {
			out = append(out, f+"^"+strconv.FormatFloat(w, 'f', -1, 64))
		} else {
			out = append(out, f)
		}
	}
	return out
}
