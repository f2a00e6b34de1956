// Package search 把 API 层的布尔查询编译为 Elasticsearch DSL，并把搜索结果转换回 API 结果。
package search

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidQuery 表示调用方传入的查询结构不合法，应作为客户端错误返回，不重试。
var ErrInvalidQuery = errors.New("invalid query")

// 子句中的保留字段。
const (
	FieldAll     = "all"
	FieldWeights = "weights"
	FieldTarget  = "target"
)

// Clause 是一组 AND 组合的 字段→值 条件。
// 值为标量或标量列表；Weights 与 Target 已从字段中剥离。
type Clause struct {
	Fields  map[string]interface{}
	Weights map[string]float64
	// Target 为空时由编译器根据字段归属推断。
	Target EntityType
}

// APIQuery 是 API 查询。nil 表示匹配全部；多个子句之间为 OR 关系。
type APIQuery struct {
	Clauses []Clause
}

// NewClause 从原始映射构建子句，消费保留字段 weights 与 target 并校验值的形状。
func NewClause(raw map[string]interface{}) (Clause, error) {
	c := Clause{Fields: make(map[string]interface{}, len(raw))}
	for field, value := range raw {
		switch field {
		case FieldWeights:
			weights, err := parseWeights(value)
			if err != nil {
				return Clause{}, err
			}
			c.Weights = weights
		case FieldTarget:
			s, ok := value.(string)
			if !ok {
				return Clause{}, fmt.Errorf("%w: target 必须是字符串", ErrInvalidQuery)
			}
			target, err := ParseEntityType(s)
			if err != nil {
				return Clause{}, err
			}
			c.Target = target
		default:
			if err := checkValue(field, value); err != nil {
				return Clause{}, err
			}
			c.Fields[field] = value
		}
	}
	if len(c.Fields) == 0 {
		return Clause{}, fmt.Errorf("%w: 子句至少需要一个查询字段", ErrInvalidQuery)
	}
	return c, nil
}

// FieldNames 返回子句中按字母排序的字段名，编译结果因此是确定的。
func (c Clause) FieldNames() []string {
	names := make([]string, 0, len(c.Fields))
	for f := range c.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return names
}

// ParseQuery 解析请求体中的 JSON 查询。空值或 null 返回 nil（匹配全部）。
func ParseQuery(raw []byte) (*APIQuery, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded interface{}
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	list, ok := decoded.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: 查询必须是子句数组", ErrInvalidQuery)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: 查询至少需要一个子句", ErrInvalidQuery)
	}

	q := &APIQuery{Clauses: make([]Clause, 0, len(list))}
	for i, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: 第 %d 个子句不是 字段→值 映射", ErrInvalidQuery, i)
		}
		clause, err := NewClause(m)
		if err != nil {
			return nil, fmt.Errorf("第 %d 个子句: %w", i, err)
		}
		q.Clauses = append(q.Clauses, clause)
	}
	return q, nil
}

func parseWeights(value interface{}) (map[string]float64, error) {
	m, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: weights 必须是 字段→数值 映射", ErrInvalidQuery)
	}
	weights := make(map[string]float64, len(m))
	for field, w := range m {
		f, ok := toFloat(w)
		if !ok || f < 0 {
			return nil, fmt.Errorf("%w: 字段 %s 的权重必须是非负数", ErrInvalidQuery, field)
		}
		weights[field] = f
	}
	return weights, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func isScalar(v interface{}) bool {
	switch v.(type) {
	case string, bool, json.Number, float64, float32, int, int64, int32, uint, uint64:
		return true
	}
	return false
}

func checkValue(field string, value interface{}) error {
	if isScalar(value) {
		return nil
	}
	switch vs := value.(type) {
	case []interface{}:
		for _, v := range vs {
			if !isScalar(v) {
				return fmt.Errorf("%w: 字段 %s 的列表元素必须是标量", ErrInvalidQuery, field)
			}
		}
		return nil
	case []string:
		return nil
	}
	return fmt.Errorf("%w: 字段 %s 的值必须是标量或标量列表", ErrInvalidQuery, field)
}
