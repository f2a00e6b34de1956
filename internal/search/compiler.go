package search

import (
	"fmt"
	"strings"
)

// Compiler 针对某一实体类型把 APIQuery 编译为结构化查询。Compiler 无状态，可并发使用。
type Compiler struct {
	entity      EntityType
	boost       bool
	minChildren int
}

// Option 配置 Compiler。
type Option func(*Compiler)

// WithBoost 控制 all 检索是否带字段权重，默认开启。
func WithBoost(boost bool) Option {
	return func(c *Compiler) { c.boost = boost }
}

// WithMinChildren 设置 has_child 查询要求命中的最少子文档数，默认 1。
func WithMinChildren(n int) Option {
	return func(c *Compiler) {
		if n > 0 {
			c.minChildren = n
		}
	}
}

// NewCompiler 创建针对 entity 的编译器。
func NewCompiler(entity EntityType, opts ...Option) *Compiler {
	c := &Compiler{entity: entity, boost: true, minChildren: 1}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Entity 返回编译器针对的实体类型。
func (c *Compiler) Entity() EntityType {
	return c.entity
}

// Compile 编译 API 查询：
//   - nil 查询编译为 match_all；
//   - 单个子句编译为 bool.must 合取；
//   - 多个子句各自编译后放入 bool.should，minimum_should_match 为 1。
func (c *Compiler) Compile(q *APIQuery) (Query, error) {
	if q == nil {
		return MatchAllQuery{}, nil
	}
	switch len(q.Clauses) {
	case 0:
		return nil, fmt.Errorf("%w: 查询至少需要一个子句", ErrInvalidQuery)
	case 1:
		return c.compileClause(q.Clauses[0])
	}

	should := make([]Query, 0, len(q.Clauses))
	for i, clause := range q.Clauses {
		sub, err := c.compileClause(clause)
		if err != nil {
			return nil, fmt.Errorf("第 %d 个子句: %w", i, err)
		}
		should = append(should, sub)
	}
	return BoolQuery{Should: should, MinimumShouldMatch: 1}, nil
}

// compileClause 先确定子句的目标实体，再生成 AND 查询；目标是关联实体时包装为父子查询。
func (c *Compiler) compileClause(clause Clause) (Query, error) {
	target := c.resolveTarget(clause)
	and, err := c.compileAnd(clause, target)
	if err != nil {
		return nil, err
	}
	if target == c.entity {
		return and, nil
	}

	// 目标是关联实体：message 的父文档是 thread，thread 的子文档是 message。
	if c.entity == EntityMessage {
		return HasParentQuery{ParentType: string(EntityThread), Query: and}, nil
	}
	return HasChildQuery{Type: string(EntityMessage), Query: and, MinChildren: c.minChildren}, nil
}

// compileAnd 生成子句的合取查询，all 使用目标实体的权重表。
func (c *Compiler) compileAnd(clause Clause, target EntityType) (BoolQuery, error) {
	if len(clause.Fields) == 0 {
		return BoolQuery{}, fmt.Errorf("%w: 子句至少需要一个查询字段", ErrInvalidQuery)
	}
	var table weightTable
	if _, ok := clause.Fields[FieldAll]; ok {
		table = newWeightTable(target, clause.Weights)
	}

	must := make([]Query, 0, len(clause.Fields))
	for _, field := range clause.FieldNames() {
		value := clause.Fields[field]
		if field == FieldAll {
			mm, err := c.multiMatch(field, value, table)
			if err != nil {
				return BoolQuery{}, err
			}
			must = append(must, mm)
			continue
		}
		must = append(must, c.match(field, value))
	}
	return BoolQuery{Must: must}, nil
}

// match 生成单字段匹配：列表值以空格拼接后做宽松的词项匹配，标量值做宽松的短语匹配。
func (c *Compiler) match(field string, value interface{}) Query {
	query, isList := matchText(value)
	return MatchQuery{Field: field, Query: query, Phrase: !isList, Lenient: true}
}

// multiMatch 生成 all 的多字段检索，使用 most_fields 让命中字段越多的文档得分越高。
func (c *Compiler) multiMatch(field string, value interface{}, table weightTable) (Query, error) {
	if field != FieldAll || table == nil {
		return nil, fmt.Errorf("%w: 多字段检索只支持 %s 字段，收到 %s", ErrInvalidQuery, FieldAll, field)
	}
	query, _ := matchText(value)
	return MultiMatchQuery{
		Query:   query,
		Fields:  table.fields(c.boost),
		Type:    "most_fields",
		Lenient: true,
	}, nil
}

// resolveTarget 确定子句实际检索的实体类型，不会失败。
// 显式 target 优先；包含 all 的子句留在当前实体；
// 其余字段全部不属于当前实体时视为检索关联实体，混合字段同样留在当前实体。
func (c *Compiler) resolveTarget(clause Clause) EntityType {
	if clause.Target != "" {
		return clause.Target
	}
	if _, ok := clause.Fields[FieldAll]; ok {
		return c.entity
	}
	for field := range clause.Fields {
		if c.entity.HasField(field) {
			return c.entity
		}
	}
	return c.entity.Related()
}

// matchText 返回用于 match 的查询值，以及该值是否来自列表。
func matchText(value interface{}) (interface{}, bool) {
	switch vs := value.(type) {
	case []interface{}:
		parts := make([]string, 0, len(vs))
		for _, v := range vs {
			parts = append(parts, fmt.Sprint(v))
		}
		return strings.Join(parts, " "), true
	case []string:
		return strings.Join(vs, " "), true
	}
	return value, false
}
