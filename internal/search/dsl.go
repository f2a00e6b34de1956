package search

// Query 是编译后的结构化查询节点，Source 返回可直接 JSON 编码发送给 Elasticsearch 的结构。
type Query interface {
	Source() map[string]interface{}
}

// MatchAllQuery 匹配所有文档。
type MatchAllQuery struct{}

func (MatchAllQuery) Source() map[string]interface{} {
	return map[string]interface{}{"match_all": map[string]interface{}{}}
}

// MatchQuery 是单字段匹配。Phrase 为 true 时按短语匹配，否则按词项匹配（与顺序无关）。
type MatchQuery struct {
	Field   string
	Query   interface{}
	Phrase  bool
	Lenient bool
}

// Source 生成 match 查询。
// ES 8 的 match 不再接受 type: phrase，match_phrase 又不支持 lenient，
// 所以宽松短语匹配写成只包含一个字段的 phrase 型 multi_match。
func (q MatchQuery) Source() map[string]interface{} {
	if q.Phrase {
		body := map[string]interface{}{
			"query":  q.Query,
			"fields": []string{q.Field},
			"type":   "phrase",
		}
		if q.Lenient {
			body["lenient"] = true
		}
		return map[string]interface{}{"multi_match": body}
	}
	body := map[string]interface{}{"query": q.Query}
	if q.Lenient {
		body["lenient"] = true
	}
	return map[string]interface{}{
		"match": map[string]interface{}{q.Field: body},
	}
}

// MultiMatchQuery 在多个字段上匹配同一查询，Fields 中可以带 ^boost 后缀。
type MultiMatchQuery struct {
	Query   interface{}
	Fields  []string
	Type    string
	Lenient bool
}

func (q MultiMatchQuery) Source() map[string]interface{} {
	body := map[string]interface{}{
		"query":  q.Query,
		"fields": q.Fields,
	}
	if q.Type != "" {
		body["type"] = q.Type
	}
	if q.Lenient {
		body["lenient"] = true
	}
	return map[string]interface{}{"multi_match": body}
}

// TermQuery 精确匹配未分词字段。
type TermQuery struct {
	Field string
	Value interface{}
}

func (q TermQuery) Source() map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{q.Field: q.Value},
	}
}

// BoolQuery 组合子查询。Must 为合取；Should 在 MinimumShouldMatch > 0 时作为析取使用。
type BoolQuery struct {
	Must               []Query
	Should             []Query
	Filter             []Query
	MinimumShouldMatch int
}

func (q BoolQuery) Source() map[string]interface{} {
	body := map[string]interface{}{}
	if q.Must != nil {
		body["must"] = sources(q.Must)
	}
	if q.Should != nil {
		body["should"] = sources(q.Should)
	}
	if q.Filter != nil {
		body["filter"] = sources(q.Filter)
	}
	if q.MinimumShouldMatch > 0 {
		body["minimum_should_match"] = q.MinimumShouldMatch
	}
	return map[string]interface{}{"bool": body}
}

// HasParentQuery 通过父文档上的条件匹配子文档。
type HasParentQuery struct {
	ParentType string
	Query      Query
}

func (q HasParentQuery) Source() map[string]interface{} {
	return map[string]interface{}{
		"has_parent": map[string]interface{}{
			"parent_type": q.ParentType,
			"query":       q.Query.Source(),
		},
	}
}

// HasChildQuery 通过子文档上的条件匹配父文档，至少 MinChildren 个子文档命中。
type HasChildQuery struct {
	Type        string
	Query       Query
	MinChildren int
}

func (q HasChildQuery) Source() map[string]interface{} {
	body := map[string]interface{}{
		"type":  q.Type,
		"query": q.Query.Source(),
	}
	if q.MinChildren > 0 {
		body["min_children"] = q.MinChildren
	}
	return map[string]interface{}{"has_child": body}
}

func sources(qs []Query) []interface{} {
	out := make([]interface{}, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.Source())
	}
	return out
}
