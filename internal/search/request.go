package search

// NewSearchRequest 构建发往 Elasticsearch 的请求体。
// 同一索引中同时存放 thread 与 message 文档，因此用 object 字段过滤出目标实体，
// 编译结果本身原样放在 bool.must 中。
func NewSearchRequest(compiled Query, entity EntityType, from, size int) map[string]interface{} {
	wrapped := BoolQuery{
		Must:   []Query{compiled},
		Filter: []Query{TermQuery{Field: "object", Value: string(entity)}},
	}
	return map[string]interface{}{
		"query": wrapped.Source(),
		"from":  from,
		"size":  size,
	}
}
