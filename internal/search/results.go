package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Hit 是单条 API 搜索结果：后端给出的相关度分数以及原始文档。
type Hit struct {
	Relevance float64         `json:"relevance"`
	Object    json.RawMessage `json:"object"`
}

// esSearchResponse 只解析需要的字段。hits.total 可以从后端拿到，但按约定不返回给 API。
type esSearchResponse struct {
	Hits *struct {
		Hits []struct {
			Score  *float64        `json:"_score"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// AdaptResults 从 Elasticsearch 的搜索响应中提取命中列表，保持后端的排序。
func AdaptResults(r io.Reader) ([]Hit, error) {
	var resp esSearchResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("解析搜索响应失败: %w", err)
	}
	if resp.Hits == nil {
		return nil, errors.New("搜索响应缺少 hits 字段")
	}

	results := make([]Hit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		hit := Hit{Object: h.Source}
		// 按字段排序时 _score 为 null
		if h.Score != nil {
			hit.Relevance = *h.Score
		}
		results = append(results, hit)
	}
	return results, nil
}
