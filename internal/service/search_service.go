package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mailsync-go/internal/config"
	"mailsync-go/internal/metrics"
	"mailsync-go/internal/search"
	"mailsync-go/pkg/es"
	"mailsync-go/pkg/log"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// SearchService 接口定义了 namespace 内的邮件与会话搜索。
type SearchService interface {
	SearchMessages(ctx context.Context, namespacePublicID string, rawQuery []byte, offset, limit int) ([]search.Hit, error)
	SearchThreads(ctx context.Context, namespacePublicID string, rawQuery []byte, offset, limit int) ([]search.Hit, error)
}

type searchService struct {
	esClient    *elasticsearch.Client
	indexPrefix string
	cfg         config.SearchConfig
	compilers   map[search.EntityType]*search.Compiler
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(esClient *elasticsearch.Client, indexPrefix string, cfg config.SearchConfig) SearchService {
	opts := []search.Option{search.WithBoost(cfg.Boost), search.WithMinChildren(cfg.MinChildren)}
	return &searchService{
		esClient:    esClient,
		indexPrefix: indexPrefix,
		cfg:         cfg,
		compilers: map[search.EntityType]*search.Compiler{
			search.EntityMessage: search.NewCompiler(search.EntityMessage, opts...),
			search.EntityThread:  search.NewCompiler(search.EntityThread, opts...),
		},
	}
}

func (s *searchService) SearchMessages(ctx context.Context, namespacePublicID string, rawQuery []byte, offset, limit int) ([]search.Hit, error) {
	return s.search(ctx, search.EntityMessage, namespacePublicID, rawQuery, offset, limit)
}

func (s *searchService) SearchThreads(ctx context.Context, namespacePublicID string, rawQuery []byte, offset, limit int) ([]search.Hit, error) {
	return s.search(ctx, search.EntityThread, namespacePublicID, rawQuery, offset, limit)
}

func (s *searchService) search(ctx context.Context, entity search.EntityType, namespacePublicID string, rawQuery []byte, offset, limit int) ([]search.Hit, error) {
	start := time.Now()

	body, err := s.buildRequest(entity, rawQuery, offset, limit)
	if err != nil {
		metrics.QueryCompileErrorsTotal.WithLabelValues(string(entity)).Inc()
		return nil, err
	}

	index := es.IndexName(s.indexPrefix, namespacePublicID)
	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(ctx),
		s.esClient.Search.WithIndex(index),
		s.esClient.Search.WithBody(body),
		// namespace 还没有任何文档时索引不存在，返回空结果
		s.esClient.Search.WithIgnoreUnavailable(true),
	)
	if err != nil {
		log.Errorf("[SearchService] 向 Elasticsearch 发送搜索请求失败: %v", err)
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		errBody, _ := io.ReadAll(res.Body)
		log.Errorf("[SearchService] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(errBody))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	hits, err := search.AdaptResults(res.Body)
	if err != nil {
		return nil, err
	}
	metrics.SearchDuration.WithLabelValues(string(entity)).Observe(time.Since(start).Seconds())
	log.Debugf("[SearchService] %s 搜索完成, index: %s, hits: %d", entity, index, len(hits))
	return hits, nil
}

// buildRequest 编译 API 查询并生成完整的搜索请求体。
func (s *searchService) buildRequest(entity search.EntityType, rawQuery []byte, offset, limit int) (*bytes.Buffer, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", search.ErrInvalidQuery)
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	q, err := search.ParseQuery(rawQuery)
	if err != nil {
		return nil, err
	}
	compiled, err := s.compilers[entity].Compile(q)
	if err != nil {
		if !errors.Is(err, search.ErrInvalidQuery) {
			log.Errorf("[SearchService] 编译查询失败: %v", err)
		}
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(search.NewSearchRequest(compiled, entity, offset, limit)); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}
	return &buf, nil
}
