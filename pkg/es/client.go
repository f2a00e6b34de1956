// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mailsync-go/internal/config"
	"mailsync-go/pkg/log"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ESClient *elasticsearch.Client

// namespaceMapping 是每个 namespace 索引的映射。
// thread 与 message 存放在同一个索引中，通过 relation join 字段建立父子关系。
const namespaceMapping = `{
	"mappings": {
		"properties": {
			"id": { "type": "keyword" },
			"object": { "type": "keyword" },
			"namespace_id": { "type": "keyword" },
			"thread_id": { "type": "keyword" },
			"subject": { "type": "text" },
			"snippet": { "type": "text" },
			"body": { "type": "text" },
			"from": { "properties": { "name": { "type": "text" }, "email": { "type": "keyword" } } },
			"to": { "properties": { "name": { "type": "text" }, "email": { "type": "keyword" } } },
			"cc": { "properties": { "name": { "type": "text" }, "email": { "type": "keyword" } } },
			"bcc": { "properties": { "name": { "type": "text" }, "email": { "type": "keyword" } } },
			"participants": { "properties": { "name": { "type": "text" }, "email": { "type": "keyword" } } },
			"files": { "properties": { "id": { "type": "keyword" }, "filename": { "type": "text" }, "content_type": { "type": "keyword" }, "size": { "type": "long" } } },
			"tags": { "type": "text" },
			"date": { "type": "date", "format": "epoch_second" },
			"last_message_timestamp": { "type": "date", "format": "epoch_second" },
			"first_message_timestamp": { "type": "date", "format": "epoch_second" },
			"unread": { "type": "boolean" },
			"version": { "type": "integer" },
			"state": { "type": "keyword" },
			"relation": { "type": "join", "relations": { "thread": "message" } }
		}
	}
}`

// InitES 初始化 Elasticsearch 客户端。Addresses 支持逗号分隔的多个地址。
func InitES(esCfg config.ElasticsearchConfig) error {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("创建 Elasticsearch 客户端失败: %w", err)
	}
	ESClient = client
	log.Info("Elasticsearch 客户端初始化成功")
	return nil
}

// IndexName 返回 namespace 对应的索引名。
func IndexName(prefix, namespacePublicID string) string {
	return fmt.Sprintf("%s-%s", prefix, namespacePublicID)
}

// EnsureIndex 检查索引是否存在，如果不存在则按 namespace 映射创建它。
func EnsureIndex(ctx context.Context, client *elasticsearch.Client, indexName string) error {
	res, err := client.Indices.Exists([]string{indexName}, client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("检查索引 '%s' 是否存在时出错: %w", indexName, err)
	}
	res.Body.Close()
	// 如果 res.StatusCode 是 200，说明索引已存在
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
	}

	res, err = client.Indices.Create(
		indexName,
		client.Indices.Create.WithContext(ctx),
		client.Indices.Create.WithBody(strings.NewReader(namespaceMapping)),
	)
	if err != nil {
		return fmt.Errorf("创建索引 '%s' 失败: %w", indexName, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		// 并发创建时另一方已经建好索引
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, string(body))
	}

	log.Infof("[ES] 索引 '%s' 创建成功", indexName)
	return nil
}

// IndexDocument 将单个文档写入索引。routing 非空时用于把子文档路由到父文档所在分片。
func IndexDocument(ctx context.Context, client *elasticsearch.Client, indexName, docID, routing string, doc interface{}) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("序列化文档失败: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: docID,
		Routing:    routing,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, client)
	if err != nil {
		return fmt.Errorf("索引文档 '%s' 失败: %w", docID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("[ES] 索引文档到 Elasticsearch 出错: %s", res.String())
		return fmt.Errorf("索引文档 '%s' 时 Elasticsearch 返回错误: %s", docID, res.Status())
	}
	return nil
}
