// Package pipeline 定义了把数据库记录写入搜索索引的处理流程。
package pipeline

import (
	"context"
	"fmt"
	"mailsync-go/internal/metrics"
	"mailsync-go/internal/model"
	"mailsync-go/internal/repository"
	"mailsync-go/pkg/es"
	"mailsync-go/pkg/log"
	"mailsync-go/pkg/tasks"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
)

// BodyReader 按内容哈希读取原始邮件。
type BodyReader interface {
	GetBody(ctx context.Context, sha256 string) ([]byte, error)
}

// DocumentIndexer 负责 namespace 索引的创建与文档写入。
type DocumentIndexer interface {
	EnsureIndex(ctx context.Context, index string) error
	Index(ctx context.Context, index, docID, routing string, doc interface{}) error
}

// esIndexer 是基于 go-elasticsearch 的 DocumentIndexer。
type esIndexer struct {
	client *elasticsearch.Client
}

// NewESIndexer 创建写入 Elasticsearch 的 DocumentIndexer。
func NewESIndexer(client *elasticsearch.Client) DocumentIndexer {
	return &esIndexer{client: client}
}

func (i *esIndexer) EnsureIndex(ctx context.Context, index string) error {
	return es.EnsureIndex(ctx, i.client, index)
}

func (i *esIndexer) Index(ctx context.Context, index, docID, routing string, doc interface{}) error {
	return es.IndexDocument(ctx, i.client, index, docID, routing, doc)
}

// Processor 封装了索引任务处理的所有依赖和逻辑。
type Processor struct {
	indexPrefix string
	messageRepo repository.MessageRepository
	threadRepo  repository.ThreadRepository
	bodies      BodyReader
	indexer     DocumentIndexer
	ensured     sync.Map
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	indexPrefix string,
	messageRepo repository.MessageRepository,
	threadRepo repository.ThreadRepository,
	bodies BodyReader,
	indexer DocumentIndexer,
) *Processor {
	return &Processor{
		indexPrefix: indexPrefix,
		messageRepo: messageRepo,
		threadRepo:  threadRepo,
		bodies:      bodies,
		indexer:     indexer,
	}
}

// Process 是索引任务的主函数。
func (p *Processor) Process(ctx context.Context, task tasks.IndexTask) error {
	err := p.process(ctx, task)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.IndexTasksTotal.WithLabelValues(task.Kind, result).Inc()
	return err
}

func (p *Processor) process(ctx context.Context, task tasks.IndexTask) error {
	index := es.IndexName(p.indexPrefix, task.NamespacePublicID)
	if err := p.ensureIndex(ctx, index); err != nil {
		return err
	}

	switch task.Kind {
	case tasks.KindMessage:
		return p.indexMessage(ctx, index, task.RecordID)
	case tasks.KindThread:
		return p.indexThread(ctx, index, task.RecordID)
	}
	return fmt.Errorf("未知的索引任务类型: %q", task.Kind)
}

func (p *Processor) ensureIndex(ctx context.Context, index string) error {
	if _, ok := p.ensured.Load(index); ok {
		return nil
	}
	if err := p.indexer.EnsureIndex(ctx, index); err != nil {
		return err
	}
	p.ensured.Store(index, struct{}{})
	return nil
}

func (p *Processor) indexMessage(ctx context.Context, index string, id int64) error {
	// 1. 从所在分片读取邮件
	message, err := p.messageRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("读取邮件 %d 失败: %w", id, err)
	}

	// 2. 从 MinIO 读取原始邮件并提取正文
	var body string
	if message.DataSHA256 != "" {
		raw, err := p.bodies.GetBody(ctx, message.DataSHA256)
		if err != nil {
			return err
		}
		body = ExtractText(raw)
	}

	// 3. 写入索引，子文档路由到父会话所在的分片
	doc := model.NewMessageDocument(message, body)
	if err := p.indexer.Index(ctx, index, doc.ID, doc.ThreadID, doc); err != nil {
		return err
	}
	log.Infof("[Processor] 邮件 %s 已写入索引 %s, 正文长度: %d", doc.ID, index, len(body))
	return nil
}

func (p *Processor) indexThread(ctx context.Context, index string, id int64) error {
	thread, err := p.threadRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("读取会话 %d 失败: %w", id, err)
	}
	tags, err := p.threadRepo.Tags(ctx, thread)
	if err != nil {
		return fmt.Errorf("读取会话 %d 的分类失败: %w", id, err)
	}

	doc := model.NewThreadDocument(thread, tags)
	if err := p.indexer.Index(ctx, index, doc.ID, doc.ID, doc); err != nil {
		return err
	}
	log.Infof("[Processor] 会话 %s 已写入索引 %s", doc.ID, index)
	return nil
}
