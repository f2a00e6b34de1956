// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mailsync-go/internal/config"
	"mailsync-go/pkg/log"
	"mailsync-go/pkg/tasks"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// maxTaskAttempts 是一条索引任务的最大处理次数，超过后提交 offset 放弃重试。
const maxTaskAttempts = 3

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.IndexTask) error
}

// Producer 向索引主题和 syncback 主题写消息。
type Producer struct {
	writer        *kafka.Writer
	indexTopic    string
	syncbackTopic string
}

// NewProducer 初始化 Kafka 生产者。主题在每条消息上指定。
func NewProducer(cfg config.KafkaConfig) *Producer {
	p := &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(strings.Split(cfg.Brokers, ",")...),
			Balancer: &kafka.Hash{},
		},
		indexTopic:    cfg.IndexTopic,
		syncbackTopic: cfg.SyncbackTopic,
	}
	log.Info("Kafka 生产者初始化成功")
	return p
}

// ProduceIndexTask 发送一个索引任务到 Kafka，同一 namespace 的任务进入同一分区。
func (p *Producer) ProduceIndexTask(ctx context.Context, task tasks.IndexTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.indexTopic,
		Key:   []byte(task.NamespacePublicID),
		Value: taskBytes,
	})
}

// PublishActions 把一批 syncback 动作写入 syncback 主题，按账号分区以保持单账号内的顺序。
func (p *Producer) PublishActions(ctx context.Context, actions []tasks.SyncbackAction) error {
	if len(actions) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(actions))
	for _, a := range actions {
		value, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("序列化 syncback 动作 %d 失败: %w", a.ActionLogID, err)
		}
		msgs = append(msgs, kafka.Message{
			Topic: p.syncbackTopic,
			Key:   []byte(a.NamespaceID),
			Value: value,
		})
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close 刷新并关闭底层 writer。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// StartConsumer 启动一个 Kafka 消费者来处理索引任务，直到 ctx 被取消。
// 处理失败的次数记录在 Redis 中，达到阈值后提交 offset 终止重试。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, rdb *redis.Client, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(cfg.Brokers, ","),
		Topic:    cfg.IndexTopic,
		GroupID:  cfg.GroupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.IndexTopic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Error("从 Kafka 读取消息失败", err)
			}
			break
		}

		var task tasks.IndexTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			if err := r.CommitMessages(ctx, m); err != nil {
				log.Errorf("提交错误消息失败: %v", err)
			}
			continue
		}

		attemptsKey := fmt.Sprintf("kafka:attempts:%s:%s:%d", task.NamespacePublicID, task.Kind, task.RecordID)
		if err := processor.Process(ctx, task); err != nil {
			log.Errorf("处理索引任务失败: kind=%s, record=%d, Error: %v", task.Kind, task.RecordID, err)
			attempts, incErr := rdb.Incr(ctx, attemptsKey).Result()
			if incErr != nil {
				// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
				continue
			}
			_ = rdb.Expire(ctx, attemptsKey, 24*time.Hour).Err()
			if attempts >= maxTaskAttempts {
				log.Errorf("索引任务多次失败(>=%d)，提交 offset 终止重试: kind=%s, record=%d", maxTaskAttempts, task.Kind, task.RecordID)
				if err := r.CommitMessages(ctx, m); err != nil {
					log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
				}
			}
			continue
		}

		_ = rdb.Del(ctx, attemptsKey).Err()
		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}

	if err := r.Close(); err != nil {
		log.Errorf("关闭 Kafka 消费者失败: %v", err)
	}
}
