// Package storage提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"context"
	"fmt"
	"io"
	"mailsync-go/internal/config"
	"mailsync-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BodyStore 按内容哈希读取原始邮件正文，对象名为 raw/<sha256>。
type BodyStore struct {
	client *minio.Client
	bucket string
}

// InitMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func InitMinIO(ctx context.Context, cfg config.MinIOConfig) (*BodyStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
	}

	log.Info("MinIO 客户端初始化成功")
	return &BodyStore{client: client, bucket: cfg.BucketName}, nil
}

// ObjectName 返回正文在存储桶中的对象名。
func ObjectName(sha256 string) string {
	return "raw/" + sha256
}

// GetBody 读取整段原始正文。
func (s *BodyStore) GetBody(ctx context.Context, sha256 string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, ObjectName(sha256), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("从 MinIO 读取正文 %s 失败: %w", sha256, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("读取 MinIO 对象流失败: %w", err)
	}
	return data, nil
}
