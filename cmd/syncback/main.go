// Package main 是 syncback worker 的入口点。
// 同一组 worker 以相同的 --total-workers 和各不相同的 --worker-index 启动。
package main

import (
	"context"
	"mailsync-go/internal/config"
	"mailsync-go/internal/repository"
	"mailsync-go/internal/sharding"
	"mailsync-go/internal/syncback"
	"mailsync-go/pkg/database"
	"mailsync-go/pkg/kafka"
	"mailsync-go/pkg/log"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.String("config", "./configs/config.yaml", "配置文件路径")
	workerIndex := pflag.Int("worker-index", 0, "当前 worker 的编号，从 0 开始")
	totalWorkers := pflag.Int("total-workers", 1, "worker 总数")
	pflag.Parse()

	config.Init(*configPath)
	cfg := config.Conf

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	// 分片分配只在启动时计算一次，分片增减后需要重启 worker
	registry, err := sharding.NewStaticRegistry(cfg.Database.Hosts)
	if err != nil {
		log.Fatal("分片配置无效", err)
	}

	engines, err := database.InitShards(cfg.Database)
	if err != nil {
		log.Fatal("初始化分片数据库失败", err)
	}
	defer engines.Close()
	rdb, err := database.InitRedis(cfg.Database.Redis)
	if err != nil {
		log.Fatal("初始化 Redis 失败", err)
	}
	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	svc, err := syncback.NewService(
		registry,
		*workerIndex,
		*totalWorkers,
		repository.NewActionLogRepository(engines),
		repository.NewLeaseRepository(rdb),
		producer,
		cfg.Syncback,
	)
	if err != nil {
		log.Fatal("syncback worker 参数无效", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(ctx); err != nil {
		log.Errorf("syncback worker 异常退出: %v", err)
		return
	}
	log.Info("syncback worker 已停止")
}
