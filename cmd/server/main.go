// Package main 是 API 服务与索引管道的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"mailsync-go/internal/config"
	"mailsync-go/internal/handler"
	"mailsync-go/internal/metrics"
	"mailsync-go/internal/middleware"
	"mailsync-go/internal/pipeline"
	"mailsync-go/internal/repository"
	"mailsync-go/internal/service"
	"mailsync-go/internal/sharding"
	"mailsync-go/pkg/database"
	"mailsync-go/pkg/es"
	"mailsync-go/pkg/kafka"
	"mailsync-go/pkg/log"
	"mailsync-go/pkg/storage"
	"mailsync-go/pkg/token"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := pflag.String("config", "./configs/config.yaml", "配置文件路径")
	pflag.Parse()

	// 1. 初始化配置
	config.Init(*configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 分片注册表
	registry, err := sharding.NewStaticRegistry(cfg.Database.Hosts)
	if err != nil {
		log.Fatal("分片配置无效", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. 初始化数据库、Redis 与外部服务
	engines, err := database.InitShards(cfg.Database)
	if err != nil {
		log.Fatal("初始化分片数据库失败", err)
	}
	defer engines.Close()

	// 配置文件变化时热更新注册表；新增分片要等重启建立连接后才参与新账号分配
	connected := sharding.NewConnectedRegistry(registry, engines)
	config.WatchShards(func(hosts []config.DatabaseHostConfig) {
		if err := registry.Reload(hosts); err != nil {
			log.Errorf("分片配置热更新失败，继续使用旧配置: %v", err)
			return
		}
		log.Infof("分片配置已更新, 开放分片: %v", connected.OpenShardIDs())
		if missing := connected.Disconnected(); len(missing) > 0 {
			log.Warnf("分片 %v 尚未建立数据库连接，重启后生效", missing)
		}
	}, func(err error) {
		log.Errorf("分片配置热更新失败: %v", err)
	})
	rdb, err := database.InitRedis(cfg.Database.Redis)
	if err != nil {
		log.Fatal("初始化 Redis 失败", err)
	}
	bodyStore, err := storage.InitMinIO(ctx, cfg.MinIO)
	if err != nil {
		log.Fatal("初始化 MinIO 失败", err)
	}
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Fatal("初始化 Elasticsearch 失败", err)
	}
	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	// 5. 初始化 Repository
	accountRepo := repository.NewAccountRepository(engines)
	messageRepo := repository.NewMessageRepository(engines)
	threadRepo := repository.NewThreadRepository(engines)
	categoryRepo := repository.NewCategoryRepository(engines)

	// 6. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	accountService := service.NewAccountService(accountRepo, connected, jwtManager)
	searchService := service.NewSearchService(es.ESClient, cfg.Elasticsearch.IndexPrefix, cfg.Search)
	messageService := service.NewMessageService(accountRepo, messageRepo, categoryRepo, producer)

	// 7. 索引管道
	processor := pipeline.NewProcessor(
		cfg.Elasticsearch.IndexPrefix,
		messageRepo,
		threadRepo,
		bodyStore,
		pipeline.NewESIndexer(es.ESClient),
	)

	// 8. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), metrics.Middleware(), gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := r.Group("/api/v1")
	{
		accountHandler := handler.NewAccountHandler(accountService)
		accounts := apiV1.Group("/accounts")
		{
			accounts.POST("", accountHandler.CreateAccount)
			accounts.POST("/token", accountHandler.IssueToken)
		}

		// namespace 路由组，token 必须属于路径中的 namespace
		ns := apiV1.Group("/n/:ns")
		ns.Use(middleware.AuthMiddleware(jwtManager))
		{
			searchHandler := handler.NewSearchHandler(searchService)
			ns.POST("/messages/search", searchHandler.SearchMessages)
			ns.POST("/threads/search", searchHandler.SearchThreads)
			ns.PUT("/messages/:id", handler.NewMessageHandler(messageService).UpdateMessage)
		}

		admin := apiV1.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware(cfg.Server.AdminKey))
		{
			admin.GET("/shards", handler.NewShardHandler(registry).ListShards)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		kafka.StartConsumer(gctx, cfg.Kafka, rdb, processor)
		return nil
	})
	g.Go(func() error {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP 服务监听失败: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("接收到停机信号，正在关闭服务...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Errorf("服务异常退出: %v", err)
		return
	}
	log.Info("服务已优雅关闭")
}
