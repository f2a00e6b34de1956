// Package syncback 把本地修改（action log）派发给服务商回写进程。
// 每个 worker 只处理 WorkerShardKeys 分配给它的分片，保证每个账号恰好由一个 worker 负责。
package syncback

import (
	"context"
	"errors"
	"fmt"
	"mailsync-go/internal/config"
	"mailsync-go/internal/metrics"
	"mailsync-go/internal/model"
	"mailsync-go/internal/repository"
	"mailsync-go/internal/sharding"
	"mailsync-go/pkg/log"
	"mailsync-go/pkg/tasks"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ActionPublisher 把一批动作投递给下游。
type ActionPublisher interface {
	PublishActions(ctx context.Context, actions []tasks.SyncbackAction) error
}

// Service 是单个 syncback worker。
type Service struct {
	workerIndex  int
	totalWorkers int
	keys         []int
	owner        string
	logger       *zap.SugaredLogger

	actionRepo repository.ActionLogRepository
	leases     repository.LeaseRepository
	publisher  ActionPublisher
	cfg        config.SyncbackConfig
}

// NewService 创建 worker 并在启动时计算其负责的分片。
func NewService(
	registry sharding.Registry,
	workerIndex, totalWorkers int,
	actionRepo repository.ActionLogRepository,
	leases repository.LeaseRepository,
	publisher ActionPublisher,
	cfg config.SyncbackConfig,
) (*Service, error) {
	keys, err := sharding.WorkerShardKeys(registry, workerIndex, totalWorkers)
	if err != nil {
		return nil, err
	}
	if cfg.LeaseSeconds <= 0 {
		return nil, fmt.Errorf("%w: syncback.lease_seconds 为 %d", repository.ErrInvalidLeaseTTL, cfg.LeaseSeconds)
	}
	host, _ := os.Hostname()
	return &Service{
		workerIndex:  workerIndex,
		totalWorkers: totalWorkers,
		keys:         keys,
		owner:        fmt.Sprintf("%s:%d:%d/%d", host, os.Getpid(), workerIndex, totalWorkers),
		logger:       log.With("worker", fmt.Sprintf("%d/%d", workerIndex, totalWorkers)),
		actionRepo:   actionRepo,
		leases:       leases,
		publisher:    publisher,
		cfg:          cfg,
	}, nil
}

// Keys 返回该 worker 负责的分片 ID（升序）。
func (s *Service) Keys() []int {
	out := make([]int, len(s.keys))
	copy(out, s.keys)
	return out
}

// Run 为每个负责的分片启动一个轮询循环，直到 ctx 被取消。
func (s *Service) Run(ctx context.Context) error {
	s.logger.Infof("[Syncback] worker 启动, 负责分片: %v", s.keys)
	if len(s.keys) == 0 {
		s.logger.Warnf("[Syncback] worker 没有分配到任何分片")
		<-ctx.Done()
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, shardID := range s.keys {
		g.Go(func() error {
			return s.runShard(gctx, shardID)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Service) runShard(ctx context.Context, shardID int) error {
	interval := time.Duration(s.cfg.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	defer s.releaseLease(shardID)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}
		// 一批取满时说明还有积压，不等下一个周期继续派发
		for {
			n, err := s.pollShard(ctx, shardID)
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				s.logger.Errorf("[Syncback] 分片 %d 派发失败: %v", shardID, err)
				break
			}
			if n < s.batchSize() {
				break
			}
		}
	}
}

// pollShard 取出分片上的一批待派发记录并投递，返回成功派发的条数。
// 租约被其他进程持有时什么也不做。
func (s *Service) pollShard(ctx context.Context, shardID int) (int, error) {
	label := metrics.ShardLabel(shardID)
	ttl := time.Duration(s.cfg.LeaseSeconds) * time.Second
	held, err := s.leases.Acquire(ctx, shardID, s.owner, ttl)
	if err != nil {
		return 0, fmt.Errorf("获取分片 %d 租约失败: %w", shardID, err)
	}
	if !held {
		metrics.SyncbackLeaseHeld.WithLabelValues(label).Set(0)
		s.logger.Warnf("[Syncback] 分片 %d 的租约被其他 worker 持有，请检查 worker 编号配置", shardID)
		return 0, nil
	}
	metrics.SyncbackLeaseHeld.WithLabelValues(label).Set(1)

	logs, err := s.actionRepo.FetchPending(ctx, shardID, s.batchSize())
	if err != nil {
		return 0, fmt.Errorf("读取分片 %d 的 action log 失败: %w", shardID, err)
	}
	if len(logs) == 0 {
		return 0, nil
	}

	actions := make([]tasks.SyncbackAction, 0, len(logs))
	ids := make([]int64, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, toAction(l))
		ids = append(ids, l.ID)
	}

	if err := s.publisher.PublishActions(ctx, actions); err != nil {
		if ferr := s.actionRepo.RecordFailure(ctx, shardID, ids, s.cfg.MaxRetries); ferr != nil {
			s.logger.Errorf("[Syncback] 记录分片 %d 的派发失败次数失败: %v", shardID, ferr)
		}
		metrics.SyncbackActionsTotal.WithLabelValues(label, "failed").Add(float64(len(ids)))
		return 0, fmt.Errorf("投递 %d 条动作失败: %w", len(actions), err)
	}
	if err := s.actionRepo.MarkDispatched(ctx, shardID, ids); err != nil {
		return 0, fmt.Errorf("标记分片 %d 的 action log 为已派发失败: %w", shardID, err)
	}
	metrics.SyncbackActionsTotal.WithLabelValues(label, "dispatched").Add(float64(len(ids)))
	s.logger.Debugf("[Syncback] 分片 %d 派发 %d 条动作", shardID, len(ids))
	return len(ids), nil
}

func (s *Service) releaseLease(shardID int) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.leases.Release(ctx, shardID, s.owner); err != nil {
		s.logger.Warnf("[Syncback] 释放分片 %d 租约失败: %v", shardID, err)
	}
	metrics.SyncbackLeaseHeld.WithLabelValues(metrics.ShardLabel(shardID)).Set(0)
}

func (s *Service) batchSize() int {
	if s.cfg.BatchSize <= 0 {
		return 100
	}
	return s.cfg.BatchSize
}

func toAction(l model.ActionLog) tasks.SyncbackAction {
	return tasks.SyncbackAction{
		ActionLogID: l.ID,
		NamespaceID: model.EncodePublicID(l.NamespaceID),
		RecordID:    model.EncodePublicID(l.RecordID),
		RecordType:  l.RecordType,
		Action:      l.Action,
		Extra:       l.Extra,
	}
}
