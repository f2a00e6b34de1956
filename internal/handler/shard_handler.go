package handler

import (
	"mailsync-go/internal/sharding"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxPreviewWorkers = 1024

// ShardHandler 提供分片注册表的只读视图。
type ShardHandler struct {
	registry sharding.Registry
}

// NewShardHandler 创建一个新的 ShardHandler 实例。
func NewShardHandler(registry sharding.Registry) *ShardHandler {
	return &ShardHandler{registry: registry}
}

// ListShards 处理 GET /admin/shards。
// 带上 total_workers 参数时，同时返回每个 syncback worker 负责的分片。
func (h *ShardHandler) ListShards(c *gin.Context) {
	data := gin.H{
		"shards":      h.registry.ShardIDs(),
		"open_shards": h.registry.OpenShardIDs(),
	}

	if raw := c.Query("total_workers"); raw != "" {
		total, err := strconv.Atoi(raw)
		if err != nil || total < 1 || total > maxPreviewWorkers {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "total_workers 必须是 1 到 1024 之间的整数"})
			return
		}
		assignments := make(map[string][]int, total)
		for idx := 0; idx < total; idx++ {
			keys, err := sharding.WorkerShardKeys(h.registry, idx, total)
			if err != nil {
				respondError(c, err)
				return
			}
			assignments[strconv.Itoa(idx)] = keys
		}
		data["assignments"] = assignments
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}
