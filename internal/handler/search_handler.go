package handler

import (
	"context"
	"encoding/json"
	"mailsync-go/internal/search"
	"mailsync-go/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SearchHandler 负责处理 namespace 内的搜索请求。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// SearchRequest 是搜索接口的请求体。query 为空时匹配所有文档。
type SearchRequest struct {
	Query  json.RawMessage `json:"query"`
	Offset int             `json:"offset"`
	Limit  int             `json:"limit"`
}

type searchFunc func(ctx context.Context, ns string, rawQuery []byte, offset, limit int) ([]search.Hit, error)

// SearchMessages 处理 POST /n/:ns/messages/search。
func (h *SearchHandler) SearchMessages(c *gin.Context) {
	h.handle(c, h.searchService.SearchMessages)
}

// SearchThreads 处理 POST /n/:ns/threads/search。
func (h *SearchHandler) SearchThreads(c *gin.Context) {
	h.handle(c, h.searchService.SearchThreads)
}

func (h *SearchHandler) handle(c *gin.Context, fn searchFunc) {
	var req SearchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载: " + err.Error()})
			return
		}
	}

	hits, err := fn(c.Request.Context(), c.Param("ns"), req.Query, req.Offset, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hits)
}
