// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"mailsync-go/internal/search"
	"mailsync-go/internal/service"
	"mailsync-go/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// respondError 把业务错误映射为 HTTP 状态码，其余错误（包括分片配置错误）返回 500。
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, search.ErrInvalidQuery), errors.Is(err, service.ErrInputError):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrAccountExists):
		status = http.StatusConflict
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Errorf("[Handler] %s %s 处理失败: %v", c.Request.Method, c.FullPath(), err)
		message = "internal server error"
	}
	if status == http.StatusNotFound {
		message = "not found"
	}
	c.JSON(status, gin.H{"code": status, "message": message})
}
