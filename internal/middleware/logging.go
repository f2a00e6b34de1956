// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"bytes"
	"io"
	"mailsync-go/pkg/log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// maxLoggedBody 是日志中记录的请求体最大长度。
const maxLoggedBody = 2048

// RequestLogger 是一个 Gin 中间件，用于记录请求日志。
// 账号相关路径的请求体包含 API secret，不写入日志。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
		}
		// 将读取的请求体重新设置回 c.Request.Body，以便后续处理函数可以正常读取
		c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))

		c.Next()

		path := c.Request.URL.Path
		logged := string(requestBody)
		if strings.Contains(path, "/accounts") {
			logged = "[redacted]"
		} else if len(logged) > maxLoggedBody {
			logged = logged[:maxLoggedBody] + "..."
		}

		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"requestBody", logged,
			"responseSize", c.Writer.Size(),
		)
	}
}
