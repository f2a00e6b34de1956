// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"mailsync-go/pkg/token"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ClaimsKey 是 AuthMiddleware 在 gin.Context 中存放 token claims 的键。
const ClaimsKey = "claims"

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 路由带有 :ns 参数时，token 所属的 namespace 必须与之一致。
func AuthMiddleware(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请求未包含授权头"})
			return
		}

		// Token 以 "Bearer <token>" 的形式提供
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的授权头格式"})
			return
		}

		claims, err := jwtManager.VerifyToken(strings.TrimPrefix(authHeader, bearerPrefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效或已过期的 token"})
			return
		}

		if ns := c.Param("ns"); ns != "" && ns != claims.NamespacePublicID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "无权访问该 namespace"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
