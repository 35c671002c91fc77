// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"enstp-advisor-go/pkg/log"
	"enstp-advisor-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// SessionIDKey 是会话 ID 在 gin.Context 中的键。
const SessionIDKey = "sessionID"

// SessionAuth 创建一个 Gin 中间件，从 Authorization 头中解析会话令牌。
// 它只确定请求属于哪个会话，不做任何账户鉴权。
func SessionAuth(tokens *token.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "missing session token", "data": nil})
			return
		}

		// Token 以 "Bearer <token>" 的形式提供
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "invalid authorization header", "data": nil})
			return
		}

		sessionID, err := tokens.Verify(strings.TrimPrefix(authHeader, bearerPrefix))
		if err != nil {
			log.Warnw("Rejected session token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "invalid or expired session token", "data": nil})
			return
		}

		c.Set(SessionIDKey, sessionID)
		c.Next()
	}
}
