package middleware

import (
	"net/http"

	"enstp-advisor-go/internal/config"

	"github.com/gin-gonic/gin"
)

// ConfigGuard 在配置错误时拒绝所有请求，统一返回 503 和同一条配置提示。
// 必须注册在所有路由之前。
func ConfigGuard(cfgErr error) gin.HandlerFunc {
	message := config.UserMessage(cfgErr)
	return func(c *gin.Context) {
		if cfgErr == nil {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"code":    http.StatusServiceUnavailable,
			"message": message,
			"data":    nil,
		})
	}
}
