// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"bytes"
	"io"
	"regexp"
	"time"

	"enstp-advisor-go/pkg/log"

	"github.com/gin-gonic/gin"
)

const redacted = `"token":"[REDACTED]"`

// 会话令牌出现在 POST /api/v1/sessions 的响应里
var tokenField = regexp.MustCompile(`"token"\s*:\s*"[^"]*"`)

// bodyLogWriter 同时把响应写给客户端和内部 buffer
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func redactBody(body []byte) string {
	return tokenField.ReplaceAllString(string(body), redacted)
}

// RequestLogger 为每个请求记录一条 info 日志，只含状态、耗时与路由模板。
// 路由模板代替原始路径，/chat/:token 里的令牌不会进入日志。
// 请求体与响应体包含学生的输入，只在 debug 级别输出，且会话令牌被遮盖。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		withBodies := log.DebugEnabled()
		var requestBody []byte
		var blw *bodyLogWriter
		if withBodies {
			if c.Request.Body != nil {
				requestBody, _ = io.ReadAll(c.Request.Body)
			}
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
			blw = &bodyLogWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
			c.Writer = blw
		}

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		log.Infow("HTTP request",
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"route", route,
		)
		if withBodies {
			log.Debugw("HTTP bodies",
				"route", route,
				"requestBody", redactBody(requestBody),
				"responseBody", redactBody(blw.body.Bytes()),
			)
		}
	}
}
