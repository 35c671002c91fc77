package handler

import (
	"enstp-advisor-go/internal/middleware"
	"enstp-advisor-go/internal/service"
	"enstp-advisor-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// RouterDeps 是注册路由所需的依赖。
type RouterDeps struct {
	ChatService service.ChatService
	Tokens      *token.SessionManager
	Provider    string
}

// NewRouter 创建并注册全部路由。
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	system := NewSystemHandler(deps.Provider)
	conversations := NewConversationHandler(deps.ChatService, deps.Tokens)
	chat := NewChatHandler(deps.ChatService, deps.Tokens)

	r.GET("/healthz", system.Health)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/about", system.About)

		sessions := apiV1.Group("/sessions")
		{
			// 无需令牌
			sessions.POST("", conversations.CreateSession)

			current := sessions.Group("/current")
			current.Use(middleware.SessionAuth(deps.Tokens))
			{
				current.GET("", conversations.GetCurrent)
				current.POST("/turns", conversations.SubmitTurn)
				current.POST("/clear", conversations.Clear)
			}
		}
	}

	// Chat 路由 (WebSocket)
	r.GET("/chat/:token", chat.Handle)
	return r
}

// NewConfigErrorRouter 创建拒绝模式的路由：任何请求都返回 503 和配置提示。
func NewConfigErrorRouter(cfgErr error) *gin.Engine {
	r := gin.New()
	// 全局中间件同样作用于未匹配的路由
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.ConfigGuard(cfgErr))
	return r
}
