// Package app 按配置组装服务端与终端共用的依赖。
package app

import (
	"context"
	"fmt"

	"enstp-advisor-go/internal/config"
	"enstp-advisor-go/internal/knowledge"
	"enstp-advisor-go/internal/repository"
	"enstp-advisor-go/internal/service"
	"enstp-advisor-go/pkg/database"
	"enstp-advisor-go/pkg/llm"
	"enstp-advisor-go/pkg/log"
	"enstp-advisor-go/pkg/token"

	"github.com/go-redis/redis/v8"
)

// App 持有已初始化的组件。
type App struct {
	Chat   service.ChatService
	Tokens *token.SessionManager

	rdb *redis.Client
}

// New 依次初始化参考文档、模型客户端、会话存储与对话控制器。
// 调用方应先通过 cfg.Validate()。
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	doc, err := knowledge.Load(ctx, cfg.Knowledge)
	if err != nil {
		return nil, fmt.Errorf("load knowledge document: %w", err)
	}
	assembler, err := service.NewPromptAssembler(doc)
	if err != nil {
		return nil, err
	}
	log.Infow("Knowledge document loaded", "source", doc.Source(), "bytes", len(doc.Text()))

	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}
	gateway := service.NewModelGateway(client, llm.ParamsFromConfig(cfg.LLM.Generation))

	a := &App{Tokens: token.NewSessionManager(cfg.Session.TokenSecret, cfg.Session.TTL)}

	var sessions repository.SessionRepository
	switch cfg.Session.Store {
	case "redis":
		a.rdb, err = database.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		sessions = repository.NewRedisSessionRepository(a.rdb, cfg.Session.TTL, cfg.Session.TurnLockTTL)
	default:
		sessions = repository.NewMemorySessionRepository(cfg.Session.TTL)
	}
	log.Infow("Session store ready", "store", cfg.Session.Store, "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	a.Chat = service.NewChatService(sessions, assembler, gateway, cfg.Advisor.Greeting)
	return a, nil
}

// Close 释放外部连接。
func (a *App) Close() error {
	if a.rdb != nil {
		return a.rdb.Close()
	}
	return nil
}
