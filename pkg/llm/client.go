// Package llm provides clients for hosted Large Language Models.
package llm

import (
	"context"
	"errors"
	"fmt"

	"enstp-advisor-go/internal/config"
)

var (
	// ErrRateLimited 表示服务端返回过载或配额耗尽。
	ErrRateLimited = errors.New("llm: rate limited")
	// ErrEmptyResponse 表示响应中没有可用的候选内容（安全过滤或空回复）。
	ErrEmptyResponse = errors.New("llm: response blocked or empty")
)

// Client defines the interface for an LLM client.
// Generate 只尝试一次，不做重试。
type Client interface {
	Generate(ctx context.Context, prompt string, gen GenerationParams) (string, error)
}

// GenerationParams 控制生成行为，进程内固定。
type GenerationParams struct {
	Temperature float64
	MaxTokens   int
}

// ParamsFromConfig 把配置转换为生成参数。
func ParamsFromConfig(cfg config.LLMGenerationConfig) GenerationParams {
	return GenerationParams{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}
}

// NewClient creates a new LLM client based on the provider in the config.
func NewClient(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiClient(ctx, cfg)
	case "openai":
		return NewOpenAIClient(cfg), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
