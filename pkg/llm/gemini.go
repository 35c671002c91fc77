package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"enstp-advisor-go/internal/config"

	"google.golang.org/genai"
)

// GeminiClient 通过 Gemini API 生成回复。
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient creates a Client backed by the Gemini Developer API.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiClient{client: client, modelName: cfg.Model}, nil
}

// Generate implements Client.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, gen GenerationParams) (string, error) {
	temp := float32(gen.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(gen.MaxTokens),
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), cfg)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if res == nil || len(res.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// classifyGeminiError 把 RESOURCE_EXHAUSTED / 429 标记为 ErrRateLimited，其余原样包装。
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && isQuotaError(apiErr) {
		return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && isQuotaError(*apiErrPtr) {
		return fmt.Errorf("%w: %s", ErrRateLimited, apiErrPtr.Message)
	}
	return fmt.Errorf("gemini generate content: %w", err)
}

func isQuotaError(e genai.APIError) bool {
	return e.Code == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED"
}
