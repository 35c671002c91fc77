package service

import (
	"context"
	"errors"

	"enstp-advisor-go/pkg/llm"
	"enstp-advisor-go/pkg/log"
)

// FailureKind 标识一次模型调用失败的类别。
type FailureKind string

const (
	FailureNone        FailureKind = "none"
	FailureRateLimited FailureKind = "rate_limited"
	FailureBlocked     FailureKind = "blocked"
	FailureTransport   FailureKind = "transport"
)

// 面向学生的失败提示，原样写入对话。
const (
	RateLimitedText = "Le service est très sollicité actuellement. Veuillez patienter quelques instants avant de réessayer."
	BlockedText     = "Désolé, ma réponse a été bloquée pour des raisons de sécurité ou était vide."
	transportPrefix = "Désolé, une erreur s'est produite: "
	// InterruptedText 补在没有收到回复的学生输入之后。
	InterruptedText = transportPrefix + "la réponse précédente a été interrompue."
)

// Reply 是网关的一次调用结果。失败时 Text 为对应的提示文字。
type Reply struct {
	Text    string
	Failure FailureKind
}

// Failed 报告本次调用是否失败。
func (r Reply) Failed() bool {
	return r.Failure != "" && r.Failure != FailureNone
}

// ModelGateway 包装 llm.Client，把所有错误转换成可直接展示的文字，错误不会向上传递。
type ModelGateway struct {
	client llm.Client
	params llm.GenerationParams
}

// NewModelGateway 生成参数在进程内固定。
func NewModelGateway(client llm.Client, params llm.GenerationParams) *ModelGateway {
	return &ModelGateway{client: client, params: params}
}

// Invoke 只调用一次模型，不重试。
func (g *ModelGateway) Invoke(ctx context.Context, req PromptRequest) Reply {
	text, err := g.client.Generate(ctx, req.Text, g.params)
	if err == nil {
		return Reply{Text: text, Failure: FailureNone}
	}

	switch {
	case errors.Is(err, llm.ErrRateLimited):
		log.Warnw("LLM rate limited", "error", err)
		return Reply{Text: RateLimitedText, Failure: FailureRateLimited}
	case errors.Is(err, llm.ErrEmptyResponse):
		log.Warnw("LLM response blocked or empty", "language", req.Language)
		return Reply{Text: BlockedText, Failure: FailureBlocked}
	default:
		log.Errorw("LLM request failed", "error", err)
		return Reply{Text: transportPrefix + err.Error(), Failure: FailureTransport}
	}
}
