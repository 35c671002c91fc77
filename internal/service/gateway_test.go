package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"enstp-advisor-go/pkg/llm"

	"github.com/stretchr/testify/assert"
)

// fakeClient 记录收到的提示词，并按顺序返回预设结果。
type fakeClient struct {
	mu      sync.Mutex
	prompts []string
	params  []llm.GenerationParams
	reply   func(prompt string) (string, error)
	// block 非空时，Generate 在返回前等待它被关闭
	block   chan struct{}
	started chan struct{}
}

func (f *fakeClient) Generate(_ context.Context, prompt string, gen llm.GenerationParams) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.params = append(f.params, gen)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.reply == nil {
		return "réponse du modèle", nil
	}
	return f.reply(prompt)
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeClient) prompt(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[i]
}

func TestGatewayInvoke(t *testing.T) {
	params := llm.GenerationParams{Temperature: 0.6, MaxTokens: 1536}
	cases := []struct {
		name     string
		err      error
		wantKind FailureKind
		wantText string
	}{
		{"success", nil, FailureNone, "réponse du modèle"},
		{"rate limited", fmt.Errorf("%w: quota", llm.ErrRateLimited), FailureRateLimited, RateLimitedText},
		{"blocked", llm.ErrEmptyResponse, FailureBlocked, BlockedText},
		{"transport", errors.New("connection refused"), FailureTransport, "Désolé, une erreur s'est produite: connection refused"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeClient{reply: func(string) (string, error) {
				if tc.err != nil {
					return "", tc.err
				}
				return "réponse du modèle", nil
			}}
			reply := NewModelGateway(client, params).Invoke(context.Background(), PromptRequest{Text: "p"})
			assert.Equal(t, tc.wantKind, reply.Failure)
			assert.Equal(t, tc.wantText, reply.Text)
			assert.Equal(t, tc.err != nil, reply.Failed())
			assert.Equal(t, 1, client.calls())
			assert.Equal(t, params, client.params[0])
		})
	}
}
