package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"enstp-advisor-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newOpenAITestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(config.LLMConfig{Provider: "openai", BaseURL: srv.URL + "/", APIKey: "k", Model: "m"})
}

func TestOpenAIGenerate(t *testing.T) {
	var got chatRequest
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Bonjour  "},"finish_reason":"stop"}]}`))
	})

	text, err := client.Generate(context.Background(), "prompt", GenerationParams{Temperature: 0.6, MaxTokens: 1536})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", text)

	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.False(t, got.Stream)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.6, *got.Temperature, 1e-9)
	require.NotNil(t, got.MaxTokens)
	assert.Equal(t, 1536, *got.MaxTokens)
}

func TestOpenAIErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"quota"}`, ErrRateLimited},
		{"no choices", http.StatusOK, `{"choices":[]}`, ErrEmptyResponse},
		{"filtered", http.StatusOK, `{"choices":[{"message":{"content":""},"finish_reason":"content_filter"}]}`, ErrEmptyResponse},
		{"blank", http.StatusOK, `{"choices":[{"message":{"content":"   "},"finish_reason":"stop"}]}`, ErrEmptyResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := client.Generate(context.Background(), "p", GenerationParams{})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestOpenAIServerError(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	_, err := client.Generate(context.Background(), "p", GenerationParams{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRateLimited))
	assert.False(t, errors.Is(err, ErrEmptyResponse))
	assert.Contains(t, err.Error(), "502")
}

func TestClassifyGeminiError(t *testing.T) {
	err := classifyGeminiError(genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"})
	assert.ErrorIs(t, err, ErrRateLimited)

	err = classifyGeminiError(genai.APIError{Code: 500, Status: "INTERNAL", Message: "oops"})
	assert.NotErrorIs(t, err, ErrRateLimited)

	err = classifyGeminiError(errors.New("dial tcp: connection refused"))
	assert.NotErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMockClientEchoesLatestInput(t *testing.T) {
	text, err := NewMockClient().Generate(context.Background(), "x\n--- DEBUT ENTREE ---\nJ'aime les ponts\n--- FIN ENTREE ---\ny", GenerationParams{})
	require.NoError(t, err)
	assert.Contains(t, text, "J'aime les ponts")
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), config.LLMConfig{Provider: "nope"})
	assert.Error(t, err)
}
