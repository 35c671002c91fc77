package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockClient 用于本地开发，不访问网络，也不需要 API 密钥。
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

// Generate 回显提示词中学生的最后一条输入。
func (m *MockClient) Generate(_ context.Context, prompt string, _ GenerationParams) (string, error) {
	latest := prompt
	if i := strings.LastIndex(prompt, "--- DEBUT ENTREE ---"); i >= 0 {
		latest = prompt[i+len("--- DEBUT ENTREE ---"):]
		if j := strings.Index(latest, "--- FIN ENTREE ---"); j >= 0 {
			latest = latest[:j]
		}
	}
	return fmt.Sprintf("D'accord, vous avez dit %q. Pouvez-vous m'en dire plus sur les matières que vous avez préférées ?", strings.TrimSpace(latest)), nil
}
