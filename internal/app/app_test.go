package app

import (
	"context"
	"testing"
	"time"

	"enstp-advisor-go/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{Store: "memory", TTL: time.Hour, TurnLockTTL: time.Minute},
		LLM: config.LLMConfig{
			Provider:   "mock",
			Generation: config.LLMGenerationConfig{Temperature: 0.6, MaxTokens: 1536},
		},
		Knowledge: config.KnowledgeConfig{Source: "summary"},
		Advisor:   config.AdvisorConfig{Greeting: config.DefaultGreeting},
	}
}

func TestNewWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, mockConfig())
	require.NoError(t, err)
	defer a.Close()

	snap, err := a.Chat.StartSession(ctx)
	require.NoError(t, err)
	res, err := a.Chat.SubmitTurn(ctx, snap.SessionID, "Bonjour")
	require.NoError(t, err)
	assert.Contains(t, res.Reply.Content, "Bonjour")

	tok, err := a.Tokens.Generate(snap.SessionID)
	require.NoError(t, err)
	id, err := a.Tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, snap.SessionID, id)
}

func TestNewWithRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := mockConfig()
	cfg.Session.Store = "redis"
	cfg.Redis.Addr = mr.Addr()

	ctx := context.Background()
	a, err := New(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	snap, err := a.Chat.StartSession(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists("session:"+snap.SessionID))
}

func TestNewFailsOnMissingKnowledgeFile(t *testing.T) {
	cfg := mockConfig()
	cfg.Knowledge = config.KnowledgeConfig{Source: "file", Path: "/does/not/exist.txt"}
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
