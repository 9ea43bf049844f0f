package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/chatstream/internal/adapter/llm"
	"github.com/xiaot623/gogo/chatstream/internal/auth"
	"github.com/xiaot623/gogo/chatstream/internal/config"
	"github.com/xiaot623/gogo/chatstream/internal/observability"
	"github.com/xiaot623/gogo/chatstream/internal/policy"
	"github.com/xiaot623/gogo/chatstream/internal/repository"
)

func testConfig() *config.Config {
	return &config.Config{
		DefaultModel:       "gpt-4o-mini",
		DefaultTemperature: 0.3,
		TurnMaxDurationMs:  int((5 * time.Second).Milliseconds()),
		AllowedModels:      []string{"gpt-4o", "gpt-4o-mini"},
	}
}

func newTestService(t *testing.T, store repository.Store, sources llm.Sources, cfg *config.Config) *Service {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy, cfg.AllowedModels)
	require.NoError(t, err)

	return New(store, sources, cfg, engine, auth.NewTokens("secret", time.Hour), observability.NewMetrics(), zerolog.Nop())
}

func localSources() llm.Sources {
	fallback := llm.NewFallbackSource(0)
	return llm.Sources{Primary: fallback, Fallback: fallback, Models: llm.StaticModels(llm.DefaultModels)}
}
