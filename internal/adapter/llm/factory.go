package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/xiaot623/gogo/chatstream/internal/config"
)

// DefaultModels is offered when no remote service is configured.
var DefaultModels = []string{"gpt-4o", "gpt-4o-mini", "o3-mini"}

// StaticModels is a fixed model list.
type StaticModels []string

// ListModels implements ModelLister.
func (s StaticModels) ListModels(_ context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}

// Sources bundles the reply sources a turn may use.
type Sources struct {
	// Primary is tried first.
	Primary ReplySource
	// Fallback takes over when Primary fails. It is the same value as Primary
	// when no remote service is configured.
	Fallback ReplySource
	Models   ModelLister
}

// NewSources selects reply sources based on configuration. A configured API
// key selects the remote source; otherwise every turn is served locally.
func NewSources(cfg *config.Config, logger zerolog.Logger) Sources {
	fallback := NewFallbackSource(cfg.FallbackDelay())

	if !cfg.RemoteEnabled() {
		logger.Info().Msg("no LLM API key configured, using local fallback replies")
		return Sources{Primary: fallback, Fallback: fallback, Models: StaticModels(DefaultModels)}
	}

	remote := NewRemoteSource(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout(), logger)
	return Sources{Primary: remote, Fallback: fallback, Models: remote}
}
