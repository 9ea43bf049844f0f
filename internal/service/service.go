// Package service implements the chat backend's use-cases: accounts,
// sessions, message history and streamed chat turns.
package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/xiaot623/gogo/chatstream/internal/adapter/llm"
	"github.com/xiaot623/gogo/chatstream/internal/auth"
	"github.com/xiaot623/gogo/chatstream/internal/config"
	"github.com/xiaot623/gogo/chatstream/internal/observability"
	"github.com/xiaot623/gogo/chatstream/internal/policy"
	"github.com/xiaot623/gogo/chatstream/internal/repository"
)

type Service struct {
	store        repository.Store
	sources      llm.Sources
	config       *config.Config
	policyEngine *policy.Engine
	tokens       *auth.Tokens
	metrics      *observability.Metrics
	tracer       trace.Tracer
	logger       zerolog.Logger
	now          func() time.Time
}

func New(store repository.Store, sources llm.Sources, cfg *config.Config, policyEngine *policy.Engine, tokens *auth.Tokens, metrics *observability.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		store:        store,
		sources:      sources,
		config:       cfg,
		policyEngine: policyEngine,
		tokens:       tokens,
		metrics:      metrics,
		tracer:       observability.Tracer(),
		logger:       logger,
		now:          time.Now,
	}
}

func newID() string {
	return uuid.NewString()
}
