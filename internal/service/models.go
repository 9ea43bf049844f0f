package service

import (
	"context"

	"github.com/xiaot623/gogo/chatstream/internal/adapter/llm"
)

// ListModels returns the models callerID may select. When the remote listing
// fails the static default list is used instead.
func (s *Service) ListModels(ctx context.Context, callerID string) ([]string, error) {
	models, err := s.sources.Models.ListModels(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("model listing failed, using defaults")
		models = llm.DefaultModels
	}
	return s.policyEngine.FilterModels(ctx, callerID, models)
}

// DefaultModel is the model used when neither the turn nor the session names one.
func (s *Service) DefaultModel() string {
	return s.config.DefaultModel
}
