package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/chatstream/internal/domain"
)

// GetMessages returns the messages of an owned session in creation order.
func (s *Service) GetMessages(ctx context.Context, ownerID, sessionID string) ([]domain.Message, error) {
	if _, err := s.GetSession(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, sessionID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get messages: %v", domain.ErrPersistence, err)
	}
	return messages, nil
}
