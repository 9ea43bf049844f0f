package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/chatstream/internal/domain"
)

const defaultSessionTitle = "New chat"

// CreateSession creates a session for ownerID. Empty fields get defaults.
func (s *Service) CreateSession(ctx context.Context, ownerID string, req domain.CreateSessionRequest) (*domain.Session, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultSessionTitle
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = s.config.DefaultModel
	} else if err := s.checkModel(ctx, ownerID, model); err != nil {
		return nil, err
	}

	now := s.now()
	session := &domain.Session{
		ID:        newID(),
		OwnerID:   ownerID,
		Title:     title,
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: failed to create session: %v", domain.ErrPersistence, err)
	}
	return session, nil
}

// ListSessions returns ownerID's sessions, most recently updated first.
func (s *Service) ListSessions(ctx context.Context, ownerID string) ([]domain.Session, error) {
	sessions, err := s.store.ListSessions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list sessions: %v", domain.ErrPersistence, err)
	}
	return sessions, nil
}

// GetSession returns an owned session or domain.ErrSessionNotFound.
func (s *Service) GetSession(ctx context.Context, ownerID, sessionID string) (*domain.Session, error) {
	session, err := s.store.FindSession(ctx, sessionID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get session: %v", domain.ErrPersistence, err)
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// UpdateSession applies the non-nil fields of req and refreshes UpdatedAt.
func (s *Service) UpdateSession(ctx context.Context, ownerID, sessionID string, req domain.UpdateSessionRequest) (*domain.Session, error) {
	session, err := s.GetSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if title := strings.TrimSpace(*req.Title); title != "" {
			session.Title = title
		}
	}
	if req.Model != nil {
		if model := strings.TrimSpace(*req.Model); model != "" {
			if err := s.checkModel(ctx, ownerID, model); err != nil {
				return nil, err
			}
			session.Model = model
		}
	}
	session.UpdatedAt = s.now()

	if err := s.store.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: failed to update session: %v", domain.ErrPersistence, err)
	}
	return session, nil
}

// DeleteSession removes an owned session and its messages.
func (s *Service) DeleteSession(ctx context.Context, ownerID, sessionID string) error {
	deleted, err := s.store.DeleteSession(ctx, sessionID, ownerID)
	if err != nil {
		return fmt.Errorf("%w: failed to delete session: %v", domain.ErrPersistence, err)
	}
	if !deleted {
		return domain.ErrSessionNotFound
	}
	return nil
}

// checkModel fails with domain.ErrModelNotAllowed unless the policy lets
// ownerID use model.
func (s *Service) checkModel(ctx context.Context, ownerID, model string) error {
	allowed, err := s.policyEngine.AllowModel(ctx, ownerID, model)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: %s", domain.ErrModelNotAllowed, model)
	}
	return nil
}
