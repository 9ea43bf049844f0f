package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/chatstream/internal/domain"
)

// NewTestSQLiteStore returns an in-memory store closed at test cleanup.
func NewTestSQLiteStore(t testing.TB) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// SeedSession creates a user with the given id (if needed) and a session it owns.
func SeedSession(t testing.TB, s Store, ownerID, sessionID string) *domain.Session {
	t.Helper()
	ctx := context.Background()

	existing, err := s.GetUser(ctx, ownerID)
	if err != nil {
		t.Fatalf("failed to look up user: %v", err)
	}
	if existing == nil {
		user := &domain.User{
			ID:           ownerID,
			Email:        ownerID + "-" + uuid.NewString()[:8] + "@example.com",
			PasswordHash: "x",
			CreatedAt:    time.Now(),
		}
		if err := s.CreateUser(ctx, user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
	}

	now := time.Now()
	session := &domain.Session{
		ID:        sessionID,
		OwnerID:   ownerID,
		Title:     "New chat",
		Model:     "gpt-4o-mini",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.CreateSession(ctx, session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session
}
