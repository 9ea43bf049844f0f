// Package repository implements persistence for users, sessions and messages.
package repository

import (
	"context"

	"github.com/xiaot623/gogo/chatstream/internal/domain"
)

// Store defines the interface for data persistence.
//
// Lookups that find nothing return a nil value and a nil error. Session and
// message accessors are always scoped to an owner: a session that exists but
// belongs to someone else is indistinguishable from a missing one.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error

	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	FindSession(ctx context.Context, sessionID, ownerID string) (*domain.Session, error)
	ListSessions(ctx context.Context, ownerID string) ([]domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, sessionID, ownerID string) (bool, error)

	// Message operations (append-only)
	InsertMessage(ctx context.Context, message *domain.Message) error
	ListMessages(ctx context.Context, sessionID, ownerID string) ([]domain.Message, error)

	// Lifecycle
	Close() error
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
