package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/chatstream/internal/domain"
)

func TestSQLiteStoreUsers(t *testing.T) {
	ctx := context.Background()
	store := NewTestSQLiteStore(t)

	user := &domain.User{ID: "u1", Email: "a@example.com", PasswordHash: "h1", CreatedAt: time.Now()}
	require.NoError(t, store.CreateUser(ctx, user))

	err := store.CreateUser(ctx, &domain.User{ID: "u2", Email: "a@example.com", PasswordHash: "h2", CreatedAt: time.Now()})
	require.ErrorIs(t, err, domain.ErrEmailTaken)

	got, err := store.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.ID)

	require.NoError(t, store.UpdateUserPassword(ctx, "u1", "h3"))
	got, err = store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "h3", got.PasswordHash)

	missing, err := store.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteStoreFindSessionIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	store := NewTestSQLiteStore(t)
	SeedSession(t, store, "alice", "s1")
	SeedSession(t, store, "bob", "s2")

	got, err := store.FindSession(ctx, "s1", "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "New chat", got.Title)

	foreign, err := store.FindSession(ctx, "s1", "bob")
	require.NoError(t, err)
	assert.Nil(t, foreign)

	absent, err := store.FindSession(ctx, "nope", "alice")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestSQLiteStoreListSessionsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	store := NewTestSQLiteStore(t)
	first := SeedSession(t, store, "alice", "s1")
	SeedSession(t, store, "alice", "s2")
	SeedSession(t, store, "bob", "s3")

	first.Title = "renamed"
	first.UpdatedAt = time.Now().Add(time.Minute)
	require.NoError(t, store.UpdateSession(ctx, first))

	sessions, err := store.ListSessions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, "renamed", sessions[0].Title)
	assert.Equal(t, "s2", sessions[1].ID)
}

func TestSQLiteStoreMessagesOrderedByInsertion(t *testing.T) {
	ctx := context.Background()
	store := NewTestSQLiteStore(t)
	SeedSession(t, store, "alice", "s1")

	at := time.Now()
	for i, content := range []string{"one", "two", "three"} {
		msg := &domain.Message{
			ID:        []string{"m-c", "m-a", "m-b"}[i],
			OwnerID:   "alice",
			SessionID: "s1",
			Role:      domain.RoleUser,
			Content:   content,
			CreatedAt: at,
		}
		require.NoError(t, store.InsertMessage(ctx, msg))
	}

	messages, err := store.ListMessages(ctx, "s1", "alice")
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "one", messages[0].Content)
	assert.Equal(t, "two", messages[1].Content)
	assert.Equal(t, "three", messages[2].Content)

	foreign, err := store.ListMessages(ctx, "s1", "bob")
	require.NoError(t, err)
	assert.Empty(t, foreign)
}

func TestSQLiteStoreInsertMessageRejectsUnknownRole(t *testing.T) {
	store := NewTestSQLiteStore(t)
	SeedSession(t, store, "alice", "s1")

	err := store.InsertMessage(context.Background(), &domain.Message{
		ID: "m1", OwnerID: "alice", SessionID: "s1", Role: "tool", Content: "x", CreatedAt: time.Now(),
	})
	require.Error(t, err)
}

func TestSQLiteStoreDeleteSessionCascades(t *testing.T) {
	ctx := context.Background()
	store := NewTestSQLiteStore(t)
	SeedSession(t, store, "alice", "s1")
	require.NoError(t, store.InsertMessage(ctx, &domain.Message{
		ID: "m1", OwnerID: "alice", SessionID: "s1", Role: domain.RoleUser, Content: "hi", CreatedAt: time.Now(),
	}))

	deleted, err := store.DeleteSession(ctx, "s1", "bob")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = store.DeleteSession(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.True(t, deleted)

	var count int
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE session_id = 's1'`).Scan(&count))
	assert.Zero(t, count)
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := NewTestSQLiteStore(t)

	applied, err := Migrate(context.Background(), store.db)
	require.NoError(t, err)
	assert.Empty(t, applied)
}
