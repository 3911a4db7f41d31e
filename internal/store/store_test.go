package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "data", "preminder.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCreateUser_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u1, err := db.CreateUser(ctx, "user@example.com")
	require.NoError(t, err)
	u2, err := db.CreateUser(ctx, " user@example.com ")
	require.NoError(t, err)
	assert.Equal(t, u1, u2)

	_, err = db.CreateUser(ctx, "")
	assert.Error(t, err)
}

func TestCreateEvent_RequiresExistingOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.CreateEvent(ctx, "nobody@example.com", "Artist X ticket sale")
	assert.ErrorIs(t, err, ErrUserNotFound)

	u, err := db.CreateUser(ctx, "user@example.com")
	require.NoError(t, err)

	ev, err := db.CreateEvent(ctx, "user@example.com", "Artist X ticket sale")
	require.NoError(t, err)
	assert.Equal(t, u.ID, ev.OwnerID)
	assert.Equal(t, "Artist X ticket sale", ev.Query)
	assert.False(t, ev.CreatedAt.IsZero())

	_, err = db.CreateEvent(ctx, "user@example.com", "   ")
	assert.Error(t, err)
}

func TestListEvents_AndOwnerAddress(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.CreateUser(ctx, "a@example.com")
	require.NoError(t, err)
	_, err = db.CreateUser(ctx, "b@example.com")
	require.NoError(t, err)

	e1, err := db.CreateEvent(ctx, "a@example.com", "first")
	require.NoError(t, err)
	e2, err := db.CreateEvent(ctx, "b@example.com", "second")
	require.NoError(t, err)

	events, err := db.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, e1.ID, events[0].ID)
	assert.Equal(t, e2.ID, events[1].ID)
	assert.True(t, e1.CreatedAt.Equal(events[0].CreatedAt))

	addr, err := db.OwnerAddress(ctx, events[1].OwnerID)
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", addr)

	_, err = db.OwnerAddress(ctx, 12345)
	assert.ErrorIs(t, err, ErrUserNotFound)

	byUser, err := db.EventsByUser(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, "first", byUser[0].Query)
}

func TestDeleteEvent_CascadesChatHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.CreateUser(ctx, "user@example.com")
	require.NoError(t, err)
	ev, err := db.CreateEvent(ctx, "user@example.com", "Artist X ticket sale")
	require.NoError(t, err)

	_, err = db.AddChatTurn(ctx, ev.ID, "When does the sale open?", true)
	require.NoError(t, err)
	_, err = db.AddChatTurn(ctx, ev.ID, "Which date do you mean?", false)
	require.NoError(t, err)

	turns, err := db.ChatHistory(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.True(t, turns[0].IsUser)
	assert.False(t, turns[1].IsUser)

	require.NoError(t, db.DeleteEvent(ctx, ev.ID))

	turns, err = db.ChatHistory(ctx, ev.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)

	events, err := db.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	assert.ErrorIs(t, db.DeleteEvent(ctx, ev.ID), ErrEventNotFound)
}

func TestAddChatTurn_UnknownEvent(t *testing.T) {
	db := newTestDB(t)
	_, err := db.AddChatTurn(context.Background(), 42, "hello", true)
	assert.ErrorIs(t, err, ErrEventNotFound)
}
