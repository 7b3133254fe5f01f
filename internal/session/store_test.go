package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_IssueReadRoundtrip(t *testing.T) {
	store := newTestStore(t, time.Hour)
	ctx := context.Background()

	id, err := store.Issue(ctx, "bearer-token")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	token, err := store.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "bearer-token", token)
}

func TestStore_IssueRequiresToken(t *testing.T) {
	store := newTestStore(t, time.Hour)

	_, err := store.Issue(context.Background(), "   ")
	require.Error(t, err)
}

func TestStore_ReadUnknownID(t *testing.T) {
	store := newTestStore(t, time.Hour)

	_, err := store.Read(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = store.Read(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStore_ExpiredSessionIsGone(t *testing.T) {
	store := newTestStore(t, 50*time.Millisecond)
	ctx := context.Background()

	id, err := store.Issue(ctx, "bearer-token")
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)

	_, err = store.Read(ctx, id)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStore_Revoke(t *testing.T) {
	store := newTestStore(t, time.Hour)
	ctx := context.Background()

	id, err := store.Issue(ctx, "bearer-token")
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, id))

	_, err = store.Read(ctx, id)
	assert.ErrorIs(t, err, ErrNoSession)

	// Revoking twice is harmless.
	require.NoError(t, store.Revoke(ctx, id))
}

func TestStore_SessionsAreIndependent(t *testing.T) {
	store := newTestStore(t, time.Hour)
	ctx := context.Background()

	first, err := store.Issue(ctx, "token-one")
	require.NoError(t, err)
	second, err := store.Issue(ctx, "token-two")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	require.NoError(t, store.Revoke(ctx, first))

	token, err := store.Read(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "token-two", token)
}
